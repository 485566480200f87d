// Package survey loads person-level survey extracts (CPS ASEC style) and applies the
// sample restrictions used for benefit estimation.
package survey

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/invertedv/uiwba/frame"
	"github.com/invertedv/uiwba/source"
)

// canonical column names produced by Normalize
const (
	ColYear     = "year"
	ColState    = "state"
	ColWage     = "wage"
	ColWeeks    = "weeks"
	ColEmpStat  = "empstat"
	ColDurUnemp = "durunemp"
	ColWhyUnemp = "whyunemp"
	ColCitizen  = "citizen"
	ColWeight   = "weight"
)

// Fields maps canonical fields to the header names in the extract.  Empty optional fields are skipped.
type Fields struct {
	Year     string `toml:"year" validate:"required"`
	State    string `toml:"state" validate:"required"`
	Wage     string `toml:"wage" validate:"required"`
	Weeks    string `toml:"weeks" validate:"required"`
	EmpStat  string `toml:"empstat"`
	DurUnemp string `toml:"durunemp"`
	WhyUnemp string `toml:"whyunemp"`
	Citizen  string `toml:"citizen"`
	Weight   string `toml:"weight"`
}

// DefaultFields are the IPUMS-CPS variable names.
func DefaultFields() Fields {
	return Fields{
		Year:     "YEAR",
		State:    "STATEFIP",
		Wage:     "INCWAGE",
		Weeks:    "WKSWORK1",
		EmpStat:  "EMPSTAT",
		DurUnemp: "DURUNEMP",
		WhyUnemp: "WHYUNEMP",
		Citizen:  "CITIZEN",
		Weight:   "ASECWT",
	}
}

// Filter holds the sample restrictions.
type Filter struct {
	InvalidWage      []int    `toml:"invalid_wage"`
	NonCitizen       []int    `toml:"non_citizen"`
	Excluded         []string `toml:"excluded"`
	MinWeeks         int      `toml:"min_weeks" validate:"gte=1,lte=52"`
	MaxWeeks         int      `toml:"max_weeks" validate:"gte=1,lte=52,gtefield=MinWeeks"`
	UnemployedOnly   bool     `toml:"unemployed_only"`
	UnemployedStatus []int    `toml:"unemployed_status"`
	JobLoser         []int    `toml:"job_loser"`
}

// DefaultFilter uses IPUMS-CPS codes: INCWAGE 99999999 (NIU) and 99999998 (missing), CITIZEN 5 (not a citizen),
// EMPSTAT 20-22 (unemployed), WHYUNEMP 1-3 (job losers and temporary jobs ended).
func DefaultFilter() Filter {
	return Filter{
		InvalidWage:      []int{99999999, 99999998},
		NonCitizen:       []int{5},
		Excluded:         []string{"DC"},
		MinWeeks:         1,
		MaxWeeks:         52,
		UnemployedStatus: []int{20, 21, 22},
		JobLoser:         []int{1, 2, 3},
	}
}

// Step records the rows dropped by one restriction.
type Step struct {
	Name    string
	Dropped int
	Left    int
}

// Report summarises a Clean.
type Report struct {
	Read  int
	Steps []Step
}

func (r *Report) Kept() int {
	if len(r.Steps) == 0 {
		return r.Read
	}

	return r.Steps[len(r.Steps)-1].Left
}

// Load reads the extract at location and normalises it.
func Load(ctx context.Context, opener *source.Opener, location string, fields Fields) (*frame.Frame, error) {
	rc, e := opener.Open(ctx, location)
	if e != nil {
		return nil, fmt.Errorf("open survey: %w", e)
	}

	var f *frame.Files
	if f, e = frame.NewFiles(frame.FilePeek(0), frame.FileFieldTypes(map[string]frame.DataTypes{fields.State: frame.DTstring})); e != nil {
		return nil, e
	}

	f.OpenReader(rc, location)

	var raw *frame.Frame
	if raw, e = f.Load(); e != nil {
		return nil, fmt.Errorf("read survey: %w", e)
	}

	return Normalize(raw, fields)
}

// Normalize returns a frame with the canonical columns: state is a postal code ("" if not recognised),
// wage, weeks and weight are floats, the remaining fields ints.  A missing weight column gives weights of 1.
func Normalize(raw *frame.Frame, fields Fields) (*frame.Frame, error) {
	n := raw.RowCount()

	var (
		states []string
		e      error
	)
	if states, e = raw.Strings(fields.State); e != nil {
		return nil, e
	}

	codes := make([]string, n)
	for ind, s := range states {
		codes[ind], _ = StateCode(s)
	}

	cols := []*frame.Col{frame.MustCol(ColState, codes)}

	for _, fl := range []struct {
		canon, src string
	}{{ColWage, fields.Wage}, {ColWeeks, fields.Weeks}} {
		var x []float64
		if x, e = raw.Floats(fl.src); e != nil {
			return nil, e
		}

		cols = append(cols, frame.MustCol(fl.canon, copyFloats(x)))
	}

	weight := make([]float64, n)
	for ind := range weight {
		weight[ind] = 1
	}

	if fields.Weight != "" && raw.Column(fields.Weight) != nil {
		var w []float64
		if w, e = raw.Floats(fields.Weight); e != nil {
			return nil, e
		}

		copy(weight, w)
	}

	cols = append(cols, frame.MustCol(ColWeight, weight))

	for _, fl := range []struct {
		canon, src string
		required   bool
	}{
		{ColYear, fields.Year, true},
		{ColEmpStat, fields.EmpStat, false},
		{ColDurUnemp, fields.DurUnemp, false},
		{ColWhyUnemp, fields.WhyUnemp, false},
		{ColCitizen, fields.Citizen, false},
	} {
		if fl.src == "" || raw.Column(fl.src) == nil {
			if fl.required {
				return nil, fmt.Errorf("survey field %s (%s) not found", fl.src, fl.canon)
			}

			continue
		}

		var x []int
		if x, e = raw.Ints(fl.src); e != nil {
			return nil, e
		}

		cols = append(cols, frame.MustCol(fl.canon, append([]int(nil), x...)))
	}

	return frame.NewFrame(cols...)
}

// Clean applies the restrictions in f to a normalised frame.
// Every surviving row has a valid positive wage, weeks in [MinWeeks, MaxWeeks], a supported state and a
// positive weight.
func Clean(df *frame.Frame, f Filter, logger *slog.Logger) (*frame.Frame, *Report, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rep := &Report{Read: df.RowCount()}

	type restriction struct {
		name string
		keep func(df *frame.Frame) ([]bool, error)
	}

	restrictions := []restriction{
		{"invalid income code", func(df *frame.Frame) ([]bool, error) {
			return keepFloat(df, ColWage, func(x float64) bool {
				return !math.IsNaN(x) && !has(int(x), f.InvalidWage)
			})
		}},
		{"non-positive wage", func(df *frame.Frame) ([]bool, error) {
			return keepFloat(df, ColWage, func(x float64) bool { return x > 0 })
		}},
		{"weeks worked out of range", func(df *frame.Frame) ([]bool, error) {
			return keepFloat(df, ColWeeks, func(x float64) bool {
				return x >= float64(f.MinWeeks) && x <= float64(f.MaxWeeks)
			})
		}},
		{"out-of-scope state", func(df *frame.Frame) ([]bool, error) {
			return keepString(df, ColState, func(s string) bool { return s != "" && !has(s, f.Excluded) })
		}},
		{"invalid weight", func(df *frame.Frame) ([]bool, error) {
			return keepFloat(df, ColWeight, func(x float64) bool { return x > 0 && !math.IsInf(x, 0) })
		}},
	}

	if df.Column(ColCitizen) != nil {
		restrictions = append(restrictions, restriction{"non-citizen", func(df *frame.Frame) ([]bool, error) {
			return keepInt(df, ColCitizen, func(x int) bool { return !has(x, f.NonCitizen) })
		}})
	}

	if f.UnemployedOnly {
		if !df.HasColumns(ColEmpStat, ColWhyUnemp) {
			return nil, nil, fmt.Errorf("unemployed_only requires employment status and unemployment reason fields")
		}

		restrictions = append(restrictions,
			restriction{"not unemployed", func(df *frame.Frame) ([]bool, error) {
				return keepInt(df, ColEmpStat, func(x int) bool { return has(x, f.UnemployedStatus) })
			}},
			restriction{"not a job loser", func(df *frame.Frame) ([]bool, error) {
				return keepInt(df, ColWhyUnemp, func(x int) bool { return has(x, f.JobLoser) })
			}})
	}

	for _, r := range restrictions {
		var (
			keep []bool
			e    error
		)
		if keep, e = r.keep(df); e != nil {
			return nil, nil, fmt.Errorf("%s: %w", r.name, e)
		}

		before := df.RowCount()
		if df, e = df.Where(keep); e != nil {
			return nil, nil, e
		}

		step := Step{Name: r.name, Dropped: before - df.RowCount(), Left: df.RowCount()}
		rep.Steps = append(rep.Steps, step)
		logger.Info("survey restriction", slog.String("restriction", step.Name),
			slog.Int("dropped", step.Dropped), slog.Int("left", step.Left))

		if df.RowCount() == 0 {
			return nil, rep, fmt.Errorf("no survey records left after %s", r.name)
		}
	}

	return df, rep, nil
}

// *********** Helpers ***********

func keepFloat(df *frame.Frame, col string, fn func(x float64) bool) ([]bool, error) {
	x, e := df.Floats(col)
	if e != nil {
		return nil, e
	}

	keep := make([]bool, len(x))
	for ind, xv := range x {
		keep[ind] = fn(xv)
	}

	return keep, nil
}

func keepInt(df *frame.Frame, col string, fn func(x int) bool) ([]bool, error) {
	x, e := df.Ints(col)
	if e != nil {
		return nil, e
	}

	keep := make([]bool, len(x))
	for ind, xv := range x {
		keep[ind] = fn(xv)
	}

	return keep, nil
}

func keepString(df *frame.Frame, col string, fn func(s string) bool) ([]bool, error) {
	x, e := df.Strings(col)
	if e != nil {
		return nil, e
	}

	keep := make([]bool, len(x))
	for ind, xv := range x {
		keep[ind] = fn(xv)
	}

	return keep, nil
}

func copyFloats(x []float64) []float64 {
	return append([]float64(nil), x...)
}

func has[C comparable](needle C, haystack []C) bool {
	for _, straw := range haystack {
		if needle == straw {
			return true
		}
	}

	return false
}
