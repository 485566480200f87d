package calc

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invertedv/uiwba/survey"
	"github.com/pelletier/go-toml/v2"
)

const (
	HighQuarter = "high_quarter"
	TwoQuarters = "two_quarters"
	Annual      = "annual"

	// DefaultState names the rule applied to states without one of their own.
	DefaultState = "default"
	dateFormat   = "2006-01-02"
)

// Rule is one row of a benefit schedule: a parametric formula for a state in effect from a date.
type Rule struct {
	State          string  `toml:"state" validate:"required"`
	Effective      string  `toml:"effective" validate:"required,datetime=2006-01-02"`
	Method         string  `toml:"method" validate:"oneof=high_quarter two_quarters annual"`
	Fraction       float64 `toml:"fraction" validate:"gt=0,lte=1"`
	MinBasePeriod  float64 `toml:"min_base_period" validate:"gte=0"`
	MinHighQuarter float64 `toml:"min_high_quarter" validate:"gte=0"`
	HQMultiple     float64 `toml:"hq_multiple" validate:"gte=0"`
	MinWBA         float64 `toml:"min_wba" validate:"gte=0"`
	MaxWBA         float64 `toml:"max_wba" validate:"gte=0"`

	effective time.Time
}

// Table is a schedule file.
type Table struct {
	Excluded []string `toml:"excluded"`
	Rules    []Rule   `toml:"rule" validate:"dive"`
}

// LoadTable decodes and validates a TOML schedule.
func LoadTable(r io.Reader) (*Table, error) {
	var t Table
	if e := toml.NewDecoder(r).DisallowUnknownFields().Decode(&t); e != nil {
		return nil, fmt.Errorf("decode schedule: %w", e)
	}

	if e := validator.New(validator.WithRequiredStructEnabled()).Struct(&t); e != nil {
		return nil, fmt.Errorf("invalid schedule: %w", e)
	}

	for ind := range t.Rules {
		r := &t.Rules[ind]
		r.State = strings.ToUpper(strings.TrimSpace(r.State))
		if strings.EqualFold(r.State, DefaultState) {
			r.State = DefaultState
		}

		var e error
		if r.effective, e = time.Parse(dateFormat, r.Effective); e != nil {
			return nil, e
		}

		if r.MaxWBA > 0 && r.MinWBA > r.MaxWBA {
			return nil, fmt.Errorf("rule %s %s: min_wba > max_wba", r.State, r.Effective)
		}
	}

	return &t, nil
}

// Benefit applies r to q.  Monetarily ineligible earnings give 0.
func (r Rule) Benefit(q Earnings) float64 {
	bp, hq := q.Total(), q.High()
	if bp < r.MinBasePeriod || hq < r.MinHighQuarter || (r.HQMultiple > 0 && bp < r.HQMultiple*hq) {
		return 0
	}

	var base float64
	switch r.Method {
	case HighQuarter:
		base = hq
	case TwoQuarters:
		base = q.TopTwo()
	case Annual:
		base = bp
	}

	wba := math.Floor(r.Fraction * base)
	wba = math.Max(wba, r.MinWBA)
	if r.MaxWBA > 0 {
		wba = math.Min(wba, r.MaxWBA)
	}

	return wba
}

// Schedule is a Calculator driven by a Table for a fixed reference date.
type Schedule struct {
	reference time.Time
	rules     map[string]Rule
	excluded  []string
}

// NewSchedule picks, for each state, the latest rule in effect on reference.
func NewSchedule(t *Table, reference time.Time) (*Schedule, error) {
	rules := append([]Rule(nil), t.Rules...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].effective.Before(rules[j].effective) })

	s := &Schedule{reference: reference, rules: make(map[string]Rule)}
	for _, r := range rules {
		if r.effective.After(reference) {
			continue
		}

		s.rules[r.State] = r
	}

	if len(s.rules) == 0 {
		return nil, fmt.Errorf("no schedule rules in effect on %s", reference.Format(dateFormat))
	}

	for _, st := range t.Excluded {
		s.excluded = append(s.excluded, strings.ToUpper(strings.TrimSpace(st)))
	}

	return s, nil
}

func (s *Schedule) Reference() time.Time {
	return s.reference
}

// Rule returns the rule used for state.
func (s *Schedule) Rule(state string) (Rule, error) {
	state = strings.ToUpper(state)
	for _, x := range s.excluded {
		if x == state {
			return Rule{}, fmt.Errorf("%s: %w", state, ErrUnsupportedState)
		}
	}

	if r, ok := s.rules[state]; ok {
		return r, nil
	}

	// the default rule covers the states and DC, not territories or unknown codes
	if code, ok := survey.StateCode(state); ok && code == state {
		if r, ok := s.rules[DefaultState]; ok {
			return r, nil
		}
	}

	return Rule{}, fmt.Errorf("%s: %w", state, ErrUnsupportedState)
}

func (s *Schedule) WeeklyBenefit(ctx context.Context, q Earnings, state string) (float64, error) {
	if e := q.Validate(); e != nil {
		return 0, e
	}

	r, e := s.Rule(state)
	if e != nil {
		return 0, e
	}

	return r.Benefit(q), nil
}
