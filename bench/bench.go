// Package bench loads published benefit benchmarks (BAM) by state.
package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/invertedv/uiwba/frame"
	"github.com/invertedv/uiwba/source"
	"github.com/invertedv/uiwba/survey"
	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Columns names the benchmark file's columns.  Only State is required.
type Columns struct {
	State string `toml:"state" validate:"required"`
	AWW   string `toml:"aww"`
	WBA   string `toml:"wba"`
	RR    string `toml:"rr"`
}

func DefaultColumns() Columns {
	return Columns{State: "state", AWW: "aww", WBA: "wba", RR: "rr"}
}

type Options struct {
	Columns       Columns
	Sheet         string
	SkipUnmatched bool
}

// Row is one state's benchmark.  Missing values are NaN.  RR is a fraction, not a percent.
type Row struct {
	State string
	AWW   float64
	WBA   float64
	RR    float64
}

type Benchmark struct {
	Rows      []Row
	Unmatched []string
}

// Get returns the row for state.
func (b *Benchmark) Get(state string) (Row, bool) {
	ind := sort.Search(len(b.Rows), func(i int) bool { return b.Rows[i].State >= state })
	if ind < len(b.Rows) && b.Rows[ind].State == state {
		return b.Rows[ind], true
	}

	return Row{}, false
}

func (b *Benchmark) States() []string {
	st := make([]string, len(b.Rows))
	for ind, r := range b.Rows {
		st[ind] = r.State
	}

	return st
}

// Load reads a benchmark from a .csv or .xlsx file, local or on S3.
func Load(ctx context.Context, opener *source.Opener, location string, opt Options, logger *slog.Logger) (*Benchmark, error) {
	var (
		rc io.ReadCloser
		df *frame.Frame
		e  error
	)

	if rc, e = opener.Open(ctx, location); e != nil {
		return nil, e
	}
	defer func() { _ = rc.Close() }()

	switch strings.ToLower(filepath.Ext(location)) {
	case ".xlsx", ".xlsm":
		df, e = readXLSX(rc, opt.Sheet)
	default:
		df, e = readCSV(rc, location, opt.Columns)
	}

	if e != nil {
		return nil, fmt.Errorf("benchmark %s: %w", location, e)
	}

	return FromFrame(df, opt, logger)
}

func readCSV(rc io.ReadCloser, name string, cols Columns) (*frame.Frame, error) {
	types := make(map[string]frame.DataTypes)
	for _, c := range []string{cols.State, cols.AWW, cols.WBA, cols.RR} {
		if c != "" {
			types[frame.CleanName(c)] = frame.DTstring
		}
	}

	f, e := frame.NewFiles(frame.FileFieldTypes(types))
	if e != nil {
		return nil, e
	}

	f.OpenReader(rc, name)

	return f.Load()
}

// readXLSX reads the first row of sheet as a header and the rest as string columns.
func readXLSX(rdr io.Reader, sheet string) (*frame.Frame, error) {
	x, e := excelize.OpenReader(rdr)
	if e != nil {
		return nil, e
	}
	defer func() { _ = x.Close() }()

	if sheet == "" {
		sheet = x.GetSheetList()[0]
	}

	rows, e := x.GetRows(sheet)
	if e != nil {
		return nil, e
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s has no data", sheet)
	}

	var cols []*frame.Col
	for c, hdr := range rows[0] {
		vals := make([]string, len(rows)-1)
		for r, row := range rows[1:] {
			// excelize trims trailing empty cells
			if c < len(row) {
				vals[r] = strings.TrimSpace(row[c])
			}
		}

		col, e := frame.NewCol(vals, frame.DTstring, frame.ColName(frame.CleanName(hdr)))
		if e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return frame.NewFrame(cols...)
}

// FromFrame parses a frame of benchmark values.
func FromFrame(df *frame.Frame, opt Options, logger *slog.Logger) (*Benchmark, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, e := df.Strings(frame.CleanName(opt.Columns.State))
	if e != nil {
		return nil, fmt.Errorf("benchmark state column: %w", e)
	}

	var metrics [3][]float64
	for ind, c := range []string{opt.Columns.AWW, opt.Columns.WBA, opt.Columns.RR} {
		if metrics[ind], e = values(df, c, ind == 2); e != nil {
			return nil, e
		}
	}

	b := &Benchmark{}
	seen := make(map[string]bool)
	for r, raw := range st {
		code, ok := MatchState(raw)
		if !ok {
			if !opt.SkipUnmatched {
				return nil, fmt.Errorf("benchmark row %d: unrecognized state %q", r+1, raw)
			}

			logger.Warn("benchmark state skipped", "row", r+1, "state", raw)
			b.Unmatched = append(b.Unmatched, raw)
			continue
		}

		if seen[code] {
			return nil, fmt.Errorf("benchmark row %d: duplicate state %s (%q)", r+1, code, raw)
		}
		seen[code] = true

		b.Rows = append(b.Rows, Row{State: code, AWW: metrics[0][r], WBA: metrics[1][r], RR: metrics[2][r]})
	}

	if len(b.Rows) == 0 {
		return nil, fmt.Errorf("benchmark has no usable rows")
	}

	sort.Slice(b.Rows, func(i, j int) bool { return b.Rows[i].State < b.Rows[j].State })

	return b, nil
}

// values parses column colName.  An unnamed column is all NaN.
func values(df *frame.Frame, colName string, rate bool) ([]float64, error) {
	n := df.RowCount()
	out := make([]float64, n)
	if colName == "" {
		for ind := range out {
			out[ind] = math.NaN()
		}

		return out, nil
	}

	col := df.Column(frame.CleanName(colName))
	if col == nil {
		return nil, fmt.Errorf("benchmark column %s not found", colName)
	}

	v, e := col.Data().Coerce(frame.DTstring)
	if e != nil {
		return nil, e
	}

	strs, _ := v.AsString()
	for ind, s := range strs {
		var x float64
		if x, e = ParseValue(s); e != nil {
			return nil, fmt.Errorf("benchmark column %s row %d: %w", colName, ind+1, e)
		}

		// replacement rates without a % sign above 1 are percents
		if rate && !strings.Contains(s, "%") && x > 1 {
			x /= 100
		}

		out[ind] = x
	}

	return out, nil
}

// ParseValue parses a currency or percent string: "$1,234.56", "45.2%", "0.45".  Percents are
// returned as fractions.  Blank and "NA" give NaN.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "NA", "N/A", "-", ".":
		return math.NaN(), nil
	}

	pct := strings.HasSuffix(s, "%")
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	clean := strings.NewReplacer("$", "", ",", "", "%", "", " ", "", "(", "", ")", "").Replace(s)

	d, e := decimal.NewFromString(clean)
	if e != nil {
		return 0, fmt.Errorf("cannot parse %q", s)
	}

	if pct {
		d = d.Div(decimal.NewFromInt(100))
	}

	if neg {
		d = d.Neg()
	}

	x, _ := d.Float64()

	return x, nil
}

// minFuzzy is the fewest letters a label needs before it is matched fuzzily.  Shorter labels are codes
// (US, PR, VI, GU) and match exactly or not at all.
const minFuzzy = 4

// MatchState maps a benchmark label to a postal code: exact match on code, FIPS or name first, then
// the best fuzzy match among state names sharing the label's word initials.
func MatchState(label string) (string, bool) {
	if code, ok := survey.StateCode(label); ok {
		return code, true
	}

	// footnote markers and the like
	words := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	clean := strings.Join(words, " ")

	if clean == "" {
		return "", false
	}

	if code, ok := survey.StateCode(clean); ok {
		return code, true
	}

	if len(strings.Join(words, "")) < minFuzzy {
		return "", false
	}

	names := survey.StateNames()
	lower := make([]string, len(names))
	for ind, nm := range names {
		lower[ind] = strings.ToLower(nm)
	}

	var matches fuzzy.Matches
	for _, m := range fuzzy.Find(clean, lower) {
		if initialsMatch(words, strings.Fields(lower[m.Index])) {
			matches = append(matches, m)
		}
	}

	if len(matches) == 0 {
		return "", false
	}

	// ambiguous when the two best tie
	if len(matches) > 1 && matches[0].Score == matches[1].Score {
		return "", false
	}

	return survey.StateCode(names[matches[0].Index])
}

// initialsMatch is true when the label starts like the name and the initials of the label's words appear,
// in order, among the initials of the name's words.
func initialsMatch(label, name []string) bool {
	if len(label) == 0 || len(name) == 0 || label[0][0] != name[0][0] {
		return false
	}

	pos := 0
	for _, w := range label {
		for pos < len(name) && name[pos][0] != w[0] {
			pos++
		}

		if pos == len(name) {
			return false
		}
		pos++
	}

	return true
}
