// Package impute spreads an annual wage over the four quarters of a base period.
package impute

import (
	"fmt"
	"math"

	"github.com/invertedv/uiwba/frame"
)

const (
	WeeksPerQuarter = 13
	WeeksPerYear    = 4 * WeeksPerQuarter
)

// quarterly earnings columns; Q4 is the most recent quarter
const (
	ColQ1     = "q1"
	ColQ2     = "q2"
	ColQ3     = "q3"
	ColQ4     = "q4"
	ColWeekly = "weekly_wage"
)

// Method is how weeks worked are laid out over the year.
type Method string

const (
	// Recent assumes the weeks worked are consecutive and end with the most recent quarter.
	Recent Method = "recent"
	// Uniform spreads the weeks worked evenly over the four quarters.
	Uniform Method = "uniform"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case Recent, Uniform:
		return m, nil
	case "":
		return Recent, nil
	default:
		return "", fmt.Errorf("unknown imputation method %s", s)
	}
}

// Quarters returns the earnings in each quarter for an annual wage earned over weeks weeks.
// Each quarter is non-negative and the quarters sum to wage.
func Quarters(wage, weeks float64, m Method) ([4]float64, error) {
	var q [4]float64

	if math.IsNaN(wage) || wage < 0 {
		return q, fmt.Errorf("invalid annual wage %v", wage)
	}

	if math.IsNaN(weeks) || weeks < 0 || weeks > WeeksPerYear {
		return q, fmt.Errorf("weeks worked %v not in [0, %d]", weeks, WeeksPerYear)
	}

	if weeks == 0 || wage == 0 {
		return q, nil
	}

	weekly := wage / weeks

	switch m {
	case Uniform:
		for ind := range q {
			q[ind] = weekly * weeks / 4
		}
	case Recent, "":
		left := weeks
		for ind := 3; ind >= 0 && left > 0; ind-- {
			w := math.Min(WeeksPerQuarter, left)
			q[ind] = weekly * w
			left -= w
		}
	default:
		return q, fmt.Errorf("unknown imputation method %s", m)
	}

	return q, nil
}

// Apply adds the columns q1..q4 and weekly_wage to df, computed from its wage and weeks columns.
func Apply(df *frame.Frame, wageCol, weeksCol string, m Method) error {
	var (
		wage, weeks []float64
		e           error
	)
	if wage, e = df.Floats(wageCol); e != nil {
		return e
	}

	if weeks, e = df.Floats(weeksCol); e != nil {
		return e
	}

	n := df.RowCount()
	qs := [4][]float64{make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)}
	weekly := make([]float64, n)

	for ind := 0; ind < n; ind++ {
		var q [4]float64
		if q, e = Quarters(wage[ind], weeks[ind], m); e != nil {
			return fmt.Errorf("row %d: %w", ind, e)
		}

		for j := range q {
			qs[j][ind] = q[j]
		}

		if weeks[ind] > 0 {
			weekly[ind] = wage[ind] / weeks[ind]
		}
	}

	for ind, nm := range []string{ColQ1, ColQ2, ColQ3, ColQ4} {
		if e = df.AppendColumn(frame.MustCol(nm, qs[ind]), true); e != nil {
			return e
		}
	}

	return df.AppendColumn(frame.MustCol(ColWeekly, weekly), true)
}

// Rescale returns quarters q scaled so that their weekly wage becomes weekly.  Used after projecting wages.
func Rescale(q [4]float64, oldWeekly, newWeekly float64) [4]float64 {
	if oldWeekly <= 0 {
		return q
	}

	f := newWeekly / oldWeekly
	for ind := range q {
		q[ind] *= f
	}

	return q
}
