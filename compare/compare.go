// Package compare aggregates estimated benefits by state and compares them to benchmarks.
package compare

import (
	"fmt"
	"math"
	"sort"

	"github.com/invertedv/uiwba/bench"
	"github.com/invertedv/uiwba/frame"
	"gonum.org/v1/gonum/stat"
)

const (
	MetricAWW = "aww"
	MetricWBA = "wba"
	MetricRR  = "rr"

	// DefaultTolerance is the half-width of the acceptance band around parity.
	DefaultTolerance = 0.15
	bandEps          = 1e-12
)

// Metrics in report order.
var Metrics = []string{MetricAWW, MetricWBA, MetricRR}

var metricLabels = map[string]string{
	MetricAWW: "Average weekly wage",
	MetricWBA: "Weekly benefit amount",
	MetricRR:  "Replacement rate",
}

func Label(metric string) string {
	if l, ok := metricLabels[metric]; ok {
		return l
	}

	return metric
}

// Stat holds the weighted state-level averages.  RR is the weighted mean of record replacement
// rates; RRRatio is WBA / AWW.
type Stat struct {
	State   string
	N       int
	Weight  float64
	AWW     float64
	WBA     float64
	RR      float64
	RRRatio float64
}

func (s Stat) Value(metric string) float64 {
	switch metric {
	case MetricAWW:
		return s.AWW
	case MetricWBA:
		return s.WBA
	case MetricRR:
		return s.RR
	}

	return math.NaN()
}

// Aggregate computes weighted per-state statistics, sorted by state.  If eligibleOnly, records
// with a zero benefit are left out.
func Aggregate(state []string, weekly, wba, weight []float64, eligibleOnly bool) ([]Stat, error) {
	n := len(state)
	if len(weekly) != n || len(wba) != n || (weight != nil && len(weight) != n) {
		return nil, fmt.Errorf("aggregate inputs differ in length")
	}

	rows := make(map[string][]int)
	for ind, st := range state {
		if weekly[ind] <= 0 || (eligibleOnly && wba[ind] <= 0) {
			continue
		}

		rows[st] = append(rows[st], ind)
	}

	var stats []Stat
	for st, ind := range rows {
		w := make([]float64, len(ind))
		ww, b, rr := make([]float64, len(ind)), make([]float64, len(ind)), make([]float64, len(ind))
		for j, r := range ind {
			w[j] = 1
			if weight != nil {
				w[j] = weight[r]
			}

			ww[j], b[j] = weekly[r], wba[r]
			rr[j] = wba[r] / weekly[r]
		}

		s := Stat{State: st, N: len(ind), AWW: stat.Mean(ww, w), WBA: stat.Mean(b, w), RR: stat.Mean(rr, w)}
		for _, x := range w {
			s.Weight += x
		}

		s.RRRatio = s.WBA / s.AWW
		stats = append(stats, s)
	}

	if len(stats) == 0 {
		return nil, fmt.Errorf("no records to aggregate")
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].State < stats[j].State })

	return stats, nil
}

// Comparison is one (state, metric) pair.
type Comparison struct {
	State     string
	Metric    string
	Computed  float64
	Benchmark float64
	Ratio     float64
	Within    bool
}

// Band returns computed/benchmark and whether it lies within tol of 1.
func Band(computed, benchmark, tol float64) (float64, bool) {
	if benchmark == 0 || math.IsNaN(benchmark) || math.IsNaN(computed) {
		return math.NaN(), false
	}

	ratio := computed / benchmark

	return ratio, math.Abs(ratio-1) <= tol+bandEps
}

// Join pairs stats with the benchmark.  Only states in both, and metrics the benchmark reports, appear.
func Join(stats []Stat, b *bench.Benchmark, tol float64) []Comparison {
	var out []Comparison
	for _, metric := range Metrics {
		for _, s := range stats {
			row, ok := b.Get(s.State)
			if !ok {
				continue
			}

			var bv float64
			switch metric {
			case MetricAWW:
				bv = row.AWW
			case MetricWBA:
				bv = row.WBA
			case MetricRR:
				bv = row.RR
			}

			if math.IsNaN(bv) {
				continue
			}

			c := Comparison{State: s.State, Metric: metric, Computed: s.Value(metric), Benchmark: bv}
			c.Ratio, c.Within = Band(c.Computed, c.Benchmark, tol)
			out = append(out, c)
		}
	}

	return out
}

// Filter returns the comparisons for metric.
func Filter(cs []Comparison, metric string) []Comparison {
	var out []Comparison
	for _, c := range cs {
		if c.Metric == metric {
			out = append(out, c)
		}
	}

	return out
}

// Summary describes agreement for one metric.
type Summary struct {
	Metric      string
	States      int
	Within      int
	Share       float64
	MedianRatio float64
}

// Summarize returns one Summary per metric present in cs, in Metrics order.
func Summarize(cs []Comparison) []Summary {
	var out []Summary
	for _, metric := range Metrics {
		sub := Filter(cs, metric)
		if len(sub) == 0 {
			continue
		}

		s := Summary{Metric: metric, States: len(sub)}
		var ratios []float64
		for _, c := range sub {
			if c.Within {
				s.Within++
			}

			if !math.IsNaN(c.Ratio) {
				ratios = append(ratios, c.Ratio)
			}
		}

		s.Share = float64(s.Within) / float64(s.States)
		s.MedianRatio = math.NaN()
		if len(ratios) > 0 {
			sort.Float64s(ratios)
			s.MedianRatio = stat.Quantile(0.5, stat.Empirical, ratios, nil)
		}

		out = append(out, s)
	}

	return out
}

// ToFrame lays the comparisons out as a frame for saving.
func ToFrame(cs []Comparison) (*frame.Frame, error) {
	n := len(cs)
	var (
		state, metric = make([]string, n), make([]string, n)
		comp, bm, rat = make([]float64, n), make([]float64, n), make([]float64, n)
		within        = make([]int, n)
	)

	for ind, c := range cs {
		state[ind], metric[ind] = c.State, c.Metric
		comp[ind], bm[ind], rat[ind] = c.Computed, c.Benchmark, c.Ratio
		if c.Within {
			within[ind] = 1
		}
	}

	return frame.NewFrame(
		frame.MustCol("state", state),
		frame.MustCol("metric", metric),
		frame.MustCol("computed", comp),
		frame.MustCol("benchmark", bm),
		frame.MustCol("ratio", rat),
		frame.MustCol("within", within))
}

// StatsFrame lays the state statistics out as a frame.
func StatsFrame(stats []Stat) (*frame.Frame, error) {
	n := len(stats)
	var (
		state            = make([]string, n)
		cnt              = make([]int, n)
		wt, aww, wba, rr = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
		rrRatio          = make([]float64, n)
	)

	for ind, s := range stats {
		state[ind], cnt[ind], wt[ind] = s.State, s.N, s.Weight
		aww[ind], wba[ind], rr[ind], rrRatio[ind] = s.AWW, s.WBA, s.RR, s.RRRatio
	}

	return frame.NewFrame(
		frame.MustCol("state", state),
		frame.MustCol("n", cnt),
		frame.MustCol("weight", wt),
		frame.MustCol("aww", aww),
		frame.MustCol("wba", wba),
		frame.MustCol("rr", rr),
		frame.MustCol("rr_ratio", rrRatio))
}
