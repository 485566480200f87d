package qreg

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Projection configures wage projection to a target year.
type Projection struct {
	Target  int
	Taus    []float64
	MinRows int
	Workers int
}

// DefaultTaus is the grid 0.1, 0.2, ..., 0.9.
func DefaultTaus() []float64 {
	taus := make([]float64, 9)
	for ind := range taus {
		taus[ind] = float64(ind+1) / 10
	}

	return taus
}

// StateFit summarizes the projection for one state.  Slopes are per-year growth in log weekly wage,
// one per tau.  Skipped is non-empty when the state was passed through.
type StateFit struct {
	State   string
	Rows    int
	Years   []int
	Slopes  []float64
	Skipped string
}

// Project returns projected weekly wages, one per input row, and the per-state fits sorted by state.
// Rows in states that cannot be fit keep their weekly wage.
func Project(ctx context.Context, p Projection, state []string, year []int, weekly, weight []float64,
	logger *slog.Logger) ([]float64, []StateFit, error) {
	n := len(state)
	if len(year) != n || len(weekly) != n || len(weight) != n {
		return nil, nil, fmt.Errorf("projection inputs differ in length")
	}

	if len(p.Taus) == 0 {
		p.Taus = DefaultTaus()
	}

	if p.Workers <= 0 {
		p.Workers = 4
	}

	if logger == nil {
		logger = slog.Default()
	}

	rows := make(map[string][]int)
	for ind, st := range state {
		rows[st] = append(rows[st], ind)
	}

	states := make([]string, 0, len(rows))
	for st := range rows {
		states = append(states, st)
	}
	sort.Strings(states)

	out := make([]float64, n)
	fits := make([]StateFit, len(states))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for ind, st := range states {
		ind, st := ind, st
		g.Go(func() error {
			if e := gctx.Err(); e != nil {
				return e
			}

			var e error
			fits[ind], e = projectState(p, st, rows[st], year, weekly, weight, out)
			return e
		})
	}

	if e := g.Wait(); e != nil {
		return nil, nil, e
	}

	for _, f := range fits {
		if f.Skipped != "" {
			logger.Info("projection skipped", "state", f.State, "rows", f.Rows, "reason", f.Skipped)
			continue
		}

		logger.Debug("projection fit", "state", f.State, "rows", f.Rows, "years", f.Years, "slopes", f.Slopes)
	}

	return out, fits, nil
}

// projectState writes the projected wages for rows into out.  Each call owns a disjoint set of rows.
func projectState(p Projection, st string, rows []int, year []int, weekly, weight, out []float64) (StateFit, error) {
	fit := StateFit{State: st, Rows: len(rows)}

	seen := make(map[int]bool)
	for _, r := range rows {
		if !seen[year[r]] {
			seen[year[r]] = true
			fit.Years = append(fit.Years, year[r])
		}
		out[r] = weekly[r]
	}
	sort.Ints(fit.Years)

	switch {
	case len(fit.Years) < 2:
		fit.Skipped = "single survey year"
		return fit, nil
	case len(rows) < p.MinRows:
		fit.Skipped = fmt.Sprintf("fewer than %d rows", p.MinRows)
		return fit, nil
	}

	y := make([]float64, 0, len(rows))
	x := mat.NewDense(len(rows), 1, nil)
	w := make([]float64, 0, len(rows))
	for ind, r := range rows {
		if weekly[r] <= 0 {
			return fit, fmt.Errorf("state %s: non-positive weekly wage %v", st, weekly[r])
		}

		y = append(y, math.Log(weekly[r]))
		x.Set(ind, 0, float64(year[r]-p.Target))
		w = append(w, weight[r])
	}

	fit.Slopes = make([]float64, len(p.Taus))
	for ind, tau := range p.Taus {
		m, e := Fit(y, x, w, tau)
		if e != nil {
			return fit, fmt.Errorf("state %s tau %v: %w", st, tau, e)
		}

		fit.Slopes[ind] = m.Slope(0)
	}

	ranks := Ranks(rows, year, weekly, weight)
	for ind, r := range rows {
		slope := fit.Slopes[NearestTau(ranks[ind], p.Taus)]
		out[r] = weekly[r] * math.Exp(slope*float64(p.Target-year[r]))
	}

	return fit, nil
}

// Ranks returns the weighted mid-rank, in (0,1), of each row's weekly wage within its year.
// The result is parallel to rows.
func Ranks(rows []int, year []int, weekly, weight []float64) []float64 {
	byYear := make(map[int][]int)
	for ind, r := range rows {
		byYear[year[r]] = append(byYear[year[r]], ind)
	}

	ranks := make([]float64, len(rows))
	for _, members := range byYear {
		sort.SliceStable(members, func(i, j int) bool { return weekly[rows[members[i]]] < weekly[rows[members[j]]] })

		var total float64
		for _, m := range members {
			total += weight[rows[m]]
		}

		if total <= 0 {
			for _, m := range members {
				ranks[m] = 0.5
			}
			continue
		}

		// ties share the mid-rank of their block
		var below float64
		for i := 0; i < len(members); {
			j, block := i, 0.0
			for ; j < len(members) && weekly[rows[members[j]]] == weekly[rows[members[i]]]; j++ {
				block += weight[rows[members[j]]]
			}

			for k := i; k < j; k++ {
				ranks[members[k]] = (below + block/2) / total
			}

			below += block
			i = j
		}
	}

	return ranks
}

// NearestTau returns the index of the grid value closest to rank.
func NearestTau(rank float64, taus []float64) int {
	best := 0
	for ind, tau := range taus {
		if math.Abs(tau-rank) < math.Abs(taus[best]-rank) {
			best = ind
		}
	}

	return best
}
