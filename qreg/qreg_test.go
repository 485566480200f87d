package qreg

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// noisyLine returns y = 3 + 0.5x + u with u on an 11-point grid in (-1,1), independent of x.
func noisyLine() ([]float64, *mat.Dense) {
	const n = 1100
	y := make([]float64, n)
	x := mat.NewDense(n, 1, nil)
	for ind := 0; ind < n; ind++ {
		xv := float64(ind % 10)
		u := -1 + 2*(float64(ind%11)+0.5)/11
		x.Set(ind, 0, xv)
		y[ind] = 3 + 0.5*xv + u
	}

	return y, x
}

func TestFit_Exact(t *testing.T) {
	x := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	y := []float64{3, 5, 7, 9, 11}
	for _, tau := range []float64{0.1, 0.5, 0.9} {
		m, e := Fit(y, x, nil, tau)
		require.Nil(t, e)
		assert.InDelta(t, 1.0, m.Coef[0], 1e-6)
		assert.InDelta(t, 2.0, m.Slope(0), 1e-6)
		assert.InDelta(t, 13.0, m.Predict(6), 1e-5)
	}
}

func TestFit_Quantiles(t *testing.T) {
	y, x := noisyLine()

	med, e := Fit(y, x, nil, 0.5)
	require.Nil(t, e)
	assert.InDelta(t, 3.0, med.Coef[0], 0.05)
	assert.InDelta(t, 0.5, med.Slope(0), 0.01)

	hi, e := Fit(y, x, nil, 0.9)
	require.Nil(t, e)
	assert.InDelta(t, 0.5, hi.Slope(0), 0.02)
	assert.Greater(t, hi.Coef[0], med.Coef[0])

	// the fit should beat nearby lines on check loss
	base := med.Loss(y, x, nil)
	for _, d := range []float64{-0.1, 0.1} {
		alt := &Model{Tau: 0.5, Coef: []float64{med.Coef[0] + d, med.Coef[1]}}
		assert.Less(t, base, alt.Loss(y, x, nil))
		alt = &Model{Tau: 0.5, Coef: []float64{med.Coef[0], med.Coef[1] + d/10}}
		assert.Less(t, base, alt.Loss(y, x, nil))
	}
}

func TestFit_Errors(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{0, 0, 0})
	y := []float64{1, 2, 3}

	_, e := Fit(y, x, nil, 0)
	assert.NotNil(t, e)
	_, e = Fit(y, x, nil, 1)
	assert.NotNil(t, e)
	_, e = Fit(y[:2], x, nil, 0.5)
	assert.NotNil(t, e)
	_, e = Fit(y, x, []float64{1}, 0.5)
	assert.NotNil(t, e)
	// all-zero regressor leaves the design singular
	_, e = Fit(y, x, nil, 0.5)
	assert.NotNil(t, e)
}

func TestRanks(t *testing.T) {
	rows := []int{0, 1, 2, 3, 4}
	year := []int{2020, 2020, 2020, 2020, 2021}
	weekly := []float64{400, 100, 200, 200, 50}
	weight := []float64{1, 1, 1, 1, 3}

	r := Ranks(rows, year, weekly, weight)
	assert.InDeltaSlice(t, []float64{0.875, 0.125, 0.5, 0.5, 0.5}, r, 1e-12)

	assert.Equal(t, 0, NearestTau(0.01, DefaultTaus()))
	assert.Equal(t, 4, NearestTau(0.5, DefaultTaus()))
	assert.Equal(t, 8, NearestTau(0.99, DefaultTaus()))
}

func TestProject(t *testing.T) {
	var (
		state  []string
		year   []int
		weekly []float64
		weight []float64
	)

	mults := []float64{1, 1.2, 1.5, 2, 3}
	for yr := 2018; yr <= 2022; yr++ {
		for _, m := range mults {
			state = append(state, "NY")
			year = append(year, yr)
			weekly = append(weekly, 500*m*math.Exp(0.05*float64(yr-2018)))
			weight = append(weight, 1)
		}
	}

	for _, w := range []float64{300, 600, 900} {
		state = append(state, "CA")
		year = append(year, 2021)
		weekly = append(weekly, w)
		weight = append(weight, 2)
	}

	p := Projection{Target: 2024, MinRows: 10, Workers: 2}
	out, fits, e := Project(context.Background(), p, state, year, weekly, weight, nil)
	require.Nil(t, e)
	require.Len(t, out, len(weekly))

	for ind := range out {
		if state[ind] == "CA" {
			assert.Equal(t, weekly[ind], out[ind])
			continue
		}

		want := weekly[ind] * math.Exp(0.05*float64(2024-year[ind]))
		assert.InDelta(t, want, out[ind], want*1e-6)
	}

	require.Len(t, fits, 2)
	assert.Equal(t, "CA", fits[0].State)
	assert.NotEmpty(t, fits[0].Skipped)
	assert.Equal(t, "NY", fits[1].State)
	assert.Empty(t, fits[1].Skipped)
	assert.Equal(t, []int{2018, 2019, 2020, 2021, 2022}, fits[1].Years)
	for _, s := range fits[1].Slopes {
		assert.InDelta(t, 0.05, s, 1e-6)
	}

	// too few rows
	p.MinRows = 100
	out, fits, e = Project(context.Background(), p, state, year, weekly, weight, nil)
	require.Nil(t, e)
	assert.Equal(t, weekly, out)
	assert.NotEmpty(t, fits[1].Skipped)

	_, _, e = Project(context.Background(), p, state[:1], year, weekly, weight, nil)
	assert.NotNil(t, e)
}
