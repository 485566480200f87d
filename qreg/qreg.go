// Package qreg fits weighted linear quantile regressions and uses them to project wages forward in time.
package qreg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultMaxIter = 200
	defaultTol     = 1e-8
	// residuals smaller than this get a capped weight
	epsResidual = 1e-6
)

// Model is a fitted quantile regression.  Coef[0] is the intercept.
type Model struct {
	Tau       float64
	Coef      []float64
	Iter      int
	Converged bool
}

// Predict returns the fitted quantile at x (regressors only, no intercept term).
func (m *Model) Predict(x ...float64) float64 {
	yhat := m.Coef[0]
	for ind, xv := range x {
		yhat += m.Coef[ind+1] * xv
	}

	return yhat
}

// Slope returns the coefficient on regressor ind (0-based, excluding the intercept).
func (m *Model) Slope(ind int) float64 {
	return m.Coef[ind+1]
}

type fitter struct {
	maxIter int
	tol     float64
}

type Opt func(f *fitter)

func WithMaxIter(n int) Opt {
	return func(f *fitter) { f.maxIter = n }
}

func WithTol(tol float64) Opt {
	return func(f *fitter) { f.tol = tol }
}

// Fit estimates the tau quantile of y given the columns of x by iteratively reweighted least squares,
// minimizing sum w_i * rho_tau(y_i - b0 - x_i b).  w may be nil for equal weights.
func Fit(y []float64, x *mat.Dense, w []float64, tau float64, opts ...Opt) (*Model, error) {
	f := &fitter{maxIter: defaultMaxIter, tol: defaultTol}
	for _, opt := range opts {
		opt(f)
	}

	if tau <= 0 || tau >= 1 {
		return nil, fmt.Errorf("tau %v not in (0,1)", tau)
	}

	n, k := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("y has %d rows, x has %d", len(y), n)
	}

	if w == nil {
		w = make([]float64, n)
		floats.AddConst(1, w)
	}

	if len(w) != n {
		return nil, fmt.Errorf("w has %d rows, x has %d", len(w), n)
	}

	p := k + 1
	if n < p {
		return nil, fmt.Errorf("need at least %d observations, have %d", p, n)
	}

	// design with intercept
	design := mat.NewDense(n, p, nil)
	for r := 0; r < n; r++ {
		design.Set(r, 0, 1)
		for c := 0; c < k; c++ {
			design.Set(r, c+1, x.At(r, c))
		}
	}

	var (
		beta *mat.VecDense
		e    error
	)
	if beta, e = wls(design, y, w); e != nil {
		return nil, e
	}

	m := &Model{Tau: tau}
	v := make([]float64, n)
	resid := make([]float64, n)
	for m.Iter = 1; m.Iter <= f.maxIter; m.Iter++ {
		residuals(design, y, beta, resid)
		for r := 0; r < n; r++ {
			check := tau
			if resid[r] < 0 {
				check = 1 - tau
			}

			v[r] = w[r] * check / math.Max(math.Abs(resid[r]), epsResidual)
		}

		var next *mat.VecDense
		if next, e = wls(design, y, v); e != nil {
			return nil, e
		}

		var diff mat.VecDense
		diff.SubVec(next, beta)
		beta = next
		if mat.Norm(&diff, math.Inf(1)) < f.tol*(1+mat.Norm(beta, math.Inf(1))) {
			m.Converged = true
			break
		}
	}

	m.Coef = mat.Col(nil, 0, beta)

	return m, nil
}

// Loss returns the weighted check loss of m on the data.
func (m *Model) Loss(y []float64, x *mat.Dense, w []float64) float64 {
	var loss float64
	_, k := x.Dims()
	xr := make([]float64, k)
	for r := range y {
		mat.Row(xr, r, x)
		u := y[r] - m.Predict(xr...)
		wt := 1.0
		if w != nil {
			wt = w[r]
		}

		if u < 0 {
			loss += wt * (m.Tau - 1) * u
			continue
		}

		loss += wt * m.Tau * u
	}

	return loss
}

func residuals(design *mat.Dense, y []float64, beta *mat.VecDense, out []float64) {
	var fit mat.VecDense
	fit.MulVec(design, beta)
	for r := range y {
		out[r] = y[r] - fit.AtVec(r)
	}
}

// wls solves (X'WX) b = X'Wy.
func wls(design *mat.Dense, y, w []float64) (*mat.VecDense, error) {
	n, p := design.Dims()
	xtx := mat.NewSymDense(p, nil)
	xty := mat.NewVecDense(p, nil)

	for r := 0; r < n; r++ {
		for i := 0; i < p; i++ {
			xi := design.At(r, i) * w[r]
			xty.SetVec(i, xty.AtVec(i)+xi*y[r])
			for j := i; j < p; j++ {
				xtx.SetSym(i, j, xtx.At(i, j)+xi*design.At(r, j))
			}
		}
	}

	var (
		chol mat.Cholesky
		beta mat.VecDense
	)
	if ok := chol.Factorize(xtx); !ok {
		return nil, fmt.Errorf("design matrix is singular")
	}

	if e := chol.SolveVecTo(&beta, xty); e != nil {
		return nil, e
	}

	return &beta, nil
}
