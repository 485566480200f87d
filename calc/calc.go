// Package calc is the boundary to the UI benefit calculator: given four quarters of earnings and a
// state it returns the weekly benefit amount (WBA) under that state's rules.
package calc

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrZeroEarnings     = errors.New("no earnings in base period")
	ErrNegativeEarnings = errors.New("negative quarterly earnings")
	ErrUnsupportedState = errors.New("unsupported jurisdiction")
)

// Earnings are the base-period quarters, oldest first.
type Earnings [4]float64

func (q Earnings) Total() float64 {
	return q[0] + q[1] + q[2] + q[3]
}

// High returns the high quarter earnings.
func (q Earnings) High() float64 {
	return math.Max(math.Max(q[0], q[1]), math.Max(q[2], q[3]))
}

// TopTwo returns the sum of the two highest quarters.
func (q Earnings) TopTwo() float64 {
	first, second := 0.0, 0.0
	for _, x := range q {
		switch {
		case x >= first:
			first, second = x, first
		case x > second:
			second = x
		}
	}

	return first + second
}

// Validate checks the calculator's preconditions on earnings.
func (q Earnings) Validate() error {
	for _, x := range q {
		if math.IsNaN(x) || x < 0 {
			return ErrNegativeEarnings
		}
	}

	if q.Total() == 0 {
		return ErrZeroEarnings
	}

	return nil
}

// Calculator returns a non-negative weekly benefit amount.
// Implementations return ErrZeroEarnings, ErrNegativeEarnings or ErrUnsupportedState (possibly wrapped)
// when the contract is not met.
type Calculator interface {
	WeeklyBenefit(ctx context.Context, q Earnings, state string) (float64, error)
}

// Batch runs c over parallel slices: four quarterly earnings sequences and one state sequence.
// It returns one benefit per record.
func Batch(ctx context.Context, c Calculator, q1, q2, q3, q4 []float64, states []string) ([]float64, error) {
	n := len(states)
	if len(q1) != n || len(q2) != n || len(q3) != n || len(q4) != n {
		return nil, fmt.Errorf("batch length mismatch: states %d, quarters %d/%d/%d/%d", n, len(q1), len(q2), len(q3), len(q4))
	}

	wba := make([]float64, n)
	for ind := 0; ind < n; ind++ {
		if e := ctx.Err(); e != nil {
			return nil, e
		}

		q := Earnings{q1[ind], q2[ind], q3[ind], q4[ind]}

		var e error
		if wba[ind], e = c.WeeklyBenefit(ctx, q, states[ind]); e != nil {
			return nil, fmt.Errorf("record %d (%s): %w", ind, states[ind], e)
		}

		if wba[ind] < 0 || math.IsNaN(wba[ind]) {
			return nil, fmt.Errorf("record %d (%s): calculator returned %v", ind, states[ind], wba[ind])
		}
	}

	return wba, nil
}
