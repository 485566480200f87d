package frame

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Col is a named Vector.
type Col struct {
	*Vector

	name string
}

// ***************** Col - Create *****************

func NewCol(data any, dt DataTypes, opts ...ColOpt) (*Col, error) {
	var col *Col
	if v, ok := data.(*Vector); ok {
		col = &Col{Vector: v}
	}

	if col == nil {
		var (
			v *Vector
			e error
		)
		if v, e = NewVector(data, dt); e != nil {
			return nil, e
		}

		col = &Col{Vector: v}
	}

	for _, opt := range opts {
		if e := opt(col); e != nil {
			return nil, e
		}
	}

	return col, nil
}

// MustCol is NewCol for callers whose data is known to be valid.  It panics on error.
func MustCol(name string, data any) *Col {
	col, e := NewCol(data, WhatAmI(data), ColName(name))
	if e != nil {
		panic(e)
	}

	return col
}

// *********** Setters ***********

type ColOpt func(c *Col) error

func ColName(name string) ColOpt {
	return func(c *Col) error {
		if c == nil {
			return fmt.Errorf("nil column to ColName")
		}

		if e := validName(name); e != nil {
			return e
		}

		c.name = name

		return nil
	}
}

// ***************** Col - Methods *****************

func (c *Col) Name() string {
	return c.name
}

func (c *Col) DataType() DataTypes {
	return c.VectorType()
}

func (c *Col) Data() *Vector {
	return c.Vector
}

func (c *Col) Copy() *Col {
	return &Col{
		Vector: c.Vector.Copy(),
		name:   c.name,
	}
}

func (c *Col) String() string {
	t := fmt.Sprintf("column: %s\ntype: %s\n", c.Name(), c.DataType())

	if c.Len() == 0 {
		return t + "(empty)\n"
	}

	if !c.DataType().IsNumeric() {
		keys, counts := table(c)
		header := []string{c.Name(), "count"}

		return t + prettyPrint(header, keys, counts)
	}

	f, _ := c.AsFloat()
	x := make([]float64, 0, len(f))
	for _, xv := range f {
		if !math.IsNaN(xv) {
			x = append(x, xv)
		}
	}

	if len(x) == 0 {
		return t + "(all missing)\n"
	}

	sort.Float64s(x)
	cats := []string{"min", "lq", "median", "mean", "uq", "max", "n"}
	vals := []float64{x[0],
		stat.Quantile(0.25, stat.Empirical, x, nil),
		stat.Quantile(0.5, stat.Empirical, x, nil),
		stat.Mean(x, nil),
		stat.Quantile(0.75, stat.Empirical, x, nil),
		x[len(x)-1],
		float64(len(x))}
	header := []string{"metric", "value"}

	return t + prettyPrint(header, cats, vals)
}

// table returns the distinct values of c (as strings) and their counts, most frequent first.
func table(c *Col) ([]string, []int) {
	s, _ := c.AsString()
	counts := make(map[string]int)
	for _, x := range s {
		counts[x]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] == counts[keys[j]] {
			return keys[i] < keys[j]
		}

		return counts[keys[i]] > counts[keys[j]]
	})

	vals := make([]int, len(keys))
	for ind, k := range keys {
		vals[ind] = counts[k]
	}

	return keys, vals
}
