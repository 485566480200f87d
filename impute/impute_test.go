package impute

import (
	"math"
	"testing"

	"github.com/invertedv/uiwba/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(q [4]float64) float64 {
	return q[0] + q[1] + q[2] + q[3]
}

func TestQuarters_Recent(t *testing.T) {
	q, e := Quarters(52000, 52, Recent)
	require.Nil(t, e)
	assert.Equal(t, [4]float64{13000, 13000, 13000, 13000}, q)

	q, e = Quarters(20000, 20, Recent)
	require.Nil(t, e)
	assert.Equal(t, [4]float64{0, 0, 7000, 13000}, q)

	q, e = Quarters(4000, 4, Recent)
	require.Nil(t, e)
	assert.Equal(t, [4]float64{0, 0, 0, 4000}, q)
}

func TestQuarters_Uniform(t *testing.T) {
	q, e := Quarters(20000, 20, Uniform)
	require.Nil(t, e)
	assert.Equal(t, [4]float64{5000, 5000, 5000, 5000}, q)
}

func TestQuarters_Invariants(t *testing.T) {
	for _, m := range []Method{Recent, Uniform} {
		for weeks := 1.0; weeks <= WeeksPerYear; weeks++ {
			for _, wage := range []float64{1, 777.77, 31234.5, 250000} {
				q, e := Quarters(wage, weeks, m)
				require.Nil(t, e)
				for _, qv := range q {
					assert.GreaterOrEqual(t, qv, 0.0)
				}

				assert.LessOrEqual(t, sum(q), wage*(1+1e-12))
				assert.InDelta(t, wage, sum(q), 1e-6)
				assert.Greater(t, sum(q), 0.0)
			}
		}
	}
}

func TestQuarters_Errors(t *testing.T) {
	_, e := Quarters(-1, 10, Recent)
	assert.NotNil(t, e)
	_, e = Quarters(100, 53, Recent)
	assert.NotNil(t, e)
	_, e = Quarters(math.NaN(), 10, Recent)
	assert.NotNil(t, e)
	_, e = Quarters(100, 10, Method("front"))
	assert.NotNil(t, e)

	q, e := Quarters(0, 0, Recent)
	assert.Nil(t, e)
	assert.Equal(t, [4]float64{}, q)
}

func TestParseMethod(t *testing.T) {
	m, e := ParseMethod("")
	assert.Nil(t, e)
	assert.Equal(t, Recent, m)
	m, e = ParseMethod("uniform")
	assert.Nil(t, e)
	assert.Equal(t, Uniform, m)
	_, e = ParseMethod("x")
	assert.NotNil(t, e)
}

func TestApply(t *testing.T) {
	df, _ := frame.NewFrame(
		frame.MustCol("wage", []float64{52000, 20000}),
		frame.MustCol("weeks", []float64{52, 20}))

	require.Nil(t, Apply(df, "wage", "weeks", Recent))
	q3, _ := df.Floats(ColQ3)
	assert.Equal(t, []float64{13000, 7000}, q3)
	w, _ := df.Floats(ColWeekly)
	assert.Equal(t, []float64{1000, 1000}, w)

	bad, _ := frame.NewFrame(
		frame.MustCol("wage", []float64{100}),
		frame.MustCol("weeks", []float64{60}))
	assert.NotNil(t, Apply(bad, "wage", "weeks", Recent))
}

func TestRescale(t *testing.T) {
	q := Rescale([4]float64{0, 0, 7000, 13000}, 1000, 1100)
	assert.InDelta(t, 7700.0, q[2], 1e-9)
	assert.InDelta(t, 14300.0, q[3], 1e-9)
	assert.Equal(t, [4]float64{1, 2, 3, 4}, Rescale([4]float64{1, 2, 3, 4}, 0, 5))
}
