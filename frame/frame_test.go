package frame

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() *Frame {
	x := MustCol("x", []float64{1, -2, 3, 0, 2, 3.5})
	y := MustCol("y", []int{1, -5, 6, 1, 4, 5})
	z := MustCol("z", []string{"NY", "CA", "NY", "TX", "CA", "NY"})
	df, e := NewFrame(x, y, z)
	if e != nil {
		panic(e)
	}

	return df
}

func TestNewFrame(t *testing.T) {
	df := testFrame()
	assert.Equal(t, 6, df.RowCount())
	assert.Equal(t, 3, df.ColumnCount())
	assert.Equal(t, []string{"x", "y", "z"}, df.ColumnNames())

	_, e := NewFrame(MustCol("a", []int{1, 2}), MustCol("b", []int{1}))
	assert.NotNil(t, e)

	_, e = NewFrame(MustCol("a", []int{1, 2}), MustCol("a", []int{3, 4}))
	assert.NotNil(t, e)
}

func TestFrame_AppendColumn(t *testing.T) {
	df := testFrame()
	assert.NotNil(t, df.AppendColumn(MustCol("x", []float64{1, 2, 3, 4, 5, 6}), false))
	assert.Nil(t, df.AppendColumn(MustCol("x", []float64{1, 2, 3, 4, 5, 6}), true))
	x, e := df.Floats("x")
	assert.Nil(t, e)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, x)
	assert.Equal(t, []string{"y", "z", "x"}, df.ColumnNames())

	assert.NotNil(t, df.AppendColumn(MustCol("w", []int{1}), false))
}

func TestFrame_DropKeep(t *testing.T) {
	df := testFrame()
	assert.Nil(t, df.DropColumns("y"))
	assert.Equal(t, []string{"x", "z"}, df.ColumnNames())
	assert.NotNil(t, df.DropColumns("nope"))

	kept, e := testFrame().KeepColumns("z", "x")
	assert.Nil(t, e)
	assert.Equal(t, []string{"z", "x"}, kept.ColumnNames())

	_, e = testFrame().KeepColumns("q")
	assert.NotNil(t, e)
}

func TestFrame_Where(t *testing.T) {
	df := testFrame()
	out, e := df.Where([]bool{true, false, true, false, false, true})
	require.Nil(t, e)
	assert.Equal(t, 3, out.RowCount())
	y, _ := out.Ints("y")
	assert.Equal(t, []int{1, 6, 5}, y)

	_, e = df.Where([]bool{true})
	assert.NotNil(t, e)
}

func TestFrame_Split(t *testing.T) {
	parts, keys, e := testFrame().Split("z")
	require.Nil(t, e)
	assert.Equal(t, []string{"CA", "NY", "TX"}, keys)
	assert.Equal(t, 3, parts["NY"].RowCount())
	x, _ := parts["CA"].Floats("x")
	assert.Equal(t, []float64{-2, 2}, x)
}

func TestFrame_Sort(t *testing.T) {
	df := testFrame()
	require.Nil(t, df.Sort(true, "z", "x"))
	z, _ := df.Strings("z")
	x, _ := df.Floats("x")
	assert.Equal(t, []string{"CA", "CA", "NY", "NY", "NY", "TX"}, z)
	assert.Equal(t, []float64{-2, 2, 1, 3, 3.5, 0}, x)

	require.Nil(t, df.Sort(false, "y"))
	y, _ := df.Ints("y")
	assert.Equal(t, []int{6, 5, 4, 1, 1, -5}, y)

	assert.NotNil(t, df.Sort(true, "nope"))
}

func TestVector_Coerce(t *testing.T) {
	v, e := NewVector([]string{"1", "2.5", "3"}, DTfloat)
	require.Nil(t, e)
	x, _ := v.AsFloat()
	assert.Equal(t, []float64{1, 2.5, 3}, x)

	_, e = NewVector([]string{"a"}, DTint)
	assert.NotNil(t, e)

	vi, _ := NewVector([]int{3, 4}, DTint)
	s, e := vi.AsString()
	assert.Nil(t, e)
	assert.Equal(t, []string{"3", "4"}, s)
}

func TestDTFromString(t *testing.T) {
	for dt := DTunknown; dt <= MaxDT; dt++ {
		assert.Equal(t, dt, DTFromString(dt.String()))
	}

	assert.Equal(t, DTunknown, DTFromString("DTnope"))
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Avg_Weekly_Wage", CleanName(" Avg. Weekly Wage "))
	assert.Equal(t, "state", CleanName("state"))
}

func TestString(t *testing.T) {
	fmt.Println(testFrame())
}
