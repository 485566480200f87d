package compare

import (
	"bytes"
	"math"
	"testing"

	"github.com/invertedv/uiwba/bench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStats(t *testing.T) []Stat {
	state := []string{"NY", "NY", "CA", "CA", "TX"}
	weekly := []float64{1000, 500, 800, 800, 600}
	wba := []float64{400, 250, 320, 0, 300}
	weight := []float64{1, 3, 2, 2, 1}

	stats, e := Aggregate(state, weekly, wba, weight, false)
	require.Nil(t, e)

	return stats
}

func TestAggregate(t *testing.T) {
	stats := testStats(t)
	require.Len(t, stats, 3)
	assert.Equal(t, "CA", stats[0].State)

	ny := stats[1]
	assert.Equal(t, "NY", ny.State)
	assert.Equal(t, 2, ny.N)
	assert.Equal(t, 4.0, ny.Weight)
	assert.InDelta(t, 625.0, ny.AWW, 1e-9)
	assert.InDelta(t, 287.5, ny.WBA, 1e-9)
	// (0.4 + 3*0.5) / 4
	assert.InDelta(t, 0.475, ny.RR, 1e-9)
	assert.InDelta(t, 287.5/625, ny.RRRatio, 1e-9)

	ca := stats[0]
	assert.InDelta(t, 160.0, ca.WBA, 1e-9)

	elig, e := Aggregate([]string{"CA", "CA"}, []float64{800, 800}, []float64{320, 0}, nil, true)
	require.Nil(t, e)
	assert.Equal(t, 1, elig[0].N)
	assert.InDelta(t, 320.0, elig[0].WBA, 1e-9)

	_, e = Aggregate([]string{"CA"}, []float64{800, 1}, []float64{320}, nil, false)
	assert.NotNil(t, e)
	_, e = Aggregate([]string{"CA"}, []float64{800}, []float64{0}, nil, true)
	assert.NotNil(t, e)
}

func TestBand(t *testing.T) {
	tests := []struct {
		computed, benchmark float64
		within              bool
	}{
		{100, 100, true},
		{115, 100, true},
		{85, 100, true},
		{115.01, 100, false},
		{84.99, 100, false},
		{1, 0, false},
		{math.NaN(), 100, false},
	}

	for _, tt := range tests {
		_, within := Band(tt.computed, tt.benchmark, DefaultTolerance)
		assert.Equal(t, tt.within, within, "%v/%v", tt.computed, tt.benchmark)
	}

	ratio, _ := Band(90, 100, DefaultTolerance)
	assert.InDelta(t, 0.9, ratio, 1e-12)
}

func TestJoinSummarize(t *testing.T) {
	stats := testStats(t)
	b := &bench.Benchmark{Rows: []bench.Row{
		{State: "CA", AWW: 800, WBA: 300, RR: math.NaN()},
		{State: "FL", AWW: 700, WBA: 275, RR: 0.39},
		{State: "NY", AWW: 700, WBA: 400, RR: 0.45},
	}}

	cs := Join(stats, b, DefaultTolerance)
	// CA has no RR; FL and TX are not in both
	assert.Len(t, cs, 5)
	for _, c := range cs {
		assert.NotEqual(t, "TX", c.State)
		assert.NotEqual(t, "FL", c.State)
	}

	wba := Filter(cs, MetricWBA)
	require.Len(t, wba, 2)
	assert.Equal(t, "CA", wba[0].State)
	assert.False(t, wba[0].Within)
	assert.False(t, wba[1].Within)

	sum := Summarize(cs)
	require.Len(t, sum, 3)
	assert.Equal(t, MetricAWW, sum[0].Metric)
	assert.Equal(t, 2, sum[0].States)
	assert.Equal(t, 2, sum[0].Within)
	assert.Equal(t, 1.0, sum[0].Share)
	assert.Equal(t, 0, sum[1].Within)
	assert.Equal(t, 1, sum[2].States)
	assert.Equal(t, 1, sum[2].Within)

	var buf bytes.Buffer
	require.Nil(t, Report(&buf, stats, cs, sum, DefaultTolerance))
	out := buf.String()
	assert.Contains(t, out, "within 15% of benchmark")
	assert.Contains(t, out, "Replacement rate")
	assert.Contains(t, out, "NY")
}

func TestFrames(t *testing.T) {
	stats := testStats(t)
	df, e := StatsFrame(stats)
	require.Nil(t, e)
	assert.Equal(t, 3, df.RowCount())
	assert.Equal(t, []string{"state", "n", "weight", "aww", "wba", "rr", "rr_ratio"}, df.ColumnNames())

	cs := []Comparison{{State: "NY", Metric: MetricWBA, Computed: 100, Benchmark: 100, Ratio: 1, Within: true}}
	cf, e := ToFrame(cs)
	require.Nil(t, e)
	within, _ := cf.Ints("within")
	assert.Equal(t, []int{1}, within)
}
