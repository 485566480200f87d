package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/invertedv/uiwba/calc"
	"github.com/invertedv/uiwba/compare"
	"github.com/invertedv/uiwba/config"
	"github.com/invertedv/uiwba/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cpsCSV = `YEAR,STATEFIP,INCWAGE,WKSWORK1,EMPSTAT,DURUNEMP,WHYUNEMP,CITIZEN,ASECWT
2021,36,52000,52,21,10,1,1,100
2021,36,26000,26,21,10,1,1,100
2022,36,54600,52,21,10,1,1,100
2022,36,27300,26,21,10,1,1,100
2022,6,39000,39,21,4,2,1,1000
2022,11,40000,40,21,8,1,1,300
2022,48,30000,50,21,3,1,1,800
2022,48,31000,50,21,3,1,5,800
`

	scheduleTOML = `
excluded = ["DC"]

[[rule]]
state = "default"
effective = "2015-01-01"
method = "high_quarter"
fraction = 0.04
min_wba = 50
max_wba = 600
`

	benchCSV = `state,aww,wba,rr
New York,"$1,050",$450,42%
California,"$1,000",$500,50%
Florida,$900,$275,30.6%
`
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	write := func(name, body string) string {
		fn := filepath.Join(dir, name)
		require.Nil(t, os.WriteFile(fn, []byte(body), 0o600))
		return fn
	}

	cfg := config.Default()
	cfg.Survey.Path = write("cps.csv", cpsCSV)
	cfg.Calculator.Schedule = write("schedule.toml", scheduleTOML)
	cfg.Benchmark.Path = write("bam.csv", benchCSV)
	cfg.Projection = config.Projection{Enabled: true, Target: 2023, MinRows: 2, Workers: 2}
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.Records = "records.csv"
	cfg.Output.DB = "sqlite://" + filepath.Join(dir, "uiwba.db")

	return &cfg
}

// recorder passes through to a calculator and remembers the states it saw.
type recorder struct {
	mu     sync.Mutex
	inner  calc.Calculator
	states map[string]int
}

func (r *recorder) WeeklyBenefit(ctx context.Context, q calc.Earnings, state string) (float64, error) {
	r.mu.Lock()
	r.states[state]++
	r.mu.Unlock()

	return r.inner.WeeklyBenefit(ctx, q, state)
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)

	res, e := Run(context.Background(), cfg, nil)
	require.Nil(t, e)

	assert.Equal(t, 8, res.Clean.Read)
	assert.Equal(t, 6, res.Records)
	assert.Equal(t, time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC), res.Reference)

	require.Len(t, res.Stats, 3)
	ca, ny, tx := res.Stats[0], res.Stats[1], res.Stats[2]
	assert.Equal(t, "CA", ca.State)
	assert.Equal(t, "TX", tx.State)

	// CA has one survey year and is not projected: 3 quarters of 13000, 0.04 * 13000
	assert.InDelta(t, 1000.0, ca.AWW, 1e-9)
	assert.InDelta(t, 520.0, ca.WBA, 1e-9)
	assert.InDelta(t, 0.52, ca.RR, 1e-9)

	// NY grows 5% a year and is projected to 2023
	assert.InDelta(t, 1000*1.05*1.05, ny.AWW, 1e-3)
	require.Len(t, res.Fits, 3)
	for _, f := range res.Fits {
		if f.State == "NY" {
			for _, s := range f.Slopes {
				assert.InDelta(t, math.Log(1.05), s, 1e-6)
			}
		}
	}

	// TX is not in the benchmark and FL is not in the survey
	for _, c := range res.Comparisons {
		assert.Contains(t, []string{"CA", "NY"}, c.State)
	}
	assert.Len(t, res.Comparisons, 6)

	require.Len(t, res.Summary, 3)
	assert.Equal(t, compare.MetricAWW, res.Summary[0].Metric)
	assert.Equal(t, 2, res.Summary[0].Within)

	assert.Len(t, res.Files, 4)
	for _, fn := range res.Files {
		_, e := os.Stat(fn)
		assert.Nil(t, e, fn)
	}

	assert.Equal(t, []string{"uiwba_compare", "uiwba_stats"}, res.Tables)
	d, e := store.Open(cfg.Output.DB)
	require.Nil(t, e)
	defer func() { _ = d.Close() }()

	df, e := d.Load("SELECT state, wba FROM uiwba_stats WHERE run_id = '" + res.RunID + "' ORDER BY state")
	require.Nil(t, e)
	assert.Equal(t, 3, df.RowCount())
}

func TestRun_ExcludedNeverCalculated(t *testing.T) {
	cfg := testConfig(t)
	cfg.Projection.Enabled = false
	cfg.Output = config.Output{Dir: cfg.Output.Dir, TablePrefix: "uiwba"}

	tbl, e := calc.LoadTable(mustOpen(t, cfg.Calculator.Schedule))
	require.Nil(t, e)
	sched, e := calc.NewSchedule(tbl, time.Date(2022, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.Nil(t, e)

	rec := &recorder{inner: sched, states: make(map[string]int)}
	r := &Runner{Calculator: rec}
	res, e := r.Run(context.Background(), cfg)
	require.Nil(t, e)

	assert.Equal(t, time.Date(2022, time.July, 1, 0, 0, 0, 0, time.UTC), res.Reference)
	assert.Zero(t, rec.states["DC"])
	assert.Equal(t, map[string]int{"NY": 4, "CA": 1, "TX": 1}, rec.states)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Tables)
}

func TestRun_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Benchmark.Path = filepath.Join(t.TempDir(), "missing.csv")
	_, e := Run(context.Background(), cfg, nil)
	assert.NotNil(t, e)

	cfg = testConfig(t)
	cfg.Survey.Path = ""
	_, e = Run(context.Background(), cfg, nil)
	assert.NotNil(t, e)

	// a calculator that rejects every state stops the run
	cfg = testConfig(t)
	cfg.Projection.Enabled = false
	r := &Runner{Calculator: rejectAll{}}
	_, e = r.Run(context.Background(), cfg)
	assert.ErrorIs(t, e, calc.ErrUnsupportedState)
}

type rejectAll struct{}

func (rejectAll) WeeklyBenefit(context.Context, calc.Earnings, string) (float64, error) {
	return 0, calc.ErrUnsupportedState
}

func mustOpen(t *testing.T, fn string) *os.File {
	f, e := os.Open(fn)
	require.Nil(t, e)
	t.Cleanup(func() { _ = f.Close() })

	return f
}

func TestComparisonPlot(t *testing.T) {
	_, e := ComparisonPlot(nil, 0.15, "none")
	assert.NotNil(t, e)

	cs := []compare.Comparison{
		{State: "NY", Metric: compare.MetricAWW, Computed: 1100, Benchmark: 1050},
		{State: "CA", Metric: compare.MetricWBA, Computed: 520, Benchmark: 500},
	}
	p, e := ComparisonPlot(cs, 0.15, "Computed vs BAM")
	require.Nil(t, e)
	require.NotNil(t, p)
	assert.Nil(t, p.Save(filepath.Join(t.TempDir(), "compare.html")))
}
