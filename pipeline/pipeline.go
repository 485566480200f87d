// Package pipeline runs a full estimation: survey -> quarters -> (projection) -> benefits -> comparison.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/invertedv/uiwba/bench"
	"github.com/invertedv/uiwba/calc"
	"github.com/invertedv/uiwba/compare"
	"github.com/invertedv/uiwba/config"
	"github.com/invertedv/uiwba/frame"
	"github.com/invertedv/uiwba/impute"
	"github.com/invertedv/uiwba/plot"
	"github.com/invertedv/uiwba/qreg"
	"github.com/invertedv/uiwba/source"
	"github.com/invertedv/uiwba/store"
	"github.com/invertedv/uiwba/survey"
)

// record-level columns added by Run
const (
	ColWBA          = "wba"
	ColSurveyWeekly = "weekly_wage_survey"
)

type Result struct {
	RunID       string
	Clean       *survey.Report
	Records     int
	Reference   time.Time
	Fits        []qreg.StateFit
	Stats       []compare.Stat
	Benchmark   *bench.Benchmark
	Comparisons []compare.Comparison
	Summary     []compare.Summary
	Files       []string
	Tables      []string
}

// Runner carries the collaborators of a run.  The zero value reads from the local file system and S3.
type Runner struct {
	Opener *source.Opener
	Logger *slog.Logger
	// Calculator, if set, replaces the one described by the config.
	Calculator calc.Calculator
}

// Run executes cfg with a default Runner.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	r := &Runner{Logger: logger}

	return r.Run(ctx, cfg)
}

func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if r.Opener == nil {
		r.Opener = &source.Opener{}
	}

	if r.Logger == nil {
		r.Logger = slog.Default()
	}

	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	res := &Result{RunID: store.NewRunID()}
	log := r.Logger.With("run", res.RunID)

	// (a) survey
	var (
		df *frame.Frame
		e  error
	)
	if df, e = survey.Load(ctx, r.Opener, cfg.Survey.Path, cfg.Survey.Fields); e != nil {
		return nil, e
	}

	if df, res.Clean, e = survey.Clean(df, cfg.Survey.Filter, log); e != nil {
		return nil, e
	}
	res.Records = df.RowCount()

	// (b) quarters
	var method impute.Method
	if method, e = impute.ParseMethod(cfg.Impute.Method); e != nil {
		return nil, e
	}

	if e = impute.Apply(df, survey.ColWage, survey.ColWeeks, method); e != nil {
		return nil, e
	}

	// (d) projection
	if cfg.Projection.Enabled {
		if res.Fits, e = r.project(ctx, cfg.Projection, df, log); e != nil {
			return nil, e
		}
	}

	// (c) benefits
	if res.Reference, e = reference(cfg, df); e != nil {
		return nil, e
	}

	var c calc.Calculator
	if c, e = r.calculator(ctx, cfg.Calculator, res.Reference); e != nil {
		return nil, e
	}

	if e = benefits(ctx, c, df); e != nil {
		return nil, e
	}
	log.Info("benefits computed", "records", df.RowCount(), "reference", res.Reference.Format(time.DateOnly))

	// (e) aggregate and compare
	if res.Stats, e = aggregate(df, cfg.Benchmark.EligibleOnly); e != nil {
		return nil, e
	}

	bopt := bench.Options{Columns: cfg.Benchmark.Columns, Sheet: cfg.Benchmark.Sheet, SkipUnmatched: cfg.Benchmark.SkipUnmatched}
	if res.Benchmark, e = bench.Load(ctx, r.Opener, cfg.Benchmark.Path, bopt, log); e != nil {
		return nil, e
	}

	res.Comparisons = compare.Join(res.Stats, res.Benchmark, cfg.Benchmark.Tolerance)
	if len(res.Comparisons) == 0 {
		return nil, fmt.Errorf("no states in both the survey and the benchmark")
	}

	res.Summary = compare.Summarize(res.Comparisons)
	for _, s := range res.Summary {
		log.Info("benchmark agreement", "metric", s.Metric, "states", s.States, "within", s.Within,
			"share", s.Share, "median_ratio", s.MedianRatio)
	}

	if e = r.write(cfg, df, res, log); e != nil {
		return nil, e
	}

	return res, nil
}

// project replaces the weekly wage and quarters with their values projected to the target year.
func (r *Runner) project(ctx context.Context, pc config.Projection, df *frame.Frame, log *slog.Logger) ([]qreg.StateFit, error) {
	var (
		states         []string
		years          []int
		weekly, weight []float64
		e              error
	)
	if states, e = df.Strings(survey.ColState); e != nil {
		return nil, e
	}

	if years, e = df.Ints(survey.ColYear); e != nil {
		return nil, e
	}

	if weekly, e = df.Floats(impute.ColWeekly); e != nil {
		return nil, e
	}

	if weight, e = df.Floats(survey.ColWeight); e != nil {
		return nil, e
	}

	p := qreg.Projection{Target: pc.Target, Taus: pc.Taus, MinRows: pc.MinRows, Workers: pc.Workers}

	var (
		projected []float64
		fits      []qreg.StateFit
	)
	if projected, fits, e = qreg.Project(ctx, p, states, years, weekly, weight, log); e != nil {
		return nil, e
	}

	var qs [4][]float64
	for ind, nm := range []string{impute.ColQ1, impute.ColQ2, impute.ColQ3, impute.ColQ4} {
		if qs[ind], e = df.Floats(nm); e != nil {
			return nil, e
		}
	}

	n := df.RowCount()
	newQ := [4][]float64{make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)}
	for row := 0; row < n; row++ {
		q := impute.Rescale([4]float64{qs[0][row], qs[1][row], qs[2][row], qs[3][row]}, weekly[row], projected[row])
		for j := range q {
			newQ[j][row] = q[j]
		}
	}

	if e = df.AppendColumn(frame.MustCol(ColSurveyWeekly, slices.Clone(weekly)), true); e != nil {
		return nil, e
	}

	for ind, nm := range []string{impute.ColQ1, impute.ColQ2, impute.ColQ3, impute.ColQ4} {
		if e = df.AppendColumn(frame.MustCol(nm, newQ[ind]), true); e != nil {
			return nil, e
		}
	}

	return fits, df.AppendColumn(frame.MustCol(impute.ColWeekly, projected), true)
}

// reference is the date the benefit rules are taken at: the configured date, else July 1 of the
// projection target or of the latest survey year.
func reference(cfg *config.Config, df *frame.Frame) (time.Time, error) {
	if cfg.Calculator.Reference != "" {
		return time.Parse(time.DateOnly, cfg.Calculator.Reference)
	}

	year := cfg.Projection.Target
	if !cfg.Projection.Enabled {
		years, e := df.Ints(survey.ColYear)
		if e != nil {
			return time.Time{}, e
		}

		year = slices.Max(years)
	}

	return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC), nil
}

func (r *Runner) calculator(ctx context.Context, cc config.Calculator, ref time.Time) (calc.Calculator, error) {
	c := r.Calculator
	if c == nil {
		switch cc.Kind {
		case "remote":
			c = calc.NewRemote(cc.URL, time.Duration(cc.TimeoutSeconds)*time.Second)
		default:
			rc, e := r.Opener.Open(ctx, cc.Schedule)
			if e != nil {
				return nil, fmt.Errorf("open schedule: %w", e)
			}
			defer func() { _ = rc.Close() }()

			var tbl *calc.Table
			if tbl, e = calc.LoadTable(rc); e != nil {
				return nil, e
			}

			if c, e = calc.NewSchedule(tbl, ref); e != nil {
				return nil, e
			}
		}
	}

	if cc.CacheSize > 0 {
		return calc.NewCached(c, cc.CacheSize)
	}

	return c, nil
}

func benefits(ctx context.Context, c calc.Calculator, df *frame.Frame) error {
	var (
		qs     [4][]float64
		states []string
		e      error
	)
	for ind, nm := range []string{impute.ColQ1, impute.ColQ2, impute.ColQ3, impute.ColQ4} {
		if qs[ind], e = df.Floats(nm); e != nil {
			return e
		}
	}

	if states, e = df.Strings(survey.ColState); e != nil {
		return e
	}

	var wba []float64
	if wba, e = calc.Batch(ctx, c, qs[0], qs[1], qs[2], qs[3], states); e != nil {
		return fmt.Errorf("benefit calculator: %w", e)
	}

	return df.AppendColumn(frame.MustCol(ColWBA, wba), true)
}

func aggregate(df *frame.Frame, eligibleOnly bool) ([]compare.Stat, error) {
	var (
		states              []string
		weekly, wba, weight []float64
		e                   error
	)
	if states, e = df.Strings(survey.ColState); e != nil {
		return nil, e
	}

	if weekly, e = df.Floats(impute.ColWeekly); e != nil {
		return nil, e
	}

	if wba, e = df.Floats(ColWBA); e != nil {
		return nil, e
	}

	if weight, e = df.Floats(survey.ColWeight); e != nil {
		return nil, e
	}

	return compare.Aggregate(states, weekly, wba, weight, eligibleOnly)
}

// write saves the configured outputs and records their names in res.
func (r *Runner) write(cfg *config.Config, df *frame.Frame, res *Result, log *slog.Logger) error {
	out := cfg.Output
	if e := os.MkdirAll(out.Dir, 0o755); e != nil {
		return e
	}

	files, e := frame.NewFiles(frame.FileFloatFormat("%.4f"))
	if e != nil {
		return e
	}

	var cf, sf *frame.Frame
	if cf, e = compare.ToFrame(res.Comparisons); e != nil {
		return e
	}

	if sf, e = compare.StatsFrame(res.Stats); e != nil {
		return e
	}

	for _, o := range []struct {
		name string
		df   *frame.Frame
	}{{out.Compare, cf}, {out.Stats, sf}, {out.Records, df}} {
		if o.name == "" {
			continue
		}

		fn := filepath.Join(out.Dir, o.name)
		if e = files.Save(fn, o.df); e != nil {
			return fmt.Errorf("write %s: %w", fn, e)
		}

		res.Files = append(res.Files, fn)
	}

	if out.Plot != "" {
		fn := filepath.Join(out.Dir, out.Plot)
		var p *plot.Plot
		if p, e = ComparisonPlot(res.Comparisons, cfg.Benchmark.Tolerance, out.Title); e != nil {
			return e
		}

		if e = p.Save(fn); e != nil {
			return e
		}

		res.Files = append(res.Files, fn)
	}

	if out.DB != "" {
		var d *store.Dialect
		if d, e = store.Open(out.DB); e != nil {
			return e
		}
		defer func() { _ = d.Close() }()

		if res.Tables, e = d.SaveRun(out.TablePrefix, res.RunID, map[string]*frame.Frame{"compare": cf, "stats": sf}); e != nil {
			return e
		}
	}

	log.Info("outputs written", "files", res.Files, "tables", res.Tables)

	return nil
}

// ComparisonPlot scatters computed against benchmark values, one panel per metric present.
func ComparisonPlot(cs []compare.Comparison, tol float64, title string) (*plot.Plot, error) {
	var facets []plot.Facet
	for _, metric := range compare.Metrics {
		sub := compare.Filter(cs, metric)
		if len(sub) == 0 {
			continue
		}

		f := plot.Facet{Name: compare.Label(metric)}
		for _, c := range sub {
			f.X = append(f.X, c.Benchmark)
			f.Y = append(f.Y, c.Computed)
			f.Labels = append(f.Labels, c.State)
		}

		facets = append(facets, f)
	}

	if len(facets) == 0 {
		return nil, fmt.Errorf("no comparisons to plot")
	}

	return plot.FacetScatter(facets, tol, plot.WithTitle(title), plot.WithHeight(500),
		plot.WithWidth(float64(450*len(facets))), plot.WithLegend(false),
		plot.WithXlabel("benchmark"), plot.WithYlabel("computed"))
}
