// Command uiwba estimates UI weekly benefit amounts from survey earnings and compares them to BAM benchmarks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/invertedv/uiwba/compare"
	"github.com/invertedv/uiwba/config"
	"github.com/invertedv/uiwba/pipeline"
	"github.com/lmittmann/tint"
)

func main() {
	if e := run(); e != nil {
		fmt.Fprintf(os.Stderr, "uiwba: %v\n", e)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgFile, survey, benchmark, out, level, browser string
		target                                          int
		noProject                                       bool
	)

	flag.StringVar(&cfgFile, "config", "", "TOML config file (UIWBA_ environment variables override it)")
	flag.StringVar(&survey, "survey", "", "survey extract, local path or s3://bucket/key")
	flag.StringVar(&benchmark, "benchmark", "", "BAM benchmark table (.csv or .xlsx)")
	flag.StringVar(&out, "out", "", "output directory")
	flag.StringVar(&level, "log-level", "", "debug, info, warn or error")
	flag.IntVar(&target, "target", 0, "project earnings to this year")
	flag.BoolVar(&noProject, "no-project", false, "skip earnings projection")
	flag.StringVar(&browser, "show", "", "open the comparison plot in this browser")
	flag.Parse()

	cfg, e := config.Load(cfgFile)
	if e != nil {
		return e
	}

	if survey != "" {
		cfg.Survey.Path = survey
	}

	if benchmark != "" {
		cfg.Benchmark.Path = benchmark
	}

	if out != "" {
		cfg.Output.Dir = out
	}

	if level != "" {
		cfg.Log.Level = level
	}

	if target > 0 {
		cfg.Projection.Enabled, cfg.Projection.Target = true, target
	}

	if noProject {
		cfg.Projection.Enabled = false
	}

	if e = cfg.Validate(); e != nil {
		return e
	}

	var lvl slog.Level
	if e = lvl.UnmarshalText([]byte(cfg.Log.Level)); e != nil {
		return e
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: lvl, TimeFormat: "15:04:05"}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, e := pipeline.Run(ctx, cfg, logger)
	if e != nil {
		return e
	}

	if e = compare.Report(os.Stdout, res.Stats, res.Comparisons, res.Summary, cfg.Benchmark.Tolerance); e != nil {
		return e
	}

	if browser != "" {
		p, e := pipeline.ComparisonPlot(res.Comparisons, cfg.Benchmark.Tolerance, cfg.Output.Title)
		if e != nil {
			return e
		}

		return p.Show(browser, filepath.Join(os.TempDir(), "uiwba-"+res.RunID+".html"))
	}

	return nil
}
