// Package config loads run settings from a TOML file with UIWBA_ environment overrides.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/invertedv/uiwba/bench"
	"github.com/invertedv/uiwba/compare"
	"github.com/invertedv/uiwba/survey"
	"github.com/pelletier/go-toml/v2"
)

const EnvPrefix = "UIWBA_"

type Config struct {
	Log        Log        `toml:"log" envPrefix:"LOG_"`
	Survey     Survey     `toml:"survey" envPrefix:"SURVEY_"`
	Impute     Impute     `toml:"impute" envPrefix:"IMPUTE_"`
	Calculator Calculator `toml:"calculator" envPrefix:"CALCULATOR_"`
	Projection Projection `toml:"projection" envPrefix:"PROJECTION_"`
	Benchmark  Benchmark  `toml:"benchmark" envPrefix:"BENCHMARK_"`
	Output     Output     `toml:"output" envPrefix:"OUTPUT_"`
}

type Log struct {
	Level string `toml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
}

type Survey struct {
	Path   string        `toml:"path" env:"PATH" validate:"required"`
	Fields survey.Fields `toml:"fields"`
	Filter survey.Filter `toml:"filter"`
}

type Impute struct {
	Method string `toml:"method" env:"METHOD" validate:"omitempty,oneof=recent uniform"`
}

// Calculator selects the benefit calculator.  A schedule is evaluated at Reference (YYYY-MM-DD); when
// Reference is empty, July 1 of the projection target (or the latest survey year) is used.
type Calculator struct {
	Kind           string `toml:"kind" env:"KIND" validate:"oneof=schedule remote"`
	Schedule       string `toml:"schedule" env:"SCHEDULE" validate:"required_if=Kind schedule"`
	Reference      string `toml:"reference" env:"REFERENCE" validate:"omitempty,datetime=2006-01-02"`
	URL            string `toml:"url" env:"URL" validate:"required_if=Kind remote,omitempty,url"`
	TimeoutSeconds int    `toml:"timeout_seconds" env:"TIMEOUT_SECONDS" validate:"gte=0"`
	CacheSize      int    `toml:"cache_size" env:"CACHE_SIZE" validate:"gte=0"`
}

type Projection struct {
	Enabled bool      `toml:"enabled" env:"ENABLED"`
	Target  int       `toml:"target" env:"TARGET" validate:"required_if=Enabled true,omitempty,gte=1960,lte=2100"`
	Taus    []float64 `toml:"taus" validate:"dive,gt=0,lt=1"`
	MinRows int       `toml:"min_rows" env:"MIN_ROWS" validate:"gte=0"`
	Workers int       `toml:"workers" env:"WORKERS" validate:"gte=0"`
}

type Benchmark struct {
	Path          string        `toml:"path" env:"PATH" validate:"required"`
	Columns       bench.Columns `toml:"columns"`
	Sheet         string        `toml:"sheet" env:"SHEET"`
	SkipUnmatched bool          `toml:"skip_unmatched" env:"SKIP_UNMATCHED"`
	Tolerance     float64       `toml:"tolerance" env:"TOLERANCE" validate:"gt=0,lt=1"`
	EligibleOnly  bool          `toml:"eligible_only" env:"ELIGIBLE_ONLY"`
}

// Output names the files written to Dir.  Empty names are not written.  DB is a store DSN.
type Output struct {
	Dir         string `toml:"dir" env:"DIR" validate:"required"`
	Compare     string `toml:"compare" env:"COMPARE"`
	Stats       string `toml:"stats" env:"STATS"`
	Records     string `toml:"records" env:"RECORDS"`
	Plot        string `toml:"plot" env:"PLOT"`
	Title       string `toml:"title" env:"TITLE"`
	DB          string `toml:"db" env:"DB"`
	TablePrefix string `toml:"table_prefix" env:"TABLE_PREFIX" validate:"required_with=DB"`
}

func Default() Config {
	return Config{
		Log:    Log{Level: "info"},
		Survey: Survey{Fields: survey.DefaultFields(), Filter: survey.DefaultFilter()},
		Impute: Impute{Method: "recent"},
		Calculator: Calculator{
			Kind:           "schedule",
			TimeoutSeconds: 10,
			CacheSize:      100000,
		},
		Projection: Projection{MinRows: 30, Workers: 4},
		Benchmark:  Benchmark{Columns: bench.DefaultColumns(), Tolerance: compare.DefaultTolerance},
		Output: Output{
			Dir:         "out",
			Compare:     "compare.csv",
			Stats:       "stats.csv",
			Plot:        "compare.html",
			Title:       "Computed vs BAM",
			TablePrefix: "uiwba",
		},
	}
}

// Load reads fileName (if not empty) over the defaults, applies environment overrides and validates.
func Load(fileName string) (*Config, error) {
	cfg := Default()

	if fileName != "" {
		f, e := os.Open(fileName)
		if e != nil {
			return nil, e
		}
		defer func() { _ = f.Close() }()

		if e = toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); e != nil {
			return nil, fmt.Errorf("config %s: %w", fileName, e)
		}
	}

	if e := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); e != nil {
		return nil, fmt.Errorf("config environment: %w", e)
	}

	return &cfg, nil
}

// Validate checks cfg.  Callers apply command-line overrides before validating.
func (c *Config) Validate() error {
	if e := validator.New(validator.WithRequiredStructEnabled()).Struct(c); e != nil {
		return fmt.Errorf("invalid config: %w", e)
	}

	return nil
}
