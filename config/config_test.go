package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTOML = `
[log]
level = "debug"

[survey]
path = "cps.csv"

[survey.fields]
year = "YEAR"
state = "STATEFIP"
wage = "INCWAGE"
weeks = "WKSWORK1"

[survey.filter]
excluded = ["DC", "PR"]
min_weeks = 1
max_weeks = 52

[calculator]
kind = "schedule"
schedule = "schedule.toml"

[projection]
enabled = true
target = 2024

[benchmark]
path = "bam.xlsx"
sheet = "2022"

[output]
dir = "results"
`

func writeConfig(t *testing.T, body string) string {
	fn := filepath.Join(t.TempDir(), "uiwba.toml")
	require.Nil(t, os.WriteFile(fn, []byte(body), 0o600))

	return fn
}

func TestLoad(t *testing.T) {
	cfg, e := Load(writeConfig(t, testTOML))
	require.Nil(t, e)
	require.Nil(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"DC", "PR"}, cfg.Survey.Filter.Excluded)
	assert.Equal(t, "ASECWT", cfg.Survey.Fields.Weight)
	assert.Equal(t, 2024, cfg.Projection.Target)
	assert.Equal(t, "2022", cfg.Benchmark.Sheet)
	// defaults survive
	assert.Equal(t, 0.15, cfg.Benchmark.Tolerance)
	assert.Equal(t, "state", cfg.Benchmark.Columns.State)
	assert.Equal(t, "compare.csv", cfg.Output.Compare)
	assert.Equal(t, []int{99999999, 99999998}, cfg.Survey.Filter.InvalidWage)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("UIWBA_SURVEY_PATH", "s3://bucket/cps.csv")
	t.Setenv("UIWBA_CALCULATOR_KIND", "remote")
	t.Setenv("UIWBA_CALCULATOR_URL", "http://localhost:8080/wba")
	t.Setenv("UIWBA_PROJECTION_ENABLED", "false")
	t.Setenv("UIWBA_OUTPUT_DB", "sqlite://:memory:")

	cfg, e := Load(writeConfig(t, testTOML))
	require.Nil(t, e)
	require.Nil(t, cfg.Validate())
	assert.Equal(t, "s3://bucket/cps.csv", cfg.Survey.Path)
	assert.Equal(t, "remote", cfg.Calculator.Kind)
	assert.False(t, cfg.Projection.Enabled)
	assert.Equal(t, "sqlite://:memory:", cfg.Output.DB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(c *Config)
	}{
		{"no survey", func(c *Config) { c.Survey.Path = "" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad method", func(c *Config) { c.Impute.Method = "front" }},
		{"remote without url", func(c *Config) { c.Calculator.Kind = "remote"; c.Calculator.URL = "" }},
		{"schedule without file", func(c *Config) { c.Calculator.Schedule = "" }},
		{"bad reference", func(c *Config) { c.Calculator.Reference = "July 2022" }},
		{"projection without target", func(c *Config) { c.Projection.Target = 0 }},
		{"bad tau", func(c *Config) { c.Projection.Taus = []float64{0.5, 1.2} }},
		{"bad tolerance", func(c *Config) { c.Benchmark.Tolerance = 0 }},
		{"weeks", func(c *Config) { c.Survey.Filter.MinWeeks = 40; c.Survey.Filter.MaxWeeks = 20 }},
		{"no benchmark state", func(c *Config) { c.Benchmark.Columns.State = "" }},
	}

	for _, tt := range tests {
		cfg, e := Load(writeConfig(t, testTOML))
		require.Nil(t, e)
		tt.mod(cfg)
		assert.NotNil(t, cfg.Validate(), tt.name)
	}
}

func TestLoad_Errors(t *testing.T) {
	_, e := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.NotNil(t, e)

	_, e = Load(writeConfig(t, "[survey]\npth = \"x\"\n"))
	assert.NotNil(t, e)

	cfg, e := Load("")
	require.Nil(t, e)
	assert.NotNil(t, cfg.Validate())
}

func TestShipped(t *testing.T) {
	cfg, e := Load("../configs/uiwba.toml")
	require.Nil(t, e)
	assert.Nil(t, cfg.Validate())
}
