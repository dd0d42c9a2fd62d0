package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMainConfig_Defaults(t *testing.T) {
	cfg, err := ParseMainConfig([]byte(`
special_tariffs:
  path: ./tables/special.xlsx
reference_data:
  path: ./tables/reference.yaml
`))
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./errors", cfg.ErrorDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, DialectXML, cfg.Dialect)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, SourceXLSX, cfg.SpecialTariffs.Source)
	assert.Equal(t, SourceYAML, cfg.ReferenceData.Source)
	assert.Equal(t, SinkDir, cfg.Delivery.Sink)
	assert.Equal(t, ",", cfg.CSV.Delimiter)
	assert.Equal(t, ";", cfg.CSV.ListSeparator)
	assert.Equal(t, "{cust}_{file}_{timestamp}.{dialect}", cfg.OutputNameFormat)

	date, err := cfg.ParsedReferenceDate()
	require.NoError(t, err)
	assert.Nil(t, date)
}

func TestParseMainConfig_Full(t *testing.T) {
	cfg, err := ParseMainConfig([]byte(`
dialect: FIXED
log_format: json
max_concurrency: 8
continue_on_error: false
reference_date: 2024-03-15
database_url: postgres://ciload@localhost/ciload
special_tariffs:
  source: postgres
  default_priority: -1
reference_data:
  source: Postgres
customer_strategies:
  ACME01: lenient-parts
delivery:
  sink: s3
  s3_bucket: ciload-out
  s3_region: us-east-1
  s3_prefix: outbound
`))
	require.NoError(t, err)

	assert.Equal(t, DialectFixed, cfg.Dialect)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.False(t, cfg.ContinueOnError)
	assert.Equal(t, -1.0, cfg.SpecialTariffs.DefaultPriority)
	assert.Equal(t, SourcePostgres, cfg.ReferenceData.Source)
	assert.Equal(t, "lenient-parts", cfg.CustomerStrategies["ACME01"])
	assert.Equal(t, "ciload-out", cfg.Delivery.S3Bucket)

	date, err := cfg.ParsedReferenceDate()
	require.NoError(t, err)
	require.NotNil(t, date)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *date)
}

func TestParseMainConfig_Invalid(t *testing.T) {
	base := "special_tariffs: {path: a.xlsx}\nreference_data: {path: r.yaml}\n"
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"dialect", base + "dialect: edifact", `unknown dialect "edifact"`},
		{"log format", base + "log_format: xml", `unknown log_format`},
		{"tariff source", "special_tariffs: {source: csv}\nreference_data: {path: r.yaml}", `unknown special_tariffs.source "csv"`},
		{"tariff path", "reference_data: {path: r.yaml}", "special_tariffs.path is required"},
		{"reference dsn", "special_tariffs: {path: a.xlsx}\nreference_data: {source: postgres}", "database_url is required for reference_data"},
		{"sink", base + "delivery: {sink: ftp}", `unknown delivery.sink "ftp"`},
		{"bucket", base + "delivery: {sink: s3}", "s3_bucket is required"},
		{"reference date", base + "reference_date: 15/03/2024", "invalid reference_date"},
		{"yaml", "dialect: [", "failed to parse config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMainConfig([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMainConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("special_tariffs: {path: a.xlsx}\nreference_data: {path: r.yaml}\n"), 0o644))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "a.xlsx", cfg.SpecialTariffs.Path)

	_, err = LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "./input", cfg.InputDir)
	assert.True(t, cfg.ContinueOnError)
}
