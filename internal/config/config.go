// =============================================================================
// CI Load Engine - Configuration Module
// =============================================================================
//
// This module loads the main application configuration (config.yaml). It
// covers the caller side of the engine: where snapshots are read from, where
// reference data and the special tariff cross-reference come from, which
// dialect is produced and where the output is delivered.
//
// The engine packages never read configuration themselves; the CLI turns this
// struct into generator options.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source, sink and dialect names accepted in the configuration.
const (
	SourceXLSX     = "xlsx"
	SourceYAML     = "yaml"
	SourcePostgres = "postgres"

	SinkDir = "dir"
	SinkS3  = "s3"

	DialectXML   = "xml"
	DialectFixed = "fixed"
)

// ReferenceDateLayout is the layout of the reference_date override.
const ReferenceDateLayout = "2006-01-02"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for entry snapshots (*.yaml, *.yml, *.csv).
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives generated documents when the dir sink is used.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives snapshots after they were delivered.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir keeps a copy of every delivered document. Empty
	// disables the copy.
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ErrorDir receives per-file error logs and run summaries.
	// Default: "./errors"
	ErrorDir string `yaml:"error_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of debug, info, warn, error. Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json. Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines output file names.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {cust}      - Customer number
	//   {file}      - File number
	//   {dialect}   - Output dialect name
	// Default: "{cust}_{file}_{timestamp}.{dialect}"
	OutputNameFormat string `yaml:"output_name_format"`

	// Dialect is the output dialect: xml or fixed. Default: "xml"
	Dialect string `yaml:"dialect"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of snapshots processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps processing other files when one fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// AllowDuplicateInvoices disables the invoice key uniqueness checks.
	AllowDuplicateInvoices bool `yaml:"allow_duplicate_invoices"`

	// ReferenceDate pins the generation date (YYYY-MM-DD) for reproducible
	// runs. Empty means today.
	ReferenceDate string `yaml:"reference_date"`

	// CSV controls the flat line-file reader.
	CSV CSVSettings `yaml:"csv"`

	// =========================================================================
	// DATA SOURCES
	// =========================================================================

	SpecialTariffs SpecialTariffSettings `yaml:"special_tariffs"`
	ReferenceData  ReferenceDataSettings `yaml:"reference_data"`

	// DatabaseURL is the Postgres DSN used by the postgres sources.
	DatabaseURL string `yaml:"database_url"`

	// CustomerStrategies maps customer numbers to generator strategy names.
	CustomerStrategies map[string]string `yaml:"customer_strategies"`

	// =========================================================================
	// DELIVERY
	// =========================================================================

	Delivery DeliverySettings `yaml:"delivery"`
}

// CSVSettings configures flat line-file snapshots.
type CSVSettings struct {
	// Delimiter separates columns. Default: ","
	Delimiter string `yaml:"delimiter"`
	// ListSeparator splits multi-valued cells. Default: ";"
	ListSeparator string `yaml:"list_separator"`
}

// SpecialTariffSettings locates the special tariff cross-reference.
type SpecialTariffSettings struct {
	// Source is xlsx, yaml or postgres. Default: "xlsx"
	Source string `yaml:"source"`
	// Path is the table file for the xlsx and yaml sources.
	Path string `yaml:"path"`
	// Sheet is the worksheet for the xlsx source. Empty means the first.
	Sheet string `yaml:"sheet"`
	// DefaultPriority applies to programs without an explicit priority.
	DefaultPriority float64 `yaml:"default_priority"`
}

// ReferenceDataSettings locates manufacturer and address master data.
type ReferenceDataSettings struct {
	// Source is yaml or postgres. Default: "yaml"
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

// DeliverySettings selects where generated documents go.
type DeliverySettings struct {
	// Sink is dir or s3. Default: "dir"
	Sink string `yaml:"sink"`

	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3Prefix    string `yaml:"s3_prefix"`
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseMainConfig(data)
}

// ParseMainConfig parses configuration YAML, applies defaults and validates.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	// Booleans default to true only when absent, so decode on top of the
	// defaults.
	config := MainConfig{ContinueOnError: true}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Default returns the configuration used when no config file exists.
func Default() *MainConfig {
	config := MainConfig{ContinueOnError: true}
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.ErrorDir == "" {
		config.ErrorDir = "./errors"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{cust}_{file}_{timestamp}.{dialect}"
	}
	if config.Dialect == "" {
		config.Dialect = DialectXML
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.CSV.Delimiter == "" {
		config.CSV.Delimiter = ","
	}
	if config.CSV.ListSeparator == "" {
		config.CSV.ListSeparator = ";"
	}
	if config.SpecialTariffs.Source == "" {
		config.SpecialTariffs.Source = SourceXLSX
	}
	if config.ReferenceData.Source == "" {
		config.ReferenceData.Source = SourceYAML
	}
	if config.Delivery.Sink == "" {
		config.Delivery.Sink = SinkDir
	}

	config.Dialect = strings.ToLower(config.Dialect)
	config.SpecialTariffs.Source = strings.ToLower(config.SpecialTariffs.Source)
	config.ReferenceData.Source = strings.ToLower(config.ReferenceData.Source)
	config.Delivery.Sink = strings.ToLower(config.Delivery.Sink)
}

// validateMainConfig rejects unknown names and missing settings the chosen
// sources depend on.
func validateMainConfig(config *MainConfig) error {
	if !oneOf(config.Dialect, DialectXML, DialectFixed) {
		return fmt.Errorf("unknown dialect %q", config.Dialect)
	}
	if !oneOf(config.LogFormat, "text", "json") {
		return fmt.Errorf("unknown log_format %q", config.LogFormat)
	}

	switch config.SpecialTariffs.Source {
	case SourceXLSX, SourceYAML:
		if config.SpecialTariffs.Path == "" {
			return fmt.Errorf("special_tariffs.path is required for source %q", config.SpecialTariffs.Source)
		}
	case SourcePostgres:
		if config.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for special_tariffs source postgres")
		}
	default:
		return fmt.Errorf("unknown special_tariffs.source %q", config.SpecialTariffs.Source)
	}

	switch config.ReferenceData.Source {
	case SourceYAML:
		if config.ReferenceData.Path == "" {
			return fmt.Errorf("reference_data.path is required for source yaml")
		}
	case SourcePostgres:
		if config.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for reference_data source postgres")
		}
	default:
		return fmt.Errorf("unknown reference_data.source %q", config.ReferenceData.Source)
	}

	switch config.Delivery.Sink {
	case SinkDir:
	case SinkS3:
		if config.Delivery.S3Bucket == "" {
			return fmt.Errorf("delivery.s3_bucket is required for sink s3")
		}
	default:
		return fmt.Errorf("unknown delivery.sink %q", config.Delivery.Sink)
	}

	if _, err := config.ParsedReferenceDate(); err != nil {
		return err
	}
	return nil
}

// ParsedReferenceDate returns the pinned reference date, or nil when the run
// uses the current date.
func (c *MainConfig) ParsedReferenceDate() (*time.Time, error) {
	if strings.TrimSpace(c.ReferenceDate) == "" {
		return nil, nil
	}
	t, err := time.Parse(ReferenceDateLayout, strings.TrimSpace(c.ReferenceDate))
	if err != nil {
		return nil, fmt.Errorf("invalid reference_date %q: expected YYYY-MM-DD", c.ReferenceDate)
	}
	return &t, nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
