package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/assembler"
	"github.com/ginjaninja78/ci-load-engine/internal/config"
	"github.com/ginjaninja78/ci-load-engine/internal/emitter"
	"github.com/ginjaninja78/ci-load-engine/internal/generator"
	"github.com/ginjaninja78/ci-load-engine/internal/logging"
	"github.com/ginjaninja78/ci-load-engine/internal/reference"
	"github.com/ginjaninja78/ci-load-engine/internal/specialtariff"
	"github.com/ginjaninja78/ci-load-engine/internal/transport"
)

// environment is everything a command needs besides its own flags. It is
// built once per invocation.
type environment struct {
	cfg      *config.MainConfig
	logger   logging.Logger
	resolver *specialtariff.Resolver
	master   assembler.MasterData
	db       *sql.DB
}

// Close releases the database connection, if one was opened.
func (e *environment) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

// newLogger builds the process logger from config; --verbose forces debug.
func newLogger(w io.Writer, cfg *config.MainConfig, verbose bool) (logging.Logger, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(w, level, cfg.LogFormat)
}

// loadEnvironment opens the configured data sources. Postgres is only
// connected when a source asks for it.
func loadEnvironment(ctx context.Context, cfg *config.MainConfig, log logging.Logger) (*environment, error) {
	env := &environment{cfg: cfg, logger: log}

	if cfg.SpecialTariffs.Source == config.SourcePostgres || cfg.ReferenceData.Source == config.SourcePostgres {
		db, err := reference.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("db ping error: %w", err)
		}
		env.db = db
	}

	programs, err := loadPrograms(ctx, cfg, env.db)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to load special tariffs: %w", err)
	}
	env.resolver = specialtariff.NewResolver(programs, specialtariff.WithDefaultPriority(cfg.SpecialTariffs.DefaultPriority))
	log.Info("special tariffs loaded", "source", cfg.SpecialTariffs.Source, "programs", env.resolver.Len())

	master, err := loadMasterData(ctx, cfg, env.db)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	env.master = master
	manufacturers, addresses := master.Len()
	log.Info("reference data loaded", "source", cfg.ReferenceData.Source, "manufacturers", manufacturers, "addresses", addresses)

	return env, nil
}

func loadPrograms(ctx context.Context, cfg *config.MainConfig, db reference.Querier) ([]specialtariff.Program, error) {
	switch cfg.SpecialTariffs.Source {
	case config.SourceXLSX:
		layout := specialtariff.DefaultColumnLayout()
		layout.Sheet = cfg.SpecialTariffs.Sheet
		return specialtariff.LoadXLSX(cfg.SpecialTariffs.Path, layout)
	case config.SourceYAML:
		return specialtariff.LoadYAML(cfg.SpecialTariffs.Path)
	case config.SourcePostgres:
		return reference.LoadPrograms(ctx, db)
	}
	return nil, fmt.Errorf("unknown special tariff source %q", cfg.SpecialTariffs.Source)
}

func loadMasterData(ctx context.Context, cfg *config.MainConfig, db reference.Querier) (*reference.Snapshot, error) {
	switch cfg.ReferenceData.Source {
	case config.SourceYAML:
		return reference.LoadYAML(cfg.ReferenceData.Path)
	case config.SourcePostgres:
		return reference.LoadPostgres(ctx, db)
	}
	return nil, fmt.Errorf("unknown reference data source %q", cfg.ReferenceData.Source)
}

// newGenerator wires the engine. Customer strategy names are checked here so
// a typo in config fails the run before any file is touched.
func (e *environment) newGenerator(dialectName string) (*generator.Generator, error) {
	dialect, err := emitter.Lookup(dialectName)
	if err != nil {
		return nil, err
	}

	strategies := generator.DefaultRegistry()
	for customer, name := range e.cfg.CustomerStrategies {
		if err := strategies.Assign(customer, name); err != nil {
			return nil, fmt.Errorf("customer_strategies: %w", err)
		}
	}

	refDate, err := e.cfg.ParsedReferenceDate()
	if err != nil {
		return nil, err
	}
	clock := time.Now
	if refDate != nil {
		pinned := *refDate
		clock = func() time.Time { return pinned }
	}

	return generator.New(e.resolver, e.master, generator.Options{
		ReferenceDate:          clock,
		Dialect:                dialect,
		Strategies:             strategies,
		AllowDuplicateInvoices: e.cfg.AllowDuplicateInvoices,
		Logger:                 e.logger,
	}), nil
}

// newSink builds the configured delivery sink.
func newSink(ctx context.Context, cfg *config.MainConfig) (transport.Sink, error) {
	switch cfg.Delivery.Sink {
	case config.SinkDir:
		return transport.NewDirSink(cfg.OutputDir, cfg.OutputArchiveDir)
	case config.SinkS3:
		return transport.NewS3Sink(ctx, transport.S3Config{
			Bucket:    cfg.Delivery.S3Bucket,
			Region:    cfg.Delivery.S3Region,
			Endpoint:  cfg.Delivery.S3Endpoint,
			AccessKey: cfg.Delivery.S3AccessKey,
			SecretKey: cfg.Delivery.S3SecretKey,
			Prefix:    cfg.Delivery.S3Prefix,
		})
	}
	return nil, fmt.Errorf("unknown delivery sink %q", cfg.Delivery.Sink)
}
