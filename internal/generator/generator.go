// =============================================================================
// CI Load Engine - Generator
// =============================================================================
//
// The generator runs one synchronous generation call for one Entry:
//
//   1. Pick the customer's strategy
//   2. Assemble the document tree (validation, tariffs, master data)
//   3. Render it in the configured dialect
//
// A call does no I/O. Master data and the special tariff cross-reference are
// loaded by the caller beforehand; lookups are cached for the call only.
// Output is byte-identical for the same snapshot and reference date.
//
// =============================================================================

package generator

import (
	"fmt"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/assembler"
	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/ginjaninja78/ci-load-engine/internal/document"
	"github.com/ginjaninja78/ci-load-engine/internal/emitter"
	"github.com/ginjaninja78/ci-load-engine/internal/logging"
	"github.com/ginjaninja78/ci-load-engine/internal/tariffs"
	"github.com/ginjaninja78/ci-load-engine/internal/validation"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of one generation call.
type Result struct {
	// Document is the assembled tree.
	Document *document.Node

	// Output is Document rendered in Dialect.
	Output  []byte
	Dialect string

	// Strategy is the name of the customer strategy that was applied.
	Strategy string

	// LineErrors are the lines that were skipped.
	LineErrors []*assembler.LineError

	// Warnings are non-fatal validation findings.
	Warnings []*validation.ValidationError

	Stats Stats
}

// Stats contains statistics about one call.
type Stats struct {
	assembler.Stats

	// Bytes is the size of Output.
	Bytes int

	// ProcessingTime is the time taken by the call.
	ProcessingTime time.Duration
}

// =============================================================================
// GENERATOR STRUCTURE
// =============================================================================

// Options configure a Generator.
type Options struct {
	// ReferenceDate supplies the date used for cross-reference windows and
	// as the default effective date. Defaults to time.Now.
	ReferenceDate func() time.Time

	// Dialect renders the document. Defaults to xml.
	Dialect emitter.Dialect

	// Strategies resolves per-customer overrides. Defaults to
	// DefaultRegistry().
	Strategies *Registry

	// AllowDuplicateInvoices accepts repeated invoice keys within an Entry.
	AllowDuplicateInvoices bool

	Logger logging.Logger
}

// Generator is safe for concurrent use as long as its collaborators are;
// every call builds its own assembler and cache.
type Generator struct {
	builder *tariffs.Builder
	master  assembler.MasterData
	opts    Options
	logger  logging.Logger
}

// New creates a Generator.
//
// PARAMETERS:
//   - source: The special tariff cross-reference.
//   - master: Manufacturer and buyer address lookups.
//   - opts: Reference date, dialect, strategies and logger.
//
// RETURNS:
//   - A new Generator instance.
func New(source tariffs.SpecialTariffSource, master assembler.MasterData, opts Options) *Generator {
	if opts.ReferenceDate == nil {
		opts.ReferenceDate = time.Now
	}
	if opts.Dialect == nil {
		opts.Dialect = emitter.NewXML(emitter.DefaultXMLOptions())
	}
	if opts.Strategies == nil {
		opts.Strategies = DefaultRegistry()
	}
	return &Generator{
		builder: tariffs.NewBuilder(source),
		master:  master,
		opts:    opts,
		logger:  logging.OrNop(opts.Logger),
	}
}

// Generate runs one generation call.
//
// PARAMETERS:
//   - entry: The entry snapshot.
//
// RETURNS:
//   - The document, its rendering and the skipped lines.
//   - An error if the Entry must not be emitted. No partial result is
//     returned in that case.
func (g *Generator) Generate(entry ciload.Entry) (*Result, error) {
	start := time.Now()
	refDate := dayOf(g.opts.ReferenceDate())

	strategy := g.opts.Strategies.For(entry.CustomerNumber)
	log := g.logger.With("cust", entry.CustomerNumber, "file", entry.FileNumber, "strategy", strategy.Name())

	asmOpts := assembler.Options{
		AllowDuplicateInvoices: g.opts.AllowDuplicateInvoices,
		Logger:                 log,
	}
	strategy.Configure(&asmOpts)

	asm := assembler.New(g.builder, assembler.NewCache(g.master), asmOpts)
	assembled, err := asm.Assemble(entry, refDate)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble entry %s/%s: %w", entry.CustomerNumber, entry.FileNumber, err)
	}

	output, err := g.opts.Dialect.Emit(assembled.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to emit %s: %w", g.opts.Dialect.Name(), err)
	}

	result := &Result{
		Document:   assembled.Root,
		Output:     output,
		Dialect:    g.opts.Dialect.Name(),
		Strategy:   strategy.Name(),
		LineErrors: assembled.LineErrors,
		Warnings:   assembled.Warnings,
		Stats: Stats{
			Stats:          assembled.Stats,
			Bytes:          len(output),
			ProcessingTime: time.Since(start),
		},
	}

	log.Info("generated CI load",
		"dialect", result.Dialect,
		"invoices", result.Stats.Invoices,
		"lines", result.Stats.Lines,
		"skipped", result.Stats.LinesSkipped,
		"bytes", result.Stats.Bytes,
	)
	return result, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
