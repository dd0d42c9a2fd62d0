// =============================================================================
// CI Load Engine - Generate Command
// =============================================================================
//
// COMMAND USAGE:
//   ciload generate [flags]
//
// FLAGS:
//   --file     : Process a single snapshot instead of scanning input_dir
//   --dry-run  : Generate and report without delivering or archiving
//   --dialect  : Override the configured output dialect
//
// PROCESSING PIPELINE:
//   1. Load configuration and open the data sources
//   2. Discover snapshots in the input directory
//   3. For each snapshot (bounded by max_concurrency):
//      a. Read the snapshot (YAML or flat CSV)
//      b. Claim its invoice keys for the batch
//      c. Generate the document (engine call, no I/O)
//      d. Deliver it to the sink and archive the snapshot
//   4. Write per-file error logs and a run summary
//
// At most one snapshot per entry (customer/file number) is generated and
// delivered at a time.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/assembler"
	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/ginjaninja78/ci-load-engine/internal/config"
	"github.com/ginjaninja78/ci-load-engine/internal/generator"
	"github.com/ginjaninja78/ci-load-engine/internal/logging"
	"github.com/ginjaninja78/ci-load-engine/internal/snapshot"
	"github.com/ginjaninja78/ci-load-engine/internal/transport"
	"github.com/ginjaninja78/ci-load-engine/internal/validation"
	"github.com/ginjaninja78/ci-load-engine/pkg/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// generateOptions holds the command flags.
type generateOptions struct {
	file    string
	dryRun  bool
	dialect string
}

var genOpts generateOptions

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate CI loads for entry snapshots",
	Long: `The generate command reads entry snapshots from the input directory,
builds the CI Load document for each one and delivers it to the configured
sink.

On success:
  - The document is delivered (output directory or S3)
  - The snapshot is moved to the input archive
  - Skipped lines, if any, are listed in an error log

On error:
  - An error log is written for the snapshot
  - The snapshot remains in the input directory
  - Processing continues for other files unless continue_on_error is false`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		log, err := newLogger(cmd.ErrOrStderr(), cfg, verbose)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		env, err := loadEnvironment(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := runGenerate(ctx, env, genOpts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if summary.FailedFiles > 0 {
			return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&genOpts.file, "file", "", "Process a single snapshot file")
	generateCmd.Flags().BoolVar(&genOpts.dryRun, "dry-run", false, "Generate without delivering or archiving")
	generateCmd.Flags().StringVar(&genOpts.dialect, "dialect", "", "Override the output dialect (xml, fixed)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runGenerate processes every snapshot and returns the run summary. The
// returned error is reserved for failures that stop the whole run.
func runGenerate(ctx context.Context, env *environment, opts generateOptions, out io.Writer) (utils.ProcessingSummary, error) {
	cfg := env.cfg
	summary := utils.ProcessingSummary{StartTime: time.Now()}

	// =========================================================================
	// STEP 1: WIRE THE PIPELINE
	// =========================================================================

	dialect := cfg.Dialect
	if opts.dialect != "" {
		dialect = strings.ToLower(opts.dialect)
	}
	gen, err := env.newGenerator(dialect)
	if err != nil {
		return summary, err
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.InputArchiveDir, cfg.ErrorDir)
	if err := fm.EnsureDirectories(); err != nil {
		return summary, err
	}

	var sink transport.Sink
	if !opts.dryRun {
		if sink, err = newSink(ctx, cfg); err != nil {
			return summary, fmt.Errorf("failed to create delivery sink: %w", err)
		}
	}

	p := &fileProcessor{
		cfg:      cfg,
		gen:      gen,
		sink:     sink,
		fm:       fm,
		registry: validation.NewRegistry(),
		locks:    newKeyedLocks(),
		log:      env.logger,
		dryRun:   opts.dryRun,
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var files []string
	if opts.file != "" {
		files = []string{opts.file}
	} else if files, err = fm.DiscoverInputFiles(); err != nil {
		return summary, err
	}
	summary.TotalFiles = len(files)
	if len(files) == 0 {
		fmt.Fprintln(out, "No snapshots found in the input directory.")
		return summary, nil
	}
	fmt.Fprintf(out, "Found %d snapshot(s) to process\n", len(files))

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	results := make([]*fileResult, len(files))
	if !cfg.AllowDuplicateInvoices {
		p.turns = newClaimTurns(len(files))
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for i, file := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				p.turns.finish(gctx, i)
				return nil
			}
			res := p.process(gctx, i, file)
			results[i] = res
			if res.err != nil && !cfg.ContinueOnError {
				return res.err
			}
			return nil
		})
	}
	runErr := g.Wait()

	// =========================================================================
	// STEP 4: COLLECT RESULTS AND WRITE SUMMARY
	// =========================================================================

	for i, res := range results {
		if res == nil {
			fmt.Fprintf(out, "  - %s: not processed\n", filepath.Base(files[i]))
			continue
		}
		if res.err != nil {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    res.input,
				ErrorMessage: res.err.Error(),
			})
			fmt.Fprintf(out, "  ✗ %s: %v\n", filepath.Base(res.input), res.err)
			continue
		}

		summary.SuccessfulFiles++
		stats := res.result.Stats
		summary.Invoices += stats.Invoices
		summary.Lines += stats.Lines
		summary.LinesSkipped += stats.LinesSkipped
		summary.Tariffs += stats.Tariffs
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   res.input,
			Location:    res.location,
			Entry:       res.entryKey,
			Invoices:    stats.Invoices,
			Lines:       stats.Lines,
			ProcessTime: res.elapsed,
		})
		fmt.Fprintf(out, "  ✓ %s -> %s\n", filepath.Base(res.input), res.location)
	}
	summary.EndTime = time.Now()

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Lines skipped:   %d\n", summary.LinesSkipped)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))

	if path, err := fm.WriteSummaryLog(summary); err != nil {
		env.logger.Warn("failed to write summary", "error", err)
	} else {
		env.logger.Debug("summary written", "path", path)
	}

	if runErr != nil {
		return summary, fmt.Errorf("run stopped: %w", runErr)
	}
	return summary, nil
}

// =============================================================================
// PER-FILE PIPELINE
// =============================================================================

type fileProcessor struct {
	cfg      *config.MainConfig
	gen      *generator.Generator
	sink     transport.Sink
	fm       *utils.FileManager
	registry *validation.Registry
	locks    *keyedLocks
	turns    *claimTurns
	log      logging.Logger
	dryRun   bool
}

type fileResult struct {
	input    string
	entryKey string
	location string
	result   *generator.Result
	elapsed  time.Duration
	err      error
}

// process runs the pipeline for the index-th discovered file. Invoice claims
// are made in discovery order; everything else runs concurrently.
func (p *fileProcessor) process(ctx context.Context, index int, path string) *fileResult {
	start := time.Now()
	res := &fileResult{input: path}
	log := p.log.With("input", filepath.Base(path))

	turnDone := sync.OnceFunc(func() { p.turns.finish(ctx, index) })
	defer turnDone()

	entry, err := loadSnapshot(path, p.cfg.CSV)
	if err != nil {
		return p.fail(res, log, "snapshot", err, nil)
	}
	res.entryKey = entry.CustomerNumber + "/" + entry.FileNumber

	if p.turns != nil {
		if err := p.turns.wait(ctx, index); err != nil {
			return p.fail(res, log, "cancelled", err, nil)
		}
		err := p.registry.Claim(path, entry)
		turnDone()
		if err != nil {
			return p.fail(res, log, "duplicate", err, nil)
		}
	}
	turnDone()

	unlock := p.locks.Lock(res.entryKey)
	defer unlock()

	result, err := p.gen.Generate(entry)
	if err != nil {
		p.registry.Release(path)
		return p.fail(res, log, classify(err), err, nil)
	}
	res.result = result

	if len(result.LineErrors) > 0 {
		if _, err := p.fm.WriteErrorLog(path, lineErrorEntries(result.LineErrors)); err != nil {
			log.Warn("failed to write error log", "error", err)
		}
	}

	if p.dryRun {
		res.location = fmt.Sprintf("(dry run, %d bytes)", len(result.Output))
		res.elapsed = time.Since(start)
		return res
	}

	name := utils.GenerateOutputFileName(p.cfg.OutputNameFormat, map[string]string{
		"cust":    entry.CustomerNumber,
		"file":    entry.FileNumber,
		"dialect": result.Dialect,
	}, time.Now())

	location, err := p.sink.Deliver(ctx, transport.Delivery{
		Name:           name,
		Data:           result.Output,
		CustomerNumber: entry.CustomerNumber,
		FileNumber:     entry.FileNumber,
		Dialect:        result.Dialect,
	})
	if err != nil {
		p.registry.Release(path)
		return p.fail(res, log, "delivery", err, result.LineErrors)
	}
	res.location = location

	if archived, err := p.fm.ArchiveInputFile(path); err != nil {
		log.Warn("failed to archive snapshot", "error", err)
	} else {
		log.Debug("snapshot archived", "path", archived)
	}

	res.elapsed = time.Since(start)
	log.Info("delivered", "entry", res.entryKey, "location", location, "elapsed", res.elapsed)
	return res
}

func (p *fileProcessor) fail(res *fileResult, log logging.Logger, kind string, err error, lineErrs []*assembler.LineError) *fileResult {
	res.err = err
	log.Error("snapshot failed", "stage", kind, "error", err)

	entries := append([]utils.ErrorLogEntry{{
		Timestamp: time.Now(),
		ErrorType: kind,
		Message:   err.Error(),
	}}, lineErrorEntries(lineErrs)...)
	if _, werr := p.fm.WriteErrorLog(res.input, entries); werr != nil {
		log.Warn("failed to write error log", "error", werr)
	}
	return res
}

// classify names the error type recorded in the error log.
func classify(err error) string {
	var validationErr *validation.ValidationError
	switch {
	case errors.Is(err, assembler.ErrMissingMasterData):
		return "master data"
	case errors.As(err, &validationErr):
		return "validation"
	default:
		return "generation"
	}
}

func lineErrorEntries(errs []*assembler.LineError) []utils.ErrorLogEntry {
	entries := make([]utils.ErrorLogEntry, 0, len(errs))
	for _, le := range errs {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:  time.Now(),
			ErrorType:  "line skipped",
			Message:    le.Err.Error(),
			Invoice:    le.Invoice,
			Line:       le.Line,
			PartNumber: le.PartNumber,
		})
	}
	return entries
}

// loadSnapshot picks the reader by file extension.
func loadSnapshot(path string, settings config.CSVSettings) (ciload.Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return snapshot.LoadYAML(path)
	case ".csv":
		return snapshot.LoadCSV(path, snapshot.CSVSettings{
			Delimiter:     settings.Delimiter,
			ListSeparator: settings.ListSeparator,
		})
	}
	return ciload.Entry{}, fmt.Errorf("unsupported snapshot type %q", filepath.Ext(path))
}

// =============================================================================
// CLAIM ORDER
// =============================================================================

// claimTurns lets file i claim its invoices only after file i-1 has claimed
// or failed, so duplicate detection favours the earlier file name whatever
// the pool's scheduling.
type claimTurns struct {
	turns []chan struct{}
}

func newClaimTurns(n int) *claimTurns {
	t := &claimTurns{turns: make([]chan struct{}, n)}
	for i := range t.turns {
		t.turns[i] = make(chan struct{})
	}
	return t
}

// wait blocks until every file before index has taken its turn.
func (t *claimTurns) wait(ctx context.Context, index int) error {
	if t == nil || index == 0 {
		return nil
	}
	select {
	case <-t.turns[index-1]:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish marks index's turn as taken once the turns before it are. It must be
// called exactly once per index.
func (t *claimTurns) finish(ctx context.Context, index int) {
	if t == nil {
		return
	}
	_ = t.wait(ctx, index)
	close(t.turns[index])
}

// =============================================================================
// KEYED LOCKS
// =============================================================================

// keyedLocks serializes work per key while letting different keys proceed.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyedLocks) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedLocks) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
