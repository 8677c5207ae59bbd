package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/morozRed/swampmonster/internal/codemodel"
	"github.com/morozRed/swampmonster/internal/config"
	"github.com/morozRed/swampmonster/internal/events"
	"github.com/morozRed/swampmonster/internal/languages"
	"github.com/morozRed/swampmonster/internal/model"
	"github.com/morozRed/swampmonster/internal/report"
	"github.com/morozRed/swampmonster/internal/storage"
	"github.com/morozRed/swampmonster/internal/watcher"
)

const defaultDebounce = 500 * time.Millisecond

func RunAnalyse(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args[0])
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	opts, err := ParseAnalyseOptions(cmd, args[0], cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	summary, err := Analyse(ctx, opts, nil)
	if err != nil {
		return err
	}
	if err := PrintRunSummary(*summary, opts.JSON); err != nil {
		return err
	}

	if !opts.Watch {
		return nil
	}
	return watch(ctx, summary.RootPath, opts)
}

// Analyse runs the whole pipeline once: load, analyse, render and
// optionally export. Nothing is written when ctx is cancelled first.
func Analyse(ctx context.Context, opts AnalyseOptions, changed []string) (*RunSummary, error) {
	start := time.Now()

	root, err := resolveRoot(opts.Path)
	if err != nil {
		return nil, err
	}
	ignoreRules, err := LoadIgnoreRules(root)
	if err != nil {
		return nil, err
	}

	loading := newProgressReporter("load", "parsing", 0, opts.JSON)
	ws, err := codemodel.Open(ctx, opts.Path, codemodel.Options{
		IgnoreRules: ignoreRules,
		Progress:    loading.Update,
		CacheSize:   opts.CacheSize,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", events.ErrCancelled, err)
		}
		return nil, err
	}
	loading.Done(len(ws.SourceFiles()), "files")

	strategy := newStrategy(opts)
	var queried atomic.Int64
	analysing := newProgressReporter("analyse", "queried", 0, opts.JSON)
	result, err := events.Analyse(ctx, ws, strategy, events.Options{
		Concurrency: opts.Concurrency,
		OnSymbol: func(sym model.Symbol, _ int) {
			analysing.Update(sym.Name, int(queried.Add(1)))
		},
	})
	if err != nil {
		return nil, err
	}
	analysing.Done(len(result.Symbols()), "events")
	ReportDiagnostics(result.Diagnostics())

	outputDir := resolveOutputDir(ws.Root(), opts.Output)
	input := report.NewInput(ws, result)
	written, err := report.Write(outputDir, input)
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	if err := WriteSourceManifest(ws.Root(), outputDir, ignoreRules); err != nil {
		return nil, err
	}

	summary := &RunSummary{
		Mode:         "analyse",
		Strategy:     strategy.Name(),
		RootPath:     ws.Root(),
		OutputDir:    outputDir,
		Files:        len(ws.SourceFiles()),
		Events:       len(result.Symbols()),
		Pages:        written.Pages,
		Rewritten:    written.FilesWritten,
		Unchanged:    written.Unchanged,
		Diagnostics:  len(result.Diagnostics()),
		ChangedFiles: changed,
	}
	summary.Edges, summary.Sources, summary.Sinks = CountEdges(result)

	if opts.DB != "" {
		dbPath, err := filepath.Abs(opts.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path %q: %w", opts.DB, err)
		}
		stored, err := exportDatabase(ctx, dbPath, result, input.Tables)
		if err != nil {
			return nil, err
		}
		summary.Database = dbPath
		summary.StoredLinks = stored
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	return summary, nil
}

func newStrategy(opts AnalyseOptions) events.Strategy {
	if opts.Aggregator {
		return events.NewPubSubStrategy()
	}
	return events.NewStructuralStrategy(opts.HandlerTypes...)
}

// exportDatabase stores the analysis and returns the number of stored links.
func exportDatabase(ctx context.Context, path string, result *events.Result, tables map[string]*events.LinkTable) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Export(ctx, result, tables); err != nil {
		return 0, fmt.Errorf("failed to export analysis: %w", err)
	}
	_, _, links, err := db.Stats()
	if err != nil {
		return 0, fmt.Errorf("failed to read database stats: %w", err)
	}
	return links, nil
}

func watch(ctx context.Context, root string, opts AnalyseOptions) error {
	ignoreRules, err := LoadIgnoreRules(root)
	if err != nil {
		return err
	}

	extensions := languages.NewDefaultRegistry().SupportedExtensions()
	w, err := watcher.New(root, extensions, func(ctx context.Context, changed []string) error {
		summary, err := Analyse(ctx, opts, changed)
		if err != nil {
			return err
		}
		return PrintRunSummary(*summary, opts.JSON)
	},
		watcher.WithDebounceDelay(opts.Debounce),
		watcher.WithIgnoreRules(ignoreRules),
		watcher.WithOnError(func(err error) {
			fmt.Fprintf(os.Stderr, "[error] %s: %v\n", root, err)
		}),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "watching %s for changes (interrupt to stop)\n", root)
	return w.Run(ctx)
}
