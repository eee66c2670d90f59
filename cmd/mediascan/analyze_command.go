package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mediascan/internal/analysis"
	"mediascan/internal/config"
	"mediascan/internal/library"
	"mediascan/internal/logging"
	"mediascan/internal/pipeline"
	"mediascan/internal/preflight"
	"mediascan/internal/textutil"
)

type analyzeOptions struct {
	kinds     []string
	directory string
	groups    []string
	all       bool
	progress  string
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Re-analyse catalogued files",
		Long: "Runs each analysis kind over the catalogue. By default only files without a\n" +
			"successful result for that kind are processed. Press Ctrl+C once to stop\n" +
			"dispatching new files and let running analyses finish; press it again to abort.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if len(opts.kinds) > 0 {
				cfg.Analysis.Kinds = opts.kinds
			}
			for _, kind := range cfg.Analysis.Kinds {
				if !analysis.IsKnown(kind) {
					return fmt.Errorf("%w: %q (known: %s)", analysis.ErrUnknownKind, kind, strings.Join(analysis.Kinds(), ", "))
				}
			}
			if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
				lines := make([]string, 0, len(failed))
				for _, r := range failed {
					lines = append(lines, fmt.Sprintf("%s: %s", r.Name, r.Detail))
				}
				return fmt.Errorf("preflight failed:\n  %s", strings.Join(lines, "\n  "))
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another analyze run holds %s", cfg.LockPath())
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release analyze lock", logging.Error(err))
				}
			}()

			if err := lowerPriority(cfg.Analysis.Nice); err != nil {
				logging.WarnWithContext(logger, "could not lower process priority", "priority_unchanged",
					logging.Int("nice", cfg.Analysis.Nice),
					logging.Error(err),
					logging.String(logging.FieldImpact, "analysis runs at normal priority"),
				)
			}

			runCtx, stop := context.WithCancel(cmd.Context())
			defer stop()
			token := pipeline.NewToken()
			release := trapInterrupts(runCtx, token, stop, logger, cmd.ErrOrStderr())
			defer release()

			return ctx.withStore(func(store *library.Store) error {
				return runAnalyze(runCtx, cmd.OutOrStdout(), cfg, store, logger, token, opts)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "Analysis kinds to run (default: analysis.kinds from config)")
	cmd.Flags().StringVar(&opts.directory, "directory", "", "Only analyse files below this library-relative directory")
	cmd.Flags().StringSliceVar(&opts.groups, "group", nil, "Only analyse files in these first-letter groups")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Re-analyse files that already have a result")
	cmd.Flags().StringVar(&opts.progress, "progress", "auto", "Progress display: auto, bar, log, or none")
	return cmd
}

// trapInterrupts cancels token on the first SIGINT or SIGTERM and stop on the
// second. The returned function stops signal delivery.
func trapInterrupts(ctx context.Context, token *pipeline.Token, stop context.CancelFunc, logger *slog.Logger, stderr io.Writer) func() {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case sig := <-signals:
				if !token.Cancelled() {
					token.Cancel()
					fmt.Fprintln(stderr, "\nStopping after running analyses finish; interrupt again to abort.")
					logger.Info("analysis interrupted", logging.String("signal", sig.String()))
					continue
				}
				logger.Warn("analysis aborted", logging.String("signal", sig.String()))
				stop()
				return
			}
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
	}
}

func runAnalyze(ctx context.Context, out io.Writer, cfg *config.Config, store *library.Store, logger *slog.Logger, token *pipeline.Token, opts analyzeOptions) error {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	runLogger := logging.WithContext(ctx, logger)
	runLogger.Info("analyze run starting",
		logging.String("kinds", strings.Join(cfg.Analysis.Kinds, ",")),
		logging.Int("batch_size", cfg.Analysis.BatchSize),
		logging.Int("concurrency", cfg.EffectiveConcurrency()),
	)

	var rows [][]string
	for _, kind := range cfg.Analysis.Kinds {
		if token.Cancelled() {
			break
		}
		analyzer, err := analysis.New(kind, cfg)
		if err != nil {
			return err
		}

		source := store.Files().Directory(opts.directory)
		if len(opts.groups) > 0 {
			source = source.Groups(upperAll(opts.groups)...)
		}
		if !opts.all {
			source = source.Unanalyzed(kind)
		}

		kindCtx := logging.WithKind(ctx, kind)
		kindLogger := logging.WithContext(kindCtx, logger)
		metrics := pipeline.NewMetrics(prometheus.Labels{"kind": kind})
		progress := newProgressDisplay(out, kind, opts.progress, kindLogger)

		summary, err := pipeline.Run(kindCtx, pipeline.Options[library.MediaFile, library.Finding]{
			Source:        source,
			BatchSize:     cfg.Analysis.BatchSize,
			Concurrency:   cfg.EffectiveConcurrency(),
			Progress:      progress.update,
			Cancel:        token,
			LibraryRoot:   cfg.Paths.LibraryDir,
			Analyzer:      analyzer,
			Sink:          store.Sink(kind),
			WorkerTimeout: time.Duration(cfg.Analysis.WorkerTimeoutSeconds) * time.Second,
			Logger:        logger,
			Metrics:       metrics,
		})
		progress.finish()

		if path := cfg.Metrics.TextfilePath; path != "" {
			if werr := metrics.WriteTextfile(textfileFor(path, kind, len(cfg.Analysis.Kinds))); werr != nil {
				logging.WarnWithContext(kindLogger, "writing metrics textfile failed", "metrics_write_failed",
					logging.Error(werr),
					logging.String(logging.FieldImpact, "metrics for this run are not exported"),
				)
			}
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintf(out, "%s: aborted after %d of %d files\n", kind, summary.Completed, summary.Total)
			}
			return fmt.Errorf("analyze %s: %w", kind, err)
		}

		rows = append(rows, []string{
			kind,
			fmt.Sprint(summary.Total),
			fmt.Sprint(summary.Completed),
			fmt.Sprint(summary.Failed),
			fmt.Sprint(summary.Interrupted),
			fmt.Sprint(summary.SinkErrors),
			summary.Elapsed.Round(time.Millisecond).String(),
			textutil.Ternary(summary.Cancelled, "interrupted", "complete"),
		})
	}

	if len(rows) > 0 {
		fmt.Fprint(out, renderTable(
			[]string{"Kind", "Matched", "Analysed", "Failed", "Stopped", "Unsaved", "Elapsed", "Status"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
		))
		fmt.Fprintln(out)
	}
	runLogger.Info("analyze run finished", logging.Bool("interrupted", token.Cancelled()))
	return nil
}

// textfileFor gives each kind its own textfile when several kinds run, so the
// node_exporter collector picks up every registry.
func textfileFor(path, kind string, kinds int) string {
	if kinds <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + kind + ext
}

func upperAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
