package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"mediascan/internal/logging"
)

// Options configures a single Run.
type Options[T Record, O any] struct {
	Source Source[T]
	// BatchSize is the page size and the queue capacity.
	BatchSize int
	// Concurrency caps running workers. Zero uses BatchSize.
	Concurrency int
	Progress    ProgressFunc
	// Cancel is checked before each fetch and each dispatch. Nil never cancels.
	Cancel Observer
	// LibraryRoot is forwarded unchanged to every Analyze call.
	LibraryRoot string
	Analyzer    Analyzer[T, O]
	Sink        ResultSink[T, O]
	// WorkerTimeout bounds one analysis. Zero disables the deadline.
	WorkerTimeout time.Duration
	Logger        *slog.Logger
	Metrics       *Metrics
}

func (o Options[T, O]) validate() error {
	switch {
	case o.BatchSize < 1:
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, o.BatchSize)
	case o.Source == nil:
		return ErrNilSource
	case o.Analyzer == nil:
		return ErrNilAnalyzer
	case o.Sink == nil:
		return ErrNilSink
	}
	return nil
}

// Summary describes a finished run.
type Summary struct {
	// Total is the number of records the source matched at start.
	Total int
	// Dispatched is the number of records handed to a worker.
	Dispatched int
	// Completed is the number of workers that finished; equals Dispatched.
	Completed int
	// Failed counts failed outcomes, including panics and timeouts.
	Failed int
	// Interrupted counts analyses that stopped early on the Observer. They
	// are neither successes nor failures.
	Interrupted int
	// SinkErrors counts outcomes the sink could not persist.
	SinkErrors int
	// Cancelled reports whether the run stopped early on the Observer.
	Cancelled bool
	Elapsed   time.Duration
}

type run[T Record, O any] struct {
	opts     Options[T, O]
	cancel   Observer
	logger   *slog.Logger
	metrics  *Metrics
	queue    chan T
	permits  *semaphore.Weighted
	tracker  *ProgressTracker
	total    int
	timeout  time.Duration
	stopped  atomic.Bool
	failed   atomic.Int64
	sinkErrs atomic.Int64
	// interrupted counts outcomes wrapping ErrInterrupted.
	interrupted atomic.Int64
	// dispatched is owned by the dispatcher goroutine until the group joins.
	dispatched int
}

// Run processes every record the source matches and returns once all
// dispatched workers have finished.
//
// The returned error is non-nil only for invalid options, source failures,
// and cancellation of ctx. Cancellation through Options.Cancel is not an error:
// Summary.Cancelled is set and Total still reports the count taken at start.
// Summary is populated on the error path as far as the run got.
func Run[T Record, O any](ctx context.Context, opts Options[T, O]) (Summary, error) {
	if err := opts.validate(); err != nil {
		return Summary{}, err
	}
	started := time.Now()

	logger := logging.NewComponentLogger(opts.Logger, "pipeline")
	cancel := opts.Cancel
	if cancel == nil {
		cancel = Never
	}

	total, err := opts.Source.Count(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: count: %w", ErrSource, err)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = opts.BatchSize
	}

	r := &run[T, O]{
		opts:    opts,
		cancel:  cancel,
		logger:  logging.WithContext(ctx, logger),
		metrics: opts.Metrics,
		queue:   make(chan T, opts.BatchSize),
		permits: semaphore.NewWeighted(int64(concurrency)),
		tracker: NewProgressTracker(total, opts.Progress),
		total:   total,
		timeout: opts.WorkerTimeout,
	}
	r.metrics.runStarted(total)
	r.logger.Info("analysis run starting",
		logging.Int("total", total),
		logging.Int("batch_size", opts.BatchSize),
		logging.Int("concurrency", concurrency),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return r.produce(groupCtx) })
	group.Go(func() error { return r.dispatch(ctx, groupCtx) })
	err = group.Wait()

	summary := Summary{
		Total:       total,
		Dispatched:  r.dispatched,
		Completed:   r.tracker.Completed(),
		Failed:      int(r.failed.Load()),
		Interrupted: int(r.interrupted.Load()),
		SinkErrors:  int(r.sinkErrs.Load()),
		Cancelled:   r.stopped.Load(),
		Elapsed:     time.Since(started),
	}
	r.metrics.runFinished(summary, err)

	if err != nil {
		r.logger.Error("analysis run aborted", logging.Error(err), logging.Int("completed", summary.Completed))
		return summary, err
	}
	r.logger.Info("analysis run finished",
		logging.Int("total", summary.Total),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("interrupted", summary.Interrupted),
		logging.Int("sink_errors", summary.SinkErrors),
		logging.Bool("cancelled", summary.Cancelled),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// observeCancel checks the observer and latches the run as cancelled.
func (r *run[T, O]) observeCancel() bool {
	if r.stopped.Load() {
		return true
	}
	if r.cancel.Cancelled() {
		r.stopped.Store(true)
		return true
	}
	return false
}
