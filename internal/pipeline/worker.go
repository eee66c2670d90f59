package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"mediascan/internal/logging"
)

// work runs one record through the analyzer and the sink, then records the
// completion. It returns only once the analyzer goroutine has exited, so the
// permit the caller releases afterwards covers the whole analysis.
func (r *run[T, O]) work(ctx context.Context, record T) {
	ctx = logging.WithFileID(ctx, record.RecordID())
	logger := r.fileLogger(record)

	r.metrics.workerStarted()
	started := time.Now()
	outcome, exited := r.analyze(ctx, record)
	elapsed := time.Since(started)

	result := resultSuccess
	switch {
	case errors.Is(outcome.Err, ErrInterrupted):
		// Stopping on the observer is not a failure of the file.
		result = resultInterrupted
		r.interrupted.Add(1)
		logger.Debug("analysis interrupted", logging.Duration("elapsed", elapsed))
	case outcome.Failed():
		result = resultFailure
		r.failed.Add(1)
		logger.Debug("analysis failed", logging.Error(outcome.Err), logging.Duration("elapsed", elapsed))
	}
	r.metrics.workerAnalysed(elapsed, result)

	if err := r.handle(ctx, record, outcome); err != nil {
		r.sinkErrs.Add(1)
		r.metrics.sinkFailed()
		logging.WarnWithContext(logger, "persisting analysis outcome failed", "sink_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcome for this file was not stored"),
		)
	}

	r.tracker.RecordCompletion()

	// A timed-out analyzer keeps its slot until it returns.
	<-exited
	r.metrics.workerFinished()
}

// fileLogger tags the run logger, which already carries the context fields
// of ctx, with the record id.
func (r *run[T, O]) fileLogger(record T) *slog.Logger {
	return r.logger.With(logging.Int64(logging.FieldFileID, record.RecordID()))
}

// analyze runs the analyzer on its own goroutine so a deadline can be enforced
// and panics recovered without unwinding the worker. The returned channel is
// closed when that goroutine exits.
func (r *run[T, O]) analyze(ctx context.Context, record T) (Outcome[O], <-chan struct{}) {
	analyzeCtx := ctx
	var timeout <-chan time.Time
	if r.timeout > 0 {
		var cancel context.CancelFunc
		analyzeCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
		timer := time.NewTimer(r.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	done := make(chan Outcome[O], 1)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		defer func() {
			if recovered := recover(); recovered != nil {
				r.fileLogger(record).Error("analysis panicked",
					logging.Any("panic", recovered),
					logging.String("stack", string(debug.Stack())),
				)
				done <- Outcome[O]{Err: fmt.Errorf("%w: %v", ErrAnalysisPanic, recovered)}
			}
		}()
		value, err := r.opts.Analyzer.Analyze(analyzeCtx, record, r.opts.LibraryRoot, r.cancel)
		done <- Outcome[O]{Value: value, Err: err}
	}()

	select {
	case outcome := <-done:
		return outcome, exited
	case <-timeout:
		// The analyzer has been told via analyzeCtx; work waits on exited.
		return Outcome[O]{Err: fmt.Errorf("%w after %s", ErrAnalysisTimeout, r.timeout)}, exited
	}
}

func (r *run[T, O]) handle(ctx context.Context, record T, outcome Outcome[O]) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrSinkPanic, recovered)
		}
	}()
	return r.opts.Sink.HandleResult(ctx, record, outcome)
}
