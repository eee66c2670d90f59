package pipeline

import (
	"context"
	"sync"

	"mediascan/internal/logging"
)

// dispatch launches one worker per queued record, bounded by the permit pool,
// and joins every worker before returning. Workers run on workCtx, which is not
// cancelled when the producer fails, so dispatched records still reach the sink.
func (r *run[T, O]) dispatch(workCtx, groupCtx context.Context) error {
	var workers sync.WaitGroup
	defer workers.Wait()

	for {
		var (
			record T
			ok     bool
		)
		select {
		case record, ok = <-r.queue:
		case <-groupCtx.Done():
			return r.abandon(workCtx)
		}
		if !ok {
			return nil
		}

		if r.observeCancel() {
			r.logger.Info("cancellation requested, dispatcher stopping", logging.Int("dispatched", r.dispatched))
			r.drain()
			return nil
		}

		if err := r.permits.Acquire(groupCtx, 1); err != nil {
			return r.abandon(workCtx)
		}
		// The flag may have been set while all permits were held.
		if r.observeCancel() {
			r.permits.Release(1)
			r.logger.Info("cancellation requested, dispatcher stopping", logging.Int("dispatched", r.dispatched))
			r.drain()
			return nil
		}

		r.dispatched++
		r.metrics.dispatched()
		workers.Add(1)
		go func(record T) {
			defer workers.Done()
			defer r.permits.Release(1)
			r.work(workCtx, record)
		}(record)
	}
}

// abandon handles the group context closing: either the producer failed (its
// error wins in the group) or the parent context was cancelled.
func (r *run[T, O]) abandon(workCtx context.Context) error {
	r.drain()
	return workCtx.Err()
}

// drain discards queued records until the producer closes the queue.
func (r *run[T, O]) drain() {
	abandoned := 0
	for range r.queue {
		abandoned++
	}
	if abandoned > 0 {
		r.logger.Debug("abandoned queued records", logging.Int("count", abandoned))
	}
}
