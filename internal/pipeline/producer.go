package pipeline

import (
	"context"
	"fmt"

	"mediascan/internal/logging"
)

// produce pages through the source and feeds the queue. Closing the queue is
// the end-of-stream sentinel and happens on every return path, so the
// dispatcher can never block on a producer that has gone away.
func (r *run[T, O]) produce(ctx context.Context) error {
	defer close(r.queue)

	var cursor int64
	pages := 0
	for {
		if r.observeCancel() {
			r.logger.Info("cancellation requested, producer stopping", logging.Int64("cursor", cursor))
			return nil
		}

		page, err := r.opts.Source.After(ctx, cursor, r.opts.BatchSize)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: fetch after id %d: %w", ErrSource, cursor, err)
		}
		if len(page) == 0 {
			r.logger.Debug("record source exhausted", logging.Int("pages", pages), logging.Int64("cursor", cursor))
			return nil
		}
		if len(page) > r.opts.BatchSize {
			return fmt.Errorf("%w: %d records for batch size %d", ErrPageTooLarge, len(page), r.opts.BatchSize)
		}
		pages++

		for _, record := range page {
			id := record.RecordID()
			if id <= cursor {
				return fmt.Errorf("%w: id %d after cursor %d", ErrCursorRegression, id, cursor)
			}
			if r.observeCancel() {
				r.logger.Info("cancellation requested, producer stopping", logging.Int64("cursor", cursor))
				return nil
			}
			select {
			case r.queue <- record:
			case <-ctx.Done():
				return ctx.Err()
			}
			cursor = id
		}
		r.logger.Debug("moving cursor", logging.Int64("cursor", cursor), logging.Int("page_size", len(page)))
	}
}
