package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunProcessesEveryRecordOnce(t *testing.T) {
	source := newMemSource(1000)
	sink := newRecordingSink()
	progress := &progressLog{}

	opts := baseOptions(source, sink, 10)
	opts.Progress = progress.record

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Total != 1000 || summary.Dispatched != 1000 || summary.Completed != 1000 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Cancelled || summary.Failed != 0 || summary.SinkErrors != 0 {
		t.Fatalf("unexpected summary flags: %+v", summary)
	}

	calls, outcomes := sink.snapshot()
	if calls != 1000 || len(outcomes) != 1000 {
		t.Fatalf("expected 1000 distinct sink calls, got calls=%d distinct=%d", calls, len(outcomes))
	}
	for id := int64(1); id <= 1000; id++ {
		outcome, ok := outcomes[id]
		if !ok {
			t.Fatalf("record %d never reached the sink", id)
		}
		if outcome.Failed() || outcome.Value != int(id)*2 {
			t.Fatalf("record %d: unexpected outcome %+v", id, outcome)
		}
	}

	seq := progress.snapshot()
	if len(seq) != 1000 {
		t.Fatalf("expected 1000 progress calls, got %d", len(seq))
	}
	for i, call := range seq {
		if call[0] != i+1 || call[1] != 1000 {
			t.Fatalf("progress call %d = %v, want (%d, 1000)", i, call, i+1)
		}
	}
	if last := seq[len(seq)-1]; last != [2]int{1000, 1000} {
		t.Fatalf("unexpected final progress call %v", last)
	}
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	for _, limit := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("limit_%d", limit), func(t *testing.T) {
			var active, highWater atomic.Int64
			opts := baseOptions(newMemSource(64), newRecordingSink(), 8)
			opts.Concurrency = limit
			opts.Analyzer = AnalyzerFunc[testRecord, int](func(context.Context, testRecord, string, Observer) (int, error) {
				now := active.Add(1)
				for {
					prev := highWater.Load()
					if now <= prev || highWater.CompareAndSwap(prev, now) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return 0, nil
			})

			summary, err := runWithDeadline(t, context.Background(), opts)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if summary.Completed != 64 {
				t.Fatalf("expected 64 completions, got %d", summary.Completed)
			}
			if got := highWater.Load(); got > int64(limit) {
				t.Fatalf("observed %d concurrent workers, limit %d", got, limit)
			}
		})
	}
}

func TestRunDefaultsConcurrencyToBatchSize(t *testing.T) {
	var active, highWater atomic.Int64
	release := make(chan struct{})
	opts := baseOptions(newMemSource(20), newRecordingSink(), 4)
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(context.Context, testRecord, string, Observer) (int, error) {
		now := active.Add(1)
		defer active.Add(-1)
		for {
			prev := highWater.Load()
			if now <= prev || highWater.CompareAndSwap(prev, now) {
				break
			}
		}
		if now == 4 {
			close(release)
		}
		select {
		case <-release:
		case <-time.After(50 * time.Millisecond):
		}
		return 0, nil
	})

	if _, err := runWithDeadline(t, context.Background(), opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := highWater.Load(); got > 4 {
		t.Fatalf("observed %d concurrent workers with batch size 4", got)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	source := newMemSource(50)
	sink := newRecordingSink()
	var analysed atomic.Int64

	token := NewToken()
	token.Cancel()

	opts := baseOptions(source, sink, 10)
	opts.Cancel = token
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(context.Context, testRecord, string, Observer) (int, error) {
		analysed.Add(1)
		return 0, nil
	})

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !summary.Cancelled {
		t.Fatal("expected summary to report cancellation")
	}
	if summary.Total != 50 {
		t.Fatalf("expected total from count, got %d", summary.Total)
	}
	if analysed.Load() != 0 || summary.Dispatched != 0 {
		t.Fatalf("expected no workers, analysed=%d dispatched=%d", analysed.Load(), summary.Dispatched)
	}
	if source.fetchCount() != 0 {
		t.Fatalf("expected no page fetches, got %d", source.fetchCount())
	}
}

func TestRunCancelledMidRun(t *testing.T) {
	source := newMemSource(500)
	sink := newRecordingSink()
	token := NewToken()
	var started atomic.Int64

	opts := baseOptions(source, sink, 10)
	opts.Cancel = token
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(_ context.Context, record testRecord, _ string, _ Observer) (int, error) {
		if started.Add(1) == 100 {
			token.Cancel()
		}
		time.Sleep(time.Millisecond)
		return int(record.id), nil
	})

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !summary.Cancelled {
		t.Fatal("expected cancellation to be reported")
	}
	if summary.Total != 500 {
		t.Fatalf("expected total 500, got %d", summary.Total)
	}
	if summary.Dispatched < 100 || summary.Dispatched > 110 {
		t.Fatalf("expected 100-110 dispatched records, got %d", summary.Dispatched)
	}
	if summary.Completed != summary.Dispatched {
		t.Fatalf("every dispatched record must complete: %+v", summary)
	}

	calls, outcomes := sink.snapshot()
	if calls != summary.Dispatched {
		t.Fatalf("expected %d sink calls, got %d", summary.Dispatched, calls)
	}
	// Dispatch is FIFO, so the persisted set is exactly the leading IDs.
	for id := int64(1); id <= int64(summary.Dispatched); id++ {
		if _, ok := outcomes[id]; !ok {
			t.Fatalf("dispatched record %d missing from sink", id)
		}
	}
}

func TestRunCountFailureIsFatal(t *testing.T) {
	source := newMemSource(10)
	source.countErr = errors.New("database is locked")
	sink := newRecordingSink()
	progress := &progressLog{}

	opts := baseOptions(source, sink, 5)
	opts.Progress = progress.record

	_, err := runWithDeadline(t, context.Background(), opts)
	if !errors.Is(err, ErrSource) {
		t.Fatalf("expected ErrSource, got %v", err)
	}
	if !errors.Is(err, source.countErr) {
		t.Fatalf("expected wrapped count error, got %v", err)
	}
	if calls, _ := sink.snapshot(); calls != 0 {
		t.Fatalf("expected no sink calls, got %d", calls)
	}
	if len(progress.snapshot()) != 0 {
		t.Fatal("expected no progress callbacks")
	}
	if source.fetchCount() != 0 {
		t.Fatal("expected no page fetches after a failed count")
	}
}

func TestRunFetchFailureDoesNotDeadlock(t *testing.T) {
	source := newMemSource(100)
	source.failOnPage = 3
	source.fetchErr = errors.New("disk I/O error")
	sink := newRecordingSink()

	opts := baseOptions(source, sink, 10)
	opts.Concurrency = 2

	summary, err := runWithDeadline(t, context.Background(), opts)
	if !errors.Is(err, ErrSource) || !errors.Is(err, source.fetchErr) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if summary.Completed != summary.Dispatched {
		t.Fatalf("in-flight workers must be joined: %+v", summary)
	}
	if calls, _ := sink.snapshot(); calls != summary.Dispatched {
		t.Fatalf("every dispatched record must reach the sink: calls=%d dispatched=%d", calls, summary.Dispatched)
	}
	if summary.Dispatched > 20 {
		t.Fatalf("at most two pages could have been dispatched, got %d", summary.Dispatched)
	}
}

func TestRunAnalyzerPanicBecomesFailure(t *testing.T) {
	source := newMemSource(20)
	sink := newRecordingSink()

	opts := baseOptions(source, sink, 4)
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(_ context.Context, record testRecord, _ string, _ Observer) (int, error) {
		if record.id == 7 {
			panic("corrupt frame header")
		}
		return int(record.id), nil
	})

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Completed != 20 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	_, outcomes := sink.snapshot()
	if !errors.Is(outcomes[7].Err, ErrAnalysisPanic) {
		t.Fatalf("expected panic outcome for record 7, got %+v", outcomes[7])
	}
	for id, outcome := range outcomes {
		if id != 7 && outcome.Failed() {
			t.Fatalf("record %d unexpectedly failed: %v", id, outcome.Err)
		}
	}
}

func TestRunAnalysisFailureIsCountedAndPersisted(t *testing.T) {
	source := newMemSource(9)
	sink := newRecordingSink()
	errUnsupported := errors.New("unsupported codec")

	opts := baseOptions(source, sink, 3)
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(_ context.Context, record testRecord, _ string, _ Observer) (int, error) {
		if record.id%3 == 0 {
			return 0, errUnsupported
		}
		return 1, nil
	})

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Failed != 3 || summary.Completed != 9 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	_, outcomes := sink.snapshot()
	for _, id := range []int64{3, 6, 9} {
		if !errors.Is(outcomes[id].Err, errUnsupported) {
			t.Fatalf("record %d: expected failure outcome, got %+v", id, outcomes[id])
		}
	}
}

func TestRunSinkErrorsAreIsolated(t *testing.T) {
	source := newMemSource(10)
	sink := newRecordingSink()
	sink.fail = func(record testRecord) error {
		switch {
		case record.id == 5:
			panic("sink exploded")
		case record.id%2 == 0:
			return errors.New("constraint failed")
		}
		return nil
	}
	progress := &progressLog{}

	opts := baseOptions(source, sink, 2)
	opts.Progress = progress.record

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.SinkErrors != 6 {
		t.Fatalf("expected 6 sink errors, got %d", summary.SinkErrors)
	}
	if summary.Completed != 10 || len(progress.snapshot()) != 10 {
		t.Fatalf("sink errors must still count as completions: %+v", summary)
	}
}

func TestRunWorkerTimeout(t *testing.T) {
	source := newMemSource(5)
	sink := newRecordingSink()

	opts := baseOptions(source, sink, 5)
	opts.WorkerTimeout = 20 * time.Millisecond
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(ctx context.Context, record testRecord, _ string, _ Observer) (int, error) {
		if record.id == 3 {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			return 0, ctx.Err()
		}
		return 1, nil
	})

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Failed != 1 || summary.Completed != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	_, outcomes := sink.snapshot()
	if !errors.Is(outcomes[3].Err, ErrAnalysisTimeout) {
		t.Fatalf("expected timeout outcome, got %+v", outcomes[3])
	}
}

func TestRunTimedOutAnalysesHoldTheirPermit(t *testing.T) {
	const concurrency = 2
	var inFlight, peak atomic.Int64

	source := newMemSource(6)
	sink := newRecordingSink()
	opts := baseOptions(source, sink, concurrency)
	opts.WorkerTimeout = 10 * time.Millisecond
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(_ context.Context, _ testRecord, _ string, _ Observer) (int, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		// Ignores its context on purpose.
		time.Sleep(100 * time.Millisecond)
		inFlight.Add(-1)
		return 1, nil
	})

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := inFlight.Load(); got != 0 {
		t.Fatalf("analyses still running after Run returned: %d", got)
	}
	if got := peak.Load(); got > concurrency {
		t.Fatalf("peak concurrent analyses = %d, want <= %d", got, concurrency)
	}
	if summary.Failed != 6 || summary.Completed != 6 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	_, outcomes := sink.snapshot()
	for id, outcome := range outcomes {
		if !errors.Is(outcome.Err, ErrAnalysisTimeout) {
			t.Fatalf("record %d: expected timeout outcome, got %+v", id, outcome)
		}
	}
}

func TestRunInterruptedOutcomesAreNotFailures(t *testing.T) {
	source := newMemSource(8)
	sink := newRecordingSink()
	opts := baseOptions(source, sink, 4)
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(_ context.Context, record testRecord, _ string, _ Observer) (int, error) {
		switch {
		case record.id%4 == 0:
			return 0, fmt.Errorf("loudness: %w", ErrInterrupted)
		case record.id == 1:
			return 0, errors.New("decode failed")
		}
		return 1, nil
	})

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Failed != 1 || summary.Interrupted != 2 || summary.Completed != 8 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	calls, outcomes := sink.snapshot()
	if calls != 8 || !errors.Is(outcomes[4].Err, ErrInterrupted) {
		t.Fatalf("expected the interrupted outcome to reach the sink, got %d calls, %+v", calls, outcomes[4])
	}
}

func TestRunForwardsRootAndObserver(t *testing.T) {
	token := NewToken()
	var seenRoot atomic.Value
	var seenObserver atomic.Bool

	opts := baseOptions(newMemSource(3), newRecordingSink(), 3)
	opts.LibraryRoot = "/srv/music"
	opts.Cancel = token
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(_ context.Context, _ testRecord, root string, cancel Observer) (int, error) {
		seenRoot.Store(root)
		if cancel == Observer(token) {
			seenObserver.Store(true)
		}
		return 0, nil
	})

	if _, err := runWithDeadline(t, context.Background(), opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if seenRoot.Load() != "/srv/music" {
		t.Fatalf("unexpected library root %v", seenRoot.Load())
	}
	if !seenObserver.Load() {
		t.Fatal("expected the cancellation observer to reach the analyzer")
	}
}

type duplicateSource struct{ *memSource }

func (s duplicateSource) After(ctx context.Context, afterID int64, limit int) ([]testRecord, error) {
	page, err := s.memSource.After(ctx, afterID, limit)
	if err != nil || len(page) == 0 {
		return page, err
	}
	return append([]testRecord{{id: afterID}}, page[:len(page)-1]...), nil
}

func TestRunRejectsCursorRegression(t *testing.T) {
	source := duplicateSource{newMemSource(30)}
	opts := Options[testRecord, int]{
		Source:    source,
		BatchSize: 10,
		Analyzer:  doubleAnalyzer(),
		Sink:      newRecordingSink(),
	}
	_, err := runWithDeadline(t, context.Background(), opts)
	if !errors.Is(err, ErrCursorRegression) {
		t.Fatalf("expected ErrCursorRegression, got %v", err)
	}
}

type oversizedSource struct{ *memSource }

func (s oversizedSource) After(ctx context.Context, afterID int64, limit int) ([]testRecord, error) {
	return s.memSource.After(ctx, afterID, limit+1)
}

func TestRunRejectsOversizedPage(t *testing.T) {
	opts := Options[testRecord, int]{
		Source:    oversizedSource{newMemSource(30)},
		BatchSize: 10,
		Analyzer:  doubleAnalyzer(),
		Sink:      newRecordingSink(),
	}
	_, err := runWithDeadline(t, context.Background(), opts)
	if !errors.Is(err, ErrPageTooLarge) {
		t.Fatalf("expected ErrPageTooLarge, got %v", err)
	}
}

func TestRunParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := newMemSource(200)
	sink := newRecordingSink()
	var started atomic.Int64

	opts := baseOptions(source, sink, 5)
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(context.Context, testRecord, string, Observer) (int, error) {
		if started.Add(1) == 10 {
			cancel()
		}
		return 0, nil
	})

	summary, err := runWithDeadline(t, ctx, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Completed != summary.Dispatched {
		t.Fatalf("workers must be joined before returning: %+v", summary)
	}
	if calls, _ := sink.snapshot(); calls != summary.Dispatched {
		t.Fatalf("expected %d sink calls, got %d", summary.Dispatched, calls)
	}
}

func TestRunEmptySource(t *testing.T) {
	progress := &progressLog{}
	opts := baseOptions(newMemSource(0), newRecordingSink(), 4)
	opts.Progress = progress.record

	summary, err := runWithDeadline(t, context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Total != 0 || summary.Dispatched != 0 || len(progress.snapshot()) != 0 {
		t.Fatalf("unexpected summary for empty source: %+v", summary)
	}
}

func TestRunValidatesOptions(t *testing.T) {
	source := newMemSource(1)
	sink := newRecordingSink()
	cases := []struct {
		name string
		opts Options[testRecord, int]
		want error
	}{
		{"batch size", Options[testRecord, int]{Source: source, Analyzer: doubleAnalyzer(), Sink: sink}, ErrInvalidBatchSize},
		{"source", Options[testRecord, int]{BatchSize: 1, Analyzer: doubleAnalyzer(), Sink: sink}, ErrNilSource},
		{"analyzer", Options[testRecord, int]{BatchSize: 1, Source: source, Sink: sink}, ErrNilAnalyzer},
		{"sink", Options[testRecord, int]{BatchSize: 1, Source: source, Analyzer: doubleAnalyzer()}, ErrNilSink},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Run(context.Background(), tc.opts); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
