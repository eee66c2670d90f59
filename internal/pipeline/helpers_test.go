package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

type testRecord struct {
	id int64
}

func (r testRecord) RecordID() int64 { return r.id }

type memSource struct {
	mu       sync.Mutex
	records  []testRecord
	countErr error
	// failOnPage makes the n-th After call (1-based) return fetchErr.
	failOnPage int
	fetchErr   error
	fetches    int
	// pageHook runs before every After call.
	pageHook func(page int)
}

func newMemSource(n int) *memSource {
	records := make([]testRecord, n)
	for i := range records {
		records[i] = testRecord{id: int64(i + 1)}
	}
	return &memSource{records: records}
}

func (s *memSource) Count(context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *memSource) After(ctx context.Context, afterID int64, limit int) ([]testRecord, error) {
	s.mu.Lock()
	s.fetches++
	page := s.fetches
	hook := s.pageHook
	s.mu.Unlock()

	if hook != nil {
		hook(page)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.failOnPage > 0 && page == s.failOnPage {
		return nil, s.fetchErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	start := sort.Search(len(s.records), func(i int) bool { return s.records[i].id > afterID })
	end := min(start+limit, len(s.records))
	out := make([]testRecord, end-start)
	copy(out, s.records[start:end])
	return out, nil
}

func (s *memSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

type recordingSink struct {
	mu       sync.Mutex
	outcomes map[int64]Outcome[int]
	calls    int
	order    []int64
	fail     func(testRecord) error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{outcomes: make(map[int64]Outcome[int])}
}

func (s *recordingSink) HandleResult(_ context.Context, record testRecord, outcome Outcome[int]) error {
	s.mu.Lock()
	s.calls++
	s.outcomes[record.id] = outcome
	s.order = append(s.order, record.id)
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return fail(record)
	}
	return nil
}

func (s *recordingSink) snapshot() (int, map[int64]Outcome[int]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]Outcome[int], len(s.outcomes))
	for k, v := range s.outcomes {
		out[k] = v
	}
	return s.calls, out
}

type progressLog struct {
	mu    sync.Mutex
	calls [][2]int
}

func (p *progressLog) record(completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, [2]int{completed, total})
}

func (p *progressLog) snapshot() [][2]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][2]int(nil), p.calls...)
}

func doubleAnalyzer() Analyzer[testRecord, int] {
	return AnalyzerFunc[testRecord, int](func(_ context.Context, record testRecord, _ string, _ Observer) (int, error) {
		return int(record.id) * 2, nil
	})
}

func baseOptions(source Source[testRecord], sink ResultSink[testRecord, int], batch int) Options[testRecord, int] {
	return Options[testRecord, int]{
		Source:    source,
		BatchSize: batch,
		Analyzer:  doubleAnalyzer(),
		Sink:      sink,
	}
}

// runWithDeadline fails the test if Run does not return in time.
func runWithDeadline(t *testing.T, ctx context.Context, opts Options[testRecord, int]) (Summary, error) {
	t.Helper()
	type result struct {
		summary Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := Run(ctx, opts)
		done <- result{summary, err}
	}()
	select {
	case res := <-done:
		return res.summary, res.err
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not finish; possible deadlock")
		return Summary{}, errors.New("unreachable")
	}
}
