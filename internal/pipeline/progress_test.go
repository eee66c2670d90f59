package pipeline

import (
	"sync"
	"testing"
)

func TestProgressTrackerIsGapFreeUnderContention(t *testing.T) {
	var seen []int
	tracker := NewProgressTracker(1000, func(completed, total int) {
		if total != 1000 {
			t.Errorf("unexpected total %d", total)
		}
		seen = append(seen, completed)
	})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				tracker.RecordCompletion()
			}
		}()
	}
	wg.Wait()

	if tracker.Completed() != 1000 {
		t.Fatalf("expected 1000 completions, got %d", tracker.Completed())
	}
	if len(seen) != 1000 {
		t.Fatalf("expected 1000 callbacks, got %d", len(seen))
	}
	for i, v := range seen {
		if v != i+1 {
			t.Fatalf("callback %d reported %d", i, v)
		}
	}
}

func TestProgressTrackerWithoutCallback(t *testing.T) {
	tracker := NewProgressTracker(2, nil)
	if got := tracker.RecordCompletion(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}
