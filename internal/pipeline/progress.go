package pipeline

import "sync"

// ProgressTracker counts completed workers and reports each completion.
//
// The callback runs while the tracker lock is held, so callers observe a gap-free,
// strictly increasing sequence of counts even when workers finish concurrently.
type ProgressTracker struct {
	mu        sync.Mutex
	completed int
	total     int
	fn        ProgressFunc
}

// NewProgressTracker returns a tracker reporting against total.
func NewProgressTracker(total int, fn ProgressFunc) *ProgressTracker {
	return &ProgressTracker{total: total, fn: fn}
}

// RecordCompletion increments the counter, invokes the callback with the new
// count, and returns it.
func (p *ProgressTracker) RecordCompletion() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	if p.fn != nil {
		p.fn(p.completed, p.total)
	}
	return p.completed
}

// Completed returns the current count.
func (p *ProgressTracker) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}
