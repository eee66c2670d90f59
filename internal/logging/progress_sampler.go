package logging

import (
	"math"
	"sync"
	"time"
)

// ProgressSampler decides which pipeline progress updates are worth a log
// line. It emits when completion crosses a percentage bucket, on the final
// record, and otherwise at most once per heartbeat interval. It is safe for
// concurrent use.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	heartbeat  time.Duration
	lastBucket int
	lastEmit   time.Time
	now        func() time.Time
}

// NewProgressSampler constructs a sampler emitting every bucketSize percent
// (default 5) and after heartbeat without output. A zero heartbeat disables
// time-based lines.
func NewProgressSampler(bucketSize float64, heartbeat time.Duration) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, heartbeat: heartbeat, lastBucket: -1, now: time.Now}
}

// ShouldLog reports whether the update completed of total should be logged.
// A non-positive total is treated as unknown and only heartbeats apply.
func (s *ProgressSampler) ShouldLog(completed, total int) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	emit := false
	if total > 0 {
		bucket := int(Percent(completed, total) / s.bucketSize)
		if completed >= total {
			bucket = math.MaxInt
		}
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	if !emit && s.heartbeat > 0 && !s.lastEmit.IsZero() && now.Sub(s.lastEmit) >= s.heartbeat {
		emit = true
	}
	if emit || s.lastEmit.IsZero() {
		s.lastEmit = now
	}
	return emit
}

// Percent returns completed as a percentage of total, or -1 when total is
// unknown.
func Percent(completed, total int) float64 {
	if total <= 0 {
		return -1
	}
	return float64(completed) * 100 / float64(total)
}
