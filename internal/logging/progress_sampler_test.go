package logging

import (
	"testing"
	"time"
)

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize, 0)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(1, 10) {
		t.Fatal("nil sampler should always log")
	}
}

func TestProgressSampler_BucketCrossings(t *testing.T) {
	s := NewProgressSampler(10, 0)
	var logged []int
	for completed := 1; completed <= 200; completed++ {
		if s.ShouldLog(completed, 200) {
			logged = append(logged, completed)
		}
	}
	want := []int{1, 20, 40, 60, 80, 100, 120, 140, 160, 180, 200}
	if len(logged) != len(want) {
		t.Fatalf("logged %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged %v, want %v", logged, want)
		}
	}
	if s.ShouldLog(200, 200) {
		t.Fatal("final update should only be logged once")
	}
}

func TestProgressSampler_FinalAlwaysLogged(t *testing.T) {
	s := NewProgressSampler(50, 0)
	if !s.ShouldLog(2, 3) {
		t.Fatal("expected first bucket")
	}
	if !s.ShouldLog(3, 3) {
		t.Fatal("expected the final record to be logged")
	}
}

func TestProgressSampler_Heartbeat(t *testing.T) {
	clock := time.Unix(0, 0)
	s := NewProgressSampler(50, time.Minute)
	s.now = func() time.Time { return clock }

	if !s.ShouldLog(1, 1000) {
		t.Fatal("expected first update to log")
	}
	clock = clock.Add(30 * time.Second)
	if s.ShouldLog(2, 1000) {
		t.Fatal("no bucket crossed and heartbeat not due")
	}
	clock = clock.Add(31 * time.Second)
	if !s.ShouldLog(3, 1000) {
		t.Fatal("expected heartbeat line")
	}
	clock = clock.Add(time.Second)
	if s.ShouldLog(4, 1000) {
		t.Fatal("heartbeat should restart after emitting")
	}
}

func TestProgressSampler_UnknownTotal(t *testing.T) {
	s := NewProgressSampler(5, 0)
	if s.ShouldLog(10, 0) {
		t.Fatal("unknown totals log only on heartbeat")
	}
	if Percent(3, 0) != -1 || Percent(1, 4) != 25 {
		t.Fatal("unexpected Percent results")
	}
}
