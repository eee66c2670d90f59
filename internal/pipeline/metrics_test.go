package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordRun(t *testing.T) {
	metrics := NewMetrics(prometheus.Labels{"kind": "probe"})
	opts := baseOptions(newMemSource(12), newRecordingSink(), 4)
	opts.Metrics = metrics
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(_ context.Context, record testRecord, _ string, _ Observer) (int, error) {
		if record.id <= 2 {
			return 0, errors.New("decode failed")
		}
		return 1, nil
	})

	if _, err := runWithDeadline(t, context.Background(), opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := testutil.ToFloat64(metrics.dispatchedTotal); got != 12 {
		t.Fatalf("dispatched = %v, want 12", got)
	}
	if got := testutil.ToFloat64(metrics.completedTotal.WithLabelValues("failure")); got != 2 {
		t.Fatalf("failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.completedTotal.WithLabelValues("success")); got != 10 {
		t.Fatalf("successes = %v, want 10", got)
	}
	if got := testutil.ToFloat64(metrics.inFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.runs.WithLabelValues("completed")); got != 1 {
		t.Fatalf("completed runs = %v, want 1", got)
	}

	path := filepath.Join(t.TempDir(), "mediascan.prom")
	if err := metrics.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `mediascan_pipeline_dispatched_total{kind="probe"} 12`) {
		t.Fatalf("textfile missing dispatched series:\n%s", data)
	}
}


func TestMetricsSeparateInterruptedFromFailures(t *testing.T) {
	metrics := NewMetrics(prometheus.Labels{"kind": "loudness"})
	opts := baseOptions(newMemSource(6), newRecordingSink(), 3)
	opts.Metrics = metrics
	opts.Analyzer = AnalyzerFunc[testRecord, int](func(_ context.Context, record testRecord, _ string, _ Observer) (int, error) {
		if record.id > 4 {
			return 0, ErrInterrupted
		}
		return 1, nil
	})

	if _, err := runWithDeadline(t, context.Background(), opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := testutil.ToFloat64(metrics.completedTotal.WithLabelValues("interrupted")); got != 2 {
		t.Fatalf("interrupted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.completedTotal.WithLabelValues("failure")); got != 0 {
		t.Fatalf("failures = %v, want 0", got)
	}
}
func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.dispatched()
	metrics.workerStarted()
	metrics.workerFinished()
	if metrics.Registry() != nil {
		t.Fatal("nil metrics should have no registry")
	}
	if err := metrics.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil WriteTextfile: %v", err)
	}
}
