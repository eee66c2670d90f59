package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus instrumentation for pipeline runs. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs             *prometheus.CounterVec
	lastTotal        prometheus.Gauge
	dispatchedTotal  prometheus.Counter
	completedTotal   *prometheus.CounterVec
	sinkErrorsTotal  prometheus.Counter
	inFlight         prometheus.Gauge
	analysisDuration prometheus.Histogram
}

// NewMetrics creates pipeline collectors on a private registry. Labels are
// attached to every series, typically the analysis kind.
func NewMetrics(labels prometheus.Labels) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "mediascan",
			Name:        "pipeline_runs_total",
			Help:        "Analysis runs by final status.",
			ConstLabels: labels,
		}, []string{"status"}),
		lastTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mediascan",
			Name:        "pipeline_matched_records",
			Help:        "Records matched by the most recent run at start.",
			ConstLabels: labels,
		}),
		dispatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediascan",
			Name:        "pipeline_dispatched_total",
			Help:        "Records handed to analysis workers.",
			ConstLabels: labels,
		}),
		completedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "mediascan",
			Name:        "pipeline_completed_total",
			Help:        "Finished workers by analysis result.",
			ConstLabels: labels,
		}, []string{"result"}),
		sinkErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mediascan",
			Name:        "pipeline_sink_errors_total",
			Help:        "Outcomes the result sink failed to persist.",
			ConstLabels: labels,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mediascan",
			Name:        "pipeline_workers_in_flight",
			Help:        "Workers currently holding a permit.",
			ConstLabels: labels,
		}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "mediascan",
			Name:        "pipeline_analysis_duration_seconds",
			Help:        "Wall time of a single analysis.",
			ConstLabels: labels,
			Buckets:     []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		}),
	}
	registry.MustRegister(
		m.runs,
		m.lastTotal,
		m.dispatchedTotal,
		m.completedTotal,
		m.sinkErrorsTotal,
		m.inFlight,
		m.analysisDuration,
	)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current metrics in the Prometheus text format, for
// the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (m *Metrics) runStarted(total int) {
	if m == nil {
		return
	}
	m.lastTotal.Set(float64(total))
}

func (m *Metrics) runFinished(summary Summary, err error) {
	if m == nil {
		return
	}
	status := "completed"
	switch {
	case err != nil:
		status = "failed"
	case summary.Cancelled:
		status = "cancelled"
	}
	m.runs.WithLabelValues(status).Inc()
}

func (m *Metrics) dispatched() {
	if m == nil {
		return
	}
	m.dispatchedTotal.Inc()
}

func (m *Metrics) workerStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// Result labels of the completed analyses counter.
const (
	resultSuccess     = "success"
	resultFailure     = "failure"
	resultInterrupted = "interrupted"
)

func (m *Metrics) workerAnalysed(elapsed time.Duration, result string) {
	if m == nil {
		return
	}
	m.analysisDuration.Observe(elapsed.Seconds())
	m.completedTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) sinkFailed() {
	if m == nil {
		return
	}
	m.sinkErrorsTotal.Inc()
}

func (m *Metrics) workerFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
