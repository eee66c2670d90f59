package pipeline

import "context"

// Record is one unit of work. IDs are unique, positive, and strictly
// increasing in the order a Source returns them.
type Record interface {
	RecordID() int64
}

// Source is a filtered, ID-ordered collection of records.
type Source[T Record] interface {
	// Count returns the number of records matching the source's filter.
	Count(ctx context.Context) (int, error)
	// After returns up to limit records with IDs greater than afterID in
	// ascending ID order. An empty page signals exhaustion.
	After(ctx context.Context, afterID int64, limit int) ([]T, error)
}

// Outcome is the result of analysing one record. Err is non-nil for the
// failure variant.
type Outcome[O any] struct {
	Value O
	Err   error
}

// Failed reports whether the analysis failed.
func (o Outcome[O]) Failed() bool {
	return o.Err != nil
}

// Analyzer performs the injected unit of work for one record. It may block or
// burn CPU; it should poll cancel (or ctx) when it runs for long.
type Analyzer[T Record, O any] interface {
	Analyze(ctx context.Context, record T, root string, cancel Observer) (O, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc[T Record, O any] func(ctx context.Context, record T, root string, cancel Observer) (O, error)

// Analyze calls f.
func (f AnalyzerFunc[T, O]) Analyze(ctx context.Context, record T, root string, cancel Observer) (O, error) {
	return f(ctx, record, root, cancel)
}

// ResultSink persists an outcome. It is called concurrently from workers and
// must be safe for concurrent use.
type ResultSink[T Record, O any] interface {
	HandleResult(ctx context.Context, record T, outcome Outcome[O]) error
}

// SinkFunc adapts a function to the ResultSink interface.
type SinkFunc[T Record, O any] func(ctx context.Context, record T, outcome Outcome[O]) error

// HandleResult calls f.
func (f SinkFunc[T, O]) HandleResult(ctx context.Context, record T, outcome Outcome[O]) error {
	return f(ctx, record, outcome)
}

// ProgressFunc receives the completed count and the total matched at start.
type ProgressFunc func(completed, total int)
