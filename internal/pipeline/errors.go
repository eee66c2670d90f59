package pipeline

import "errors"

var (
	// ErrInvalidBatchSize is returned when Options.BatchSize is not positive.
	ErrInvalidBatchSize = errors.New("pipeline: batch size must be positive")
	// ErrNilSource is returned when Options.Source is missing.
	ErrNilSource = errors.New("pipeline: source is required")
	// ErrNilAnalyzer is returned when Options.Analyzer is missing.
	ErrNilAnalyzer = errors.New("pipeline: analyzer is required")
	// ErrNilSink is returned when Options.Sink is missing.
	ErrNilSink = errors.New("pipeline: result sink is required")

	// ErrSource wraps every fatal error raised by the record source.
	ErrSource = errors.New("pipeline: record source failed")
	// ErrCursorRegression reports a page that did not advance past the cursor.
	ErrCursorRegression = errors.New("pipeline: record ids must increase past the cursor")
	// ErrPageTooLarge reports a page holding more records than the batch size.
	ErrPageTooLarge = errors.New("pipeline: page exceeds batch size")

	// ErrAnalysisPanic marks outcomes produced by a recovered analyzer panic.
	ErrAnalysisPanic = errors.New("pipeline: analysis panicked")
	// ErrAnalysisTimeout marks outcomes produced when a worker deadline expired.
	ErrAnalysisTimeout = errors.New("pipeline: analysis timed out")
	// ErrInterrupted is returned (wrapped) by analyzers that stop early because
	// the cancellation observer fired. Sinks may skip persisting such outcomes.
	ErrInterrupted = errors.New("pipeline: analysis interrupted")
	// ErrSinkPanic marks sink errors produced by a recovered sink panic.
	ErrSinkPanic = errors.New("pipeline: result sink panicked")
)
