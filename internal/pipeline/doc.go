// Package pipeline streams catalogue records through a bounded pool of
// analysis workers.
//
// Run counts the records matched by a Source, then runs two goroutines side by
// side: a cursor producer that pages through the source in ascending ID order
// and pushes records into a bounded channel, and a dispatcher that pulls from
// that channel, acquires one of N permits, and launches a worker per record.
// Workers run the injected Analyzer, hand the Outcome to the ResultSink, bump
// the shared progress counter, and release their permit. Run returns only after
// every worker has finished.
//
// Memory stays proportional to the batch size: the queue holds at most one
// batch and the producer blocks while it is full. Cancellation is cooperative
// through an Observer checked before every fetch and every dispatch; records
// already handed to a worker always run to completion and reach the sink.
//
// Analysis failures, analyzer panics, and per-worker timeouts become failed
// Outcomes. Sink failures are logged and counted. Only source errors (and
// cancellation of the parent context) abort a run.
package pipeline
