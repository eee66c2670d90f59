// Package library persists the media catalogue in SQLite.
//
// The Store owns the connection, applies the embedded schema on first open,
// and retries writes that collide with another connection's lock. FileQuery is
// the keyset-paginated record source the analysis pipeline consumes, and
// AnalysisSink is the matching result sink. Repository provides the generic
// lookups (by id, by id set, grouped counts, first n) shared by every entity.
package library
