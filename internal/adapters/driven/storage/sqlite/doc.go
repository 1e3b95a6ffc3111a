// Package sqlite provides a SQLite-based implementation of the crawl output ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. One database connection backs three ports:
//
//   - OutputSink: finished records, keyed by document id
//   - FailureLog: per-item failures of every run
//   - RunStore: crawl run history and counters
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-graph/data/crawl.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store relies on SQLite in
// WAL mode with a busy timeout for writer contention.
package sqlite
