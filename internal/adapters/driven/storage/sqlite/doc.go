// Package sqlite provides a SQLite-backed recovery store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. Recovery records survive
// process crashes so unsaved edits can be replayed on the next open.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Keys
//
// Records are keyed "<prefix>_<resource id>" so several installations can
// share one database file.
//
// # Data Location
//
// By default, the database is stored at ~/.docmodel/data/recovery.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
