// Package sqlite provides the local index and state storage on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Each local source is indexed into its own shard,
// index_dir/<source>.db, holding the source's documents, postings and
// manifest. A shard has at most one writer, guarded in-process by the
// Engine and across processes by a PID lock file, index_dir/<source>.lock.
// Writers run in WAL mode, so queries see the last committed state while an
// indexing pass is in progress.
//
// index_dir/state.db holds state shared across sources, such as the
// scheduler's task bookkeeping.
//
// # Schema
//
// Schemas are managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
package sqlite
