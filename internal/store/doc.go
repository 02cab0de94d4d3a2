// Package store persists require traces in SQLite.
//
// A session is one environment's lifetime: its load paths, alias table and
// entry module. Each session owns an append-only list of require events.
//
// Ordering always uses the logical seq of an event, never wall-clock time:
// every query that returns events ends in ORDER BY seq ASC, id COLLATE
// BINARY ASC. Writes are idempotent (ON CONFLICT DO NOTHING), so replaying
// a trace into the same database is harmless.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
