// Package storage persists per-entity tracking state and an audit trail of
// notification attempts.
//
// Drivers:
//   - "memory" (default): process-local, lost on restart
//   - "file": JSON snapshot plus append-only journal
//   - "sqlite": SQLite database file
//   - "redis": Redis hash plus capped audit list
package storage
