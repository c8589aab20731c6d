// Package store provides SQLite-backed durable storage for run traces.
//
// The store is an append-only log of:
//   - Runs: one row per feature execution, finished with its verdict
//   - Trace entries: executed steps, UNIQUE(run_id, path)
//   - Outcome links: registered, ensured and forgotten outcomes
//
// # Ordering
//
// All ordering uses the logical seq column, never wall time. Queries order
// by seq ASC, id ASC COLLATE BINARY so results are identical across reads.
// Runs order by id, which is a time-sortable UUIDv7.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING. Entry and link IDs are content
// addressed (ir.EntryID, ir.OutcomeID), so re-delivering an event is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
