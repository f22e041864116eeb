// Package store provides SQLite-backed durable storage for the asset
// trigger engine.
//
// Tables:
//   - assets: the asset registry (unique NFC-normalized URI)
//   - asset_events: append-only asset update log
//   - dag_schedule_asset_refs: consumer edges (dag requires asset)
//   - task_outlet_asset_refs: producer edges (task updates asset)
//   - asset_dag_run_queue: fulfillment markers, one per (dag, asset) pair
//   - dag_runs: runs created by the trigger pipeline
//   - asset_event_dag_runs: event -> run linkage, written only inside the
//     trigger transaction
//
// Invariants the schema enforces directly:
//   - UNIQUE(uri) on assets
//   - PRIMARY KEY(target_dag_id, asset_id) on the run queue, so marker
//     inserts are idempotent via ON CONFLICT DO NOTHING
//   - foreign keys from events, edges, markers, and linkage to their owners
//
// Clear is a compare-and-delete bounded to a named asset set: it fails with
// a Conflict error when any marker was already consumed. That failure is the
// barrier that prevents double-triggering under concurrent evaluation.
//
// Write primitives used by the trigger transaction take a Querier so they
// run against either the pooled connection or an open transaction. List
// queries always carry an ORDER BY with an id tiebreaker and parameterize
// every value.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
