// Package scheduler implements the asset-event-to-trigger pipeline.
//
// RecordEvent is the sole event-creation entry point. Inside a single
// write transaction it:
//
//  1. Resolves the asset and appends the event.
//  2. Resolves the consuming dags and inserts one fulfillment marker per
//     (dag, asset) pair (idempotent).
//  3. For each consumer whose full required-asset set is covered by
//     markers, clears exactly that set and creates an asset-triggered run,
//     linking the qualifying events to it.
//
// The clear is a compare-and-delete: when a concurrent evaluation already
// consumed a marker, the loser rolls back to a per-dag savepoint and skips
// that dag without side effects. Exactly one run is created per satisfied
// requirement set. A storage failure anywhere rolls the whole call back,
// including the event row, so producers can retry safely.
package scheduler
