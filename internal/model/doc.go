// Package model defines the domain types for the asset trigger engine.
//
// The core entities:
//   - Asset: a named, URI-addressed data artifact
//   - AssetEvent: an immutable record that an asset was updated
//   - DagScheduleAssetRef: "this dag consumes this asset" (conjunctive)
//   - TaskOutletAssetRef: "this task produces this asset" (provenance only)
//   - QueuedMarker: a durable fulfillment flag per (dag, asset) pair
//   - DagRun: a run created when a dag's full asset requirement is satisfied
//
// Asset URIs are NFC-normalized before storage so byte-different but
// canonically equal URIs resolve to the same asset.
//
// Events are append-only: nothing ever updates or deletes an event row.
// The only thing that grows after creation is the event's run linkage,
// written exclusively by the scheduler inside the trigger transaction.
package model
