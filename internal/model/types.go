package model

import (
	"time"

	"golang.org/x/text/unicode/norm"
)

// DefaultMapIndex is the map index recorded for events produced by
// non-mapped tasks.
const DefaultMapIndex = -1

// Extra is a free-form metadata map attached to assets and events.
// Stored as JSON; values are opaque to the engine.
type Extra map[string]any

// Asset is a registered data artifact, addressed by a globally unique URI.
// The URI is immutable once created; name, group, and extra are mutable.
type Asset struct {
	ID        int64     `json:"id"`
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Group     string    `json:"group"`
	Extra     Extra     `json:"extra"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssetDetail is an asset together with its dependency edges, as returned
// by the read surface.
type AssetDetail struct {
	Asset
	ConsumingDags  []DagScheduleAssetRef `json:"consuming_dags"`
	ProducingTasks []TaskOutletAssetRef  `json:"producing_tasks"`
}

// Provenance identifies the producer of an asset event. All fields are
// optional: events posted from outside a workflow carry empty source ids.
type Provenance struct {
	SourceDagID    string `json:"source_dag_id"`
	SourceTaskID   string `json:"source_task_id"`
	SourceRunID    string `json:"source_run_id"`
	SourceMapIndex int    `json:"source_map_index"`
}

// AssetEvent is an immutable record that an asset was updated.
type AssetEvent struct {
	ID        int64      `json:"id"`
	AssetID   int64      `json:"asset_id"`
	AssetURI  string     `json:"asset_uri"`
	Extra     Extra      `json:"extra"`
	Source    Provenance `json:"source"`
	CreatedAt time.Time  `json:"timestamp"`

	// CreatedDagRuns lists the run ids this event helped trigger.
	// Populated only by the scheduler; grows, never shrinks.
	CreatedDagRuns []string `json:"created_dagruns"`
}

// DagScheduleAssetRef declares that a dag requires an asset to eventually
// execute. A dag with several refs requires ALL of them (conjunction).
type DagScheduleAssetRef struct {
	DagID     string    `json:"dag_id"`
	AssetID   int64     `json:"asset_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskOutletAssetRef declares that a task updates an asset. Used for
// provenance and reporting, never for trigger evaluation.
type TaskOutletAssetRef struct {
	DagID     string    `json:"dag_id"`
	TaskID    string    `json:"task_id"`
	AssetID   int64     `json:"asset_id"`
	CreatedAt time.Time `json:"created_at"`
}

// QueuedMarker is a fulfillment marker: asset AssetID has fired for dag
// TargetDagID since that dag's last asset-triggered run. At most one
// marker exists per (dag, asset) pair.
type QueuedMarker struct {
	TargetDagID string `json:"target_dag_id"`
	AssetID     int64  `json:"asset_id"`
	AssetURI    string `json:"asset_uri"`
	// FirstEventID is the id of the event that created the marker; it
	// anchors which pending events get linked to the eventual run.
	FirstEventID int64     `json:"first_event_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunTypeAssetTriggered marks runs created by the asset trigger pipeline.
const RunTypeAssetTriggered = "asset_triggered"

// DagRun is a workflow run record. The engine only ever creates runs of
// type asset_triggered; execution is out of scope.
type DagRun struct {
	RunID     string    `json:"run_id"`
	DagID     string    `json:"dag_id"`
	RunType   string    `json:"run_type"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeURI returns the canonical (NFC) form of an asset URI.
// All lookups and writes go through this so canonically equal URIs
// collapse to one asset.
func NormalizeURI(uri string) string {
	return norm.NFC.String(uri)
}
