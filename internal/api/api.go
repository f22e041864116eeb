// Package api is the external read/write surface of the engine: the
// operations a REST layer (out of scope here) would consume. It owns the
// boundary concerns the core never applies internally: sensitive-extra
// redaction, the from_rest_api provenance marker, and page size limits.
package api

import (
	"context"

	"github.com/assetline/assetline/internal/model"
	"github.com/assetline/assetline/internal/scheduler"
	"github.com/assetline/assetline/internal/store"
)

// Page size defaults enforced at this boundary; the store accepts whatever
// limit it is handed.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// Service exposes the engine to external callers.
type Service struct {
	store     *store.Store
	scheduler *scheduler.Scheduler
	maxLimit  int
}

// Option configures a Service.
type Option func(*Service)

// WithMaxPageLimit overrides the page size cap.
func WithMaxPageLimit(limit int) Option {
	return func(s *Service) {
		s.maxLimit = limit
	}
}

// New creates a Service over the given store and scheduler.
func New(st *store.Store, sched *scheduler.Scheduler, opts ...Option) *Service {
	s := &Service{store: st, scheduler: sched, maxLimit: MaxPageLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clampPage applies the default and maximum page limits and floors offset.
func (s *Service) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// RecordEvent records an externally posted asset event and runs the trigger
// pipeline. The extra map is tagged with from_rest_api so consumers can
// tell externally posted events from task-produced ones; source_map_index
// defaults to -1. Fails with NotFound for unregistered URIs. The returned
// event has sensitive extra keys redacted.
func (s *Service) RecordEvent(ctx context.Context, assetURI string, source model.Provenance, extra model.Extra) (model.AssetEvent, error) {
	tagged := make(model.Extra, len(extra)+1)
	for k, v := range extra {
		tagged[k] = v
	}
	tagged["from_rest_api"] = true

	// Externally posted events are never mapped: without a producing task
	// there is no map index, so the default applies.
	if source.SourceDagID == "" && source.SourceTaskID == "" && source.SourceRunID == "" {
		source.SourceMapIndex = model.DefaultMapIndex
	}

	event, err := s.scheduler.RecordEvent(ctx, assetURI, source, tagged)
	if err != nil {
		return model.AssetEvent{}, err
	}
	return redactEvent(event), nil
}

// RegisterAsset creates an asset by URI or refreshes its mutable fields if
// the URI is already registered. Idempotent.
func (s *Service) RegisterAsset(ctx context.Context, uri, name, group string, extra model.Extra) (model.Asset, error) {
	asset, err := s.store.CreateAsset(ctx, uri, name, group, extra)
	if err != nil {
		return model.Asset{}, err
	}
	asset.Extra = model.RedactExtra(asset.Extra)
	return asset, nil
}

// UpdateAssetExtra replaces an asset's metadata map. NotFound if absent.
func (s *Service) UpdateAssetExtra(ctx context.Context, uri string, extra model.Extra) (model.Asset, error) {
	asset, err := s.store.UpdateAssetExtra(ctx, uri, extra)
	if err != nil {
		return model.Asset{}, err
	}
	asset.Extra = model.RedactExtra(asset.Extra)
	return asset, nil
}

// GetAsset returns an asset with its dependency edges. NotFound if absent.
func (s *Service) GetAsset(ctx context.Context, uri string) (model.AssetDetail, error) {
	detail, err := s.store.GetAssetDetail(ctx, uri)
	if err != nil {
		return model.AssetDetail{}, err
	}
	detail.Extra = model.RedactExtra(detail.Extra)
	return detail, nil
}

// ListAssets returns a page of assets and the total count of matches.
// Unknown order_by attributes fail with a validation error.
func (s *Service) ListAssets(ctx context.Context, uriPattern string, dagIDs []string, orderBy string, limit, offset int) ([]model.Asset, int, error) {
	limit, offset = s.clampPage(limit, offset)
	assets, total, err := s.store.ListAssets(ctx, store.AssetFilter{
		URIPattern: uriPattern,
		DagIDs:     dagIDs,
	}, orderBy, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range assets {
		assets[i].Extra = model.RedactExtra(assets[i].Extra)
	}
	return assets, total, nil
}

// ListEvents returns a page of events and the total count of matches.
// Unknown order_by attributes fail with a validation error.
func (s *Service) ListEvents(ctx context.Context, filter store.EventFilter, orderBy string, limit, offset int) ([]model.AssetEvent, int, error) {
	limit, offset = s.clampPage(limit, offset)
	events, total, err := s.store.ListEvents(ctx, filter, orderBy, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range events {
		events[i] = redactEvent(events[i])
	}
	return events, total, nil
}

// ListQueuedMarkers is the administrative read over pending fulfillment
// markers, optionally narrowed by dag and/or asset URI.
func (s *Service) ListQueuedMarkers(ctx context.Context, dagID, assetURI string) ([]model.QueuedMarker, error) {
	return s.store.ListQueuedMarkers(ctx, store.QueuedMarkerFilter{DagID: dagID, AssetURI: assetURI})
}

// DeleteQueuedMarker removes one (dag, asset) marker without triggering
// anything. Manual intervention only; bypasses the scheduler.
func (s *Service) DeleteQueuedMarker(ctx context.Context, dagID, assetURI string) error {
	return s.store.DeleteQueuedMarker(ctx, dagID, assetURI)
}

// DeleteQueuedMarkers removes all of a dag's markers. Bypasses the
// scheduler.
func (s *Service) DeleteQueuedMarkers(ctx context.Context, dagID string) error {
	return s.store.DeleteQueuedMarkersForDag(ctx, dagID)
}

// DeleteAssetQueuedMarkers removes an asset's markers across all dags.
// Bypasses the scheduler.
func (s *Service) DeleteAssetQueuedMarkers(ctx context.Context, assetURI string) error {
	return s.store.DeleteQueuedMarkersForAsset(ctx, assetURI)
}

// redactEvent masks sensitive extra keys on the event copy handed to
// external callers. Stored rows keep the raw values.
func redactEvent(e model.AssetEvent) model.AssetEvent {
	e.Extra = model.RedactExtra(e.Extra)
	return e
}
