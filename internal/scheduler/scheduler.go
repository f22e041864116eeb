package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/assetline/assetline/internal/model"
	"github.com/assetline/assetline/internal/store"
)

// Scheduler converts satisfied asset dependency sets into dag runs.
//
// All trigger decisions happen inside RecordEvent's transaction; the
// scheduler holds no state of its own beyond the store handle and the run
// id generator, so it is safe for concurrent use.
type Scheduler struct {
	store  *store.Store
	runGen RunIDGenerator
	log    *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunIDGenerator overrides the run id source. Tests use FixedGenerator
// for deterministic run ids.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(s *Scheduler) {
		s.runGen = gen
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		s.log = log
	}
}

// New creates a Scheduler over the given store.
func New(st *store.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  st,
		runGen: UUIDv7Generator{},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordEvent appends an asset-update event and runs the trigger pipeline
// synchronously as one atomic unit. Fails with NotFound if the URI is
// unregistered; any storage failure rolls back the event and every marker
// or run written on its behalf. Conflict losses during clearing are
// resolved internally and never surface.
//
// The returned event carries the ids of the runs it caused, if any.
func (s *Scheduler) RecordEvent(ctx context.Context, assetURI string, source model.Provenance, extra model.Extra) (model.AssetEvent, error) {
	asset, err := s.store.GetAsset(ctx, assetURI)
	if err != nil {
		return model.AssetEvent{}, err
	}

	tx, err := s.store.BeginImmediate(ctx)
	if err != nil {
		return model.AssetEvent{}, model.StorageError(err)
	}
	defer tx.Rollback() // No-op if committed

	eventID, err := s.store.InsertEvent(ctx, tx, asset.ID, source, extra)
	if err != nil {
		return model.AssetEvent{}, err
	}

	consumers, err := s.store.ConsumersOf(ctx, tx, asset.ID)
	if err != nil {
		return model.AssetEvent{}, err
	}

	for _, dagID := range consumers {
		if _, err := s.store.MarkFulfilled(ctx, tx, dagID, asset.ID, eventID); err != nil {
			return model.AssetEvent{}, err
		}
	}

	for i, dagID := range consumers {
		if err := s.evaluate(ctx, tx, dagID, i); err != nil {
			return model.AssetEvent{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.AssetEvent{}, model.StorageError(fmt.Errorf("record event: commit: %w", err))
	}

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return model.AssetEvent{}, err
	}

	s.log.Debug("asset event recorded",
		"asset_uri", asset.URI,
		"event_id", event.ID,
		"consumers", len(consumers),
		"created_runs", len(event.CreatedDagRuns),
	)
	return event, nil
}

// evaluate checks one consuming dag's full requirement set and, when it is
// covered, clears exactly that marker set and creates a run. A savepoint
// bounds the clear-and-create so a Conflict loss rolls back this dag's
// writes only; the rest of the transaction proceeds.
func (s *Scheduler) evaluate(ctx context.Context, tx store.Querier, dagID string, n int) error {
	required, err := s.store.RequiredAssetsOf(ctx, tx, dagID)
	if err != nil {
		return err
	}
	if len(required) == 0 {
		return nil
	}

	markers, err := s.store.MarkersFor(ctx, tx, dagID)
	if err != nil {
		return err
	}

	have := make(map[int64]bool, len(markers))
	for _, m := range markers {
		have[m.AssetID] = true
	}
	for _, assetID := range required {
		if !have[assetID] {
			return nil // conjunction not yet satisfied
		}
	}

	// Only markers for required assets are consumed; a marker for an edge
	// removed from the dag's definition stays queued for admin cleanup.
	requiredSet := make(map[int64]bool, len(required))
	for _, assetID := range required {
		requiredSet[assetID] = true
	}
	consumed := make([]model.QueuedMarker, 0, len(markers))
	for _, m := range markers {
		if requiredSet[m.AssetID] {
			consumed = append(consumed, m)
		}
	}

	savepoint := fmt.Sprintf("trigger_%d", n)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return model.StorageError(fmt.Errorf("savepoint: %w", err))
	}

	err = s.clearAndCreateRun(ctx, tx, dagID, required, consumed)
	if model.IsConflict(err) {
		// Lost the race: another evaluation consumed the markers and
		// created the run. Undo this dag's writes and move on.
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO "+savepoint); rbErr != nil {
			return model.StorageError(fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		s.log.Debug("trigger race lost, skipping", "dag_id", dagID)
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE "+savepoint); err != nil {
		return model.StorageError(fmt.Errorf("release savepoint: %w", err))
	}
	return nil
}

func (s *Scheduler) clearAndCreateRun(ctx context.Context, tx store.Querier, dagID string, required []int64, consumed []model.QueuedMarker) error {
	// Qualifying events are resolved before the markers disappear.
	eventIDs, err := s.store.QualifyingEventIDs(ctx, tx, consumed)
	if err != nil {
		return err
	}

	if err := s.store.Clear(ctx, tx, dagID, required); err != nil {
		return err
	}

	run, err := s.store.InsertRun(ctx, tx, s.runGen.Generate(), dagID, model.RunTypeAssetTriggered)
	if err != nil {
		return err
	}

	if err := s.store.LinkEventsToRun(ctx, tx, eventIDs, run.RunID); err != nil {
		return err
	}

	s.log.Info("asset-triggered run created",
		"dag_id", dagID,
		"run_id", run.RunID,
		"cleared_markers", len(required),
		"linked_events", len(eventIDs),
	)
	return nil
}
