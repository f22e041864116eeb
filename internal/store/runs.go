package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/assetline/assetline/internal/model"
)

// InsertRun creates a run record inside the trigger transaction.
func (s *Store) InsertRun(ctx context.Context, q Querier, runID, dagID, runType string) (model.DagRun, error) {
	createdAt := s.now()
	_, err := q.ExecContext(ctx, `
		INSERT INTO dag_runs (run_id, dag_id, run_type, created_at)
		VALUES (?, ?, ?, ?)
	`, runID, dagID, runType, formatTime(createdAt))
	if err != nil {
		return model.DagRun{}, model.StorageError(fmt.Errorf("insert run: %w", err))
	}
	return model.DagRun{RunID: runID, DagID: dagID, RunType: runType, CreatedAt: createdAt}, nil
}

// LinkEventsToRun records that the named events caused the run. Idempotent
// on the (event, run) pair; the event rows themselves are untouched.
func (s *Store) LinkEventsToRun(ctx context.Context, q Querier, eventIDs []int64, runID string) error {
	for _, eventID := range eventIDs {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO asset_event_dag_runs (event_id, run_id)
			VALUES (?, ?)
			ON CONFLICT(event_id, run_id) DO NOTHING
		`, eventID, runID); err != nil {
			return model.StorageError(fmt.Errorf("link event %d to run %s: %w", eventID, runID, err))
		}
	}
	return nil
}

// QualifyingEventIDs returns the ids of events that count toward a dag's
// pending trigger: for each marker, the events for that asset with id at or
// after the marker's first_event_id anchor. Marker presence, not event
// count, gates triggering; this query only decides which events get linked
// to the run. Event ids are monotonic, so the anchor comparison never
// depends on wall-clock ordering.
func (s *Store) QualifyingEventIDs(ctx context.Context, q Querier, markers []model.QueuedMarker) ([]int64, error) {
	if len(markers) == 0 {
		return nil, nil
	}

	var clauses []string
	var params []any
	for _, m := range markers {
		clauses = append(clauses, "(asset_id = ? AND id >= ?)")
		params = append(params, m.AssetID, m.FirstEventID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id FROM asset_events
		WHERE `+strings.Join(clauses, " OR ")+`
		ORDER BY id ASC
	`, params...)
	if err != nil {
		return nil, model.StorageError(fmt.Errorf("query qualifying events: %w", err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, model.StorageError(fmt.Errorf("scan qualifying event: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError(fmt.Errorf("iterate qualifying events: %w", err))
	}
	return ids, nil
}

// GetRun retrieves a run by id. Fails with NotFound if absent.
func (s *Store) GetRun(ctx context.Context, runID string) (model.DagRun, error) {
	var run model.DagRun
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, dag_id, run_type, created_at FROM dag_runs WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.DagID, &run.RunType, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DagRun{}, model.NotFoundf("dag run %q was not found", runID)
	}
	if err != nil {
		return model.DagRun{}, model.StorageError(fmt.Errorf("get run: %w", err))
	}
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.DagRun{}, model.StorageError(err)
	}
	return run, nil
}

// ListRuns returns a dag's runs, newest last.
func (s *Store) ListRuns(ctx context.Context, dagID string) ([]model.DagRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, dag_id, run_type, created_at FROM dag_runs
		WHERE dag_id = ?
		ORDER BY created_at ASC, run_id ASC
	`, dagID)
	if err != nil {
		return nil, model.StorageError(fmt.Errorf("query runs: %w", err))
	}
	defer rows.Close()

	runs := []model.DagRun{}
	for rows.Next() {
		var run model.DagRun
		var createdAt string
		if err := rows.Scan(&run.RunID, &run.DagID, &run.RunType, &createdAt); err != nil {
			return nil, model.StorageError(fmt.Errorf("scan run: %w", err))
		}
		if run.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, model.StorageError(err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError(fmt.Errorf("iterate runs: %w", err))
	}
	return runs, nil
}
