package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/assetline/assetline/internal/model"
)

// MarkFulfilled records that assetID has fired for dagID since the dag's
// last asset-triggered run. Idempotent: a second event before consumption
// leaves exactly one marker (ON CONFLICT DO NOTHING on the pair key), and
// the original first_event_id anchor is kept so earlier pending events stay
// linked to the eventual run. Returns whether a new marker was inserted.
func (s *Store) MarkFulfilled(ctx context.Context, q Querier, dagID string, assetID, eventID int64) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO asset_dag_run_queue (target_dag_id, asset_id, first_event_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(target_dag_id, asset_id) DO NOTHING
	`, dagID, assetID, eventID, formatTime(s.now()))
	if err != nil {
		return false, model.StorageError(fmt.Errorf("mark fulfilled: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, model.StorageError(fmt.Errorf("mark fulfilled: rows affected: %w", err))
	}
	return n > 0, nil
}

// MarkersFor returns the dag's active fulfillment markers, ordered by
// asset id.
func (s *Store) MarkersFor(ctx context.Context, q Querier, dagID string) ([]model.QueuedMarker, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT q.target_dag_id, q.asset_id, a.uri, q.first_event_id, q.created_at
		FROM asset_dag_run_queue q
		JOIN assets a ON q.asset_id = a.id
		WHERE q.target_dag_id = ?
		ORDER BY q.asset_id ASC
	`, dagID)
	if err != nil {
		return nil, model.StorageError(fmt.Errorf("query markers: %w", err))
	}
	defer rows.Close()

	return scanMarkers(rows)
}

// Clear atomically removes exactly the named markers for the dag. This is
// the compare-and-delete barrier: if any named marker was already absent
// (consumed by a concurrent evaluation), Clear fails with a Conflict error
// and removes nothing the caller can keep - the caller must roll back its
// enclosing transaction or savepoint.
func (s *Store) Clear(ctx context.Context, q Querier, dagID string, assetIDs []int64) error {
	if len(assetIDs) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(assetIDs))
	params := []any{dagID}
	for _, id := range assetIDs {
		placeholders = append(placeholders, "?")
		params = append(params, id)
	}

	res, err := q.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM asset_dag_run_queue
		WHERE target_dag_id = ? AND asset_id IN (%s)
	`, strings.Join(placeholders, ",")), params...)
	if err != nil {
		return model.StorageError(fmt.Errorf("clear markers: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return model.StorageError(fmt.Errorf("clear markers: rows affected: %w", err))
	}
	if n != int64(len(assetIDs)) {
		return model.Conflictf(
			"cleared %d of %d markers for dag %q: consumed by a concurrent evaluation", n, len(assetIDs), dagID)
	}
	return nil
}

// QueuedMarkerFilter narrows ListQueuedMarkers. Empty fields are ignored.
type QueuedMarkerFilter struct {
	DagID    string
	AssetURI string
}

// ListQueuedMarkers is the administrative read over the run queue.
func (s *Store) ListQueuedMarkers(ctx context.Context, filter QueuedMarkerFilter) ([]model.QueuedMarker, error) {
	var where []string
	var params []any

	if filter.DagID != "" {
		where = append(where, "q.target_dag_id = ?")
		params = append(params, filter.DagID)
	}
	if filter.AssetURI != "" {
		where = append(where, "a.uri = ?")
		params = append(params, model.NormalizeURI(filter.AssetURI))
	}

	query := `
		SELECT q.target_dag_id, q.asset_id, a.uri, q.first_event_id, q.created_at
		FROM asset_dag_run_queue q
		JOIN assets a ON q.asset_id = a.id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY q.target_dag_id ASC, q.asset_id ASC"

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, model.StorageError(fmt.Errorf("query queued markers: %w", err))
	}
	defer rows.Close()

	return scanMarkers(rows)
}

// DeleteQueuedMarker removes a single (dag, asset) marker, bypassing the
// scheduler. Fails with NotFound when no such marker is queued.
func (s *Store) DeleteQueuedMarker(ctx context.Context, dagID, assetURI string) error {
	uri := model.NormalizeURI(assetURI)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM asset_dag_run_queue
		WHERE target_dag_id = ?
		AND asset_id IN (SELECT id FROM assets WHERE uri = ?)
	`, dagID, uri)
	if err != nil {
		return model.StorageError(fmt.Errorf("delete queued marker: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.StorageError(fmt.Errorf("delete queued marker: rows affected: %w", err))
	}
	if n == 0 {
		return model.NotFoundf("queued marker for dag %q and asset %q was not found", dagID, uri)
	}
	return nil
}

// DeleteQueuedMarkersForDag removes all of a dag's markers.
// Fails with NotFound when the dag has none queued.
func (s *Store) DeleteQueuedMarkersForDag(ctx context.Context, dagID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM asset_dag_run_queue WHERE target_dag_id = ?`, dagID)
	if err != nil {
		return model.StorageError(fmt.Errorf("delete queued markers: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.StorageError(fmt.Errorf("delete queued markers: rows affected: %w", err))
	}
	if n == 0 {
		return model.NotFoundf("no queued markers found for dag %q", dagID)
	}
	return nil
}

// DeleteQueuedMarkersForAsset removes an asset's markers across all dags.
// Fails with NotFound when the asset has none queued.
func (s *Store) DeleteQueuedMarkersForAsset(ctx context.Context, assetURI string) error {
	uri := model.NormalizeURI(assetURI)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM asset_dag_run_queue
		WHERE asset_id IN (SELECT id FROM assets WHERE uri = ?)
	`, uri)
	if err != nil {
		return model.StorageError(fmt.Errorf("delete queued markers: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.StorageError(fmt.Errorf("delete queued markers: rows affected: %w", err))
	}
	if n == 0 {
		return model.NotFoundf("no queued markers found for asset %q", uri)
	}
	return nil
}

func scanMarkers(rows *sql.Rows) ([]model.QueuedMarker, error) {
	markers := []model.QueuedMarker{}
	for rows.Next() {
		var m model.QueuedMarker
		var createdAt string
		if err := rows.Scan(&m.TargetDagID, &m.AssetID, &m.AssetURI, &m.FirstEventID, &createdAt); err != nil {
			return nil, model.StorageError(fmt.Errorf("scan queued marker: %w", err))
		}
		var err error
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, model.StorageError(err)
		}
		markers = append(markers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError(fmt.Errorf("iterate queued markers: %w", err))
	}
	return markers, nil
}
