package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/assetline/assetline/internal/model"
)

// InsertEvent appends an asset event. Events are immutable: no store method
// updates or deletes a row in asset_events. q is the scheduler's trigger
// transaction, so a downstream failure rolls the event back with everything
// else.
func (s *Store) InsertEvent(ctx context.Context, q Querier, assetID int64, source model.Provenance, extra model.Extra) (int64, error) {
	extraJSON, err := marshalExtra(extra)
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO asset_events
		(asset_id, extra, source_dag_id, source_task_id, source_run_id, source_map_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		assetID,
		extraJSON,
		source.SourceDagID,
		source.SourceTaskID,
		source.SourceRunID,
		source.SourceMapIndex,
		formatTime(s.now()),
	)
	if err != nil {
		return 0, model.StorageError(fmt.Errorf("insert event: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, model.StorageError(fmt.Errorf("insert event: last insert id: %w", err))
	}
	return id, nil
}

// GetEvent retrieves a single event by id, including its run linkage.
func (s *Store) GetEvent(ctx context.Context, id int64) (model.AssetEvent, error) {
	events, err := s.queryEvents(ctx, " WHERE e.id = ?", []any{id}, " ORDER BY e.id ASC", 1, 0)
	if err != nil {
		return model.AssetEvent{}, err
	}
	if len(events) == 0 {
		return model.AssetEvent{}, model.NotFoundf("asset event with id %d was not found", id)
	}
	return events[0], nil
}

// EventFilter narrows ListEvents. Nil pointer fields are ignored; empty
// string fields are ignored. SourceMapIndex is a pointer because -1 and 0
// are both legitimate filter values.
type EventFilter struct {
	AssetID        *int64
	SourceDagID    string
	SourceTaskID   string
	SourceRunID    string
	SourceMapIndex *int
}

// ListEvents returns one page of events plus the total match count
// independent of the page slice. Unknown order_by attributes fail with a
// validation error.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter, orderBy string, limit, offset int) ([]model.AssetEvent, int, error) {
	if orderBy == "" {
		orderBy = "id"
	}
	// Order columns live on the events table; qualify for the URI join.
	orderClause, err := compileOrderBy(orderBy, "e.", eventOrderColumns)
	if err != nil {
		return nil, 0, err
	}

	var where []string
	var params []any

	if filter.AssetID != nil {
		where = append(where, "e.asset_id = ?")
		params = append(params, *filter.AssetID)
	}
	if filter.SourceDagID != "" {
		where = append(where, "e.source_dag_id = ?")
		params = append(params, filter.SourceDagID)
	}
	if filter.SourceTaskID != "" {
		where = append(where, "e.source_task_id = ?")
		params = append(params, filter.SourceTaskID)
	}
	if filter.SourceRunID != "" {
		where = append(where, "e.source_run_id = ?")
		params = append(params, filter.SourceRunID)
	}
	if filter.SourceMapIndex != nil {
		where = append(where, "e.source_map_index = ?")
		params = append(params, *filter.SourceMapIndex)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM asset_events e"+whereClause, params...,
	).Scan(&total); err != nil {
		return nil, 0, model.StorageError(fmt.Errorf("count events: %w", err))
	}

	events, err := s.queryEvents(ctx, whereClause, params, orderClause, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *Store) queryEvents(ctx context.Context, whereClause string, params []any, orderClause string, limit, offset int) ([]model.AssetEvent, error) {
	query := `
		SELECT e.id, e.asset_id, a.uri, e.extra,
		       e.source_dag_id, e.source_task_id, e.source_run_id, e.source_map_index,
		       e.created_at
		FROM asset_events e
		JOIN assets a ON e.asset_id = a.id` +
		whereClause + orderClause + " LIMIT ? OFFSET ?"

	rows, err := s.db.QueryContext(ctx, query, append(params, limit, offset)...)
	if err != nil {
		return nil, model.StorageError(fmt.Errorf("query events: %w", err))
	}
	defer rows.Close()

	events := []model.AssetEvent{}
	for rows.Next() {
		var e model.AssetEvent
		var extraJSON, createdAt string
		if err := rows.Scan(
			&e.ID, &e.AssetID, &e.AssetURI, &extraJSON,
			&e.Source.SourceDagID, &e.Source.SourceTaskID, &e.Source.SourceRunID, &e.Source.SourceMapIndex,
			&createdAt,
		); err != nil {
			return nil, model.StorageError(fmt.Errorf("scan event: %w", err))
		}
		if e.Extra, err = unmarshalExtra(extraJSON); err != nil {
			return nil, model.StorageError(err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, model.StorageError(err)
		}
		e.CreatedDagRuns = []string{}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError(fmt.Errorf("iterate events: %w", err))
	}

	if err := s.loadRunLinks(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// loadRunLinks fills CreatedDagRuns for the given page of events.
func (s *Store) loadRunLinks(ctx context.Context, events []model.AssetEvent) error {
	if len(events) == 0 {
		return nil
	}

	byID := make(map[int64]int, len(events))
	placeholders := make([]string, 0, len(events))
	params := make([]any, 0, len(events))
	for i, e := range events {
		byID[e.ID] = i
		placeholders = append(placeholders, "?")
		params = append(params, e.ID)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT event_id, run_id FROM asset_event_dag_runs
		WHERE event_id IN (%s)
		ORDER BY event_id ASC, run_id ASC
	`, strings.Join(placeholders, ",")), params...)
	if err != nil {
		return model.StorageError(fmt.Errorf("query run links: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var eventID int64
		var runID string
		if err := rows.Scan(&eventID, &runID); err != nil {
			return model.StorageError(fmt.Errorf("scan run link: %w", err))
		}
		if i, ok := byID[eventID]; ok {
			events[i].CreatedDagRuns = append(events[i].CreatedDagRuns, runID)
		}
	}
	if err := rows.Err(); err != nil {
		return model.StorageError(fmt.Errorf("iterate run links: %w", err))
	}
	return nil
}
