package store

import (
	"context"
	"fmt"

	"github.com/assetline/assetline/internal/model"
)

// The dependency graph is the pure read side over the two edge tables.
// Edges are written only by definition loading (ReplaceDagRefs); trigger
// evaluation never mutates them.

// ConsumersOf returns the dag ids holding a schedule reference to the asset,
// in deterministic order. q may be an open trigger transaction.
func (s *Store) ConsumersOf(ctx context.Context, q Querier, assetID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT dag_id FROM dag_schedule_asset_refs
		WHERE asset_id = ?
		ORDER BY dag_id ASC
	`, assetID)
	if err != nil {
		return nil, model.StorageError(fmt.Errorf("query consumers: %w", err))
	}
	defer rows.Close()

	var dagIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, model.StorageError(fmt.Errorf("scan consumer: %w", err))
		}
		dagIDs = append(dagIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError(fmt.Errorf("iterate consumers: %w", err))
	}
	return dagIDs, nil
}

// RequiredAssetsOf returns the full set of asset ids the dag requires
// (its conjunctive dependency set), in deterministic order.
func (s *Store) RequiredAssetsOf(ctx context.Context, q Querier, dagID string) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT asset_id FROM dag_schedule_asset_refs
		WHERE dag_id = ?
		ORDER BY asset_id ASC
	`, dagID)
	if err != nil {
		return nil, model.StorageError(fmt.Errorf("query required assets: %w", err))
	}
	defer rows.Close()

	var assetIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, model.StorageError(fmt.Errorf("scan required asset: %w", err))
		}
		assetIDs = append(assetIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError(fmt.Errorf("iterate required assets: %w", err))
	}
	return assetIDs, nil
}

// consumingRefs returns the schedule references pointing at an asset.
func (s *Store) consumingRefs(ctx context.Context, assetID int64) ([]model.DagScheduleAssetRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dag_id, asset_id, created_at FROM dag_schedule_asset_refs
		WHERE asset_id = ?
		ORDER BY dag_id ASC
	`, assetID)
	if err != nil {
		return nil, model.StorageError(fmt.Errorf("query consuming refs: %w", err))
	}
	defer rows.Close()

	refs := []model.DagScheduleAssetRef{}
	for rows.Next() {
		var ref model.DagScheduleAssetRef
		var createdAt string
		if err := rows.Scan(&ref.DagID, &ref.AssetID, &createdAt); err != nil {
			return nil, model.StorageError(fmt.Errorf("scan consuming ref: %w", err))
		}
		if ref.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, model.StorageError(err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError(fmt.Errorf("iterate consuming refs: %w", err))
	}
	return refs, nil
}

// ProducingTasksOf returns the outlet references pointing at an asset.
func (s *Store) ProducingTasksOf(ctx context.Context, assetID int64) ([]model.TaskOutletAssetRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dag_id, task_id, asset_id, created_at FROM task_outlet_asset_refs
		WHERE asset_id = ?
		ORDER BY dag_id ASC, task_id ASC
	`, assetID)
	if err != nil {
		return nil, model.StorageError(fmt.Errorf("query producing tasks: %w", err))
	}
	defer rows.Close()

	refs := []model.TaskOutletAssetRef{}
	for rows.Next() {
		var ref model.TaskOutletAssetRef
		var createdAt string
		if err := rows.Scan(&ref.DagID, &ref.TaskID, &ref.AssetID, &createdAt); err != nil {
			return nil, model.StorageError(fmt.Errorf("scan producing task: %w", err))
		}
		if ref.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, model.StorageError(err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError(fmt.Errorf("iterate producing tasks: %w", err))
	}
	return refs, nil
}

// TaskOutlet names a producing task and the asset URI it updates.
type TaskOutlet struct {
	TaskID   string
	AssetURI string
}

// ReplaceDagRefs reconciles a dag's dependency edges with its definition:
// schedule references for every URI in scheduleURIs, outlet references for
// every outlet, and removal of edges the definition no longer declares.
// Referenced assets must already be registered (NotFound otherwise).
// Inserts are idempotent; reloading an unchanged definition is a no-op.
func (s *Store) ReplaceDagRefs(ctx context.Context, dagID string, scheduleURIs []string, outlets []TaskOutlet) error {
	tx, err := s.BeginImmediate(ctx)
	if err != nil {
		return model.StorageError(err)
	}
	defer tx.Rollback() // No-op if committed

	now := formatTime(s.now())

	resolve := func(uri string) (int64, error) {
		uri = model.NormalizeURI(uri)
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM assets WHERE uri = ?`, uri).Scan(&id)
		if err != nil {
			return 0, model.NotFoundf("asset with uri %q was not found", uri)
		}
		return id, nil
	}

	scheduleIDs := make([]int64, 0, len(scheduleURIs))
	for _, uri := range scheduleURIs {
		id, err := resolve(uri)
		if err != nil {
			return err
		}
		scheduleIDs = append(scheduleIDs, id)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dag_schedule_asset_refs (dag_id, asset_id, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT(dag_id, asset_id) DO NOTHING
		`, dagID, id, now); err != nil {
			return model.StorageError(fmt.Errorf("insert schedule ref: %w", err))
		}
	}

	if err := pruneRefs(ctx, tx, "dag_schedule_asset_refs", dagID, scheduleIDs); err != nil {
		return err
	}

	outletIDs := make([]int64, 0, len(outlets))
	for _, outlet := range outlets {
		id, err := resolve(outlet.AssetURI)
		if err != nil {
			return err
		}
		outletIDs = append(outletIDs, id)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_outlet_asset_refs (dag_id, task_id, asset_id, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(dag_id, task_id, asset_id) DO NOTHING
		`, dagID, outlet.TaskID, id, now); err != nil {
			return model.StorageError(fmt.Errorf("insert outlet ref: %w", err))
		}
	}

	if err := pruneRefs(ctx, tx, "task_outlet_asset_refs", dagID, outletIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.StorageError(fmt.Errorf("replace dag refs: commit: %w", err))
	}
	return nil
}

// pruneRefs deletes a dag's edges in table that reference assets outside
// keep. The table name is one of two compile-time constants, never input.
func pruneRefs(ctx context.Context, q Querier, table, dagID string, keep []int64) error {
	if len(keep) == 0 {
		if _, err := q.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE dag_id = ?", table), dagID); err != nil {
			return model.StorageError(fmt.Errorf("prune %s: %w", table, err))
		}
		return nil
	}

	placeholders := ""
	params := []any{dagID}
	for i, id := range keep {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		params = append(params, id)
	}

	query := fmt.Sprintf(
		"DELETE FROM %s WHERE dag_id = ? AND asset_id NOT IN (%s)", table, placeholders)
	if _, err := q.ExecContext(ctx, query, params...); err != nil {
		return model.StorageError(fmt.Errorf("prune %s: %w", table, err))
	}
	return nil
}
