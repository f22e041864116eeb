package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/assetline/assetline/internal/model"
)

// CreateAsset registers an asset by URI, or refreshes its mutable fields if
// it already exists. The URI (NFC-normalized) and created_at are immutable;
// name, group, and extra are upserted and updated_at advances.
func (s *Store) CreateAsset(ctx context.Context, uri, name, group string, extra model.Extra) (model.Asset, error) {
	uri = model.NormalizeURI(uri)
	if strings.TrimSpace(uri) == "" {
		return model.Asset{}, model.ValidationErrorf("uri", "asset uri must be non-empty")
	}

	extraJSON, err := marshalExtra(extra)
	if err != nil {
		return model.Asset{}, err
	}

	now := formatTime(s.now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assets (uri, name, grp, extra, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			name = excluded.name,
			grp = excluded.grp,
			extra = excluded.extra,
			updated_at = excluded.updated_at
	`, uri, name, group, extraJSON, now, now)
	if err != nil {
		return model.Asset{}, model.StorageError(fmt.Errorf("create asset: %w", err))
	}

	return s.GetAsset(ctx, uri)
}

// GetAsset retrieves an asset by URI. Fails with NotFound if absent.
func (s *Store) GetAsset(ctx context.Context, uri string) (model.Asset, error) {
	uri = model.NormalizeURI(uri)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, uri, name, grp, extra, created_at, updated_at
		FROM assets
		WHERE uri = ?
	`, uri)

	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Asset{}, model.NotFoundf("asset with uri %q was not found", uri)
	}
	if err != nil {
		return model.Asset{}, model.StorageError(fmt.Errorf("get asset: %w", err))
	}
	return asset, nil
}

// GetAssetDetail retrieves an asset together with its consumer and producer
// edges. Fails with NotFound if the asset is absent.
func (s *Store) GetAssetDetail(ctx context.Context, uri string) (model.AssetDetail, error) {
	asset, err := s.GetAsset(ctx, uri)
	if err != nil {
		return model.AssetDetail{}, err
	}

	consuming, err := s.consumingRefs(ctx, asset.ID)
	if err != nil {
		return model.AssetDetail{}, err
	}
	producing, err := s.ProducingTasksOf(ctx, asset.ID)
	if err != nil {
		return model.AssetDetail{}, err
	}

	return model.AssetDetail{
		Asset:          asset,
		ConsumingDags:  consuming,
		ProducingTasks: producing,
	}, nil
}

// UpdateAssetExtra replaces an asset's extra map. The URI and created_at
// never change; updated_at advances.
func (s *Store) UpdateAssetExtra(ctx context.Context, uri string, extra model.Extra) (model.Asset, error) {
	uri = model.NormalizeURI(uri)
	extraJSON, err := marshalExtra(extra)
	if err != nil {
		return model.Asset{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE assets SET extra = ?, updated_at = ? WHERE uri = ?
	`, extraJSON, formatTime(s.now()), uri)
	if err != nil {
		return model.Asset{}, model.StorageError(fmt.Errorf("update asset extra: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Asset{}, model.StorageError(fmt.Errorf("update asset extra: rows affected: %w", err))
	}
	if n == 0 {
		return model.Asset{}, model.NotFoundf("asset with uri %q was not found", uri)
	}

	return s.GetAsset(ctx, uri)
}

// AssetFilter narrows ListAssets. URIPattern is a substring match; DagIDs
// keeps assets referenced by any of the named dags, through either a
// schedule (consumer) or an outlet (producer) edge.
type AssetFilter struct {
	URIPattern string
	DagIDs     []string
}

// ListAssets returns one page of assets plus the total match count
// independent of the page slice. Unknown order_by attributes fail with a
// validation error.
func (s *Store) ListAssets(ctx context.Context, filter AssetFilter, orderBy string, limit, offset int) ([]model.Asset, int, error) {
	if orderBy == "" {
		orderBy = "id"
	}
	orderClause, err := compileOrderBy(orderBy, "", assetOrderColumns)
	if err != nil {
		return nil, 0, err
	}

	var where []string
	var params []any

	if filter.URIPattern != "" {
		where = append(where, "uri LIKE ? ESCAPE '\\'")
		params = append(params, "%"+escapeLike(filter.URIPattern)+"%")
	}
	if len(filter.DagIDs) > 0 {
		placeholders := strings.Repeat("?,", len(filter.DagIDs))
		placeholders = placeholders[:len(placeholders)-1]
		// Outlet references count as dag linkage too, not just consumers.
		where = append(where, fmt.Sprintf(`id IN (
			SELECT asset_id FROM dag_schedule_asset_refs WHERE dag_id IN (%s)
			UNION
			SELECT asset_id FROM task_outlet_asset_refs WHERE dag_id IN (%s)
		)`, placeholders, placeholders))
		for i := 0; i < 2; i++ {
			for _, id := range filter.DagIDs {
				params = append(params, id)
			}
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assets"+whereClause, params...,
	).Scan(&total); err != nil {
		return nil, 0, model.StorageError(fmt.Errorf("count assets: %w", err))
	}

	query := "SELECT id, uri, name, grp, extra, created_at, updated_at FROM assets" +
		whereClause + orderClause + " LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(params, limit, offset)...)
	if err != nil {
		return nil, 0, model.StorageError(fmt.Errorf("query assets: %w", err))
	}
	defer rows.Close()

	assets := []model.Asset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, 0, model.StorageError(fmt.Errorf("scan asset: %w", err))
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, model.StorageError(fmt.Errorf("iterate assets: %w", err))
	}

	return assets, total, nil
}

// escapeLike escapes LIKE wildcards so pattern input only ever matches as a
// literal substring.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(sc scanner) (model.Asset, error) {
	var a model.Asset
	var extraJSON, createdAt, updatedAt string
	if err := sc.Scan(&a.ID, &a.URI, &a.Name, &a.Group, &extraJSON, &createdAt, &updatedAt); err != nil {
		return model.Asset{}, err
	}

	var err error
	if a.Extra, err = unmarshalExtra(extraJSON); err != nil {
		return model.Asset{}, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Asset{}, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Asset{}, err
	}
	return a, nil
}
