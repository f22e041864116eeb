package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/assetline/assetline/internal/model"
)

// asModelError unwraps err into a *model.Error for message assertions.
func asModelError(err error, target **model.Error) bool {
	return errors.As(err, target)
}

// createTestStore creates a temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestAsset registers an asset and returns it.
func createTestAsset(t *testing.T, s *Store, uri string) model.Asset {
	t.Helper()
	asset, err := s.CreateAsset(context.Background(), uri, "asset-name", "asset", model.Extra{"foo": "bar"})
	if err != nil {
		t.Fatalf("CreateAsset(%q) failed: %v", uri, err)
	}
	return asset
}

// createTestEvent appends an event for the asset and returns its id.
func createTestEvent(t *testing.T, s *Store, assetID int64, source model.Provenance) int64 {
	t.Helper()
	id, err := s.InsertEvent(context.Background(), s.DB(), assetID, source, model.Extra{"foo": "bar"})
	if err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	return id
}

// addScheduleRef wires a consumer edge directly.
func addScheduleRef(t *testing.T, s *Store, dagID string, assetID int64) {
	t.Helper()
	_, err := s.DB().Exec(`
		INSERT INTO dag_schedule_asset_refs (dag_id, asset_id, created_at)
		VALUES (?, ?, ?) ON CONFLICT DO NOTHING
	`, dagID, assetID, formatTime(s.now()))
	if err != nil {
		t.Fatalf("insert schedule ref failed: %v", err)
	}
}

// addOutletRef wires a producer edge directly.
func addOutletRef(t *testing.T, s *Store, dagID, taskID string, assetID int64) {
	t.Helper()
	_, err := s.DB().Exec(`
		INSERT INTO task_outlet_asset_refs (dag_id, task_id, asset_id, created_at)
		VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING
	`, dagID, taskID, assetID, formatTime(s.now()))
	if err != nil {
		t.Fatalf("insert outlet ref failed: %v", err)
	}
}
