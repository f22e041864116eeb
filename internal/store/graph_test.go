package store

import (
	"context"
	"testing"

	"github.com/assetline/assetline/internal/model"
)

func TestReplaceDagRefs_BuildsBothEdgeKinds(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	a := createTestAsset(t, s, "s3://bucket/a")
	b := createTestAsset(t, s, "s3://bucket/b")

	err := s.ReplaceDagRefs(ctx, "consumer",
		[]string{"s3://bucket/a", "s3://bucket/b"},
		[]TaskOutlet{{TaskID: "produce_b", AssetURI: "s3://bucket/b"}})
	if err != nil {
		t.Fatalf("ReplaceDagRefs failed: %v", err)
	}

	required, err := s.RequiredAssetsOf(ctx, s.DB(), "consumer")
	if err != nil {
		t.Fatal(err)
	}
	if len(required) != 2 || required[0] != a.ID || required[1] != b.ID {
		t.Errorf("required assets = %v, want [%d %d]", required, a.ID, b.ID)
	}

	producers, err := s.ProducingTasksOf(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(producers) != 1 || producers[0].TaskID != "produce_b" {
		t.Errorf("producers = %v", producers)
	}
	// Outlets do not make a dag a consumer of the asset.
	consumers, err := s.ConsumersOf(ctx, s.DB(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(consumers) != 1 || consumers[0] != "consumer" {
		t.Errorf("consumers = %v", consumers)
	}
}

func TestReplaceDagRefs_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	a := createTestAsset(t, s, "s3://bucket/a")

	for i := 0; i < 3; i++ {
		if err := s.ReplaceDagRefs(ctx, "consumer", []string{"s3://bucket/a"}, nil); err != nil {
			t.Fatalf("ReplaceDagRefs pass %d failed: %v", i, err)
		}
	}

	refs, err := s.consumingRefs(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 {
		t.Errorf("got %d schedule refs, want 1", len(refs))
	}
}

func TestReplaceDagRefs_PrunesRemovedEdges(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	a := createTestAsset(t, s, "s3://bucket/a")
	createTestAsset(t, s, "s3://bucket/b")

	err := s.ReplaceDagRefs(ctx, "consumer",
		[]string{"s3://bucket/a", "s3://bucket/b"},
		[]TaskOutlet{{TaskID: "produce_a", AssetURI: "s3://bucket/a"}})
	if err != nil {
		t.Fatal(err)
	}

	// Redefine without b and without any outlets.
	if err := s.ReplaceDagRefs(ctx, "consumer", []string{"s3://bucket/a"}, nil); err != nil {
		t.Fatal(err)
	}

	required, err := s.RequiredAssetsOf(ctx, s.DB(), "consumer")
	if err != nil {
		t.Fatal(err)
	}
	if len(required) != 1 || required[0] != a.ID {
		t.Errorf("required assets = %v, want [%d]", required, a.ID)
	}
	producers, err := s.ProducingTasksOf(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(producers) != 0 {
		t.Errorf("outlet refs survived prune: %v", producers)
	}
	if _, err := s.GetAsset(ctx, "s3://bucket/b"); err != nil {
		t.Errorf("pruning edges must not delete the asset: %v", err)
	}
}

func TestReplaceDagRefs_UnknownAssetRejected(t *testing.T) {
	s := createTestStore(t)
	err := s.ReplaceDagRefs(context.Background(), "consumer", []string{"s3://bucket/missing"}, nil)
	if !model.IsNotFound(err) {
		t.Errorf("expected NotFound for unregistered asset, got %v", err)
	}
}

func TestConsumersOf_MultipleDags(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	a := createTestAsset(t, s, "s3://bucket/a")
	addScheduleRef(t, s, "dag_b", a.ID)
	addScheduleRef(t, s, "dag_a", a.ID)
	addOutletRef(t, s, "dag_c", "task1", a.ID)

	consumers, err := s.ConsumersOf(ctx, s.DB(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	// Sorted, and the producer-only dag excluded.
	if len(consumers) != 2 || consumers[0] != "dag_a" || consumers[1] != "dag_b" {
		t.Errorf("consumers = %v, want [dag_a dag_b]", consumers)
	}
}
