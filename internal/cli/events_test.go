package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
assets:
  - uri: s3://bucket/a
  - uri: s3://bucket/b
dags:
  - dag_id: consumer
    schedule_assets:
      - s3://bucket/a
      - s3://bucket/b
`

// applyTestManifest writes the manifest to disk and applies it.
func applyTestManifest(t *testing.T, opts *RootOptions, manifest string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	_, err := runCommand(t, NewDefsCommand(opts), "apply", path)
	require.NoError(t, err)
}

func TestEventsEmitAndTrigger(t *testing.T) {
	opts := testRootOpts(t)
	applyTestManifest(t, opts, testManifest)

	resp, err := runCommand(t, NewEventsCommand(opts), "emit", "s3://bucket/a")
	require.NoError(t, err)
	data := resp.Data.(map[string]any)
	assert.Empty(t, data["created_dagruns"], "partial fulfillment must not trigger")
	assert.Equal(t, float64(-1), data["source"].(map[string]any)["source_map_index"])
	assert.Equal(t, true, data["extra"].(map[string]any)["from_rest_api"])

	resp, err = runCommand(t, NewEventsCommand(opts), "emit", "s3://bucket/b")
	require.NoError(t, err)
	data = resp.Data.(map[string]any)
	runs := data["created_dagruns"].([]any)
	require.Len(t, runs, 1, "completing the set triggers exactly one run")

	// The run is visible through the runs command.
	resp, err = runCommand(t, NewRunsCommand(opts), "list", "consumer")
	require.NoError(t, err)
	data = resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["total_entries"])
	run := data["dag_runs"].([]any)[0].(map[string]any)
	assert.Equal(t, "asset_triggered", run["run_type"])
}

func TestEventsEmitUnknownAsset(t *testing.T) {
	opts := testRootOpts(t)
	applyTestManifest(t, opts, testManifest)

	resp, err := runCommand(t, NewEventsCommand(opts), "emit", "s3://bucket/missing")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestEventsEmitWithProvenance(t *testing.T) {
	opts := testRootOpts(t)
	applyTestManifest(t, opts, testManifest)

	resp, err := runCommand(t, NewEventsCommand(opts), "emit", "s3://bucket/a",
		"--source-dag", "producer", "--source-task", "t1", "--source-run", "r1", "--map-index", "2")
	require.NoError(t, err)
	source := resp.Data.(map[string]any)["source"].(map[string]any)
	assert.Equal(t, "producer", source["source_dag_id"])
	assert.Equal(t, float64(2), source["source_map_index"])
}

func TestEventsList(t *testing.T) {
	opts := testRootOpts(t)
	applyTestManifest(t, opts, testManifest)

	for _, uri := range []string{"s3://bucket/a", "s3://bucket/a", "s3://bucket/b"} {
		_, err := runCommand(t, NewEventsCommand(opts), "emit", uri)
		require.NoError(t, err)
	}

	resp, err := runCommand(t, NewEventsCommand(opts), "list", "--asset-id", "1")
	require.NoError(t, err)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["total_entries"])

	// An unused filter flag stays out of the query entirely.
	resp, err = runCommand(t, NewEventsCommand(opts), "list")
	require.NoError(t, err)
	data = resp.Data.(map[string]any)
	assert.Equal(t, float64(3), data["total_entries"])
}
