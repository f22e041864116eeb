package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueListAndDelete(t *testing.T) {
	opts := testRootOpts(t)
	applyTestManifest(t, opts, testManifest)

	// One event queues a marker without triggering the two-asset dag.
	_, err := runCommand(t, NewEventsCommand(opts), "emit", "s3://bucket/a")
	require.NoError(t, err)

	resp, err := runCommand(t, NewQueueCommand(opts), "list")
	require.NoError(t, err)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["total_entries"])
	marker := data["queued_events"].([]any)[0].(map[string]any)
	assert.Equal(t, "consumer", marker["target_dag_id"])
	assert.Equal(t, "s3://bucket/a", marker["asset_uri"])

	_, err = runCommand(t, NewQueueCommand(opts),
		"delete", "--dag", "consumer", "--asset", "s3://bucket/a")
	require.NoError(t, err)

	resp, err = runCommand(t, NewQueueCommand(opts), "list")
	require.NoError(t, err)
	data = resp.Data.(map[string]any)
	assert.Equal(t, float64(0), data["total_entries"])

	// Deleting a marker never creates a run.
	resp, err = runCommand(t, NewRunsCommand(opts), "list", "consumer")
	require.NoError(t, err)
	data = resp.Data.(map[string]any)
	assert.Equal(t, float64(0), data["total_entries"])
}

func TestQueueListFilters(t *testing.T) {
	opts := testRootOpts(t)
	applyTestManifest(t, opts, testManifest)

	_, err := runCommand(t, NewEventsCommand(opts), "emit", "s3://bucket/a")
	require.NoError(t, err)

	resp, err := runCommand(t, NewQueueCommand(opts), "list", "--dag", "consumer")
	require.NoError(t, err)
	assert.Equal(t, float64(1), resp.Data.(map[string]any)["total_entries"])

	resp, err = runCommand(t, NewQueueCommand(opts), "list", "--asset", "s3://bucket/b")
	require.NoError(t, err)
	assert.Equal(t, float64(0), resp.Data.(map[string]any)["total_entries"])
}

func TestQueueDeleteRequiresAFlag(t *testing.T) {
	opts := testRootOpts(t)

	_, err := runCommand(t, NewQueueCommand(opts), "delete")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--dag or --asset")
}

func TestQueueDeleteNotFound(t *testing.T) {
	opts := testRootOpts(t)
	applyTestManifest(t, opts, testManifest)

	resp, err := runCommand(t, NewQueueCommand(opts),
		"delete", "--dag", "consumer", "--asset", "s3://bucket/a")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}
