package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRootOpts points commands at a fresh database in JSON mode.
func testRootOpts(t *testing.T) *RootOptions {
	t.Helper()
	return &RootOptions{
		Database: filepath.Join(t.TempDir(), "test.db"),
		Format:   "json",
	}
}

// runCommand executes a command group with args and decodes the JSON reply.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (CLIResponse, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()

	var resp CLIResponse
	if buf.Len() > 0 {
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	}
	return resp, err
}

func TestAssetsRegisterAndGet(t *testing.T) {
	opts := testRootOpts(t)

	resp, err := runCommand(t, NewAssetsCommand(opts),
		"register", "s3://bucket/key", "--name", "orders", "--group", "raw")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	resp, err = runCommand(t, NewAssetsCommand(opts), "get", "s3://bucket/key")
	require.NoError(t, err)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s3://bucket/key", data["uri"])
	assert.Equal(t, "orders", data["name"])
}

func TestAssetsGetNotFound(t *testing.T) {
	opts := testRootOpts(t)

	resp, err := runCommand(t, NewAssetsCommand(opts), "get", "s3://bucket/missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestAssetsRegisterInvalidExtra(t *testing.T) {
	opts := testRootOpts(t)

	_, err := runCommand(t, NewAssetsCommand(opts),
		"register", "s3://bucket/key", "--extra", "{not json}")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --extra JSON")
}

func TestAssetsRegisterRedactsOutput(t *testing.T) {
	opts := testRootOpts(t)

	resp, err := runCommand(t, NewAssetsCommand(opts),
		"register", "s3://bucket/key", "--extra", `{"password":"hunter2"}`)
	require.NoError(t, err)
	data := resp.Data.(map[string]any)
	extra := data["extra"].(map[string]any)
	assert.Equal(t, "***", extra["password"])
}

func TestAssetsList(t *testing.T) {
	opts := testRootOpts(t)

	for _, uri := range []string{"s3://bucket/a", "s3://bucket/b", "gcs://other/c"} {
		_, err := runCommand(t, NewAssetsCommand(opts), "register", uri)
		require.NoError(t, err)
	}

	resp, err := runCommand(t, NewAssetsCommand(opts),
		"list", "--uri-pattern", "s3://", "--order-by", "-uri")
	require.NoError(t, err)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["total_entries"])
	assets := data["assets"].([]any)
	require.Len(t, assets, 2)
	assert.Equal(t, "s3://bucket/b", assets[0].(map[string]any)["uri"])
}

func TestAssetsListInvalidOrderBy(t *testing.T) {
	opts := testRootOpts(t)

	resp, err := runCommand(t, NewAssetsCommand(opts), "list", "--order-by", "fake")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Ordering with 'fake' is disallowed")
}

func TestAssetsSetExtra(t *testing.T) {
	opts := testRootOpts(t)

	_, err := runCommand(t, NewAssetsCommand(opts), "register", "s3://bucket/key")
	require.NoError(t, err)

	resp, err := runCommand(t, NewAssetsCommand(opts),
		"set-extra", "s3://bucket/key", "--extra", `{"owner":"data-eng"}`)
	require.NoError(t, err)
	data := resp.Data.(map[string]any)
	extra := data["extra"].(map[string]any)
	assert.Equal(t, "data-eng", extra["owner"])
}
