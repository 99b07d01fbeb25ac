package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the CLI with args against isolated storage and data dirs.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func isolateDirs(t *testing.T) {
	t.Helper()
	t.Setenv("RECALL_STORAGE_DIR", filepath.Join(t.TempDir(), "recordings"))
	t.Setenv("RECALL_DATA_DIR", filepath.Join(t.TempDir(), "data"))
}

func TestRootCmd_Help(t *testing.T) {
	out, err := runCLI(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "recall")
	for _, sub := range []string{"note", "sync", "search", "filter", "rebuild", "status", "watch"} {
		assert.Contains(t, out, sub)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "recall")

	out, err = runCLI(t, "version", "--short")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")

	out, err = runCLI(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
}

func TestNoteThenSearch(t *testing.T) {
	isolateDirs(t)

	out, err := runCLI(t, "note", "remember to rotate the staging credentials")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved")

	out, err = runCLI(t, "search", "staging credentials")
	require.NoError(t, err)
	assert.Contains(t, out, "1 result(s)")
	assert.Contains(t, out, "[note]")
}

func TestNote_RejectsUnknownSource(t *testing.T) {
	isolateDirs(t)

	_, err := runCLI(t, "note", "--source", "carrier-pigeon", "some text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func TestSyncCmd_NoDocuments(t *testing.T) {
	isolateDirs(t)

	out, err := runCLI(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Already up to date.")
}

func TestChangesCmd_ShowsPendingWithoutApplying(t *testing.T) {
	isolateDirs(t)

	_, err := runCLI(t, "note", "--sync=false", "pending entry")
	require.NoError(t, err)

	out, err := runCLI(t, "changes")
	require.NoError(t, err)
	assert.Contains(t, out, "new:")
	assert.Contains(t, out, "1 change(s) pending")

	// Still pending: changes must not sync.
	out, err = runCLI(t, "changes")
	require.NoError(t, err)
	assert.Contains(t, out, "1 change(s) pending")
}

func TestFilterCmd_BySourceAndDates(t *testing.T) {
	isolateDirs(t)

	_, err := runCLI(t, "note", "--source", "zoom", "standup recap")
	require.NoError(t, err)
	_, err = runCLI(t, "note", "plain note entry")
	require.NoError(t, err)

	out, err := runCLI(t, "filter", "--source", "zoom")
	require.NoError(t, err)
	assert.Contains(t, out, "1 result(s)")
	assert.Contains(t, out, "[zoom]")

	_, err = runCLI(t, "filter", "--from", "not-a-date")
	require.Error(t, err)
}

func TestStatusCmd(t *testing.T) {
	isolateDirs(t)

	_, err := runCLI(t, "note", "status fixture")
	require.NoError(t, err)

	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "tracked:")
	assert.Contains(t, out, "indexed:")
}

func TestConfigInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := runCLI(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	_, err = runCLI(t, "config", "init", "--config", path)
	require.Error(t, err, "refuses to overwrite without --force")

	_, err = runCLI(t, "config", "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestConfigShowCmd(t *testing.T) {
	isolateDirs(t)

	out, err := runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "chunk_size: 2000")
}

func TestRebuildCmd(t *testing.T) {
	isolateDirs(t)

	_, err := runCLI(t, "note", "rebuild fixture one")
	require.NoError(t, err)
	_, err = runCLI(t, "note", "rebuild fixture two")
	require.NoError(t, err)

	out, err := runCLI(t, "rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "2 added")
}
