package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceSetup_CreatesLayout(t *testing.T) {
	base := t.TempDir()

	w, err := NewWorkspace(base, "alice")
	require.NoError(t, err)

	require.NoError(t, w.Setup())
	t.Cleanup(func() { _ = w.Unlock() })

	assert.DirExists(t, w.UserDir)
	assert.DirExists(t, w.MetadataDir)
	assert.Equal(t, filepath.Join(base, "alice"), w.UserDir)
}

func TestWorkspacePaths(t *testing.T) {
	w, err := NewWorkspace(t.TempDir(), "alice")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(w.UserDir, "index.json"), w.IndexPath())
	assert.Equal(t, filepath.Join(w.UserDir, "record.json"), w.LegacyRecordPath())
	assert.Equal(t, filepath.Join(w.UserDir, "restore_record.json"), w.LegacyRestoreRecordPath())
	assert.Equal(t, filepath.Join(w.UserDir, "failed_paths.csv"), w.FailureLogPath())
	assert.Equal(t, filepath.Join(w.UserDir, "history.db"), w.HistoryDBPath())
	assert.Equal(t, filepath.Join(w.UserDir, "2025-01-01"), w.SessionDir("2025-01-01"))
}

func TestWorkspaceRequiresUser(t *testing.T) {
	_, err := NewWorkspace(t.TempDir(), "")
	assert.Error(t, err)
}

func TestWorkspaceLocking_SingleInstance(t *testing.T) {
	base := t.TempDir()

	w1, err := NewWorkspace(base, "alice")
	require.NoError(t, err)
	w2, err := NewWorkspace(base, "alice")
	require.NoError(t, err)

	require.NoError(t, w1.Lock())

	err = w2.Lock()
	require.ErrorIs(t, err, ErrWorkspaceLocked)

	lockPath := filepath.Join(base, "alice", ".data", "droidvault.lock")
	assert.FileExists(t, lockPath)

	require.NoError(t, w1.Unlock())
	_, statErr := os.Stat(lockPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)

	require.NoError(t, w2.Lock())
	t.Cleanup(func() { _ = w2.Unlock() })
}

func TestWorkspaceLocking_DifferentUsersIndependent(t *testing.T) {
	base := t.TempDir()

	w1, err := NewWorkspace(base, "alice")
	require.NoError(t, err)
	w2, err := NewWorkspace(base, "bob")
	require.NoError(t, err)

	require.NoError(t, w1.Lock())
	require.NoError(t, w2.Lock())
	t.Cleanup(func() {
		_ = w1.Unlock()
		_ = w2.Unlock()
	})
}

func TestRootName(t *testing.T) {
	assert.Equal(t, "2025-03-09", RootName(time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)))

	// lexical order tracks chronology
	earlier := RootName(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	later := RootName(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, earlier, later)
}
