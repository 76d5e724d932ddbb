package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransfer(t *testing.T) (*Transfer, *fakeDevice, *Index, string) {
	t.Helper()
	destRoot := t.TempDir()
	device := newFakeDevice()
	index, err := OpenIndex(filepath.Join(t.TempDir(), "index.json"), "sdcard")
	require.NoError(t, err)
	tr := NewTransfer(device, NewPathMap(destRoot), index)
	return tr, device, index, destRoot
}

func TestCopyFile_PullsAndIndexes(t *testing.T) {
	tr, device, index, destRoot := newTestTransfer(t)
	device.pullData["/sdcard/Download/a.txt"] = "hello"

	status := tr.CopyFile(context.Background(), "/sdcard/Download/a.txt", "/sdcard/Download", "2025-01-01")
	require.Equal(t, StatusCopied, status)

	local := filepath.Join(destRoot, "Download", "a.txt")
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.True(t, index.HasPath("Download/a.txt"))
	assert.Equal(t, []string{"2025-01-01"}, index.RootsFor("Download/a.txt"))
	assert.Equal(t, "Download/a.txt", index.LocalRelFor("Download/a.txt", "2025-01-01"))

	// capture metadata comes from the landed file
	rec := index.files["Download/a.txt"]
	require.Len(t, rec.Versions, 1)
	require.NotNil(t, rec.Versions[0].RemoteSize)
	assert.Equal(t, int64(5), *rec.Versions[0].RemoteSize)
	require.NotNil(t, rec.Versions[0].RemoteMtime)
}

func TestCopyFile_SkipsIndexedKey(t *testing.T) {
	tr, device, index, _ := newTestTransfer(t)
	require.NoError(t, index.NoteBackup(BackupNote{Key: "Download/a.txt", Root: "2024-12-01"}, false))

	status := tr.CopyFile(context.Background(), "/sdcard/Download/a.txt", "/sdcard/Download", "2025-01-01")
	assert.Equal(t, StatusSkipped, status)
	assert.Empty(t, device.pulled, "skip must not touch the device")
}

func TestCopyFile_FailedPullLeavesIndexUntouched(t *testing.T) {
	tr, device, index, _ := newTestTransfer(t)
	device.pullErr["/sdcard/Download/a.txt"] = errors.New("remote object does not exist")

	status := tr.CopyFile(context.Background(), "/sdcard/Download/a.txt", "/sdcard/Download", "2025-01-01")
	assert.Equal(t, StatusFailed, status)
	assert.False(t, index.HasPath("Download/a.txt"))
}

func TestCopyFile_SanitizesPaths(t *testing.T) {
	tr, device, index, destRoot := newTestTransfer(t)
	device.pullData["/sdcard/Music/a:b.mp3"] = "x"

	status := tr.CopyFile(context.Background(), "/sdcard/Music/a:b.mp3", "/sdcard/Music", "2025-01-01")
	require.Equal(t, StatusCopied, status)

	assert.FileExists(t, filepath.Join(destRoot, "Music", "a_b.mp3"))
	assert.True(t, index.HasPath("Music/a_b.mp3"))
}

func TestCopyFile_TopLevelFileKeysAsBareName(t *testing.T) {
	tr, device, index, destRoot := newTestTransfer(t)
	device.pullData["/sdcard/notes.txt"] = "n"

	// a file selected directly under the device root is its own group base
	status := tr.CopyFile(context.Background(), "/sdcard/notes.txt", "/sdcard/notes.txt", "2025-01-01")
	require.Equal(t, StatusCopied, status)

	assert.FileExists(t, filepath.Join(destRoot, "notes.txt"))
	assert.True(t, index.HasPath("notes.txt"))
}

func TestCopyFile_SecondRunSkips(t *testing.T) {
	tr, device, _, _ := newTestTransfer(t)
	device.pullData["/sdcard/Download/a.txt"] = "v1"

	first := tr.CopyFile(context.Background(), "/sdcard/Download/a.txt", "/sdcard/Download", "2025-01-01")
	require.Equal(t, StatusCopied, first)

	// the remote content changing does not matter; identity is the path
	device.pullData["/sdcard/Download/a.txt"] = "v2"
	second := tr.CopyFile(context.Background(), "/sdcard/Download/a.txt", "/sdcard/Download", "2025-02-01")
	assert.Equal(t, StatusSkipped, second)
}

func TestWriteFailureLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.csv")

	require.NoError(t, WriteFailureLog(path, []string{"/sdcard/Download/a.txt", "/sdcard/DCIM/p.jpg"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Failed paths\n/sdcard/Download/a.txt\n/sdcard/DCIM/p.jpg\n", string(data))

	// the next session fully replaces the log
	require.NoError(t, WriteFailureLog(path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Failed paths\n", string(data))
}
