package backup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droidvault/droidvault/internal/adb"
)

func TestTopLevelFolders(t *testing.T) {
	device := newFakeDevice()
	device.shellOut["ls -1p '/sdcard'"] = "Download/\nDCIM/\nnotes.txt\nDownload/\n\nMusic/\n"

	d := NewDiscovery(device)
	folders, err := d.TopLevelFolders(context.Background(), "/sdcard")
	require.NoError(t, err)

	// files dropped, duplicates collapsed, sorted absolute paths
	assert.Equal(t, []string{"/sdcard/DCIM", "/sdcard/Download", "/sdcard/Music"}, folders)
}

func TestTopLevelFolders_ShellError(t *testing.T) {
	device := newFakeDevice()
	device.shellErr["ls -1p '/sdcard'"] = errors.New("ls: /sdcard: No such file or directory")

	d := NewDiscovery(device)
	_, err := d.TopLevelFolders(context.Background(), "/sdcard")
	assert.Error(t, err)
}

func TestChildren_DirsFirstCaseInsensitive(t *testing.T) {
	device := newFakeDevice()
	device.shellOut["ls -1p '/sdcard/DCIM'"] = "zebra.jpg\nCamera/\nalbum/\nArchive.zip\n"

	d := NewDiscovery(device)
	entries, err := d.Children(context.Background(), "/sdcard/DCIM")
	require.NoError(t, err)

	want := []Entry{
		{Path: "/sdcard/DCIM/album", IsDir: true},
		{Path: "/sdcard/DCIM/Camera", IsDir: true},
		{Path: "/sdcard/DCIM/Archive.zip", IsDir: false},
		{Path: "/sdcard/DCIM/zebra.jpg", IsDir: false},
	}
	assert.Equal(t, want, entries)
}

func TestIsDir(t *testing.T) {
	device := newFakeDevice()
	device.shellOut["[ -d '/sdcard/Download' ] && echo d || echo f"] = "d\n"
	device.shellOut["[ -d '/sdcard/notes.txt' ] && echo d || echo f"] = "f\n"

	d := NewDiscovery(device)

	isDir, err := d.IsDir(context.Background(), "/sdcard/Download")
	require.NoError(t, err)
	assert.True(t, isDir)

	isDir, err = d.IsDir(context.Background(), "/sdcard/notes.txt")
	require.NoError(t, err)
	assert.False(t, isDir)
}

func TestIsDir_ShellError(t *testing.T) {
	device := newFakeDevice()
	device.shellErr["[ -d '/sdcard/Download' ] && echo d || echo f"] = fmt.Errorf("adb shell: %w", adb.ErrDeviceUnreachable)

	d := NewDiscovery(device)
	_, err := d.IsDir(context.Background(), "/sdcard/Download")
	assert.ErrorIs(t, err, adb.ErrDeviceUnreachable)
}

func TestFilesRecursive_FindStrategy(t *testing.T) {
	device := newFakeDevice()
	device.shellOut["find '/sdcard/Download' -type f"] = "/sdcard/Download/b.txt\n/sdcard/Download/a.txt\n/sdcard/Download/a.txt\n"

	d := NewDiscovery(device)
	files, err := d.FilesRecursive(context.Background(), "/sdcard/Download")
	require.NoError(t, err)
	assert.Equal(t, []string{"/sdcard/Download/a.txt", "/sdcard/Download/b.txt"}, files)
}

func TestFilesRecursive_FallsBackToBusybox(t *testing.T) {
	device := newFakeDevice()
	device.shellErr["find '/sdcard/Download' -type f"] = errors.New("sh: find: not found")
	device.shellOut["busybox find '/sdcard/Download' -type f"] = "/sdcard/Download/x.bin\n"

	d := NewDiscovery(device)
	files, err := d.FilesRecursive(context.Background(), "/sdcard/Download")
	require.NoError(t, err)
	assert.Equal(t, []string{"/sdcard/Download/x.bin"}, files)
}

func TestFilesRecursive_LsRecursiveParser(t *testing.T) {
	device := newFakeDevice()
	device.shellErr["find '/sdcard/Download' -type f"] = errors.New("not found")
	device.shellErr["busybox find '/sdcard/Download' -type f"] = errors.New("not found")
	device.shellOut["ls -1R '/sdcard/Download'"] = "" +
		"/sdcard/Download:\n" +
		"a.txt\n" +
		"Sub/\n" +
		"\n" +
		"/sdcard/Download/Sub:\n" +
		"b.txt\n"

	d := NewDiscovery(device)
	files, err := d.FilesRecursive(context.Background(), "/sdcard/Download")
	require.NoError(t, err)
	assert.Equal(t, []string{"/sdcard/Download/Sub/b.txt", "/sdcard/Download/a.txt"}, files)
}

func TestFilesRecursive_AllStrategiesFail(t *testing.T) {
	device := newFakeDevice()
	device.shellErr["find '/sdcard/Download' -type f"] = errors.New("boom")
	device.shellErr["busybox find '/sdcard/Download' -type f"] = errors.New("boom")
	device.shellErr["ls -1R '/sdcard/Download'"] = errors.New("boom")

	d := NewDiscovery(device)
	files, err := d.FilesRecursive(context.Background(), "/sdcard/Download")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFilesRecursive_EmptyFolderIsValid(t *testing.T) {
	device := newFakeDevice()
	device.shellOut["find '/sdcard/Empty' -type f"] = "\n"

	d := NewDiscovery(device)
	files, err := d.FilesRecursive(context.Background(), "/sdcard/Empty")
	require.NoError(t, err)
	assert.Empty(t, files)

	// the chain must stop at the first working strategy
	for _, cmd := range device.shellSeen {
		assert.NotContains(t, cmd, "busybox")
	}
}

func TestFilesRecursive_UnreachableAbortsChain(t *testing.T) {
	device := newFakeDevice()
	device.shellErr["find '/sdcard/Download' -type f"] = fmt.Errorf("adb shell: %w", adb.ErrDeviceUnreachable)

	d := NewDiscovery(device)
	_, err := d.FilesRecursive(context.Background(), "/sdcard/Download")
	require.Error(t, err)
	assert.ErrorIs(t, err, adb.ErrDeviceUnreachable)

	// no fallback attempts after a transport-down error
	assert.Len(t, device.shellSeen, 1)
}
