package backup

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/droidvault/droidvault/internal/utils"
)

// failureLogHeader is the single column header of the failed-paths file.
const failureLogHeader = "Failed paths"

// Transfer copies individual remote files into the session layout and keeps
// the index in step with what actually landed on disk.
type Transfer struct {
	device  Device
	pathmap *PathMap
	index   *Index
}

func NewTransfer(device Device, pathmap *PathMap, index *Index) *Transfer {
	return &Transfer{device: device, pathmap: pathmap, index: index}
}

// CopyFile pulls one remote file unless its key is already indexed. The key
// is the device-relative path including the top folder name; a file selected
// directly at the top folder keys as its bare name. The index is only
// updated, and immediately persisted, after a successful pull.
func (t *Transfer) CopyFile(ctx context.Context, remoteFile, baseRemoteDir, root string) CopyStatus {
	top := TopFolderName(baseRemoteDir)
	rel := t.pathmap.RelKey(remoteFile, baseRemoteDir)

	var key, localPath string
	if rel == "." {
		key = top
		localPath = t.pathmap.LocalBaseDir(baseRemoteDir)
	} else {
		key = top + "/" + rel
		localPath = t.pathmap.LocalPath(remoteFile, baseRemoteDir)
	}

	if t.index.HasPath(key) {
		return StatusSkipped
	}

	if err := utils.EnsureParent(localPath); err != nil {
		slog.Warn("copy failed", "path", key, "error", err)
		return StatusFailed
	}
	if err := t.device.Pull(ctx, remoteFile, localPath); err != nil {
		slog.Warn("copy failed", "path", key, "error", err)
		return StatusFailed
	}

	note := BackupNote{Key: key, Root: root, LocalRel: key}
	if info, err := os.Stat(localPath); err == nil {
		size := info.Size()
		mtime := info.ModTime().Unix()
		note.RemoteSize = &size
		note.RemoteMtime = &mtime
		slog.Debug("copied", "path", key, "size", humanize.Bytes(uint64(size)))
	}

	if err := t.index.NoteBackup(note, true); err != nil {
		// not recorded means not done: let the next run retry it
		slog.Error("index update failed", "path", key, "error", err)
		return StatusFailed
	}
	return StatusCopied
}

// WriteFailureLog rewrites the failed-paths file for a session: one header
// row, one path per line. An empty failed list still truncates the previous
// session's log.
func WriteFailureLog(path string, failed []string) error {
	if err := utils.EnsureParent(path); err != nil {
		return fmt.Errorf("ensure failure log dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create failure log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{failureLogHeader}); err != nil {
		return fmt.Errorf("write failure log header: %w", err)
	}
	for _, p := range failed {
		if err := w.Write([]string{p}); err != nil {
			return fmt.Errorf("write failure log row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush failure log: %w", err)
	}
	return nil
}
