package backup

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/droidvault/droidvault/internal/adb"
	"github.com/droidvault/droidvault/internal/utils"
)

// RestoreItem selects one indexed file to push back. An empty Root means the
// newest known capture.
type RestoreItem struct {
	Key  string
	Root string
}

// RestoreStats tallies one restore run.
type RestoreStats struct {
	Restored int
	Failed   int
}

// Restore pushes selected captures back to the device. Item failures
// (unknown root, missing local copy, push error) are counted and logged but
// never abort the run; only an unreachable device is fatal. Cancellation is
// checked between items.
func (e *Engine) Restore(ctx context.Context, items []RestoreItem) (*RestoreStats, error) {
	if !e.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.mu.Unlock()

	if !e.device.Reachable(ctx) {
		return nil, fmt.Errorf("probe device: %w", adb.ErrDeviceUnreachable)
	}

	stats := &RestoreStats{}
	total := len(items)
	slog.Info("restore start", "items", total)

	for i, item := range items {
		if ctx.Err() != nil {
			slog.Info("restore cancelled", "done", i, "total", total)
			break
		}

		key := normalizeKey(item.Key)
		if key == "" {
			stats.Failed++
			continue
		}

		root := normalizeRoot(item.Root)
		if root == "" {
			root = e.index.LatestRootFor(key)
		}
		if root == "" {
			slog.Warn("restore: no known capture", "path", key)
			stats.Failed++
			e.notify(Progress{Done: i + 1, Total: total, Path: key, Status: StatusFailed})
			continue
		}

		localRel := e.index.LocalRelFor(key, root)
		if localRel == "" {
			// legacy captures recorded no local path; mirror layout is the best guess
			localRel = key
		}
		local := filepath.Join(e.userDir, root, filepath.FromSlash(localRel))
		if !utils.FileExists(local) {
			slog.Warn("restore: local copy missing", "path", key, "root", root, "local", local)
			stats.Failed++
			e.notify(Progress{Done: i + 1, Total: total, Path: key, Status: StatusFailed})
			continue
		}

		remote := path.Join(e.deviceRoot, key)
		status := StatusCopied
		if err := e.restoreOne(ctx, local, remote); err != nil {
			slog.Warn("restore failed", "path", key, "root", root, "error", err)
			stats.Failed++
			status = StatusFailed
		} else {
			stats.Restored++
		}
		e.notify(Progress{Done: i + 1, Total: total, Path: key, Status: status})
	}

	slog.Info("restore done", "restored", stats.Restored, "failed", stats.Failed)
	return stats, nil
}

func (e *Engine) restoreOne(ctx context.Context, local, remote string) error {
	if err := e.device.EnsureDir(ctx, path.Dir(remote)); err != nil {
		return err
	}
	if err := e.device.Push(ctx, local, remote); err != nil {
		return err
	}
	return nil
}
