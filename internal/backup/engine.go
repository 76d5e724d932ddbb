package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/droidvault/droidvault/internal/adb"
)

var (
	// ErrRunInProgress means another backup or restore holds this engine.
	ErrRunInProgress = errors.New("another run is in progress")
)

// Progress is a per-file notification during a run.
type Progress struct {
	Done   int
	Total  int
	Path   string
	Status CopyStatus
}

type ProgressFunc func(Progress)

// Selection is one user-chosen remote path for an explicit backup.
type Selection struct {
	Path  string
	IsDir bool
}

// BackupStats tallies one backup run. Skipped files count toward neither
// copied nor failed.
type BackupStats struct {
	Copied  int
	Failed  int
	Skipped int
}

// EngineConfig wires an Engine. Device, Index, SessionDir and UserDir are
// required; the rest have working defaults.
type EngineConfig struct {
	Device     Device
	Index      *Index
	Rules      *ExcludeRules
	DeviceRoot string // absolute remote root, default /sdcard
	SessionDir string // local destination of this session's pulls
	UserDir    string // local parent of all session roots, used by restore
	Root       string // session root name, default today's date

	FailureLogPath string // default <UserDir>/failed_paths.csv
	OnProgress     ProgressFunc
}

// Engine drives whole backup and restore runs over the collaborators. One
// run at a time; a second concurrent call reports ErrRunInProgress.
type Engine struct {
	mu        sync.Mutex
	device    Device
	discovery *Discovery
	rules     *ExcludeRules
	pathmap   *PathMap
	transfer  *Transfer
	index     *Index

	deviceRoot     string
	userDir        string
	root           string
	failureLogPath string
	onProgress     ProgressFunc
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Device == nil {
		return nil, errors.New("engine: device is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("engine: index is required")
	}
	if cfg.SessionDir == "" || cfg.UserDir == "" {
		return nil, errors.New("engine: session and user directories are required")
	}

	if cfg.DeviceRoot == "" {
		cfg.DeviceRoot = "/sdcard"
	}
	if cfg.Root == "" {
		cfg.Root = time.Now().Format("2006-01-02")
	}
	if cfg.Rules == nil {
		cfg.Rules = NewExcludeRules(nil)
	}
	if cfg.FailureLogPath == "" {
		cfg.FailureLogPath = filepath.Join(cfg.UserDir, "failed_paths.csv")
	}

	pathmap := NewPathMap(cfg.SessionDir)
	return &Engine{
		device:         cfg.Device,
		discovery:      NewDiscovery(cfg.Device),
		rules:          cfg.Rules,
		pathmap:        pathmap,
		transfer:       NewTransfer(cfg.Device, pathmap, cfg.Index),
		index:          cfg.Index,
		deviceRoot:     strings.TrimRight(path.Clean(cfg.DeviceRoot), "/"),
		userDir:        cfg.UserDir,
		root:           cfg.Root,
		failureLogPath: cfg.FailureLogPath,
		onProgress:     cfg.OnProgress,
	}, nil
}

// Root returns the session root name this engine writes under.
func (e *Engine) Root() string {
	return e.root
}

// Backup runs a filtered full backup: every allowed top-level folder under
// the device root. The reachability probe gates the whole run.
func (e *Engine) Backup(ctx context.Context) (*BackupStats, error) {
	if !e.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.mu.Unlock()

	if !e.device.Reachable(ctx) {
		return nil, fmt.Errorf("probe device: %w", adb.ErrDeviceUnreachable)
	}

	folders, err := e.discovery.TopLevelFolders(ctx, e.deviceRoot)
	if err != nil {
		return nil, fmt.Errorf("enumerate device root: %w", err)
	}
	allowed := e.rules.Filter(folders)
	slog.Info("backup start", "root", e.root, "folders", len(allowed), "excluded", len(folders)-len(allowed))

	units, err := e.enumerate(ctx, allowed)
	if err != nil {
		return nil, err
	}
	return e.copyUnits(ctx, units)
}

// BackupSelection runs an explicit backup of the given paths. Directories
// expand recursively, everything is deduplicated, and files regroup by their
// first path segment under the device root so keys keep their top folder.
// Paths outside the device root are logged and dropped, never fatal.
func (e *Engine) BackupSelection(ctx context.Context, selections []Selection) (*BackupStats, error) {
	if !e.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.mu.Unlock()

	if !e.device.Reachable(ctx) {
		return nil, fmt.Errorf("probe device: %w", adb.ErrDeviceUnreachable)
	}

	resolved := mapset.NewSet[string]()
	for _, sel := range selections {
		if ctx.Err() != nil {
			break
		}
		p := path.Clean(sel.Path)
		if !sel.IsDir {
			resolved.Add(p)
			continue
		}
		files, err := e.discovery.FilesRecursive(ctx, p)
		if err != nil {
			return nil, err
		}
		resolved.Append(files...)
	}

	rootPrefix := e.deviceRoot + "/"
	groups := map[string][]string{}
	paths := resolved.ToSlice()
	sort.Strings(paths)
	for _, p := range paths {
		if !strings.HasPrefix(p, rootPrefix) {
			slog.Warn("selection outside device root, skipping", "path", p, "device_root", e.deviceRoot)
			continue
		}
		rel := strings.TrimPrefix(p, rootPrefix)
		seg, _, _ := strings.Cut(rel, "/")
		if seg == "" {
			continue
		}
		base := rootPrefix + seg
		groups[base] = append(groups[base], p)
	}

	bases := make([]string, 0, len(groups))
	for base := range groups {
		bases = append(bases, base)
	}
	sort.Strings(bases)

	units := make([]copyUnit, 0, len(bases))
	total := 0
	for _, base := range bases {
		units = append(units, copyUnit{base: base, files: groups[base]})
		total += len(groups[base])
	}
	slog.Info("backup start", "root", e.root, "selections", len(selections), "files", total)

	return e.copyUnits(ctx, units)
}

// copyUnit is one top folder's worth of copy work.
type copyUnit struct {
	base  string
	files []string
}

// enumerate lists every file under each folder. Strategy failures inside a
// folder already degrade to an empty listing; only a dead transport aborts.
func (e *Engine) enumerate(ctx context.Context, folders []string) ([]copyUnit, error) {
	units := make([]copyUnit, 0, len(folders))
	for _, folder := range folders {
		if ctx.Err() != nil {
			break
		}
		files, err := e.discovery.FilesRecursive(ctx, folder)
		if err != nil {
			return nil, err
		}
		slog.Debug("folder enumerated", "folder", folder, "files", len(files))
		units = append(units, copyUnit{base: folder, files: files})
	}
	return units, nil
}

// copyUnits drives the per-file loop. Cancellation is cooperative, checked
// between files; the failure log is written exactly once for the session,
// cancelled or not, and fully replaces the previous one.
func (e *Engine) copyUnits(ctx context.Context, units []copyUnit) (*BackupStats, error) {
	stats := &BackupStats{}
	var failed []string

	total := 0
	for _, u := range units {
		total += len(u.files)
	}

	done := 0
copying:
	for _, u := range units {
		for _, remote := range u.files {
			if ctx.Err() != nil {
				slog.Info("backup cancelled", "done", done, "total", total)
				break copying
			}
			status := e.transfer.CopyFile(ctx, remote, u.base, e.root)
			done++
			switch status {
			case StatusCopied:
				stats.Copied++
			case StatusSkipped:
				stats.Skipped++
			case StatusFailed:
				stats.Failed++
				failed = append(failed, remote)
			}
			e.notify(Progress{Done: done, Total: total, Path: remote, Status: status})
		}
	}

	if err := WriteFailureLog(e.failureLogPath, failed); err != nil {
		return stats, fmt.Errorf("write failure log: %w", err)
	}

	slog.Info("backup done", "root", e.root, "copied", stats.Copied, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

func (e *Engine) notify(p Progress) {
	if e.onProgress != nil {
		e.onProgress(p)
	}
}
