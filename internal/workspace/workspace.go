package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/droidvault/droidvault/internal/utils"
)

const (
	metadataDir = ".data"
	lockFile    = "droidvault.lock"

	indexFile         = "index.json"
	legacyRecordFile  = "record.json"
	legacyRestoreFile = "restore_record.json"
	failureLogFile    = "failed_paths.csv"
	historyDBFile     = "history.db"

	rootNameLayout = "2006-01-02"
)

var (
	ErrWorkspaceLocked = errors.New("workspace locked by another process")
)

// Workspace is one user's local backup area: <base>/<user>/ holds the index,
// the legacy stores, the failure log, the history db and one session
// directory per backup root.
type Workspace struct {
	User        string
	Root        string
	UserDir     string
	MetadataDir string

	lock *flock.Flock
}

func NewWorkspace(baseDir, user string) (*Workspace, error) {
	if user == "" {
		return nil, errors.New("workspace user cannot be empty")
	}
	root, err := utils.ResolvePath(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace path %s: %w", baseDir, err)
	}

	userDir := filepath.Join(root, user)
	metaDir := filepath.Join(userDir, metadataDir)
	return &Workspace{
		User:        user,
		Root:        root,
		UserDir:     userDir,
		MetadataDir: metaDir,
		lock:        flock.New(filepath.Join(metaDir, lockFile)),
	}, nil
}

// Lock claims the workspace for this process. The index format assumes a
// single writer, so two instances must never share a user dir.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("create directory %s: %w", w.MetadataDir, err)
	}

	locked, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}
	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the workspace, don't delete the lock file
	if !w.lock.Locked() {
		return nil
	}

	if err := w.lock.Unlock(); err != nil {
		return fmt.Errorf("unlock workspace: %w", err)
	}
	return os.Remove(w.lock.Path())
}

// Setup locks the workspace and creates its directory layout.
func (w *Workspace) Setup() error {
	if err := w.Lock(); err != nil {
		return err
	}

	slog.Info("workspace", "user", w.User, "dir", w.UserDir)
	return utils.EnsureDir(w.UserDir)
}

// SessionDir returns the directory a backup root writes into.
func (w *Workspace) SessionDir(root string) string {
	return filepath.Join(w.UserDir, root)
}

func (w *Workspace) IndexPath() string {
	return filepath.Join(w.UserDir, indexFile)
}

func (w *Workspace) LegacyRecordPath() string {
	return filepath.Join(w.UserDir, legacyRecordFile)
}

func (w *Workspace) LegacyRestoreRecordPath() string {
	return filepath.Join(w.UserDir, legacyRestoreFile)
}

func (w *Workspace) FailureLogPath() string {
	return filepath.Join(w.UserDir, failureLogFile)
}

func (w *Workspace) HistoryDBPath() string {
	return filepath.Join(w.UserDir, historyDBFile)
}

// RootName names a backup session after its calendar date. Lexical order on
// these names matches chronological order.
func RootName(t time.Time) string {
	return t.Format(rootNameLayout)
}
