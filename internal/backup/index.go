package backup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/droidvault/droidvault/internal/utils"
)

// schemaVersion guards the index file format. Any other value on disk means
// the file was written by an incompatible build and is discarded.
const schemaVersion = 1

const defaultDeviceRoot = "sdcard"

// VersionEntry records one captured copy of a file.
type VersionEntry struct {
	Root        string `json:"root"`
	CapturedAt  string `json:"captured_at"`
	LocalRel    string `json:"local_rel"`
	RemoteMtime *int64 `json:"remote_mtime,omitempty"`
	RemoteSize  *int64 `json:"remote_size,omitempty"`
}

// LatestRef points at the most recent capture of a file.
type LatestRef struct {
	Root     string `json:"root"`
	LocalRel string `json:"local_rel"`
}

// FileRecord is the full capture history of one device-relative path.
type FileRecord struct {
	Versions []VersionEntry `json:"versions"`
	Latest   *LatestRef     `json:"latest"`
}

type indexFile struct {
	SchemaVersion int                    `json:"schema_version"`
	DeviceRoot    string                 `json:"device_root"`
	Files         map[string]*FileRecord `json:"files"`
}

// BackupNote carries everything NoteBackup records about one capture.
type BackupNote struct {
	Key         string
	Root        string
	CapturedAt  time.Time // zero means now
	LocalRel    string    // empty means same as Key
	RemoteMtime *int64
	RemoteSize  *int64
}

// Index is the persistent map from device-relative paths to their capture
// history. It assumes a single owner; concurrent use needs external
// serialization (the workspace lock provides it at process level).
type Index struct {
	path       string
	deviceRoot string
	files      map[string]*FileRecord
	migrated   bool
}

// OpenIndex loads the index at path, creating it when absent. An unparsable
// file or a schema mismatch silently resets to an empty index; both the
// bootstrap and the reset are persisted immediately so the on-disk state is
// always well-formed.
func OpenIndex(path, deviceRoot string) (*Index, error) {
	x := &Index{
		path:       path,
		deviceRoot: normalizeRoot(deviceRoot),
		files:      map[string]*FileRecord{},
	}
	if x.deviceRoot == "" {
		x.deviceRoot = defaultDeviceRoot
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("index unreadable, starting fresh", "path", path, "error", err)
		}
		if err := x.Save(); err != nil {
			return nil, fmt.Errorf("bootstrap index: %w", err)
		}
		return x, nil
	}

	var doc indexFile
	if err := json.Unmarshal(data, &doc); err != nil || doc.SchemaVersion != schemaVersion {
		slog.Warn("index reset", "path", path, "schema", doc.SchemaVersion, "parse_error", err)
		if err := x.Save(); err != nil {
			return nil, fmt.Errorf("reset index: %w", err)
		}
		return x, nil
	}

	if doc.Files != nil {
		x.files = doc.Files
	}
	return x, nil
}

func (x *Index) Path() string {
	return x.path
}

func (x *Index) DeviceRoot() string {
	return x.deviceRoot
}

// Count returns the number of known device-relative paths.
func (x *Index) Count() int {
	return len(x.files)
}

// HasPath reports whether key has at least one version or a latest pointer.
// Placeholder records imported from the flat legacy store have neither and
// do not count.
func (x *Index) HasPath(key string) bool {
	key = normalizeKey(key)
	if key == "" {
		return false
	}
	rec, ok := x.files[key]
	if !ok || rec == nil {
		return false
	}
	return len(rec.Versions) > 0 || rec.Latest != nil
}

// RootsFor returns every root holding a copy of key, sorted ascending.
func (x *Index) RootsFor(key string) []string {
	rec, ok := x.files[normalizeKey(key)]
	if !ok || rec == nil {
		return nil
	}
	set := mapset.NewSet[string]()
	for _, v := range rec.Versions {
		if v.Root != "" {
			set.Add(v.Root)
		}
	}
	if rec.Latest != nil && rec.Latest.Root != "" {
		set.Add(rec.Latest.Root)
	}
	roots := set.ToSlice()
	sort.Strings(roots)
	return roots
}

// LatestRootFor returns the root of the newest capture of key, preferring the
// explicit latest pointer and falling back to the greatest known root. Empty
// when the key is unknown.
func (x *Index) LatestRootFor(key string) string {
	rec, ok := x.files[normalizeKey(key)]
	if !ok || rec == nil {
		return ""
	}
	if rec.Latest != nil && rec.Latest.Root != "" {
		return rec.Latest.Root
	}
	roots := x.RootsFor(key)
	if len(roots) == 0 {
		return ""
	}
	return roots[len(roots)-1]
}

// LocalRelFor returns the session-relative local path of key's capture in
// root, or "" when that root holds no copy.
func (x *Index) LocalRelFor(key, root string) string {
	rec, ok := x.files[normalizeKey(key)]
	if !ok || rec == nil {
		return ""
	}
	root = normalizeRoot(root)
	for _, v := range rec.Versions {
		if v.Root == root {
			return normalizeKey(v.LocalRel)
		}
	}
	if rec.Latest != nil && rec.Latest.Root == root {
		return normalizeKey(rec.Latest.LocalRel)
	}
	return ""
}

// NoteBackup records one capture: appends a version entry unless the same
// (root, localRel) pair is already present, then recomputes the latest
// pointer. A new root wins the latest slot when it compares >= the current
// one. Empty key or root is a no-op.
func (x *Index) NoteBackup(note BackupNote, flush bool) error {
	key := normalizeKey(note.Key)
	root := normalizeRoot(note.Root)
	if key == "" || root == "" {
		return nil
	}

	rec, ok := x.files[key]
	if !ok || rec == nil {
		rec = &FileRecord{Versions: []VersionEntry{}}
		x.files[key] = rec
	}

	localRel := normalizeKey(note.LocalRel)
	if localRel == "" {
		localRel = key
	}

	exists := false
	for _, v := range rec.Versions {
		if v.Root == root && v.LocalRel == localRel {
			exists = true
			break
		}
	}
	if !exists {
		capturedAt := note.CapturedAt
		if capturedAt.IsZero() {
			capturedAt = time.Now()
		}
		rec.Versions = append(rec.Versions, VersionEntry{
			Root:        root,
			CapturedAt:  capturedAt.UTC().Format(time.RFC3339),
			LocalRel:    localRel,
			RemoteMtime: note.RemoteMtime,
			RemoteSize:  note.RemoteSize,
		})
	}

	if rec.Latest == nil || root >= rec.Latest.Root {
		rec.Latest = &LatestRef{Root: root, LocalRel: localRel}
	}

	if flush {
		return x.Save()
	}
	return nil
}

// Save persists the index atomically: full serialize to a sibling temp file,
// then rename over the target.
func (x *Index) Save() error {
	doc := indexFile{
		SchemaVersion: schemaVersion,
		DeviceRoot:    x.deviceRoot,
		Files:         x.files,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := utils.EnsureParent(x.path); err != nil {
		return fmt.Errorf("ensure index dir: %w", err)
	}
	tmp := x.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index temp: %w", err)
	}
	if err := os.Rename(tmp, x.path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// normalizeKey canonicalizes a device-relative path: trimmed, forward
// slashes, no leading "./", no trailing slash.
func normalizeKey(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimRight(p, "/")
}

// normalizeRoot canonicalizes a backup root name: trimmed, forward slashes,
// no surrounding slashes.
func normalizeRoot(r string) string {
	r = strings.TrimSpace(r)
	r = strings.ReplaceAll(r, "\\", "/")
	return strings.Trim(r, "/")
}
