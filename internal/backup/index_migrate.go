package backup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	mapset "github.com/deckarep/golang-set/v2"
)

// legacyFlatStore is the oldest store: just a set of included paths. Two key
// spellings exist in the wild; both are accepted.
type legacyFlatStore struct {
	IncludedFolders       []string `json:"included_folders"`
	IncludedFoldersCompat []string `json:"includedfolders"`
}

// legacyRootedStore groups files under the session root that captured them.
type legacyRootedStore struct {
	Roots map[string]struct {
		Description string   `json:"description"`
		Files       []string `json:"files"`
	} `json:"roots"`
}

// MigrateLegacy imports the two pre-index stores. Flat paths become
// placeholder records (known path, no version metadata); rooted entries go
// through the normal NoteBackup path. Runs at most once per Index instance
// and persists only when something was imported. Each legacy source is
// independently best-effort: unreadable or malformed files are skipped.
func (x *Index) MigrateLegacy(flatPath, rootedPath string) error {
	if x.migrated {
		return nil
	}
	x.migrated = true

	changed := false

	if keys := readLegacyFlat(flatPath); keys.Cardinality() > 0 {
		for _, raw := range keys.ToSlice() {
			key := normalizeKey(raw)
			if key == "" {
				continue
			}
			if _, ok := x.files[key]; ok {
				continue
			}
			x.files[key] = &FileRecord{Versions: []VersionEntry{}}
			changed = true
		}
	}

	if rooted := readLegacyRooted(rootedPath); rooted != nil {
		for root, info := range rooted.Roots {
			for _, rel := range info.Files {
				key := normalizeKey(rel)
				if key == "" || normalizeRoot(root) == "" {
					continue
				}
				if err := x.NoteBackup(BackupNote{Key: key, Root: root, LocalRel: key}, false); err != nil {
					return err
				}
				changed = true
			}
		}
	}

	if !changed {
		return nil
	}
	slog.Info("legacy stores migrated", "paths", x.Count())
	if err := x.Save(); err != nil {
		return fmt.Errorf("persist migrated index: %w", err)
	}
	return nil
}

func readLegacyFlat(path string) mapset.Set[string] {
	keys := mapset.NewSet[string]()
	if path == "" {
		return keys
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return keys
	}
	var store legacyFlatStore
	if err := json.Unmarshal(data, &store); err != nil {
		slog.Debug("legacy flat store unreadable, skipping", "path", path, "error", err)
		return keys
	}
	keys.Append(store.IncludedFolders...)
	keys.Append(store.IncludedFoldersCompat...)
	return keys
}

func readLegacyRooted(path string) *legacyRootedStore {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var store legacyRootedStore
	if err := json.Unmarshal(data, &store); err != nil {
		slog.Debug("legacy rooted store unreadable, skipping", "path", path, "error", err)
		return nil
	}
	return &store
}
