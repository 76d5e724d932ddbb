package backup

import (
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// excludeFile is the on-disk shape of the exclusion rule file.
type excludeFile struct {
	ExcludedFolders []string `yaml:"excluded_folders"`
}

// ExcludeRules decides which remote folders a backup run may touch. A pattern
// matches by plain substring containment against the full folder path.
type ExcludeRules struct {
	patterns []string
}

// NewExcludeRules builds a rule set from raw patterns. Empty patterns are
// dropped; they would otherwise match everything.
func NewExcludeRules(patterns []string) *ExcludeRules {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return &ExcludeRules{patterns: kept}
}

// LoadExcludeRules reads the YAML rule file at path. A missing or malformed
// file degrades to an empty rule set so a backup run never blocks on it.
func LoadExcludeRules(path string) *ExcludeRules {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("exclude rules unreadable, allowing everything", "path", path, "error", err)
		}
		return NewExcludeRules(nil)
	}

	var file excludeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		slog.Warn("exclude rules malformed, allowing everything", "path", path, "error", err)
		return NewExcludeRules(nil)
	}
	return NewExcludeRules(file.ExcludedFolders)
}

// Allow reports whether no pattern is a substring of the folder path. The
// path is normalized first so rules match device shell output and local
// spellings alike.
func (r *ExcludeRules) Allow(folder string) bool {
	folder = strings.TrimRight(strings.ReplaceAll(folder, "\\", "/"), "/")
	for _, p := range r.patterns {
		if strings.Contains(folder, p) {
			return false
		}
	}
	return true
}

// Filter returns the folders that pass Allow, preserving input order.
func (r *ExcludeRules) Filter(folders []string) []string {
	kept := make([]string, 0, len(folders))
	for _, f := range folders {
		if r.Allow(f) {
			kept = append(kept, f)
		}
	}
	return kept
}

// Patterns returns a copy of the active patterns.
func (r *ExcludeRules) Patterns() []string {
	out := make([]string, len(r.patterns))
	copy(out, r.patterns)
	return out
}
