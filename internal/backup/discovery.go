package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/droidvault/droidvault/internal/adb"
)

// Per-strategy deadlines. Device shells on slow storage can take a while on
// large folders; ls -R gets the longest budget because it is the last resort.
const (
	listTimeout        = 8 * time.Second
	findTimeout        = 20 * time.Second
	lsRecursiveTimeout = 25 * time.Second
)

// Entry is a single child of a remote directory.
type Entry struct {
	Path  string
	IsDir bool
}

// Discovery enumerates remote folders and files over the device shell.
type Discovery struct {
	device Device
}

func NewDiscovery(device Device) *Discovery {
	return &Discovery{device: device}
}

// TopLevelFolders lists the directories directly under root, absolute and
// sorted. `ls -1p` marks directories with a trailing slash.
func (d *Discovery) TopLevelFolders(ctx context.Context, root string) ([]string, error) {
	out, err := d.device.Shell(ctx, "ls -1p "+adb.Quote(root), listTimeout)
	if err != nil {
		return nil, fmt.Errorf("list top-level folders: %w", err)
	}

	set := mapset.NewSet[string]()
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasSuffix(line, "/") {
			continue
		}
		name := strings.TrimSuffix(line, "/")
		if name == "" {
			continue
		}
		set.Add(path.Join(root, name))
	}

	folders := set.ToSlice()
	sort.Strings(folders)
	return folders, nil
}

// Children lists one level of a remote directory, directories first, each
// group sorted case-insensitively.
func (d *Discovery) Children(ctx context.Context, dir string) ([]Entry, error) {
	out, err := d.device.Shell(ctx, "ls -1p "+adb.Quote(dir), listTimeout)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", dir, err)
	}

	seen := mapset.NewSet[string]()
	var entries []Entry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		isDir := strings.HasSuffix(line, "/")
		name := strings.TrimSuffix(line, "/")
		if name == "" || !seen.Add(name) {
			continue
		}
		entries = append(entries, Entry{Path: path.Join(dir, name), IsDir: isDir})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(path.Base(entries[i].Path)) < strings.ToLower(path.Base(entries[j].Path))
	})
	return entries, nil
}

// IsDir reports whether the remote path exists and is a directory.
func (d *Discovery) IsDir(ctx context.Context, remote string) (bool, error) {
	out, err := d.device.Shell(ctx, fmt.Sprintf("[ -d %s ] && echo d || echo f", adb.Quote(remote)), listTimeout)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", remote, err)
	}
	return strings.TrimSpace(out) == "d", nil
}

// FilesRecursive lists every file under dir, sorted and deduplicated. It
// walks an ordered strategy chain; the first strategy that completes wins.
// An empty result from a working strategy is a valid answer. Transport-down
// errors abort the chain, every other failure falls through to the next
// strategy. When all strategies fail the folder yields nothing to copy.
func (d *Discovery) FilesRecursive(ctx context.Context, dir string) ([]string, error) {
	strategies := []struct {
		name string
		fn   func(context.Context, string) ([]string, error)
	}{
		{"find", d.findFiles},
		{"busybox-find", d.busyboxFindFiles},
		{"ls-recursive", d.lsRecursiveFiles},
	}

	for _, strat := range strategies {
		files, err := strat.fn(ctx, dir)
		if err != nil {
			if errors.Is(err, adb.ErrDeviceUnreachable) {
				return nil, err
			}
			slog.Debug("discovery strategy failed", "strategy", strat.name, "dir", dir, "error", err)
			continue
		}

		set := mapset.NewSet(files...)
		sorted := set.ToSlice()
		sort.Strings(sorted)
		return sorted, nil
	}

	slog.Warn("all discovery strategies failed", "dir", dir)
	return []string{}, nil
}

func (d *Discovery) findFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := d.device.Shell(ctx, fmt.Sprintf("find %s -type f", adb.Quote(dir)), findTimeout)
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

func (d *Discovery) busyboxFindFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := d.device.Shell(ctx, fmt.Sprintf("busybox find %s -type f", adb.Quote(dir)), findTimeout)
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

// lsRecursiveFiles parses `ls -1R` output: lines ending with ":" open a new
// directory header, entries with a trailing "/" are subdirectories (they show
// up again as headers), everything else is a file under the current header.
func (d *Discovery) lsRecursiveFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := d.device.Shell(ctx, fmt.Sprintf("ls -1R %s", adb.Quote(dir)), lsRecursiveTimeout)
	if err != nil {
		return nil, err
	}

	var files []string
	current := ""
	seenHeader := false
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, ":") {
			current = strings.TrimSuffix(line, ":")
			seenHeader = true
			continue
		}
		if !seenHeader || strings.HasSuffix(line, "/") {
			continue
		}
		files = append(files, path.Join(current, line))
	}
	return files, nil
}

func nonEmptyLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
