package backup

import (
	"path"
	"path/filepath"
	"strings"
)

// safeCharReplacer rewrites characters that are legal on device filesystems
// but not on every host filesystem. Extend pairwise as new offenders show up.
var safeCharReplacer = strings.NewReplacer(
	":", "_",
)

func sanitizeSegment(seg string) string {
	return safeCharReplacer.Replace(seg)
}

// TopFolderName returns the sanitized last segment of a remote directory.
// "/sdcard/Download/" -> "Download".
func TopFolderName(remoteDir string) string {
	return sanitizeSegment(path.Base(path.Clean(remoteDir)))
}

// PathMap translates remote device paths into local paths under a fixed
// destination root. Remote paths are POSIX; local paths use host separators.
type PathMap struct {
	destRoot string
}

func NewPathMap(destRoot string) *PathMap {
	return &PathMap{destRoot: destRoot}
}

func (m *PathMap) DestRoot() string {
	return m.destRoot
}

// RelKey returns the device-relative path of remoteFile under baseRemoteDir:
// forward slashes, each segment sanitized. Returns "." when the two coincide.
func (m *PathMap) RelKey(remoteFile, baseRemoteDir string) string {
	rel := posixRel(remoteFile, baseRemoteDir)
	if rel == "." {
		return "."
	}
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = sanitizeSegment(p)
	}
	return strings.Join(parts, "/")
}

// LocalPath returns where remoteFile lands on the host: destRoot, then the
// sanitized top folder name, then the sanitized relative path.
func (m *PathMap) LocalPath(remoteFile, baseRemoteDir string) string {
	base := m.LocalBaseDir(baseRemoteDir)
	rel := m.RelKey(remoteFile, baseRemoteDir)
	if rel == "." {
		return base
	}
	return filepath.Join(base, filepath.FromSlash(rel))
}

// LocalBaseDir returns the host directory that mirrors baseRemoteDir.
func (m *PathMap) LocalBaseDir(baseRemoteDir string) string {
	return filepath.Join(m.destRoot, TopFolderName(baseRemoteDir))
}

// posixRel is a pure-POSIX relative path: it never consults the host OS
// separator. Both inputs are cleaned first.
func posixRel(target, base string) string {
	t := path.Clean(target)
	b := path.Clean(base)
	if t == b {
		return "."
	}
	if b == "/" {
		return strings.TrimPrefix(t, "/")
	}
	if strings.HasPrefix(t, b+"/") {
		return t[len(b)+1:]
	}

	tParts := strings.Split(strings.TrimPrefix(t, "/"), "/")
	bParts := strings.Split(strings.TrimPrefix(b, "/"), "/")
	common := 0
	for common < len(tParts) && common < len(bParts) && tParts[common] == bParts[common] {
		common++
	}
	segs := make([]string, 0, len(bParts)-common+len(tParts)-common)
	for i := common; i < len(bParts); i++ {
		segs = append(segs, "..")
	}
	segs = append(segs, tParts[common:]...)
	return strings.Join(segs, "/")
}
