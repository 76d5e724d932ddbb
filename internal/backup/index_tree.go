package backup

import (
	"sort"
	"strings"
)

// Node is one position in the restorable-file tree. The two concrete shapes
// are DirNode and FileNode; there is no third.
type Node interface {
	isNode()
}

// DirNode is an interior directory with named children.
type DirNode struct {
	Children map[string]Node
}

// FileNode is a leaf: a backed-up file plus every root holding a copy of it.
type FileNode struct {
	Roots []string
}

func (*DirNode) isNode()  {}
func (*FileNode) isNode() {}

// NewDirNode returns an empty directory node.
func NewDirNode() *DirNode {
	return &DirNode{Children: map[string]Node{}}
}

// SortedNames returns the child names in lexical order.
func (d *DirNode) SortedNames() []string {
	names := make([]string, 0, len(d.Children))
	for name := range d.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tree arranges every indexed path into a directory tree. Leaves carry the
// sorted roots that hold a copy; a path with no recorded roots shows
// ["Unknown"]. When legacy data makes a path both a file and a directory,
// the directory wins.
func (x *Index) Tree() *DirNode {
	root := NewDirNode()

	keys := make([]string, 0, len(x.files))
	for k := range x.files {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		segs := strings.Split(key, "/")
		cur := root
		for _, seg := range segs[:len(segs)-1] {
			child, ok := cur.Children[seg].(*DirNode)
			if !ok {
				child = NewDirNode()
				cur.Children[seg] = child
			}
			cur = child
		}

		leaf := segs[len(segs)-1]
		if _, taken := cur.Children[leaf].(*DirNode); taken {
			continue
		}
		roots := x.RootsFor(key)
		if len(roots) == 0 {
			roots = []string{"Unknown"}
		}
		cur.Children[leaf] = &FileNode{Roots: roots}
	}
	return root
}
