// Package visibility derives the currently visible subgraph of a repository
// tree. It is a small state machine over three display modes; the layout
// engines and everything downstream only ever see the subset it produces.
//
// The expand/collapse behavior in collapsible-tree mode is deliberately
// asymmetric: collapsing a node cascades to all of its descendants, while
// expanding reveals direct children only. The asymmetry keeps re-expanded
// subtrees shallow instead of restoring a remembered snapshot.
package visibility

import (
	"slices"

	"github.com/gitscape/gitscape/pkg/repotree"
)

// Mode selects how the visible subgraph is derived.
type Mode int

const (
	// Full shows every node in the tree.
	Full Mode = iota
	// FoldersOnly shows directories (and ROOT) but no files.
	FoldersOnly
	// CollapsibleTree shows nodes whose parent is in the expanded set.
	CollapsibleTree
)

// String returns the mode name for logging.
func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case FoldersOnly:
		return "folders"
	case CollapsibleTree:
		return "collapsible"
	default:
		return "unknown"
	}
}

// Filter maintains the display mode and, for collapsible-tree mode, the set
// of expanded directory IDs. The zero value is not usable; create one with
// [New]. Filter is not safe for concurrent use.
type Filter struct {
	tree     *repotree.Tree
	mode     Mode
	expanded map[string]struct{}
}

// New creates a filter over the given tree, starting in Full mode.
func New(tree *repotree.Tree) *Filter {
	f := &Filter{tree: tree}
	f.resetExpanded()
	return f
}

// Rebind swaps the underlying tree after a wholesale rebuild. The mode is
// kept; the expanded set resets to {ROOT} because old IDs may be gone.
func (f *Filter) Rebind(tree *repotree.Tree) {
	f.tree = tree
	f.resetExpanded()
}

// Mode returns the current display mode.
func (f *Filter) Mode() Mode { return f.mode }

// SwitchMode changes the display mode. Entering CollapsibleTree always
// starts from a fresh expanded set containing only ROOT.
func (f *Filter) SwitchMode(m Mode) {
	if m == CollapsibleTree && f.mode != CollapsibleTree {
		f.resetExpanded()
	}
	f.mode = m
}

func (f *Filter) resetExpanded() {
	f.expanded = map[string]struct{}{repotree.RootID: {}}
}

// IsExpanded reports whether the node is in the expanded set.
func (f *Filter) IsExpanded(id string) bool {
	_, ok := f.expanded[id]
	return ok
}

// ToggleExpand flips the expansion of a directory in CollapsibleTree mode.
//
// Collapsing removes the node and all of its transitive descendants from the
// expanded set, so a later re-expand reveals only one level. Expanding adds
// the node alone. ROOT can never be collapsed; toggles outside
// CollapsibleTree mode or on unknown IDs are no-ops.
func (f *Filter) ToggleExpand(id string) {
	if f.mode != CollapsibleTree || id == repotree.RootID {
		return
	}
	if !f.tree.Contains(id) {
		return
	}
	if f.IsExpanded(id) {
		delete(f.expanded, id)
		for _, d := range f.tree.Descendants(id) {
			delete(f.expanded, d)
		}
		return
	}
	f.expanded[id] = struct{}{}
}

// VisibleNodes returns the IDs of the currently visible nodes in the tree's
// input order. ROOT is always first.
func (f *Filter) VisibleNodes() []string {
	var out []string
	for _, id := range f.tree.IDs() {
		if f.visible(id) {
			out = append(out, id)
		}
	}
	return out
}

// VisibleSet returns the visible node IDs as a set for membership tests.
func (f *Filter) VisibleSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, id := range f.tree.IDs() {
		if f.visible(id) {
			set[id] = struct{}{}
		}
	}
	return set
}

// VisibleEdges returns the tree edges whose endpoints are both visible.
// Because visibility is parent-driven, the result is always a connected
// subtree with no dangling edges.
func (f *Filter) VisibleEdges() []repotree.Edge {
	set := f.VisibleSet()
	var out []repotree.Edge
	for _, e := range f.tree.Edges() {
		if _, ok := set[e.Source]; !ok {
			continue
		}
		if _, ok := set[e.Target]; !ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (f *Filter) visible(id string) bool {
	if id == repotree.RootID {
		return true
	}
	switch f.mode {
	case Full:
		return true
	case FoldersOnly:
		n, ok := f.tree.Node(id)
		return ok && n.IsDirectory()
	case CollapsibleTree:
		parent, ok := f.tree.Parent(id)
		if !ok {
			return false
		}
		return f.IsExpanded(parent)
	default:
		return false
	}
}

// ExpandedIDs returns the expanded set as a sorted slice, for snapshots and
// tests.
func (f *Filter) ExpandedIDs() []string {
	out := make([]string, 0, len(f.expanded))
	for id := range f.expanded {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
