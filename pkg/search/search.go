// Package search provides the interactive selection layer over the visible
// subgraph: substring and extension highlighting, hover path-to-root
// computation, and a wrapping keyboard cursor.
package search

import (
	"strings"

	"github.com/gitscape/gitscape/pkg/repotree"
	"github.com/gitscape/gitscape/pkg/visibility"
)

// Selector owns the transient interaction state: the active query, the
// extension filter, the hovered node, and the keyboard cursor. It reads the
// visible ordering from the filter on every call, so visibility changes never
// leave it holding a stale node list. Not safe for concurrent use.
type Selector struct {
	tree   *repotree.Tree
	filter *visibility.Filter

	query  string
	ext    string
	hover  string
	cursor int
}

// New creates a selector over the tree and its visibility filter.
func New(tree *repotree.Tree, filter *visibility.Filter) *Selector {
	return &Selector{tree: tree, filter: filter}
}

// Rebind swaps the underlying tree after a wholesale rebuild and clears all
// interaction state, since old IDs may be gone.
func (s *Selector) Rebind(tree *repotree.Tree) {
	s.tree = tree
	s.query = ""
	s.ext = ""
	s.hover = ""
	s.cursor = 0
}

// ============================================================================
// Highlighting
// ============================================================================

// SetQuery sets the substring query. Matching is case-insensitive over node
// names and paths.
func (s *Selector) SetQuery(q string) { s.query = q }

// Query returns the active substring query.
func (s *Selector) Query() string { return s.query }

// SetExtension sets the extension-equality filter ("" disables it).
func (s *Selector) SetExtension(ext string) { s.ext = ext }

// Extension returns the active extension filter.
func (s *Selector) Extension() string { return s.ext }

// Highlight returns the visible nodes matching the active query and
// extension filter. With no query and no filter the set is empty: nothing to
// search for means nothing highlighted, never everything.
func (s *Selector) Highlight() map[string]struct{} {
	out := make(map[string]struct{})
	if s.query == "" && s.ext == "" {
		return out
	}
	needle := strings.ToLower(s.query)
	for _, id := range s.filter.VisibleNodes() {
		node, ok := s.tree.Node(id)
		if !ok {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(node.Name), needle) &&
			!strings.Contains(strings.ToLower(node.Path), needle) {
			continue
		}
		if s.ext != "" && node.Extension != s.ext {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}

// ============================================================================
// Hover path
// ============================================================================

// SetHover records the hovered node ID ("" clears it).
func (s *Selector) SetHover(id string) { s.hover = id }

// Hover returns the currently hovered node ID.
func (s *Selector) Hover() string { return s.hover }

// HoverPath returns the hovered node's path to ROOT as a node set and the
// edges along it, so the renderer can dim everything off the path. Both are
// empty when nothing is hovered or the node is unknown.
func (s *Selector) HoverPath() (map[string]struct{}, []repotree.Edge) {
	nodes := make(map[string]struct{})
	if s.hover == "" {
		return nodes, nil
	}
	path := s.tree.PathToRoot(s.hover)
	if len(path) == 0 {
		return nodes, nil
	}
	var edges []repotree.Edge
	for i, id := range path {
		nodes[id] = struct{}{}
		if i+1 < len(path) {
			edges = append(edges, repotree.Edge{Source: path[i+1], Target: id})
		}
	}
	return nodes, edges
}

// ============================================================================
// Keyboard cursor
// ============================================================================

// Cursor returns the cursor index, normalized into the current visible
// ordering. It is -1 when nothing is visible.
func (s *Selector) Cursor() int {
	n := len(s.filter.VisibleNodes())
	if n == 0 {
		return -1
	}
	return ((s.cursor % n) + n) % n
}

// CursorNode returns the node ID under the cursor, or "" when nothing is
// visible.
func (s *Selector) CursorNode() string {
	visible := s.filter.VisibleNodes()
	if len(visible) == 0 {
		return ""
	}
	return visible[s.Cursor()]
}

// MoveCursor shifts the cursor by delta, wrapping at both ends of the visible
// ordering.
func (s *Selector) MoveCursor(delta int) {
	n := len(s.filter.VisibleNodes())
	if n == 0 {
		s.cursor = 0
		return
	}
	s.cursor = ((s.Cursor()+delta)%n + n) % n
}

// Select returns the node under the cursor. If that node is a directory with
// children and the filter is in collapsible-tree mode, selection also toggles
// its expansion. It returns "" when nothing is visible.
func (s *Selector) Select() string {
	id := s.CursorNode()
	if id == "" {
		return ""
	}
	if s.filter.Mode() != visibility.CollapsibleTree {
		return id
	}
	node, ok := s.tree.Node(id)
	if ok && node.IsDirectory() && s.tree.ChildCount(id) > 0 {
		s.filter.ToggleExpand(id)
	}
	return id
}
