package repotree

import (
	"math"
	"slices"
)

// maxWalkDepth bounds parent-chain walks so malformed input (a parent cycle)
// truncates instead of looping forever.
const maxWalkDepth = 64

// minLeafWeight is the weight floor assigned to every file, so zero-byte
// files still occupy visible area in weight-proportional layouts.
const minLeafWeight = 32

// Tree is an indexed, rooted view over a [RepoTree]. It is built wholesale by
// [Build] whenever new tree data arrives and is read-only afterwards.
//
// Tree is not safe for concurrent mutation, but all query methods are
// read-only and may be shared freely once built.
type Tree struct {
	nodes    map[string]*FlatNode
	children map[string][]string // parent ID -> child IDs, insertion order
	parent   map[string]string   // child ID -> resolved parent ID
	weight   map[string]float64  // node ID -> aggregate weight
	order    []string            // all node IDs in input order, ROOT first
}

// Build constructs an indexed tree from flat node data. The synthetic ROOT
// node is created if the input does not carry one. Nodes referencing an
// unknown parent are attached directly under ROOT rather than rejected.
// Duplicate IDs keep the first occurrence.
func Build(rt RepoTree) *Tree {
	t := &Tree{
		nodes:    make(map[string]*FlatNode, len(rt.Nodes)+1),
		children: make(map[string][]string),
		parent:   make(map[string]string, len(rt.Nodes)),
		weight:   make(map[string]float64, len(rt.Nodes)+1),
	}

	root := FlatNode{ID: RootID, Name: RootID, Kind: KindDirectory, Path: ""}
	t.nodes[RootID] = &root
	t.order = append(t.order, RootID)

	for i := range rt.Nodes {
		n := rt.Nodes[i]
		if n.ID == "" || n.ID == RootID {
			continue
		}
		if _, dup := t.nodes[n.ID]; dup {
			continue
		}
		t.nodes[n.ID] = &rt.Nodes[i]
		t.order = append(t.order, n.ID)
	}

	// Attach each node to its parent. A missing or dangling parent reference
	// demotes the node to a direct child of ROOT.
	for _, id := range t.order {
		if id == RootID {
			continue
		}
		n := t.nodes[id]
		pid := n.ParentID
		if pid == "" || pid == id {
			pid = RootID
		}
		if _, ok := t.nodes[pid]; !ok {
			pid = RootID
		}
		t.parent[id] = pid
		t.children[pid] = append(t.children[pid], id)
	}

	t.computeWeights()
	return t
}

// computeWeights assigns each file max(size, floor) and each directory the
// sum of its descendant file weights. Leaf directories get the floor too so
// empty folders still pack to a visible circle.
func (t *Tree) computeWeights() {
	var walk func(id string) float64
	walk = func(id string) float64 {
		n := t.nodes[id]
		if n.IsFile() {
			w := math.Max(n.Size, minLeafWeight)
			t.weight[id] = w
			return w
		}
		sum := 0.0
		for _, c := range t.children[id] {
			sum += walk(c)
		}
		if sum == 0 {
			sum = minLeafWeight
		}
		t.weight[id] = sum
		return sum
	}
	walk(RootID)
}

// Node returns the node with the given ID and true, or a zero node and false.
func (t *Tree) Node(id string) (FlatNode, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return FlatNode{}, false
	}
	return *n, true
}

// Contains reports whether a node with the given ID exists.
func (t *Tree) Contains(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// NodeCount returns the number of nodes including the synthetic root.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// IDs returns all node IDs in input order, ROOT first.
// The returned slice is a copy and may be modified freely.
func (t *Tree) IDs() []string { return slices.Clone(t.order) }

// Children returns the direct child IDs of the given node, in input order.
// Returns nil for leaves and unknown IDs. The returned slice is a read-only
// view and must not be modified.
func (t *Tree) Children(id string) []string { return t.children[id] }

// ChildCount returns the number of direct children of the given node.
func (t *Tree) ChildCount(id string) int { return len(t.children[id]) }

// Parent returns the resolved parent ID of a node. ROOT and unknown IDs have
// no parent, reported by ok=false.
func (t *Tree) Parent(id string) (string, bool) {
	p, ok := t.parent[id]
	return p, ok
}

// Weight returns the aggregate weight of a node: file size (floored) for
// files, summed descendant weight for directories. Unknown IDs weigh zero.
func (t *Tree) Weight(id string) float64 { return t.weight[id] }

// PathToRoot walks parent links upward from id and returns the chain
// [id, parent, ..., ROOT]. The walk is bounded: unknown IDs yield nil, and a
// malformed parent chain truncates at [maxWalkDepth] hops instead of looping.
func (t *Tree) PathToRoot(id string) []string {
	if _, ok := t.nodes[id]; !ok {
		return nil
	}
	path := []string{id}
	seen := map[string]struct{}{id: {}}
	cur := id
	for range maxWalkDepth {
		if cur == RootID {
			return path
		}
		next, ok := t.parent[cur]
		if !ok {
			return path
		}
		if _, cycle := seen[next]; cycle {
			return path
		}
		seen[next] = struct{}{}
		path = append(path, next)
		cur = next
	}
	return path
}

// Descendants returns all transitive descendant IDs of the given node in
// depth-first order, excluding the node itself. The walk keeps a visited set
// so a malformed parent chain cannot loop.
func (t *Tree) Descendants(id string) []string {
	var out []string
	seen := map[string]struct{}{id: {}}
	var walk func(string)
	walk = func(cur string) {
		for _, c := range t.children[cur] {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// Edges returns every parent→child link of the built tree, in child input
// order. ROOT's links are included; the synthetic root is always a source,
// never a target.
func (t *Tree) Edges() []Edge {
	edges := make([]Edge, 0, len(t.parent))
	for _, id := range t.order {
		if id == RootID {
			continue
		}
		edges = append(edges, Edge{Source: t.parent[id], Target: id})
	}
	return edges
}
