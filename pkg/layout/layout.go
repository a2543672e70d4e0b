// Package layout defines the shared position store written by the layout
// engines and the contract those engines implement.
//
// Exactly one engine writes the store at a time (mutual exclusion by active
// display mode), while any number of readers take snapshots. A missing entry
// always means "position unknown, skip this node" — downstream code never
// treats absence as an error.
package layout

import (
	"math"
	"sync"

	"github.com/gitscape/gitscape/pkg/repotree"
)

// Visual radii per node kind.
const (
	RootRadius      = 18.0
	DirectoryRadius = 10.0
	FileRadiusMin   = 3.0
	FileRadiusMax   = 12.0
)

// Point is a node position in the shared coordinate frame. R is the visual
// radius the producing engine assigned; for force layouts it is the collision
// radius, for pack layouts the packed circle radius.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	R float64 `json:"r,omitempty"`
}

// RadiusFor computes the visual radius of a node: 18 for ROOT, 10 for
// directories, and log-scaled by byte size for files, clamped to [3, 12].
func RadiusFor(n repotree.FlatNode) float64 {
	switch {
	case n.ID == repotree.RootID:
		return RootRadius
	case n.IsDirectory():
		return DirectoryRadius
	default:
		return math.Min(math.Max(math.Log10(n.Size+1)*2, FileRadiusMin), FileRadiusMax)
	}
}

// Store is the shared id→position map. Entries persist across mode switches
// so animations can start from a node's last known place; they are only
// guaranteed fresh for the currently visible set.
//
// The active engine is the single writer; readers (renderer, animator,
// search) take snapshots or individual lookups and must tolerate missing
// entries.
type Store struct {
	mu        sync.RWMutex
	positions map[string]Point
}

// NewStore creates an empty position store.
func NewStore() *Store {
	return &Store{positions: make(map[string]Point)}
}

// Get returns the last known position of a node. ok is false when the node
// has never been positioned; callers skip such nodes.
func (s *Store) Get(id string) (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	return p, ok
}

// Set records the position of a single node.
func (s *Store) Set(id string, p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[id] = p
}

// SetAll merges a batch of positions, as written once per force tick.
func (s *Store) SetAll(batch map[string]Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range batch {
		s.positions[id] = p
	}
}

// Replace swaps the full contents of the store, as a one-shot pack layout
// does. Stale entries for nodes outside the batch are kept so hidden nodes
// retain their last known position for animation continuity.
func (s *Store) Replace(batch map[string]Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range batch {
		s.positions[id] = p
	}
}

// Snapshot returns a copy of every stored position.
func (s *Store) Snapshot() map[string]Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Point, len(s.positions))
	for id, p := range s.positions {
		out[id] = p
	}
	return out
}

// Len returns the number of stored positions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// Clear drops every stored position. Used when a new tree replaces the model
// wholesale and old coordinates would be meaningless.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = make(map[string]Point)
}
