// Package force implements the iterative physics layout over the visible
// subgraph. Each call to [Simulation.Tick] advances one discrete,
// non-preemptible step driven by the host render loop; the simulation cools
// until its energy (alpha) decays below a threshold.
//
// Per-node state is kept as index-based parallel arrays rather than an
// object graph, so a tick is a pure fold over the arrays and test snapshots
// are cheap. Determinism is not part of the contract — convergence is:
// positions stay bounded, finite, and non-coincident.
package force

import (
	"math"

	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/repotree"
)

// Dense-graph thresholds. Link pull is softened past these node counts to
// keep large graphs compact, and centering is strengthened so they do not
// drift.
const (
	denseNodeCount  = 200
	packedNodeCount = 500
)

// initialRadius and goldenAngle seed a phyllotaxis spiral for nodes that have
// no previous position, so the simulation never starts from coincident
// points.
const (
	initialRadius = 10.0
	reheatAlpha   = 0.3
)

// minRepelDist2 floors the squared distance used in the repulsion kernel.
// Without it, nodes resuming from a shared stored position sit a jiggle
// apart (~1e-6) and 1/d² produces velocity kicks in the 1e8 range.
const minRepelDist2 = 1.0

var goldenAngle = math.Pi * (3 - math.Sqrt(5))

type link struct {
	source, target int
}

// Simulation is the force layout engine. It owns per-node simulation state
// for the current visible subgraph and writes the shared position store
// every tick. Not safe for concurrent use; the host loop calls it from a
// single goroutine.
type Simulation struct {
	cfg   layout.ForceConfig
	store *layout.Store

	ids    []string
	index  map[string]int
	x, y   []float64
	vx, vy []float64
	radius []float64
	pinned []bool
	px, py []float64
	links  []link

	alpha float64
}

// New creates a simulation with the given tuning that writes into store.
func New(cfg layout.ForceConfig, store *layout.Store) *Simulation {
	return &Simulation{cfg: cfg, store: store, index: map[string]int{}, alpha: 0}
}

// SetGraph replaces the simulated subgraph and re-energizes the simulation.
// Nodes that already have a position in the store resume from it; new nodes
// are seeded on a phyllotaxis spiral. Edges referencing nodes outside the
// visible set are dropped.
func (s *Simulation) SetGraph(nodes []repotree.FlatNode, edges []repotree.Edge) {
	n := len(nodes)
	s.ids = make([]string, n)
	s.index = make(map[string]int, n)
	s.x = make([]float64, n)
	s.y = make([]float64, n)
	s.vx = make([]float64, n)
	s.vy = make([]float64, n)
	s.radius = make([]float64, n)
	s.pinned = make([]bool, n)
	s.px = make([]float64, n)
	s.py = make([]float64, n)

	for i, node := range nodes {
		s.ids[i] = node.ID
		s.index[node.ID] = i
		s.radius[i] = layout.RadiusFor(node)
		if p, ok := s.store.Get(node.ID); ok {
			s.x[i], s.y[i] = p.X, p.Y
			continue
		}
		r := initialRadius * math.Sqrt(0.5+float64(i))
		a := float64(i) * goldenAngle
		s.x[i] = r * math.Cos(a)
		s.y[i] = r * math.Sin(a)
	}

	s.links = s.links[:0]
	for _, e := range edges {
		si, ok1 := s.index[e.Source]
		ti, ok2 := s.index[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		s.links = append(s.links, link{source: si, target: ti})
	}

	s.alpha = 1
	s.flush()
}

// Alpha returns the current simulation energy.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Running reports whether further ticks will still move nodes.
func (s *Simulation) Running() bool { return s.alpha >= s.cfg.AlphaMin && len(s.ids) > 0 }

// Stop freezes the simulation immediately. Used when the engine is swapped
// out so no later tick mutates a discarded model.
func (s *Simulation) Stop() { s.alpha = 0 }

// Reheat re-energizes a cooled simulation, e.g. after a drag release.
func (s *Simulation) Reheat() {
	if s.alpha < reheatAlpha {
		s.alpha = reheatAlpha
	}
}

// Pin fixes a node at the given position for the duration of a drag. The
// node stops responding to forces until [Release].
func (s *Simulation) Pin(id string, x, y float64) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.pinned[i] = true
	s.px[i], s.py[i] = x, y
	s.Reheat()
}

// Release unpins a dragged node and re-energizes the simulation so its
// neighbors settle around the new position.
func (s *Simulation) Release(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.pinned[i] = false
	s.Reheat()
}

// Tick advances the simulation one step and writes the new positions to the
// store. It returns false once the energy has decayed below the configured
// minimum (the caller's cue to stop scheduling frames).
func (s *Simulation) Tick() bool {
	if !s.Running() {
		return false
	}
	s.alpha += (0 - s.alpha) * s.cfg.AlphaDecay

	s.applyLinks()
	s.applyRepulsion()
	s.applyCentering()
	s.applyCollision()
	s.integrate()
	s.flush()

	return s.Running()
}

// linkParams returns the link distance and strength after dense-graph
// softening.
func (s *Simulation) linkParams() (distance, strength float64) {
	distance, strength = s.cfg.LinkDistance, s.cfg.LinkStrength
	switch {
	case len(s.ids) > packedNodeCount:
		distance *= 0.85
		strength *= 0.85
	case len(s.ids) > denseNodeCount:
		distance *= 0.95
		strength *= 0.95
	}
	return distance, strength
}

func (s *Simulation) applyLinks() {
	distance, strength := s.linkParams()
	for _, l := range s.links {
		dx := s.x[l.target] + s.vx[l.target] - s.x[l.source] - s.vx[l.source]
		dy := s.y[l.target] + s.vy[l.target] - s.y[l.source] - s.vy[l.source]
		d := math.Hypot(dx, dy)
		if d == 0 {
			dx, dy, d = jiggle(l.source), jiggle(l.target), 1e-6
		}
		f := (d - distance) / d * s.alpha * strength
		s.vx[l.target] -= dx * f / 2
		s.vy[l.target] -= dy * f / 2
		s.vx[l.source] += dx * f / 2
		s.vy[l.source] += dy * f / 2
	}
}

// applyRepulsion is a pairwise many-body force with a hard interaction
// cutoff, bounding per-tick cost on sparse layouts.
func (s *Simulation) applyRepulsion() {
	maxDist2 := s.cfg.RepelMax * s.cfg.RepelMax
	for i := range s.ids {
		for j := i + 1; j < len(s.ids); j++ {
			dx := s.x[j] - s.x[i]
			dy := s.y[j] - s.y[i]
			d2 := dx*dx + dy*dy
			if d2 >= maxDist2 {
				continue
			}
			if d2 == 0 {
				dx, dy = jiggle(i), jiggle(j)
				d2 = dx*dx + dy*dy
			}
			if d2 < minRepelDist2 {
				d2 = math.Sqrt(minRepelDist2 * d2)
			}
			// Negative strength repels, as in d3's many-body force.
			f := s.cfg.RepelStrength * s.alpha / d2
			s.vx[j] -= dx * f
			s.vy[j] -= dy * f
			s.vx[i] += dx * f
			s.vy[i] += dy * f
		}
	}
}

func (s *Simulation) applyCentering() {
	strength := s.cfg.CenterStrength
	if len(s.ids) > denseNodeCount {
		strength *= 2
	}
	for i := range s.ids {
		s.vx[i] -= s.x[i] * strength * s.alpha
		s.vy[i] -= s.y[i] * strength * s.alpha
	}
}

// applyCollision separates overlapping pairs so no node sits inside another's
// radius plus padding.
func (s *Simulation) applyCollision() {
	pad := s.cfg.CollidePadding
	for i := range s.ids {
		for j := i + 1; j < len(s.ids); j++ {
			minDist := s.radius[i] + s.radius[j] + pad
			dx := s.x[j] + s.vx[j] - s.x[i] - s.vx[i]
			dy := s.y[j] + s.vy[j] - s.y[i] - s.vy[i]
			d := math.Hypot(dx, dy)
			if d >= minDist {
				continue
			}
			if d == 0 {
				dx, dy, d = jiggle(i), jiggle(j), 1e-6
			}
			overlap := (minDist - d) / d * 0.5
			s.vx[j] += dx * overlap
			s.vy[j] += dy * overlap
			s.vx[i] -= dx * overlap
			s.vy[i] -= dy * overlap
		}
	}
}

func (s *Simulation) integrate() {
	decay := 1 - s.cfg.VelocityDecay
	for i := range s.ids {
		if s.pinned[i] {
			s.x[i], s.y[i] = s.px[i], s.py[i]
			s.vx[i], s.vy[i] = 0, 0
			continue
		}
		s.vx[i] *= decay
		s.vy[i] *= decay
		s.x[i] += s.vx[i]
		s.y[i] += s.vy[i]
	}
}

// flush writes the current positions into the shared store.
func (s *Simulation) flush() {
	batch := make(map[string]layout.Point, len(s.ids))
	for i, id := range s.ids {
		batch[id] = layout.Point{X: s.x[i], Y: s.y[i], R: s.radius[i]}
	}
	s.store.SetAll(batch)
}

// jiggle returns a tiny deterministic offset used to separate exactly
// coincident points. Index-seeded so repeated calls within a tick diverge.
func jiggle(i int) float64 {
	return (math.Mod(float64(i)*0.7548776662466927, 1) - 0.5) * 1e-6
}
