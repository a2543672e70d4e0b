// Package pack implements the deterministic one-shot hierarchical
// circle-packing layout over the visible subtree.
//
// Every directory becomes a circle enclosing its visible children; circle
// area tracks the aggregate weight computed by pkg/repotree, so heavier
// folders read larger. Sibling padding is wider at the root level than at
// nested levels to separate top-level groups visually. The computation is a
// pure function of (tree, visible set, tuning) — no randomness, no partial
// state — and is rerun wholesale on every triggering event.
package pack

import (
	"math"

	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/repotree"
)

// Circle is a packed node: center and radius in the final centered frame.
type Circle struct {
	X, Y, R float64
}

// Engine computes pack layouts and writes them into a position store.
type Engine struct {
	cfg layout.PackConfig
}

// New creates a pack engine with the given tuning.
func New(cfg layout.PackConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Apply computes the layout for the visible subtree and writes every circle
// into the store wholesale. An empty visible set writes nothing.
func (e *Engine) Apply(tree *repotree.Tree, visible map[string]struct{}, store *layout.Store) map[string]Circle {
	circles := Compute(tree, visible, e.cfg)
	batch := make(map[string]layout.Point, len(circles))
	for id, c := range circles {
		batch[id] = layout.Point{X: c.X, Y: c.Y, R: c.R}
	}
	store.Replace(batch)
	return circles
}

// LabelEligible reports whether a packed circle is large enough to carry a
// text label. This is a rendering hint derived purely from the computed
// radius, not an independent input.
func (e *Engine) LabelEligible(c Circle) bool {
	return c.R >= e.cfg.LabelMinRadius
}

// Compute packs the visible subtree rooted at ROOT and returns a circle per
// visible node, centered so ROOT sits at the origin. Unknown or invisible
// nodes simply do not appear in the result.
func Compute(tree *repotree.Tree, visible map[string]struct{}, cfg layout.PackConfig) map[string]Circle {
	if tree == nil {
		return map[string]Circle{}
	}
	if _, ok := visible[repotree.RootID]; !ok {
		return map[string]Circle{}
	}

	out := make(map[string]Circle)
	root := packSubtree(tree, repotree.RootID, 0, visible, cfg, out)

	// Shift the whole frame so the root circle is centered on the origin.
	for id, c := range out {
		out[id] = Circle{X: c.X - root.X, Y: c.Y - root.Y, R: c.R}
	}
	return out
}

// packSubtree packs the node's visible children recursively and returns the
// node's own circle in a frame local to its parent. Child circles are
// recorded into out relative to this node, then translated by the caller.
func packSubtree(tree *repotree.Tree, id string, depth int, visible map[string]struct{}, cfg layout.PackConfig, out map[string]Circle) Circle {
	var kids []string
	for _, c := range tree.Children(id) {
		if _, ok := visible[c]; ok {
			kids = append(kids, c)
		}
	}

	if len(kids) == 0 {
		r := math.Max(math.Sqrt(tree.Weight(id)), cfg.MinRadius)
		c := Circle{R: r}
		out[id] = c
		return c
	}

	pad := cfg.NestedPadding
	if depth == 0 {
		pad = cfg.RootPadding
	}

	// Pack children in input order; inflate each by half the padding so
	// tangent placement leaves the gap.
	children := make([]Circle, len(kids))
	for i, kid := range kids {
		children[i] = packSubtree(tree, kid, depth+1, visible, cfg, out)
	}
	placed := placeSiblings(children, pad)

	// The enclosing circle is centered on the area-weighted centroid; its
	// radius covers the farthest child edge plus padding, so every child
	// lies fully within the parent by construction.
	cx, cy, area := 0.0, 0.0, 0.0
	for _, p := range placed {
		a := p.R * p.R
		cx += p.X * a
		cy += p.Y * a
		area += a
	}
	if area > 0 {
		cx /= area
		cy /= area
	}
	radius := cfg.MinRadius
	for _, p := range placed {
		if d := math.Hypot(p.X-cx, p.Y-cy) + p.R + pad; d > radius {
			radius = d
		}
	}

	// Record children relative to the parent center; translate their own
	// subtrees along with them.
	for i, kid := range kids {
		dx := placed[i].X - cx - children[i].X
		dy := placed[i].Y - cy - children[i].Y
		translateSubtree(tree, kid, dx, dy, visible, out)
	}

	c := Circle{R: radius}
	out[id] = c
	return c
}

// translateSubtree shifts a packed child and everything under it.
func translateSubtree(tree *repotree.Tree, id string, dx, dy float64, visible map[string]struct{}, out map[string]Circle) {
	c, ok := out[id]
	if !ok {
		return
	}
	out[id] = Circle{X: c.X + dx, Y: c.Y + dy, R: c.R}
	for _, kid := range tree.Children(id) {
		if _, vis := visible[kid]; vis {
			translateSubtree(tree, kid, dx, dy, visible, out)
		}
	}
}

// placeSiblings positions sibling circles without overlap, deterministically.
// The first circle sits at the origin, the second tangent to it; each later
// circle tries tangent positions against consecutive pairs of already placed
// circles and takes the valid candidate closest to the origin, keeping the
// cluster compact.
func placeSiblings(circles []Circle, pad float64) []Circle {
	placed := make([]Circle, len(circles))
	for i, c := range circles {
		r := c.R + pad/2
		switch i {
		case 0:
			placed[i] = Circle{X: 0, Y: 0, R: r}
		case 1:
			placed[i] = Circle{X: placed[0].R + r, Y: 0, R: r}
		default:
			placed[i] = bestTangent(placed[:i], r)
		}
	}
	// Deflate back to true radii; gaps remain in the positions.
	for i := range placed {
		placed[i].R = circles[i].R
	}
	return placed
}

// bestTangent finds a position for a circle of radius r tangent to a pair of
// placed circles, overlapping none, minimizing distance from the origin.
func bestTangent(placed []Circle, r float64) Circle {
	best := Circle{R: r}
	bestDist := math.Inf(1)
	for i := range placed {
		for j := i + 1; j < len(placed); j++ {
			for _, cand := range tangentPositions(placed[i], placed[j], r) {
				if overlapsAny(placed, cand) {
					continue
				}
				if d := math.Hypot(cand.X, cand.Y); d < bestDist {
					best, bestDist = cand, d
				}
			}
		}
	}
	if !math.IsInf(bestDist, 1) {
		return best
	}
	// Fallback: slide outward along +x until clear. Reached only for
	// degenerate radii; keeps the algorithm total.
	x := 0.0
	for {
		cand := Circle{X: x, Y: 0, R: r}
		if !overlapsAny(placed, cand) {
			return cand
		}
		x += r
	}
}

// tangentPositions returns the (up to two) centers of a circle with radius r
// externally tangent to circles a and b.
func tangentPositions(a, b Circle, r float64) []Circle {
	da := a.R + r
	db := b.R + r
	dx := b.X - a.X
	dy := b.Y - a.Y
	d := math.Hypot(dx, dy)
	if d == 0 || d > da+db {
		return nil
	}
	// Intersection of two circles centered at a and b with radii da, db.
	x := (d*d + da*da - db*db) / (2 * d)
	h2 := da*da - x*x
	if h2 < 0 {
		return nil
	}
	h := math.Sqrt(h2)
	ux, uy := dx/d, dy/d
	px, py := a.X+x*ux, a.Y+x*uy
	return []Circle{
		{X: px + h*-uy, Y: py + h*ux, R: r},
		{X: px - h*-uy, Y: py - h*ux, R: r},
	}
}

func overlapsAny(placed []Circle, c Circle) bool {
	const eps = 1e-7
	for _, p := range placed {
		if math.Hypot(p.X-c.X, p.Y-c.Y) < p.R+c.R-eps {
			return true
		}
	}
	return false
}
