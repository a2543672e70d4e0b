package anim

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gitscape/gitscape/pkg/history"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/repotree"
)

// Projectile duration bounds: duration = clamp(distance × 0.5ms, 300, 800).
const (
	msPerUnit   = 0.5
	minDuration = 300 * time.Millisecond
	maxDuration = 800 * time.Millisecond
)

// Projectile is one in-flight file animation: a timed transition from the
// fixed origin to a resolved node position.
type Projectile struct {
	ID       uuid.UUID
	SHA      string
	File     string
	NodeID   string
	From, To layout.Point
	Start    time.Duration // virtual time the flight began
	Duration time.Duration
}

// PositionAt returns the interpolated projectile position at virtual time
// now, with an ease-out curve so impacts read as decelerating.
func (p Projectile) PositionAt(now time.Duration) layout.Point {
	t := float64(now-p.Start) / float64(p.Duration)
	t = math.Min(math.Max(t, 0), 1)
	t = 1 - (1-t)*(1-t) // ease-out
	return layout.Point{
		X: p.From.X + (p.To.X-p.From.X)*t,
		Y: p.From.Y + (p.To.Y-p.From.Y)*t,
	}
}

// Animator resolves each commit's touched files to currently visible node
// positions and schedules their flights. It is purely reactive: it acts only
// when [Animator.SetCommit] hands it a new externally chosen index.
//
// At most one author-marker animation is live at a time; switching commits
// cancels it. Per-file projectiles are independent timers and may overlap
// across rapid successive commits — there is no queue.
type Animator struct {
	sched  *Scheduler
	store  *layout.Store
	origin layout.Point

	index      int
	marker     uuid.UUID
	markerLive bool
	flights    map[uuid.UUID]Projectile

	// OnPulse fires when a projectile lands, for a terminal visual pulse at
	// the target.
	OnPulse func(nodeID string, at layout.Point)
	// OnCommitChanged fires when a new commit index takes effect.
	OnCommitChanged func(c history.Commit, index int)
	// OnFilesActive receives the cumulative set of files alive at the new
	// index, replayed from the start of history.
	OnFilesActive func(files map[string]struct{})
}

// NewAnimator creates an animator scheduling on sched and reading positions
// from store. The origin is the fixed launch point of every projectile,
// independent of graph content.
func NewAnimator(sched *Scheduler, store *layout.Store, origin layout.Point) *Animator {
	return &Animator{
		sched:   sched,
		store:   store,
		origin:  origin,
		index:   -1,
		flights: make(map[uuid.UUID]Projectile),
	}
}

// Index returns the last applied commit index, -1 before the first.
func (a *Animator) Index() int { return a.index }

// SetOrigin moves the launch point for future projectiles, e.g. after a
// viewport resize. In-flight projectiles keep their original origin.
func (a *Animator) SetOrigin(p layout.Point) { a.origin = p }

// Flights returns the currently in-flight projectiles, for rendering.
func (a *Animator) Flights() []Projectile {
	out := make([]Projectile, 0, len(a.flights))
	for _, p := range a.flights {
		out = append(out, p)
	}
	return out
}

// SetCommit reacts to an externally supplied commit index. Re-issuing the
// current index is a no-op (no duplicate animation set). A new index cancels
// the single author-marker animation, resolves every file the commit touched
// against the visible subgraph, and schedules one projectile per resolved
// target. Files that resolve to nothing visible are silently skipped — an
// expected outcome, not an error.
//
// It returns the scheduled projectiles so callers can reason about when the
// animation cycle ends (Start + Duration per flight).
func (a *Animator) SetCommit(h history.History, index int, tree *repotree.Tree, visible map[string]struct{}) []Projectile {
	if index == a.index {
		return nil
	}
	commit, ok := h.At(index)
	if !ok {
		return nil
	}
	a.index = index

	// Exactly one author marker may be live; replace it.
	if a.markerLive {
		a.sched.Cancel(a.marker)
	}
	a.markerLive = true
	a.marker = a.sched.After(maxDuration, func() { a.markerLive = false })

	var launched []Projectile
	for _, fc := range commit.Files {
		nodeID, target, ok := a.resolveTarget(fc.Filename, tree, visible)
		if !ok {
			continue
		}
		p := Projectile{
			ID:       uuid.New(),
			SHA:      commit.SHA,
			File:     fc.Filename,
			NodeID:   nodeID,
			From:     a.origin,
			To:       target,
			Start:    a.sched.Now(),
			Duration: flightDuration(a.origin, target),
		}
		a.flights[p.ID] = p
		id := p.ID
		a.sched.After(p.Duration, func() {
			delete(a.flights, id)
			if a.OnPulse != nil {
				a.OnPulse(p.NodeID, p.To)
			}
		})
		launched = append(launched, p)
	}

	if a.OnCommitChanged != nil {
		a.OnCommitChanged(commit, index)
	}
	if a.OnFilesActive != nil {
		a.OnFilesActive(h.FilesActive(index))
	}
	return launched
}

// Shutdown cancels the marker and every in-flight projectile and resets
// playback to the pre-first-commit state. Called when the animation layer is
// deactivated or the underlying data is replaced, so no stale callback fires
// against a discarded model.
func (a *Animator) Shutdown() {
	if a.markerLive {
		a.sched.Cancel(a.marker)
		a.markerLive = false
	}
	a.sched.CancelAll()
	a.flights = make(map[uuid.UUID]Projectile)
	a.index = -1
}

// resolveTarget maps a changed file path to a currently visible node with a
// known position. Resolution order: exact or suffix match against a visible
// file node, then the nearest visible ancestor directory by walking the
// path's segments upward. ROOT is not an ancestor fallback — files entirely
// outside the visible subgraph are skipped.
func (a *Animator) resolveTarget(filename string, tree *repotree.Tree, visible map[string]struct{}) (string, layout.Point, bool) {
	if tree == nil || filename == "" {
		return "", layout.Point{}, false
	}

	if id, ok := a.matchFileNode(filename, tree, visible); ok {
		if p, found := a.store.Get(id); found {
			return id, p, true
		}
	}

	// Walk up the path segments looking for a visible directory.
	segments := strings.Split(filename, "/")
	for i := len(segments) - 1; i > 0; i-- {
		dir := strings.Join(segments[:i], "/")
		node, ok := tree.Node(dir)
		if !ok || !node.IsDirectory() {
			continue
		}
		if _, vis := visible[dir]; !vis {
			continue
		}
		if p, found := a.store.Get(dir); found {
			return dir, p, true
		}
	}

	return "", layout.Point{}, false
}

// matchFileNode finds a visible file node for the path: exact ID first, then
// a suffix match so paths from truncated or re-rooted histories still land.
func (a *Animator) matchFileNode(filename string, tree *repotree.Tree, visible map[string]struct{}) (string, bool) {
	if n, ok := tree.Node(filename); ok && n.IsFile() {
		if _, vis := visible[filename]; vis {
			return filename, true
		}
	}
	for _, id := range tree.IDs() {
		if _, vis := visible[id]; !vis {
			continue
		}
		n, ok := tree.Node(id)
		if !ok || !n.IsFile() {
			continue
		}
		if strings.HasSuffix(filename, "/"+n.Path) || strings.HasSuffix(n.Path, "/"+filename) {
			return id, true
		}
	}
	return "", false
}

func flightDuration(from, to layout.Point) time.Duration {
	dist := math.Hypot(to.X-from.X, to.Y-from.Y)
	d := time.Duration(dist * msPerUnit * float64(time.Millisecond))
	return min(max(d, minDuration), maxDuration)
}
