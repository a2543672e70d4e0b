// Package engine composes the core pieces into one scene: the repository
// tree, the visibility filter, the two layout engines sharing a position
// store, the commit animator, and the selection layer.
//
// The engine has no autonomous clock. The host loop drives it with
// [Engine.Tick] and feeds it pre-resolved input events (node IDs for pointer
// events, navigation actions for keys, a commit index from a scrubber or
// playback clock). Exactly one layout engine is active at a time.
package engine

import (
	"context"
	"time"

	"github.com/gitscape/gitscape/pkg/anim"
	"github.com/gitscape/gitscape/pkg/history"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/layout/force"
	"github.com/gitscape/gitscape/pkg/layout/pack"
	"github.com/gitscape/gitscape/pkg/observability"
	"github.com/gitscape/gitscape/pkg/repotree"
	"github.com/gitscape/gitscape/pkg/search"
	"github.com/gitscape/gitscape/pkg/visibility"
)

// LayoutMode selects the active layout engine.
type LayoutMode int

const (
	// ForceDirected runs the iterative physics simulation per tick.
	ForceDirected LayoutMode = iota
	// CirclePack computes a one-shot hierarchical packing.
	CirclePack
)

// String returns the layout mode name for logging.
func (m LayoutMode) String() string {
	if m == CirclePack {
		return "pack"
	}
	return "force"
}

// Engine is the scene facade. Not safe for concurrent use; it belongs to the
// single cooperative host loop.
type Engine struct {
	ctx context.Context

	tree     *repotree.Tree
	filter   *visibility.Filter
	store    *layout.Store
	cfg      layout.Config
	force    *force.Simulation
	pack     *pack.Engine
	sched    *anim.Scheduler
	animator *anim.Animator
	selector *search.Selector

	history    history.History
	layoutMode LayoutMode

	forceTicks   int
	forceStarted time.Time
	forceLive    bool

	// OnNodeSelected fires when the keyboard cursor selects a node.
	OnNodeSelected func(id string)
	// OnFilesActive receives the replayed set of files alive at the current
	// commit index.
	OnFilesActive func(files map[string]struct{})
	// OnCommitChanged fires when a new commit index takes effect.
	OnCommitChanged func(c history.Commit, index int)
}

// New builds a scene over an external tree and commit history. The engine
// starts in force-directed layout with the full tree visible.
func New(ctx context.Context, rt repotree.RepoTree, h history.History, cfg layout.Config) *Engine {
	tree := repotree.Build(rt)
	filter := visibility.New(tree)
	store := layout.NewStore()
	sched := anim.NewScheduler()

	e := &Engine{
		ctx:      ctx,
		tree:     tree,
		filter:   filter,
		store:    store,
		cfg:      cfg,
		force:    force.New(cfg.Force, store),
		pack:     pack.New(cfg.Pack),
		sched:    sched,
		animator: anim.NewAnimator(sched, store, layout.Point{X: 0, Y: -400}),
		selector: search.New(tree, filter),
		history:  h,
	}

	e.animator.OnPulse = func(nodeID string, at layout.Point) {
		observability.Animation().OnProjectileLanded(e.ctx, nodeID)
	}
	e.animator.OnFilesActive = func(files map[string]struct{}) {
		if e.OnFilesActive != nil {
			e.OnFilesActive(files)
		}
	}
	e.animator.OnCommitChanged = func(c history.Commit, index int) {
		if e.OnCommitChanged != nil {
			e.OnCommitChanged(c, index)
		}
	}

	e.relayout()
	return e
}

// Rebind replaces the tree and history wholesale, e.g. after a repository
// rescan. Stored positions are dropped so entries for nodes that left the
// tree cannot linger; layout reseeds, and all interaction and animation
// state resets.
func (e *Engine) Rebind(rt repotree.RepoTree, h history.History) {
	e.animator.Shutdown()
	e.store.Clear()
	e.tree = repotree.Build(rt)
	e.filter.Rebind(e.tree)
	e.selector.Rebind(e.tree)
	e.history = h
	e.relayout()
}

// Tree returns the built tree for read-only queries.
func (e *Engine) Tree() *repotree.Tree { return e.tree }

// History returns the bound commit history.
func (e *Engine) History() history.History { return e.history }

// ============================================================================
// Layout control
// ============================================================================

// LayoutMode returns the active layout engine.
func (e *Engine) LayoutMode() LayoutMode { return e.layoutMode }

// SwitchLayout swaps the active layout engine. Switching away from the force
// engine stops its ticking; switching to pack recomputes positions in one
// shot. The two engines are never active simultaneously.
func (e *Engine) SwitchLayout(m LayoutMode) {
	if m == e.layoutMode {
		return
	}
	e.layoutMode = m
	e.relayout()
}

// VisibilityMode returns the active visibility mode.
func (e *Engine) VisibilityMode() visibility.Mode { return e.filter.Mode() }

// SwitchVisibility changes the visibility mode and recomputes layout over the
// new visible subgraph.
func (e *Engine) SwitchVisibility(m visibility.Mode) {
	if m == e.filter.Mode() {
		return
	}
	e.filter.SwitchMode(m)
	e.relayout()
}

// ToggleExpand flips a directory's expansion in collapsible-tree mode and
// recomputes layout.
func (e *Engine) ToggleExpand(id string) {
	e.filter.ToggleExpand(id)
	e.relayout()
}

// relayout rebinds the active engine to the current visible subgraph.
// Surviving nodes keep their stored positions; the inactive engine is
// stopped so it cannot write stale coordinates.
func (e *Engine) relayout() {
	visibleIDs := e.filter.VisibleNodes()
	observability.Layout().OnLayoutStart(e.ctx, e.layoutMode.String(), len(visibleIDs))

	if e.layoutMode == CirclePack {
		e.force.Stop()
		e.forceLive = false
		start := time.Now()
		e.pack.Apply(e.tree, e.filter.VisibleSet(), e.store)
		observability.Layout().OnLayoutSettled(e.ctx, "pack", 1, time.Since(start))
		return
	}

	nodes := make([]repotree.FlatNode, 0, len(visibleIDs))
	for _, id := range visibleIDs {
		if n, ok := e.tree.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	e.force.SetGraph(nodes, e.filter.VisibleEdges())
	e.forceTicks = 0
	e.forceStarted = time.Now()
	e.forceLive = true
}

// Tick advances the scene by dt: one force step when the simulation is
// running, then the animation scheduler. It reports whether anything still
// needs further ticks, so the host loop can idle when the scene is at rest.
func (e *Engine) Tick(dt time.Duration) bool {
	moved := false
	if e.layoutMode == ForceDirected && e.force.Tick() {
		e.forceTicks++
		moved = true
	} else if e.forceLive {
		e.forceLive = false
		observability.Layout().OnLayoutSettled(e.ctx, "force", e.forceTicks, time.Since(e.forceStarted))
	}
	if e.sched.Tick(dt) > 0 || e.sched.Pending() > 0 {
		moved = true
	}
	return moved
}

// PinNode pins a node under a pointer drag. Only meaningful in force mode.
func (e *Engine) PinNode(id string, x, y float64) {
	e.force.Pin(id, x, y)
}

// ReleaseNode releases a dragged node and reheats the simulation so its
// neighbors resettle.
func (e *Engine) ReleaseNode(id string) {
	e.force.Release(id)
	e.force.Reheat()
	e.forceLive = true
	e.forceTicks = 0
	e.forceStarted = time.Now()
}

// Resize reacts to a viewport change: the animation origin moves so
// projectiles still launch from above the top edge, and the pack layout is
// recomputed. The force simulation is viewport-independent and keeps
// running undisturbed.
func (e *Engine) Resize(width, height float64) {
	e.animator.SetOrigin(layout.Point{X: 0, Y: -height/2 - 40})
	if e.layoutMode == CirclePack {
		e.relayout()
	}
}

// ============================================================================
// Commit playback
// ============================================================================

// SetCommitIndex reacts to an externally driven commit index. Unresolvable
// files are skipped silently; hook counts record how many launched.
func (e *Engine) SetCommitIndex(index int) {
	commit, ok := e.history.At(index)
	if !ok {
		return
	}
	launched := e.animator.SetCommit(e.history, index, e.tree, e.filter.VisibleSet())
	observability.Animation().OnCommitApplied(
		e.ctx, commit.SHA, index, len(launched), len(commit.Files)-len(launched))
}

// CommitIndex returns the current commit index, -1 before playback starts.
func (e *Engine) CommitIndex() int { return e.animator.Index() }

// Flights returns the in-flight projectiles for rendering.
func (e *Engine) Flights() []anim.Projectile { return e.animator.Flights() }

// Now returns the scheduler's virtual time, for projectile interpolation.
func (e *Engine) Now() time.Duration { return e.sched.Now() }

// ============================================================================
// Selection and search
// ============================================================================

// SetQuery sets the highlight substring query.
func (e *Engine) SetQuery(q string) { e.selector.SetQuery(q) }

// SetExtension sets the highlight extension filter.
func (e *Engine) SetExtension(ext string) { e.selector.SetExtension(ext) }

// Highlight returns the visible nodes matching the active query and filter.
func (e *Engine) Highlight() map[string]struct{} { return e.selector.Highlight() }

// SetHover records the hovered node ("" clears).
func (e *Engine) SetHover(id string) { e.selector.SetHover(id) }

// HoverPath returns the hovered node's path-to-root nodes and edges.
func (e *Engine) HoverPath() (map[string]struct{}, []repotree.Edge) {
	return e.selector.HoverPath()
}

// MoveCursor shifts the keyboard cursor, wrapping at both ends.
func (e *Engine) MoveCursor(delta int) { e.selector.MoveCursor(delta) }

// Cursor returns the keyboard cursor index into the visible ordering.
func (e *Engine) Cursor() int { return e.selector.Cursor() }

// CursorNode returns the node ID under the keyboard cursor.
func (e *Engine) CursorNode() string { return e.selector.CursorNode() }

// Select picks the node under the cursor, firing OnNodeSelected. Selecting a
// collapsible directory toggles its expansion, which changes visibility, so
// layout recomputes.
func (e *Engine) Select() string {
	before := len(e.filter.VisibleNodes())
	id := e.selector.Select()
	if id == "" {
		return ""
	}
	if len(e.filter.VisibleNodes()) != before {
		e.relayout()
	}
	if e.OnNodeSelected != nil {
		e.OnNodeSelected(id)
	}
	return id
}

// ============================================================================
// Renderer snapshot
// ============================================================================

// VisibleNodes returns the visible node IDs in stable order.
func (e *Engine) VisibleNodes() []string { return e.filter.VisibleNodes() }

// VisibleEdges returns the visible edges.
func (e *Engine) VisibleEdges() []repotree.Edge { return e.filter.VisibleEdges() }

// Positions returns a snapshot of the shared position store.
func (e *Engine) Positions() map[string]layout.Point { return e.store.Snapshot() }

// Position returns one node's position, reporting whether it is known.
func (e *Engine) Position(id string) (layout.Point, bool) { return e.store.Get(id) }

// LabelEligible reports whether a packed circle is large enough to label.
func (e *Engine) LabelEligible(p layout.Point) bool {
	return e.pack.LabelEligible(pack.Circle{X: p.X, Y: p.Y, R: p.R})
}
