package engine

import (
	"context"
	"testing"
	"time"

	"github.com/gitscape/gitscape/pkg/history"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/observability"
	"github.com/gitscape/gitscape/pkg/repotree"
	"github.com/gitscape/gitscape/pkg/visibility"
)

func sceneData() (repotree.RepoTree, history.History) {
	rt := repotree.RepoTree{Nodes: []repotree.FlatNode{
		{ID: "src", Name: "src", Kind: repotree.KindDirectory, Path: "src", ParentID: repotree.RootID},
		{ID: "src/a.ts", Name: "a.ts", Kind: repotree.KindFile, Path: "src/a.ts", Size: 500, Extension: "ts", ParentID: "src"},
		{ID: "src/b.ts", Name: "b.ts", Kind: repotree.KindFile, Path: "src/b.ts", Size: 900, Extension: "ts", ParentID: "src"},
		{ID: "README.md", Name: "README.md", Kind: repotree.KindFile, Path: "README.md", Size: 40, Extension: "md", ParentID: repotree.RootID},
	}}
	h := history.History{Commits: []history.Commit{
		{SHA: "c1", Message: "init", Files: []history.FileChange{
			{Filename: "src/a.ts", Status: history.StatusAdded},
			{Filename: "README.md", Status: history.StatusAdded},
		}},
		{SHA: "c2", Message: "more", Files: []history.FileChange{
			{Filename: "src/b.ts", Status: history.StatusAdded},
			{Filename: "README.md", Status: history.StatusRemoved},
		}},
	}}
	return rt, h
}

func newScene(t *testing.T) *Engine {
	t.Helper()
	rt, h := sceneData()
	return New(context.Background(), rt, h, layout.DefaultConfig())
}

func settle(e *Engine) {
	for range 5000 {
		if !e.Tick(16 * time.Millisecond) {
			return
		}
	}
}

func TestNewStartsForceLayoutOverFullTree(t *testing.T) {
	e := newScene(t)

	if e.LayoutMode() != ForceDirected {
		t.Fatalf("layout mode = %v, want force", e.LayoutMode())
	}
	if got := len(e.VisibleNodes()); got != 5 {
		t.Fatalf("visible = %d, want 5 (root + 4)", got)
	}
	settle(e)
	pos := e.Positions()
	if len(pos) != 5 {
		t.Fatalf("positions = %d, want 5", len(pos))
	}
}

func TestSwitchLayoutIsExclusive(t *testing.T) {
	e := newScene(t)
	settle(e)

	e.SwitchLayout(CirclePack)
	if e.LayoutMode() != CirclePack {
		t.Fatal("mode did not switch")
	}
	// Pack is one-shot: the scene is immediately at rest (no pending timers).
	if e.Tick(16 * time.Millisecond) {
		t.Error("pack layout should not keep ticking")
	}
	root, ok := e.Position(repotree.RootID)
	if !ok || root.R == 0 {
		t.Errorf("pack did not write a root circle: %+v", root)
	}

	e.SwitchLayout(ForceDirected)
	if !e.Tick(16 * time.Millisecond) {
		t.Error("switching back to force should resume ticking")
	}
}

func TestVisibilityChangeRecomputesLayout(t *testing.T) {
	e := newScene(t)
	e.SwitchLayout(CirclePack)

	e.SwitchVisibility(visibility.FoldersOnly)
	for _, id := range e.VisibleNodes() {
		if n, _ := e.Tree().Node(id); n.IsFile() {
			t.Errorf("file %s visible in folders mode", id)
		}
	}
}

func TestEndToEndCollapsibleFlow(t *testing.T) {
	e := newScene(t)
	e.SwitchVisibility(visibility.CollapsibleTree)

	want := map[string]struct{}{repotree.RootID: {}, "src": {}, "README.md": {}}
	got := e.VisibleNodes()
	if len(got) != len(want) {
		t.Fatalf("visible = %v, want root level only", got)
	}

	e.ToggleExpand("src")
	if got := len(e.VisibleNodes()); got != 5 {
		t.Fatalf("visible after expand = %d, want 5", got)
	}

	e.ToggleExpand("src")
	if got := len(e.VisibleNodes()); got != 3 {
		t.Fatalf("visible after collapse = %d, want 3", got)
	}
}

func TestCommitPlaybackCallbacks(t *testing.T) {
	e := newScene(t)
	settle(e)

	var selected string
	var lastIndex int
	var active map[string]struct{}
	e.OnNodeSelected = func(id string) { selected = id }
	e.OnCommitChanged = func(c history.Commit, index int) { lastIndex = index }
	e.OnFilesActive = func(files map[string]struct{}) { active = files }

	e.SetCommitIndex(0)
	if lastIndex != 0 {
		t.Fatalf("commit-changed index = %d, want 0", lastIndex)
	}
	if _, ok := active["README.md"]; !ok {
		t.Errorf("files-active = %v, want README.md alive after c1", active)
	}
	if len(e.Flights()) == 0 {
		t.Error("no projectiles launched for a commit touching visible files")
	}

	// Replay to c2: README.md was removed there.
	e.SetCommitIndex(1)
	if _, ok := active["README.md"]; ok {
		t.Errorf("files-active = %v, README.md should be removed at c2", active)
	}
	if _, ok := active["src/b.ts"]; !ok {
		t.Errorf("files-active = %v, want src/b.ts alive at c2", active)
	}

	e.MoveCursor(1)
	if got := e.Select(); got == "" || selected != got {
		t.Errorf("select = %q, callback saw %q", got, selected)
	}
}

func TestSelectTogglesDirectoryAndRelayouts(t *testing.T) {
	e := newScene(t)
	e.SwitchVisibility(visibility.CollapsibleTree)
	e.SwitchLayout(CirclePack)

	// Cursor index 1 is "src" (root first, input order).
	e.MoveCursor(1)
	if id := e.Select(); id != "src" {
		t.Fatalf("select = %q, want src", id)
	}
	// Expansion changed visibility; pack must have placed the new children.
	if _, ok := e.Position("src/a.ts"); !ok {
		t.Error("expanded child has no packed position")
	}
}

func TestHighlightAndHoverSnapshot(t *testing.T) {
	e := newScene(t)

	e.SetQuery("a.ts")
	hl := e.Highlight()
	if _, ok := hl["src/a.ts"]; !ok || len(hl) != 1 {
		t.Errorf("highlight = %v, want exactly src/a.ts", hl)
	}
	e.SetQuery("")
	if got := e.Highlight(); len(got) != 0 {
		t.Errorf("highlight after clear = %v, want empty", got)
	}

	e.SetHover("src/b.ts")
	nodes, edges := e.HoverPath()
	if len(nodes) != 3 || len(edges) != 2 {
		t.Errorf("hover path = %v / %v, want 3 nodes and 2 edges", nodes, edges)
	}
}

func TestDragPinAndRelease(t *testing.T) {
	e := newScene(t)
	settle(e)

	e.PinNode("src", 120, -40)
	e.Tick(16 * time.Millisecond)
	p, _ := e.Position("src")
	if p.X != 120 || p.Y != -40 {
		t.Fatalf("pinned position = %+v, want (120,-40)", p)
	}

	e.ReleaseNode("src")
	if !e.Tick(16 * time.Millisecond) {
		t.Error("release should reheat the simulation")
	}
}

type countingLayoutHooks struct {
	observability.NoopLayoutHooks
	packSettles int
}

func (h *countingLayoutHooks) OnLayoutSettled(_ context.Context, mode string, _ int, _ time.Duration) {
	if mode == "pack" {
		h.packSettles++
	}
}

func TestResizeRecomputesPackLayout(t *testing.T) {
	hooks := &countingLayoutHooks{}
	observability.SetLayoutHooks(hooks)
	t.Cleanup(observability.Reset)

	e := newScene(t)
	e.SwitchLayout(CirclePack)
	before := hooks.packSettles

	e.Resize(120, 80)
	if hooks.packSettles != before+1 {
		t.Errorf("pack settles after resize = %d, want %d", hooks.packSettles, before+1)
	}

	// The force layout is viewport-independent: a resize at rest must not
	// wake the simulation.
	e.SwitchLayout(ForceDirected)
	settle(e)
	e.Resize(200, 100)
	if e.Tick(16 * time.Millisecond) {
		t.Error("resize in force mode restarted the scene")
	}
}

func TestRebindResetsScene(t *testing.T) {
	e := newScene(t)
	settle(e)
	e.SetCommitIndex(0)

	rt := repotree.RepoTree{Nodes: []repotree.FlatNode{
		{ID: "lib", Name: "lib", Kind: repotree.KindDirectory, Path: "lib", ParentID: repotree.RootID},
	}}
	e.Rebind(rt, history.History{})

	if got := len(e.VisibleNodes()); got != 2 {
		t.Fatalf("visible after rebind = %d, want 2", got)
	}
	if len(e.Flights()) != 0 {
		t.Error("rebind should clear in-flight projectiles")
	}
	if e.CommitIndex() != -1 {
		t.Errorf("commit index after rebind = %d, want -1", e.CommitIndex())
	}
	if _, ok := e.Position("src/a.ts"); ok {
		t.Error("position of a node outside the new tree survived rebind")
	}
}
