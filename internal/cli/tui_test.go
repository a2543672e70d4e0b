package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gitscape/gitscape/pkg/engine"
	"github.com/gitscape/gitscape/pkg/gitsource"
	"github.com/gitscape/gitscape/pkg/history"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/repotree"
	"github.com/gitscape/gitscape/pkg/visibility"
)

func testModel(t *testing.T) SceneModel {
	t.Helper()
	rt := repotree.RepoTree{Nodes: []repotree.FlatNode{
		{ID: "src", Name: "src", Kind: repotree.KindDirectory, Path: "src", ParentID: repotree.RootID},
		{ID: "src/a.go", Name: "a.go", Kind: repotree.KindFile, Path: "src/a.go", Size: 100, Extension: "go", ParentID: "src"},
		{ID: "docs.md", Name: "docs.md", Kind: repotree.KindFile, Path: "docs.md", Size: 10, Extension: "md", ParentID: repotree.RootID},
	}}
	h := history.History{Commits: []history.Commit{
		{SHA: "c1", Message: "init", Files: []history.FileChange{
			{Filename: "src/a.go", Status: history.StatusAdded},
		}},
		{SHA: "c2", Message: "docs", Files: []history.FileChange{
			{Filename: "docs.md", Status: history.StatusAdded},
		}},
	}}
	e := engine.New(context.Background(), rt, h, layout.DefaultConfig())
	return NewSceneModel(e, "demo", "abcdef0123456789")
}

func update(t *testing.T, m SceneModel, msg tea.Msg) SceneModel {
	t.Helper()
	next, _ := m.Update(msg)
	sm, ok := next.(SceneModel)
	if !ok {
		t.Fatalf("Update returned %T, want SceneModel", next)
	}
	return sm
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSceneModelCursorMoves(t *testing.T) {
	m := testModel(t)

	m = update(t, m, keyMsg("j"))
	first := m.Engine.CursorNode()
	if first == "" {
		t.Fatal("cursor empty after j")
	}

	m = update(t, m, keyMsg("j"))
	if m.Engine.CursorNode() == first {
		t.Error("cursor did not move on second j")
	}

	m = update(t, m, keyMsg("k"))
	if m.Engine.CursorNode() != first {
		t.Error("k did not move the cursor back")
	}
}

func TestSceneModelQueryHighlights(t *testing.T) {
	m := testModel(t)

	m = update(t, m, keyMsg("/"))
	if !m.queryMode {
		t.Fatal("/ did not open the query prompt")
	}
	for _, r := range "a.go" {
		m = update(t, m, keyMsg(string(r)))
	}
	set := m.Engine.Highlight()
	if _, ok := set["src/a.go"]; !ok || len(set) != 1 {
		t.Fatalf("highlight = %v, want src/a.go only", set)
	}

	m = update(t, m, keyMsg("enter"))
	if m.queryMode {
		t.Error("enter did not close the query prompt")
	}
	if _, ok := m.Engine.Highlight()["src/a.go"]; !ok {
		t.Error("closing the prompt dropped the query")
	}

	m = update(t, m, keyMsg("esc"))
	if len(m.Engine.Highlight()) != 0 {
		t.Error("esc did not clear the highlight")
	}
}

func TestSceneModelExtensionQuery(t *testing.T) {
	m := testModel(t)

	m = update(t, m, keyMsg("/"))
	for _, r := range "ext:md" {
		m = update(t, m, keyMsg(string(r)))
	}
	set := m.Engine.Highlight()
	if _, ok := set["docs.md"]; !ok || len(set) != 1 {
		t.Fatalf("highlight = %v, want docs.md only", set)
	}
}

func TestSceneModelCommitScrub(t *testing.T) {
	m := testModel(t)

	m = update(t, m, keyMsg("right"))
	if got := m.Engine.CommitIndex(); got != 0 {
		t.Fatalf("index after right = %d, want 0", got)
	}
	// At the oldest commit, scrubbing back stays put.
	m = update(t, m, keyMsg("left"))
	if got := m.Engine.CommitIndex(); got != 0 {
		t.Fatalf("index after left at start = %d, want 0", got)
	}
	m = update(t, m, keyMsg("l"))
	if got := m.Engine.CommitIndex(); got != 1 {
		t.Fatalf("index = %d, want 1", got)
	}
	// At the newest commit, scrubbing forward stays put.
	m = update(t, m, keyMsg("l"))
	if got := m.Engine.CommitIndex(); got != 1 {
		t.Fatalf("index past end = %d, want 1", got)
	}
}

func TestSceneModelAutoplayAdvances(t *testing.T) {
	m := testModel(t)

	m = update(t, m, keyMsg(" "))
	if !m.autoplay {
		t.Fatal("space did not start autoplay")
	}

	now := time.Now()
	m = update(t, m, frameMsg(now))
	if got := m.Engine.CommitIndex(); got != 0 {
		t.Fatalf("index after first autoplay step = %d, want 0", got)
	}

	// Within the interval nothing advances.
	m = update(t, m, frameMsg(now.Add(frameInterval)))
	if got := m.Engine.CommitIndex(); got != 0 {
		t.Fatalf("index advanced too early: %d", got)
	}

	m = update(t, m, frameMsg(now.Add(autoplayInterval+frameInterval)))
	if got := m.Engine.CommitIndex(); got != 1 {
		t.Fatalf("index = %d, want 1 after interval", got)
	}

	// Past the last commit autoplay switches itself off.
	m = update(t, m, frameMsg(now.Add(2*autoplayInterval+frameInterval)))
	if m.autoplay {
		t.Error("autoplay still running past the last commit")
	}
}

func TestSceneModelRebindResets(t *testing.T) {
	m := testModel(t)
	m = update(t, m, keyMsg("l"))

	res := &gitsource.Result{
		Tree: repotree.RepoTree{Nodes: []repotree.FlatNode{
			{ID: "lib", Name: "lib", Kind: repotree.KindDirectory, Path: "lib", ParentID: repotree.RootID},
		}},
		HeadSHA: "feedface00000000",
	}
	m = update(t, m, rebindMsg{res: res})

	if m.HeadSHA != res.HeadSHA {
		t.Errorf("head = %q, want %q", m.HeadSHA, res.HeadSHA)
	}
	if m.Engine.CommitIndex() != -1 {
		t.Errorf("commit index = %d, want -1 after rebind", m.Engine.CommitIndex())
	}
	if !m.Engine.Tree().Contains("lib") {
		t.Error("rebound tree missing new node")
	}
}

func TestSceneModelViewRenders(t *testing.T) {
	m := testModel(t)

	if got := m.View(); got != "loading..." {
		t.Fatalf("zero-size view = %q", got)
	}

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	for i := 0; i < 10; i++ {
		m = update(t, m, frameMsg(time.Now().Add(time.Duration(i)*frameInterval)))
	}

	out := m.View()
	if !strings.Contains(out, "demo") {
		t.Error("view missing repository name")
	}
	if !strings.Contains(out, "abcdef0") {
		t.Error("view missing abbreviated HEAD")
	}
	if !strings.Contains(out, glyphRoot) {
		t.Error("view missing root glyph")
	}
}

func TestSceneModelLayoutAndVisibilityKeys(t *testing.T) {
	m := testModel(t)

	m = update(t, m, keyMsg("p"))
	if m.Engine.LayoutMode() != engine.CirclePack {
		t.Error("p did not switch to pack layout")
	}
	m = update(t, m, keyMsg("f"))
	if m.Engine.LayoutMode() != engine.ForceDirected {
		t.Error("f did not switch back to force layout")
	}

	m = update(t, m, keyMsg("m"))
	if m.Engine.VisibilityMode() != visibility.FoldersOnly {
		t.Errorf("visibility = %v, want folders", m.Engine.VisibilityMode())
	}
}

func TestNextVisibilityCycles(t *testing.T) {
	modes := []visibility.Mode{visibility.Full, visibility.FoldersOnly, visibility.CollapsibleTree}
	got := visibility.Full
	for i := 0; i < len(modes); i++ {
		got = nextVisibility(got)
		if got != modes[(i+1)%len(modes)] {
			t.Fatalf("cycle step %d = %v", i, got)
		}
	}
}
