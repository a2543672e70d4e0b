package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/gitscape/gitscape/pkg/cache"
	"github.com/gitscape/gitscape/pkg/history"
	"github.com/gitscape/gitscape/pkg/observability"
	"github.com/gitscape/gitscape/pkg/repotree"
)

type testRepo struct {
	t    *testing.T
	dir  string
	wt   *git.Worktree
	repo *git.Repository
}

func initRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	return &testRepo{t: t, dir: dir, wt: wt, repo: repo}
}

func (r *testRepo) write(rel, content string) {
	r.t.Helper()
	full := filepath.Join(r.dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", rel, err)
	}
	if _, err := r.wt.Add(rel); err != nil {
		r.t.Fatalf("add %s: %v", rel, err)
	}
}

func (r *testRepo) remove(rel string) {
	r.t.Helper()
	if _, err := r.wt.Remove(rel); err != nil {
		r.t.Fatalf("remove %s: %v", rel, err)
	}
}

func (r *testRepo) commit(msg string) {
	r.t.Helper()
	sig := &object.Signature{Name: "Ada", Email: "ada@example.com", When: time.Now()}
	if _, err := r.wt.Commit(msg, &git.CommitOptions{Author: sig}); err != nil {
		r.t.Fatalf("commit %q: %v", msg, err)
	}
}

func twoCommitRepo(t *testing.T) *testRepo {
	r := initRepo(t)
	r.write("src/main.go", "package main\n")
	r.write("README.md", "# hello\n")
	r.commit("initial import")

	r.write("src/main.go", "package main\n\nfunc main() {}\n")
	r.write("src/util.go", "package main\n")
	r.remove("README.md")
	r.commit("grow src, drop readme")
	return r
}

func changesByFile(c history.Commit) map[string]string {
	out := make(map[string]string, len(c.Files))
	for _, fc := range c.Files {
		out[fc.Filename] = fc.Status
	}
	return out
}

func TestScanTreeReflectsHead(t *testing.T) {
	r := twoCommitRepo(t)

	res, err := NewScanner(r.dir).Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(res.HeadSHA) != 40 {
		t.Errorf("head sha = %q, want 40 hex chars", res.HeadSHA)
	}

	tree := repotree.Build(res.Tree)
	for _, id := range []string{"src", "src/main.go", "src/util.go"} {
		if !tree.Contains(id) {
			t.Errorf("tree missing %s", id)
		}
	}
	if tree.Contains("README.md") {
		t.Error("README.md was deleted before HEAD but still scanned")
	}

	if p, _ := tree.Parent("src/main.go"); p != "src" {
		t.Errorf("parent of src/main.go = %q, want src", p)
	}
	if p, _ := tree.Parent("src"); p != repotree.RootID {
		t.Errorf("parent of src = %q, want ROOT", p)
	}

	n, _ := tree.Node("src/main.go")
	if n.Extension != "go" || n.Size == 0 {
		t.Errorf("file node = %+v, want go extension and nonzero size", n)
	}
}

func TestScanHistoryOldestFirst(t *testing.T) {
	r := twoCommitRepo(t)

	res, err := NewScanner(r.dir).Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.History.Len() != 2 {
		t.Fatalf("history len = %d, want 2", res.History.Len())
	}

	first, _ := res.History.At(0)
	if first.Message != "initial import" {
		t.Fatalf("first commit = %q, history is not oldest-first", first.Message)
	}
	if first.Author.Name != "Ada" {
		t.Errorf("author = %q, want Ada", first.Author.Name)
	}
	got := changesByFile(first)
	if got["src/main.go"] != history.StatusAdded || got["README.md"] != history.StatusAdded {
		t.Errorf("first commit changes = %v", got)
	}

	second, _ := res.History.At(1)
	got = changesByFile(second)
	if got["src/main.go"] != history.StatusModified {
		t.Errorf("src/main.go status = %q, want modified", got["src/main.go"])
	}
	if got["src/util.go"] != history.StatusAdded {
		t.Errorf("src/util.go status = %q, want added", got["src/util.go"])
	}
	if got["README.md"] != history.StatusRemoved {
		t.Errorf("README.md status = %q, want removed", got["README.md"])
	}

	// Replay across the whole history: README.md is gone, both sources live.
	active := res.History.FilesActive(1)
	if _, ok := active["README.md"]; ok {
		t.Error("README.md still active after its removal commit")
	}
	if _, ok := active["src/util.go"]; !ok {
		t.Error("src/util.go not active at HEAD")
	}
}

func TestScanCommitLimit(t *testing.T) {
	r := twoCommitRepo(t)

	res, err := NewScanner(r.dir, WithCommitLimit(1)).Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.History.Len() != 1 {
		t.Fatalf("history len = %d, want 1", res.History.Len())
	}
	only, _ := res.History.At(0)
	if only.Message != "grow src, drop readme" {
		t.Errorf("limited history kept %q, want the newest commit", only.Message)
	}
}

func TestScanNotARepository(t *testing.T) {
	_, err := NewScanner(t.TempDir()).Scan(context.Background())
	if err == nil {
		t.Fatal("scanning a plain directory should fail")
	}
}

type countingCacheHooks struct {
	observability.NoopCacheHooks
	hits, sets int
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *countingCacheHooks) OnCacheSet(context.Context, string, int) { h.sets++ }

func TestScanUsesCacheOnUnchangedHead(t *testing.T) {
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	r := twoCommitRepo(t)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("file cache: %v", err)
	}
	s := NewScanner(r.dir, WithCache(fc))

	first, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if hooks.sets != 2 {
		t.Fatalf("cache sets = %d, want tree and history written", hooks.sets)
	}

	second, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if hooks.hits == 0 {
		t.Error("second scan of an unchanged HEAD should hit the cache")
	}
	if second.HeadSHA != first.HeadSHA || len(second.Tree.Nodes) != len(first.Tree.Nodes) {
		t.Error("cached scan differs from the original")
	}

	// A new commit moves HEAD and must bypass the stale entries.
	r.write("src/extra.go", "package main\n")
	r.commit("one more")
	third, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("third scan: %v", err)
	}
	if third.HeadSHA == first.HeadSHA {
		t.Error("scan after a new commit returned the old HEAD")
	}
	if third.History.Len() != 3 {
		t.Errorf("history len = %d, want 3", third.History.Len())
	}
}

func TestCacheKeysScopedToWorktree(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()

	t.Chdir(dirA)
	a := NewScanner(".")
	t.Chdir(dirB)
	b := NewScanner(".")

	// Both scanners see the literal path "." but point at different
	// worktrees; sharing one cache directory must not alias them.
	if a.keyer.TreeKey(".", "deadbeef") == b.keyer.TreeKey(".", "deadbeef") {
		t.Error("two worktrees scanned as \".\" share a tree cache key")
	}
	if a.keyer.HistoryKey(".", "deadbeef", 500) == b.keyer.HistoryKey(".", "deadbeef", 500) {
		t.Error("two worktrees scanned as \".\" share a history cache key")
	}
}

func TestWatcherDebouncesEvents(t *testing.T) {
	dir := t.TempDir()
	fired := make(chan struct{}, 1)
	w, err := NewWatcher(dir, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// A burst of writes collapses into one callback.
	for i := range 3 {
		name := filepath.Join(dir, "f"+string(rune('a'+i)))
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never fired")
	}
}

func TestWatcherIgnoresLockFiles(t *testing.T) {
	if !ignoreWatchPath("/repo/.git/index.lock") {
		t.Error(".lock files should be ignored")
	}
	if ignoreWatchPath("/repo/.git/HEAD") {
		t.Error("HEAD changes must not be ignored")
	}
}
