package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gitscape/gitscape/pkg/engine"
	"github.com/gitscape/gitscape/pkg/history"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/repotree"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	rt := repotree.RepoTree{Nodes: []repotree.FlatNode{
		{ID: "src", Name: "src", Kind: repotree.KindDirectory, Path: "src", ParentID: repotree.RootID},
		{ID: "src/a.go", Name: "a.go", Kind: repotree.KindFile, Path: "src/a.go", Size: 100, Extension: "go", ParentID: "src"},
		{ID: "docs.md", Name: "docs.md", Kind: repotree.KindFile, Path: "docs.md", Size: 10, Extension: "md", ParentID: repotree.RootID},
	}}
	h := history.History{Commits: []history.Commit{
		{SHA: "0ad91f64b1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6", Message: "init", Files: []history.FileChange{
			{Filename: "src/a.go", Status: history.StatusAdded},
		}},
	}}
	e := engine.New(context.Background(), rt, h, layout.DefaultConfig())
	e.SwitchLayout(engine.CirclePack)

	ts := httptest.NewServer(New(e, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp
}

func TestGraphEndpoint(t *testing.T) {
	ts := testServer(t)

	var got graphResponse
	resp := getJSON(t, ts.URL+"/api/graph", &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(got.Nodes) != 4 {
		t.Errorf("nodes = %d, want 4 (root + 3)", len(got.Nodes))
	}
	if len(got.Edges) != 3 {
		t.Errorf("edges = %d, want 3", len(got.Edges))
	}
	if got.Nodes[0].ID != repotree.RootID {
		t.Errorf("first node = %s, want ROOT", got.Nodes[0].ID)
	}
}

func TestPositionsEndpoint(t *testing.T) {
	ts := testServer(t)

	var got map[string]layout.Point
	getJSON(t, ts.URL+"/api/positions", &got)
	p, ok := got["src/a.go"]
	if !ok || p.R == 0 {
		t.Errorf("positions = %v, want a packed circle for src/a.go", got)
	}
}

func TestCommitsEndpoint(t *testing.T) {
	ts := testServer(t)

	var got commitsResponse
	getJSON(t, ts.URL+"/api/commits", &got)
	if len(got.Commits) != 1 || got.Commits[0].SHA != "0ad91f64b1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6" {
		t.Errorf("commits = %+v", got.Commits)
	}
	if got.Index != -1 {
		t.Errorf("index = %d, want -1 before playback", got.Index)
	}
}

func TestCommitsEndpointShaFilter(t *testing.T) {
	ts := testServer(t)

	// Abbreviated prefix matches.
	var got commitsResponse
	getJSON(t, ts.URL+"/api/commits?sha=0ad91f", &got)
	if len(got.Commits) != 1 {
		t.Fatalf("filtered commits = %+v, want 1 match", got.Commits)
	}

	// A valid sha with no match returns an empty list, not an error.
	resp := getJSON(t, ts.URL+"/api/commits?sha=deadbeef", &got)
	if resp.StatusCode != http.StatusOK || len(got.Commits) != 0 {
		t.Errorf("status = %d, commits = %+v, want 200 and none", resp.StatusCode, got.Commits)
	}

	// Garbage is rejected before it touches the history.
	for _, bad := range []string{"ab", "xyz123", strings.Repeat("a", 65)} {
		var fail errorResponse
		resp := getJSON(t, ts.URL+"/api/commits?sha="+bad, &fail)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("sha=%q status = %d, want 400", bad, resp.StatusCode)
		}
		if fail.Code != "INVALID_INPUT" {
			t.Errorf("sha=%q code = %s", bad, fail.Code)
		}
	}
}

func TestHighlightEndpoint(t *testing.T) {
	ts := testServer(t)

	var got highlightResponse
	getJSON(t, ts.URL+"/api/highlight?q=a.go", &got)
	if len(got.IDs) != 1 || got.IDs[0] != "src/a.go" {
		t.Errorf("highlight = %v, want [src/a.go]", got.IDs)
	}

	// Empty query and no filter: empty set, not everything.
	getJSON(t, ts.URL+"/api/highlight", &got)
	if len(got.IDs) != 0 {
		t.Errorf("empty query highlight = %v, want none", got.IDs)
	}

	// Extension filter intersects.
	getJSON(t, ts.URL+"/api/highlight?q=.&ext=md", &got)
	if len(got.IDs) != 1 || got.IDs[0] != "docs.md" {
		t.Errorf("ext highlight = %v, want [docs.md]", got.IDs)
	}
}

func TestNodeEndpoint(t *testing.T) {
	ts := testServer(t)

	var got nodeResponse
	resp := getJSON(t, ts.URL+"/api/node/docs.md", &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got.Node.ID != "docs.md" || got.Position == nil {
		t.Errorf("node response = %+v", got)
	}
	if len(got.Path) != 2 || got.Path[1] != repotree.RootID {
		t.Errorf("path = %v, want [docs.md ROOT]", got.Path)
	}

	// IDs are repository paths: slashes must route through.
	getJSON(t, ts.URL+"/api/node/src/a.go", &got)
	if got.Node.ID != "src/a.go" {
		t.Errorf("nested node = %+v", got.Node)
	}
	if len(got.Path) != 3 {
		t.Errorf("nested path = %v, want 3 hops", got.Path)
	}
}

func TestNodeEndpointNotFound(t *testing.T) {
	ts := testServer(t)

	var got errorResponse
	resp := getJSON(t, ts.URL+"/api/node/nope", &got)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if got.Code != "NODE_NOT_FOUND" {
		t.Errorf("code = %s", got.Code)
	}
}

func TestParseIndex(t *testing.T) {
	if n, err := ParseIndex("3"); err != nil || n != 3 {
		t.Errorf("ParseIndex(3) = %d, %v", n, err)
	}
	for _, bad := range []string{"", "-1", "abc"} {
		if _, err := ParseIndex(bad); err == nil {
			t.Errorf("ParseIndex(%q) should fail", bad)
		}
	}
}
