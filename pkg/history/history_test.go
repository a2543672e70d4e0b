package history

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleHistory() History {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return History{Commits: []Commit{
		{
			SHA: "aaa", Message: "init", Timestamp: t0,
			Author: Author{Name: "ada"},
			Files: []FileChange{
				{Filename: "main.go", Status: StatusAdded, Additions: 10},
				{Filename: "util.go", Status: StatusAdded, Additions: 4},
			},
		},
		{
			SHA: "bbb", Message: "refactor", Timestamp: t0.Add(time.Hour),
			Author: Author{Name: "ada"},
			Files: []FileChange{
				{Filename: "util.go", Status: StatusRemoved, Deletions: 4},
				{Filename: "main.go", Status: StatusModified, Additions: 2, Deletions: 1},
			},
		},
		{
			SHA: "ccc", Message: "rename", Timestamp: t0.Add(2 * time.Hour),
			Author: Author{Name: "grace"},
			Files: []FileChange{
				{Filename: "app.go", Status: StatusRenamed},
			},
		},
	}}
}

func TestAt(t *testing.T) {
	h := sampleHistory()

	if c, ok := h.At(1); !ok || c.SHA != "bbb" {
		t.Errorf("At(1) = %q, %v, want bbb", c.SHA, ok)
	}
	if _, ok := h.At(-1); ok {
		t.Error("At(-1) should report false")
	}
	if _, ok := h.At(3); ok {
		t.Error("At(len) should report false")
	}
}

func TestFilesActive(t *testing.T) {
	h := sampleHistory()

	tests := []struct {
		name  string
		index int
		want  []string
	}{
		{name: "AfterInit", index: 0, want: []string{"main.go", "util.go"}},
		{name: "AfterRemove", index: 1, want: []string{"main.go"}},
		{name: "RenameCountsAsAdd", index: 2, want: []string{"main.go", "app.go"}},
		{name: "IndexPastEndClamps", index: 99, want: []string{"main.go", "app.go"}},
		{name: "NegativeIndexEmpty", index: -1, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.FilesActive(tt.index)
			if len(got) != len(tt.want) {
				t.Fatalf("active = %v, want %v", got, tt.want)
			}
			for _, f := range tt.want {
				if _, ok := got[f]; !ok {
					t.Errorf("active set missing %q", f)
				}
			}
		})
	}
}

func TestHistoryFileRoundTrip(t *testing.T) {
	h := sampleHistory()
	path := filepath.Join(t.TempDir(), "commits.json")

	if err := WriteHistoryFile(h, path); err != nil {
		t.Fatalf("WriteHistoryFile: %v", err)
	}
	got, err := ReadHistoryFile(path)
	if err != nil {
		t.Fatalf("ReadHistoryFile: %v", err)
	}
	if got.Len() != h.Len() {
		t.Fatalf("round trip = %d commits, want %d", got.Len(), h.Len())
	}
	if got.Commits[2].Author.Name != "grace" {
		t.Errorf("author = %q, want grace", got.Commits[2].Author.Name)
	}
}

func TestReadHistoryInvalid(t *testing.T) {
	if _, err := ReadHistory(strings.NewReader("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
