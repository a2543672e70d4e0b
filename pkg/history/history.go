// Package history models commit history as the replayable record the
// animation layer consumes: an ordered list of commits, each carrying the
// files it touched and their change status.
//
// The package has no knowledge of any version-control system. It operates
// purely on the commit/file-change documents it is handed (typically produced
// by pkg/gitsource or read from a JSON document written by `gitscape scan`).
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// File change statuses.
const (
	StatusAdded    = "added"
	StatusRemoved  = "removed"
	StatusModified = "modified"
	StatusRenamed  = "renamed"
)

// FileChange records one file touched by a commit.
type FileChange struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Author identifies who made a commit. AvatarURL is a reference for the
// renderer; it is never fetched here.
type Author struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Commit is a single entry of the replayable history.
type Commit struct {
	SHA       string       `json:"sha"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	Author    Author       `json:"author"`
	Files     []FileChange `json:"files"`
}

// History is the canonical serialization format for commit history.
// Commits are ordered oldest first so index-based replay walks forward in
// time.
type History struct {
	Commits []Commit `json:"commits"`
}

// Len returns the number of commits.
func (h History) Len() int { return len(h.Commits) }

// At returns the commit at index and true, or a zero commit and false when
// the index is out of range. Lookups are total: callers treat absence as
// "nothing to animate", never as an error.
func (h History) At(index int) (Commit, bool) {
	if index < 0 || index >= len(h.Commits) {
		return Commit{}, false
	}
	return h.Commits[index], true
}

// FilesActive replays add/modify/remove statuses from the start of history
// up to and including index, and returns the set of file paths alive at that
// point. A rename or modify of an unseen file counts as an add, matching how
// truncated histories surface mid-life files.
func (h History) FilesActive(index int) map[string]struct{} {
	active := make(map[string]struct{})
	if index >= len(h.Commits) {
		index = len(h.Commits) - 1
	}
	for i := 0; i <= index && i >= 0; i++ {
		for _, fc := range h.Commits[i].Files {
			switch fc.Status {
			case StatusRemoved:
				delete(active, fc.Filename)
			default:
				active[fc.Filename] = struct{}{}
			}
		}
	}
	return active
}

// MarshalHistory serializes a History to pretty-printed JSON bytes.
func MarshalHistory(h History) ([]byte, error) {
	return json.MarshalIndent(h, "", "  ")
}

// ReadHistory decodes a JSON history document from an io.Reader.
func ReadHistory(r io.Reader) (History, error) {
	var h History
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return History{}, fmt.Errorf("decode history: %w", err)
	}
	return h, nil
}

// ReadHistoryFile reads a JSON history document from a file.
func ReadHistoryFile(path string) (History, error) {
	f, err := os.Open(path)
	if err != nil {
		return History{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadHistory(f)
}

// WriteHistory writes a History as indented JSON to an io.Writer.
func WriteHistory(h History, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return nil
}

// WriteHistoryFile writes a History to a JSON file with 0644 permissions.
func WriteHistoryFile(h History, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteHistory(h, f)
}
