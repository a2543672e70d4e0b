package repotree

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gitscape/gitscape/pkg/errors"
)

// RootID is the node ID of the synthetic root representing the repository
// itself. It is always present in a built [Tree] and has no parent.
const RootID = "ROOT"

// Node kinds.
const (
	KindFile      = "file"
	KindDirectory = "directory"
)

// FlatNode is a single entry of the flat tree representation handed to
// [Build]. IDs must be unique; ParentID may be empty (or dangling, in which
// case the node is attached directly under ROOT).
type FlatNode struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Path      string  `json:"path"`
	Size      float64 `json:"size,omitempty"`
	Extension string  `json:"extension,omitempty"`
	ParentID  string  `json:"parentId,omitempty"`
}

// IsFile reports whether the node represents a file.
func (n FlatNode) IsFile() bool { return n.Kind == KindFile }

// IsDirectory reports whether the node represents a directory.
func (n FlatNode) IsDirectory() bool { return n.Kind == KindDirectory }

// Edge is a directed parent→child link between two node IDs.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// RepoTree is the canonical serialization format for repository trees.
// It is the wire format produced by data sources and consumed by [Build].
type RepoTree struct {
	Nodes []FlatNode `json:"nodes"`
	Links []Edge     `json:"links"`
}

// Validate checks every node of an externally supplied tree document.
// IDs and paths from untrusted documents must be safe before they flow
// into cache keys, export labels, and the HTTP API.
func (rt RepoTree) Validate() error {
	for _, n := range rt.Nodes {
		if err := errors.ValidateNodeID(n.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidTree, err, "node %q", n.ID)
		}
		if n.Path != "" {
			if err := errors.ValidatePath(n.Path); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidTree, err, "node %q", n.ID)
			}
		}
	}
	return nil
}

// MarshalTree serializes a RepoTree to pretty-printed JSON bytes.
func MarshalTree(rt RepoTree) ([]byte, error) {
	return json.MarshalIndent(rt, "", "  ")
}

// UnmarshalTree deserializes JSON bytes into a RepoTree.
func UnmarshalTree(data []byte) (RepoTree, error) {
	var rt RepoTree
	if err := json.Unmarshal(data, &rt); err != nil {
		return RepoTree{}, fmt.Errorf("unmarshal tree: %w", err)
	}
	if err := rt.Validate(); err != nil {
		return RepoTree{}, err
	}
	return rt, nil
}

// ReadTree decodes a JSON tree document from an io.Reader.
func ReadTree(r io.Reader) (RepoTree, error) {
	var rt RepoTree
	if err := json.NewDecoder(r).Decode(&rt); err != nil {
		return RepoTree{}, fmt.Errorf("decode tree: %w", err)
	}
	if err := rt.Validate(); err != nil {
		return RepoTree{}, err
	}
	return rt, nil
}

// ReadTreeFile reads a JSON tree document from a file.
func ReadTreeFile(path string) (RepoTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return RepoTree{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTree(f)
}

// WriteTree writes a RepoTree as indented JSON to an io.Writer.
func WriteTree(rt RepoTree, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rt); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return nil
}

// WriteTreeFile writes a RepoTree to a JSON file with 0644 permissions.
func WriteTreeFile(rt RepoTree, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteTree(rt, f)
}
