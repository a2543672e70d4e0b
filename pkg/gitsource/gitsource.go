// Package gitsource is the external data-fetching collaborator: it scans a
// local git repository into the flattened tree and commit history documents
// the core consumes, and optionally watches the repository for changes.
//
// Scans are pure reads. The scanner never mutates the repository and holds no
// git state between calls; a HEAD-keyed cache makes repeated launches against
// an unchanged repository cheap.
package gitsource

import (
	"bytes"
	"context"
	"path"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/gitscape/gitscape/pkg/cache"
	"github.com/gitscape/gitscape/pkg/errors"
	"github.com/gitscape/gitscape/pkg/history"
	"github.com/gitscape/gitscape/pkg/observability"
	"github.com/gitscape/gitscape/pkg/repotree"
)

// DefaultCommitLimit bounds how much history a scan walks back from HEAD.
const DefaultCommitLimit = 500

// Scanner reads a repository into RepoTree and History documents.
type Scanner struct {
	path  string
	limit int
	cache cache.Cache
	keyer cache.Keyer
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithCache enables HEAD-keyed caching of scan results.
func WithCache(c cache.Cache) Option {
	return func(s *Scanner) { s.cache = c }
}

// WithCommitLimit overrides the history depth (0 keeps the default).
func WithCommitLimit(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewScanner creates a scanner for the repository at path. The path may be
// anywhere inside a worktree; the .git directory is detected upward.
func NewScanner(path string, opts ...Option) *Scanner {
	s := &Scanner{
		path:  path,
		limit: DefaultCommitLimit,
		cache: cache.NewNullCache(),
		keyer: cache.NewScopedKeyer(nil, worktreeScope(path)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// worktreeScope namespaces cache keys by the worktree's absolute path.
// The base keyer hashes the path string as given, so `gitscape scan .`
// run from two different worktrees would otherwise alias.
func worktreeScope(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return "worktree:" + abs + ":"
}

// Result is one complete scan: the flattened file tree at HEAD and the
// bounded commit history leading up to it, oldest first.
type Result struct {
	Tree    repotree.RepoTree `json:"tree"`
	History history.History   `json:"history"`
	HeadSHA string            `json:"headSha"`
}

// Scan reads the repository's HEAD tree and history. Results are cached by
// (path, HEAD) so a rescan after new commits never reads stale data.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()
	observability.Source().OnScanStart(ctx, s.path)

	res, err := s.scan(ctx)
	nodes, commits := 0, 0
	if res != nil {
		nodes, commits = len(res.Tree.Nodes), res.History.Len()
	}
	observability.Source().OnScanComplete(ctx, s.path, nodes, commits, time.Since(start), err)
	return res, err
}

func (s *Scanner) scan(ctx context.Context) (*Result, error) {
	repo, err := git.PlainOpenWithOptions(s.path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRepoOpen, err, "open repository at %s", s.path)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRepoScan, err, "resolve HEAD of %s", s.path)
	}
	headSHA := head.Hash().String()

	if res, ok := s.fromCache(ctx, headSHA); ok {
		return res, nil
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRepoScan, err, "read HEAD commit %s", headSHA)
	}

	rt, err := buildTree(commit)
	if err != nil {
		return nil, err
	}
	h, err := s.buildHistory(ctx, repo, commit)
	if err != nil {
		return nil, err
	}

	res := &Result{Tree: rt, History: h, HeadSHA: headSHA}
	s.toCache(ctx, headSHA, res)
	return res, nil
}

// buildTree flattens the commit's file tree into nodes with synthesized
// directory entries, parent links, and parent→child edges.
func buildTree(commit *object.Commit) (repotree.RepoTree, error) {
	tree, err := commit.Tree()
	if err != nil {
		return repotree.RepoTree{}, errors.Wrap(errors.ErrCodeRepoScan, err, "read tree of %s", commit.Hash)
	}

	var rt repotree.RepoTree
	seenDir := make(map[string]struct{})

	addDirChain := func(filePath string) string {
		parent := repotree.RootID
		segments := strings.Split(filePath, "/")
		for i := 0; i < len(segments)-1; i++ {
			dir := strings.Join(segments[:i+1], "/")
			if _, ok := seenDir[dir]; !ok {
				seenDir[dir] = struct{}{}
				rt.Nodes = append(rt.Nodes, repotree.FlatNode{
					ID:       dir,
					Name:     segments[i],
					Kind:     repotree.KindDirectory,
					Path:     dir,
					ParentID: parent,
				})
				rt.Links = append(rt.Links, repotree.Edge{Source: parent, Target: dir})
			}
			parent = dir
		}
		return parent
	}

	err = tree.Files().ForEach(func(f *object.File) error {
		parent := addDirChain(f.Name)
		rt.Nodes = append(rt.Nodes, repotree.FlatNode{
			ID:        f.Name,
			Name:      path.Base(f.Name),
			Kind:      repotree.KindFile,
			Path:      f.Name,
			Size:      float64(f.Size),
			Extension: strings.TrimPrefix(path.Ext(f.Name), "."),
			ParentID:  parent,
		})
		rt.Links = append(rt.Links, repotree.Edge{Source: parent, Target: f.Name})
		return nil
	})
	if err != nil {
		return repotree.RepoTree{}, errors.Wrap(errors.ErrCodeRepoScan, err, "walk tree of %s", commit.Hash)
	}
	return rt, nil
}

// buildHistory walks commits back from HEAD up to the limit and converts each
// into a replayable record, oldest first.
func (s *Scanner) buildHistory(ctx context.Context, repo *git.Repository, head *object.Commit) (history.History, error) {
	iter, err := repo.Log(&git.LogOptions{From: head.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return history.History{}, errors.Wrap(errors.ErrCodeRepoScan, err, "read log from %s", head.Hash)
	}
	defer iter.Close()

	var commits []history.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if len(commits) >= s.limit {
			return storer.ErrStop
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		files, err := commitChanges(ctx, c)
		if err != nil {
			return err
		}
		commits = append(commits, history.Commit{
			SHA:       c.Hash.String(),
			Message:   strings.SplitN(c.Message, "\n", 2)[0],
			Timestamp: c.Author.When,
			Author:    history.Author{Name: c.Author.Name},
			Files:     files,
		})
		return nil
	})
	if err != nil {
		return history.History{}, errors.Wrap(errors.ErrCodeRepoScan, err, "iterate commits")
	}

	// The log walks newest first; replay wants oldest first.
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return history.History{Commits: commits}, nil
}

// commitChanges diffs a commit against its first parent (or the empty tree
// for roots) and maps each change to a replayable file status.
func commitChanges(ctx context.Context, c *object.Commit) ([]history.FileChange, error) {
	current, err := c.Tree()
	if err != nil {
		return nil, err
	}
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, current, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, err
	}

	out := make([]history.FileChange, 0, len(changes))
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, err
		}
		var fc history.FileChange
		switch action {
		case merkletrie.Insert:
			fc = history.FileChange{Filename: ch.To.Name, Status: history.StatusAdded}
		case merkletrie.Delete:
			fc = history.FileChange{Filename: ch.From.Name, Status: history.StatusRemoved}
		case merkletrie.Modify:
			if ch.From.Name != ch.To.Name {
				fc = history.FileChange{Filename: ch.To.Name, Status: history.StatusRenamed}
			} else {
				fc = history.FileChange{Filename: ch.To.Name, Status: history.StatusModified}
			}
		default:
			continue
		}
		out = append(out, fc)
	}
	return out, nil
}

// ============================================================================
// Cache plumbing
// ============================================================================

func (s *Scanner) fromCache(ctx context.Context, headSHA string) (*Result, bool) {
	treeData, hit, err := s.cache.Get(ctx, s.keyer.TreeKey(s.path, headSHA))
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "tree")
		return nil, false
	}
	histData, hit, err := s.cache.Get(ctx, s.keyer.HistoryKey(s.path, headSHA, s.limit))
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "history")
		return nil, false
	}

	rt, err := repotree.UnmarshalTree(treeData)
	if err != nil {
		return nil, false
	}
	h, err := history.ReadHistory(bytes.NewReader(histData))
	if err != nil {
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "tree")
	return &Result{Tree: rt, History: h, HeadSHA: headSHA}, true
}

func (s *Scanner) toCache(ctx context.Context, headSHA string, res *Result) {
	treeData, err := repotree.MarshalTree(res.Tree)
	if err != nil {
		return
	}
	histData, err := history.MarshalHistory(res.History)
	if err != nil {
		return
	}
	// Best effort: a failed cache write never fails the scan.
	if err := s.cache.Set(ctx, s.keyer.TreeKey(s.path, headSHA), treeData, 0); err == nil {
		observability.Cache().OnCacheSet(ctx, "tree", len(treeData))
	}
	if err := s.cache.Set(ctx, s.keyer.HistoryKey(s.path, headSHA, s.limit), histData, 0); err == nil {
		observability.Cache().OnCacheSet(ctx, "history", len(histData))
	}
}
