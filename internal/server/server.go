// Package server exposes the current scene over HTTP so an external renderer
// can poll the layout snapshot instead of embedding the engine.
//
// The engine is single-threaded by design, so every handler takes the scene
// lock; the API is read-mostly and the handlers stay cheap.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gitscape/gitscape/pkg/engine"
	"github.com/gitscape/gitscape/pkg/errors"
	"github.com/gitscape/gitscape/pkg/history"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/repotree"
)

// Server wraps an engine behind a chi router.
type Server struct {
	mu     sync.Mutex
	engine *engine.Engine
	logger *log.Logger
}

// New creates a server over the given scene.
func New(e *engine.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{engine: e, logger: logger}
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/positions", s.handlePositions)
		r.Get("/commits", s.handleCommits)
		r.Get("/highlight", s.handleHighlight)
		// Wildcard, not {id}: node IDs are repository paths with slashes.
		r.Get("/node/*", s.handleNode)
	})
	return r
}

// graphResponse is the visible subgraph an external renderer draws.
type graphResponse struct {
	Nodes []repotree.FlatNode `json:"nodes"`
	Edges []repotree.Edge     `json:"links"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tree := s.engine.Tree()
	ids := s.engine.VisibleNodes()
	nodes := make([]repotree.FlatNode, 0, len(ids))
	for _, id := range ids {
		if n, ok := tree.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	edges := s.engine.VisibleEdges()
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, graphResponse{Nodes: nodes, Edges: edges})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	positions := s.engine.Positions()
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, positions)
}

// commitsResponse pairs the history with the externally driven index so a
// scrubber UI can restore its cursor.
type commitsResponse struct {
	Commits []history.Commit `json:"commits"`
	Index   int              `json:"index"`
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	sha := strings.ToLower(r.URL.Query().Get("sha"))
	if sha != "" {
		if err := errors.ValidateSHA(sha); err != nil {
			s.writeError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidInput, err, "query sha"))
			return
		}
	}

	s.mu.Lock()
	h := s.engine.History()
	index := s.engine.CommitIndex()
	s.mu.Unlock()

	commits := h.Commits
	if sha != "" {
		commits = make([]history.Commit, 0, 1)
		for _, c := range h.Commits {
			if strings.HasPrefix(strings.ToLower(c.SHA), sha) {
				commits = append(commits, c)
			}
		}
	}
	s.writeJSON(w, http.StatusOK, commitsResponse{Commits: commits, Index: index})
}

// highlightResponse carries the IDs matching ?q= and ?ext=.
type highlightResponse struct {
	Query     string   `json:"query"`
	Extension string   `json:"extension,omitempty"`
	IDs       []string `json:"ids"`
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	ext := r.URL.Query().Get("ext")

	s.mu.Lock()
	s.engine.SetQuery(query)
	s.engine.SetExtension(ext)
	set := s.engine.Highlight()
	order := s.engine.VisibleNodes()
	s.mu.Unlock()

	// Stable order: the visible ordering, not map iteration.
	ids := make([]string, 0, len(set))
	for _, id := range order {
		if _, ok := set[id]; ok {
			ids = append(ids, id)
		}
	}
	s.writeJSON(w, http.StatusOK, highlightResponse{Query: query, Extension: ext, IDs: ids})
}

// nodeResponse is one node with its position and path to ROOT.
type nodeResponse struct {
	Node     repotree.FlatNode `json:"node"`
	Position *layout.Point     `json:"position,omitempty"`
	Path     []string          `json:"path"`
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")

	s.mu.Lock()
	tree := s.engine.Tree()
	node, ok := tree.Node(id)
	var pos *layout.Point
	var path []string
	if ok {
		if p, found := s.engine.Position(id); found {
			pos = &p
		}
		path = tree.PathToRoot(id)
	}
	s.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New(errors.ErrCodeNodeNotFound, "no node %q", id))
		return
	}
	s.writeJSON(w, http.StatusOK, nodeResponse{Node: node, Position: pos, Path: path})
}

// SetCommitIndex lets the serving process drive playback (e.g. from a
// scrubber posting through another channel); exported for the serve command.
func (s *Server) SetCommitIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetCommitIndex(index)
}

// Rebind swaps in a freshly scanned tree and history, e.g. after a watched
// repository changed. In-flight requests finish against the old scene first.
func (s *Server) Rebind(rt repotree.RepoTree, h history.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Rebind(rt, h)
}

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err *errors.Error) {
	s.writeJSON(w, status, errorResponse{Code: err.Code, Message: err.Message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

// ParseIndex parses a commit index query parameter, rejecting garbage early.
func ParseIndex(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid commit index %q", raw)
	}
	return n, nil
}
