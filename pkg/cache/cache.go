// Package cache provides scan-result caching so repeated launches against an
// unchanged repository skip the full tree and history walk.
//
// Keys are derived from the repository path and its HEAD hash, so any new
// commit naturally invalidates the cached scan. Two backends ship with the
// CLI: a file cache under the user cache directory and a null cache for
// --no-cache runs and tests.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface for serialized scan results.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with an optional TTL (0 means no expiration).
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys for the different scan artifacts.
type Keyer interface {
	// TreeKey keys the flattened file tree of a repository at a given HEAD.
	TreeKey(repoPath, headSHA string) string

	// HistoryKey keys the commit history of a repository at a given HEAD,
	// bounded by the scan's commit limit.
	HistoryKey(repoPath, headSHA string, limit int) string
}

// DefaultKeyer hashes key components so arbitrary paths stay filesystem-safe.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// TreeKey generates a key for a scanned tree.
func (k *DefaultKeyer) TreeKey(repoPath, headSHA string) string {
	return hashKey("tree", repoPath, headSHA)
}

// HistoryKey generates a key for a scanned commit history.
func (k *DefaultKeyer) HistoryKey(repoPath, headSHA string, limit int) string {
	return hashKey("history", repoPath, headSHA, limit)
}
