package cache

// ScopedKeyer wraps a Keyer with a prefix so multiple scan contexts (e.g.
// different worktrees of the same repository, or test fixtures) can share one
// cache directory without colliding.
//
// Example usage:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "worktree:feature:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TreeKey generates a prefixed key for a scanned tree.
func (k *ScopedKeyer) TreeKey(repoPath, headSHA string) string {
	return k.prefix + k.inner.TreeKey(repoPath, headSHA)
}

// HistoryKey generates a prefixed key for a scanned commit history.
func (k *ScopedKeyer) HistoryKey(repoPath, headSHA string, limit int) string {
	return k.prefix + k.inner.HistoryKey(repoPath, headSHA, limit)
}
