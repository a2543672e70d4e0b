// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about repository scans, layout runs, and animation cycles.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetLayoutHooks(&myLayoutHooks{})
//	    observability.SetSourceHooks(&mySourceHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Source().OnScanStart(ctx, path)
//	// ... scan the repository ...
//	observability.Source().OnScanComplete(ctx, path, nodeCount, commitCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Source Hooks
// =============================================================================

// SourceHooks receives events from repository scanning and watching.
type SourceHooks interface {
	// Scan events
	OnScanStart(ctx context.Context, path string)
	OnScanComplete(ctx context.Context, path string, nodeCount, commitCount int, duration time.Duration, err error)

	// Watch events
	OnWatchEvent(ctx context.Context, path string, op string)
	OnWatchError(ctx context.Context, path string, err error)
}

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout engines.
type LayoutHooks interface {
	// OnLayoutStart records the beginning of a layout run for the given
	// engine ("force" or "pack") over nodeCount visible nodes.
	OnLayoutStart(ctx context.Context, engine string, nodeCount int)

	// OnLayoutSettled records a force simulation reaching its alpha floor
	// or a pack computation completing.
	OnLayoutSettled(ctx context.Context, engine string, ticks int, duration time.Duration)
}

// =============================================================================
// Animation Hooks
// =============================================================================

// AnimationHooks receives events from the commit animator.
type AnimationHooks interface {
	// OnCommitApplied records a commit index taking effect with the number
	// of projectiles launched and files skipped as unresolvable.
	OnCommitApplied(ctx context.Context, sha string, index, launched, skipped int)

	// OnProjectileLanded records a projectile completing its flight.
	OnProjectileLanded(ctx context.Context, nodeID string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSourceHooks is a no-op implementation of SourceHooks.
type NoopSourceHooks struct{}

func (NoopSourceHooks) OnScanStart(context.Context, string) {}
func (NoopSourceHooks) OnScanComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopSourceHooks) OnWatchEvent(context.Context, string, string) {}
func (NoopSourceHooks) OnWatchError(context.Context, string, error) {}

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutStart(context.Context, string, int)                 {}
func (NoopLayoutHooks) OnLayoutSettled(context.Context, string, int, time.Duration) {}

// NoopAnimationHooks is a no-op implementation of AnimationHooks.
type NoopAnimationHooks struct{}

func (NoopAnimationHooks) OnCommitApplied(context.Context, string, int, int, int) {}
func (NoopAnimationHooks) OnProjectileLanded(context.Context, string)             {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	sourceHooks    SourceHooks    = NoopSourceHooks{}
	layoutHooks    LayoutHooks    = NoopLayoutHooks{}
	animationHooks AnimationHooks = NoopAnimationHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	hooksMu        sync.RWMutex
)

// SetSourceHooks registers custom source hooks.
// This should be called once at application startup before any scan operations.
func SetSourceHooks(h SourceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sourceHooks = h
	}
}

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup before any layout runs.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetAnimationHooks registers custom animation hooks.
// This should be called once at application startup.
func SetAnimationHooks(h AnimationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		animationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Source returns the registered source hooks.
func Source() SourceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sourceHooks
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Animation returns the registered animation hooks.
func Animation() AnimationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return animationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	sourceHooks = NoopSourceHooks{}
	layoutHooks = NoopLayoutHooks{}
	animationHooks = NoopAnimationHooks{}
	cacheHooks = NoopCacheHooks{}
}
