package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Source hooks
	s := NoopSourceHooks{}
	s.OnScanStart(ctx, "/tmp/repo")
	s.OnScanComplete(ctx, "/tmp/repo", 100, 50, time.Second, nil)
	s.OnWatchEvent(ctx, "/tmp/repo", "write")
	s.OnWatchError(ctx, "/tmp/repo", nil)

	// Layout hooks
	l := NoopLayoutHooks{}
	l.OnLayoutStart(ctx, "force", 100)
	l.OnLayoutSettled(ctx, "force", 240, time.Second)

	// Animation hooks
	a := NoopAnimationHooks{}
	a.OnCommitApplied(ctx, "a3f5c2e", 3, 2, 1)
	a.OnProjectileLanded(ctx, "src/main.go")

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "tree")
	c.OnCacheMiss(ctx, "history")
	c.OnCacheSet(ctx, "tree", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Source().(NoopSourceHooks); !ok {
		t.Error("Source() should return NoopSourceHooks by default")
	}
	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Layout() should return NoopLayoutHooks by default")
	}
	if _, ok := Animation().(NoopAnimationHooks); !ok {
		t.Error("Animation() should return NoopAnimationHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customSource := &testSourceHooks{}
	SetSourceHooks(customSource)
	if Source() != customSource {
		t.Error("SetSourceHooks should set custom hooks")
	}

	customLayout := &testLayoutHooks{}
	SetLayoutHooks(customLayout)
	if Layout() != customLayout {
		t.Error("SetLayoutHooks should set custom hooks")
	}

	customAnimation := &testAnimationHooks{}
	SetAnimationHooks(customAnimation)
	if Animation() != customAnimation {
		t.Error("SetAnimationHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Source().(NoopSourceHooks); !ok {
		t.Error("Reset() should restore NoopSourceHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testLayoutHooks{}
	SetLayoutHooks(custom)

	// Setting nil should be ignored
	SetLayoutHooks(nil)

	if Layout() != custom {
		t.Error("SetLayoutHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testSourceHooks struct{ NoopSourceHooks }
type testLayoutHooks struct{ NoopLayoutHooks }
type testAnimationHooks struct{ NoopAnimationHooks }
type testCacheHooks struct{ NoopCacheHooks }
