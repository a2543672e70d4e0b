package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gitscape/gitscape/pkg/observability"
)

// logHooks bridges scan, layout, animation, and cache events into the CLI
// logger at debug level. It also remembers whether the last scan was served
// from cache so command output can say so.
type logHooks struct {
	observability.NoopSourceHooks
	observability.NoopLayoutHooks
	observability.NoopAnimationHooks
	observability.NoopCacheHooks

	logger   *log.Logger
	cacheHit bool
}

// installHooks wires the CLI logger into the observability registry and
// returns the hook state for inspection. Commands call observability.Reset
// when done.
func installHooks(l *log.Logger) *logHooks {
	h := &logHooks{logger: l}
	observability.SetSourceHooks(h)
	observability.SetLayoutHooks(h)
	observability.SetAnimationHooks(h)
	observability.SetCacheHooks(h)
	return h
}

func (h *logHooks) OnScanStart(_ context.Context, path string) {
	h.logger.Debug("scan start", "path", path)
}

func (h *logHooks) OnScanComplete(_ context.Context, path string, nodeCount, commitCount int, duration time.Duration, err error) {
	if err != nil {
		h.logger.Debug("scan failed", "path", path, "err", err)
		return
	}
	h.logger.Debug("scan complete", "path", path,
		"nodes", nodeCount, "commits", commitCount, "took", duration.Round(time.Millisecond))
}

func (h *logHooks) OnWatchEvent(_ context.Context, path, op string) {
	h.logger.Debug("watch event", "path", path, "op", op)
}

func (h *logHooks) OnWatchError(_ context.Context, path string, err error) {
	h.logger.Warn("watch error", "path", path, "err", err)
}

func (h *logHooks) OnLayoutSettled(_ context.Context, engine string, ticks int, duration time.Duration) {
	h.logger.Debug("layout settled", "engine", engine,
		"ticks", ticks, "took", duration.Round(time.Millisecond))
}

func (h *logHooks) OnCommitApplied(_ context.Context, sha string, index, launched, skipped int) {
	h.logger.Debug("commit applied", "sha", sha,
		"index", index, "launched", launched, "skipped", skipped)
}

func (h *logHooks) OnCacheHit(context.Context, string) { h.cacheHit = true }
