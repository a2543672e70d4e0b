package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gitscape/gitscape/pkg/errors"
	"github.com/gitscape/gitscape/pkg/observability"
)

// DefaultDebounce collapses the burst of filesystem events a single git
// operation produces into one change notification.
const DefaultDebounce = 350 * time.Millisecond

// Watcher notifies a callback when the repository changes on disk, debounced
// so one commit or checkout triggers one rescan.
type Watcher struct {
	path     string
	onChange func()
	delay    time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	closed  bool
}

// NewWatcher creates a watcher for the repository at path. When a .git
// directory exists it is watched instead of the worktree, so touching build
// artifacts never triggers a rescan; onChange fires on the watcher's
// goroutine after the debounce window closes.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRepoWatch, err, "create watcher")
	}
	target := path
	gitDir := filepath.Join(path, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		target = gitDir
	}
	if err := fsw.Add(target); err != nil {
		fsw.Close()
		return nil, errors.Wrap(errors.ErrCodeRepoWatch, err, "watch %s", target)
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		delay:    DefaultDebounce,
		watcher:  fsw,
	}, nil
}

// Run consumes filesystem events until the context is cancelled or the
// watcher is closed. It blocks; callers run it on its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ignoreWatchPath(ev.Name) {
				continue
			}
			observability.Source().OnWatchEvent(ctx, ev.Name, ev.Op.String())
			w.trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			observability.Source().OnWatchError(ctx, w.path, err)
		}
	}
}

// trigger (re)arms the debounce timer. Every event inside the window pushes
// the deadline out; the callback fires once the events stop.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.onChange)
}

// Close stops the watcher and cancels any pending debounced callback.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

// ignoreWatchPath filters transient git bookkeeping files whose churn does
// not change what a scan would read.
func ignoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
