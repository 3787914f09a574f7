package sitegen

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const rebuildDebounce = 300 * time.Millisecond

// Watch builds the site and rebuilds it whenever a file under the input
// dir changes, until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context) error {
	return e.watch(ctx, true)
}

func (e *Engine) watch(ctx context.Context, initialBuild bool) error {
	if initialBuild {
		if _, err := e.Build(ctx); err != nil {
			e.cfg.Logger.Error("initial build failed", "error", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("sitegen: fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	outAbs, _ := filepath.Abs(e.cfg.Dir.Output)
	if err := addDirsRecursive(watcher, e.cfg.Dir.Input, outAbs); err != nil {
		return err
	}

	rebuildReq, trigger := newRebuildDebouncer(rebuildDebounce)
	e.startRebuildWorker(ctx, rebuildReq)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if e.ignoreEvent(ev.Name, outAbs) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := addDirsRecursive(watcher, ev.Name, outAbs); err != nil {
						e.cfg.Logger.Warn("watch new directory", "path", ev.Name, "error", err)
					}
				}
			}
			e.cfg.Logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.cfg.Logger.Warn("watcher error", "error", err)
		}
	}
}

func (e *Engine) ignoreEvent(name, outAbs string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return true
	}
	if abs == outAbs || strings.HasPrefix(abs, outAbs+string(filepath.Separator)) {
		return true
	}
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") && base != ignoreFile || strings.HasSuffix(base, "~")
}

// addDirsRecursive adds root and every directory below it to the watcher,
// skipping the output dir, dot dirs and node_modules.
func addDirsRecursive(w *fsnotify.Watcher, root, outAbs string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
			return filepath.SkipDir
		}
		if abs, err := filepath.Abs(p); err == nil && abs == outAbs {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("sitegen: watch %s: %w", p, err)
		}
		return nil
	})
}

// newRebuildDebouncer coalesces bursts of change events into one rebuild
// request delivered after delay of quiet.
func newRebuildDebouncer(delay time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

// startRebuildWorker runs rebuilds one at a time. A request arriving
// during a build queues exactly one follow-up build.
func (e *Engine) startRebuildWorker(ctx context.Context, rebuildReq chan struct{}) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				if _, err := e.Build(ctx); err != nil {
					e.cfg.Logger.Error("rebuild failed", "error", err)
				}
			}
		}
	}()
}
