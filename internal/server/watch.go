package server

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/py-swift/wheelsite/internal/wheels"
)

// debounceWindow batches bursts of filesystem events into one rebuild.
const debounceWindow = 300 * time.Millisecond

// watcher rebuilds the site when the docs tree changes.
type watcher struct {
	fs      *fsnotify.Watcher
	docsDir string
	rebuild RebuildFunc
	srv     *Server

	mu    sync.Mutex
	timer *time.Timer

	rebuildReq chan struct{}
}

func newWatcher(docsDir string, rebuild RebuildFunc, srv *Server) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(docsDir)
	if err != nil {
		fs.Close()
		return nil, err
	}
	if err := addDirsRecursive(fs, abs); err != nil {
		fs.Close()
		return nil, err
	}
	return &watcher{
		fs:         fs,
		docsDir:    abs,
		rebuild:    rebuild,
		srv:        srv,
		rebuildReq: make(chan struct{}, 1),
	}, nil
}

func (w *watcher) close() {
	_ = w.fs.Close()
}

// run processes filesystem events until ctx is canceled. Rebuilds run in a
// separate goroutine so a slow build never blocks event draining.
func (w *watcher) run(ctx context.Context) {
	go w.rebuildLoop(ctx)
	slog.Info("Watching docs for changes", "dir", w.docsDir)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

func (w *watcher) handleEvent(ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	// New directories need watches of their own.
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(w.fs, ev.Name)
		}
	}
	slog.Debug("File change detected", "path", ev.Name, "op", ev.Op.String())
	w.trigger()
}

func (w *watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceWindow, func() {
		select {
		case w.rebuildReq <- struct{}{}:
		default:
		}
	})
}

func (w *watcher) rebuildLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.rebuildReq:
			slog.Info("Change detected; rebuilding site")
			report, err := w.rebuild(ctx)
			if err != nil {
				slog.Warn("Rebuild failed", "error", err)
				continue
			}
			w.srv.SetReport(report)
		}
	}
}

func addDirsRecursive(fs *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == wheels.AssetsDirName {
				return filepath.SkipDir
			}
			if err := fs.Add(path); err != nil {
				slog.Warn("Watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// shouldIgnoreEvent filters events from hidden files, editor temp files, and
// the staged engine assets. Asset staging rewrites wheels_assets on every
// build, so reacting to those writes would have each rebuild schedule the
// next one.
func shouldIgnoreEvent(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == wheels.AssetsDirName {
			return true
		}
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
