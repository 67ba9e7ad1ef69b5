package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads indexes whose files are written, created or renamed into
// place, coalescing bursts of events within debounce. It watches the
// parent directories so atomic replace-by-rename is seen. Watch blocks
// until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	r.mu.Lock()
	dirs := make(map[string]struct{})
	for _, src := range r.sources {
		dirs[filepath.Dir(absPath(src.Path))] = struct{}{}
	}
	r.watcher = w
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.watcher = nil
		r.mu.Unlock()
	}()

	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			r.logger.Warn("cannot watch index directory", "dir", dir, "error", err)
		}
	}
	r.logger.Info("watching index files", "dirs", len(dirs), "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			for _, name := range r.namesForPath(ev.Name) {
				pending[name] = struct{}{}
			}
			if len(pending) > 0 {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("watcher error", "error", err)
		case <-timer.C:
			for name := range pending {
				if _, err := r.Reload(ctx, name); err != nil {
					r.logger.Error("reload after file change failed", "index", name, "error", err)
				}
			}
			clear(pending)
		}
	}
}

func (r *Registry) namesForPath(path string) []string {
	path = absPath(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, src := range r.sources {
		if absPath(src.Path) == path {
			names = append(names, name)
		}
	}
	return names
}
