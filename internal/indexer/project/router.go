// Package project routes documents to per-project index engines, each
// writing its artifact under <dataDir>/<project>/.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidName reports whether name can be used as a project directory.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && name != "." && name != ".."
}

// Router creates engines lazily on first use and keeps them for the life of
// the process.
type Router struct {
	mu      sync.RWMutex
	engines map[string]*indexer.Engine
	cfg     config.IndexerConfig
	opts    []indexer.Option
	loopCtx context.Context
	logger  *slog.Logger
}

func NewRouter(cfg config.IndexerConfig, opts ...indexer.Option) *Router {
	return &Router{
		engines: make(map[string]*indexer.Engine),
		cfg:     cfg,
		opts:    opts,
		logger:  slog.Default().With("component", "project-router"),
	}
}

// Open eagerly opens every project directory already present under the
// data directory.
func (r *Router) Open() error {
	entries, err := os.ReadDir(r.cfg.DataDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading data directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || !ValidName(entry.Name()) {
			continue
		}
		if _, err := r.Route(entry.Name()); err != nil {
			r.logger.Error("failed to open project, skipping", "project", entry.Name(), "error", err)
		}
	}
	r.logger.Info("projects opened", "count", len(r.Projects()))
	return nil
}

// StartFlushLoops starts the flush loop of every current and future engine.
func (r *Router) StartFlushLoops(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loopCtx = ctx
	for _, e := range r.engines {
		e.StartFlushLoop(ctx)
	}
}

// Route returns the engine for project, creating it on first use.
func (r *Router) Route(project string) (*indexer.Engine, error) {
	if !ValidName(project) {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "invalid project name %q", project)
	}
	r.mu.RLock()
	e, ok := r.engines[project]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[project]; ok {
		return e, nil
	}
	e, err := indexer.NewEngine(project, filepath.Join(r.cfg.DataDir, project), r.cfg, r.opts...)
	if err != nil {
		return nil, fmt.Errorf("opening project %s: %w", project, err)
	}
	r.engines[project] = e
	if r.loopCtx != nil {
		e.StartFlushLoop(r.loopCtx)
	}
	r.logger.Info("project engine ready", "project", project)
	return e, nil
}

// Lookup returns an existing engine without creating one.
func (r *Router) Lookup(project string) (*indexer.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[project]
	return e, ok
}

// Projects lists the open projects in name order.
func (r *Router) Projects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns every engine's stats in project order.
func (r *Router) Stats() []indexer.Stats {
	var out []indexer.Stats
	for _, name := range r.Projects() {
		if e, ok := r.Lookup(name); ok {
			out = append(out, e.Stats())
		}
	}
	return out
}

// FlushAll flushes every engine, continuing past failures.
func (r *Router) FlushAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for name, e := range r.engines {
		if err := e.Flush(ctx); err != nil {
			r.logger.Error("flush failed", "project", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops and flushes every engine.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, e := range r.engines {
		if err := e.Close(); err != nil {
			r.logger.Error("close failed", "project", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
