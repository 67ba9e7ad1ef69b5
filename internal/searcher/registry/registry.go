// Package registry holds the search indexes a searcher serves and keeps
// them current as their files change.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// Reload outcomes, also used as metric labels.
const (
	StatusLoaded    = "loaded"
	StatusUnchanged = "unchanged"
	StatusError     = "error"
)

type entry struct {
	target   *executor.Target
	checksum string
	size     int64
	modTime  time.Time
	loadedAt time.Time
}

// Status describes one loaded index.
type Status struct {
	executor.Summary
	Checksum string    `json:"checksum"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
	LoadedAt time.Time `json:"loaded_at"`
}

type Option func(*Registry)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithOnReload registers fn to run after an index is swapped in.
func WithOnReload(fn func(ctx context.Context, name string)) Option {
	return func(r *Registry) { r.onReload = append(r.onReload, fn) }
}

// Registry maps index names to prepared targets. Readers get an immutable
// Target; reloads swap the pointer under the lock.
type Registry struct {
	mu       sync.RWMutex
	sources  map[string]config.IndexSource
	entries  map[string]*entry
	reloadMu sync.Map // index name -> *sync.Mutex
	watcher  *fsnotify.Watcher
	metrics  *metrics.Metrics
	onReload []func(context.Context, string)
	logger   *slog.Logger
}

func New(sources []config.IndexSource, opts ...Option) *Registry {
	r := &Registry{
		sources: make(map[string]config.IndexSource, len(sources)),
		entries: make(map[string]*entry),
		logger:  slog.Default().With("component", "registry"),
	}
	for _, src := range sources {
		r.sources[src.Name] = src
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads every configured index concurrently. Indexes that fail are
// reported together; the others stay loaded.
func (r *Registry) Load(ctx context.Context) error {
	names := r.sourceNames()
	errs := make([]error, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			_, errs[i] = r.Reload(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Reload re-reads the named index and swaps it in if the content changed.
// It reports whether a swap happened. On failure the previous version
// keeps serving. Reloads of one index run one at a time, so a slower
// reader of an older file never swaps in over a newer one.
func (r *Registry) Reload(ctx context.Context, name string) (bool, error) {
	if !r.Has(name) {
		return false, apperrors.Newf(apperrors.ErrIndexNotFound, "index %q is not configured", name)
	}
	lock := r.reloadLock(name)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	src := r.sources[name]
	prev := r.entries[name]
	r.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}

	start := time.Now()
	st, err := os.Stat(src.Path)
	if err != nil {
		r.record(name, StatusError)
		return false, fmt.Errorf("loading index %s: %w", name, err)
	}
	data, err := searchindex.ReadFile(src.Path)
	if err != nil {
		r.record(name, StatusError)
		return false, fmt.Errorf("loading index %s: %w", name, err)
	}
	sum := artifact.Checksum(data)
	if prev != nil && prev.checksum == sum {
		r.record(name, StatusUnchanged)
		r.logger.Debug("index unchanged", "index", name)
		return false, nil
	}
	idx, err := searchindex.Parse(data)
	if err != nil {
		r.record(name, StatusError)
		return false, fmt.Errorf("loading index %s: %w", name, err)
	}

	e := &entry{
		target:   executor.Prepare(src, idx),
		checksum: sum,
		size:     st.Size(),
		modTime:  st.ModTime(),
		loadedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.entries[name] = e
	r.mu.Unlock()

	r.record(name, StatusLoaded)
	if r.metrics != nil {
		r.metrics.IndexDocuments.WithLabelValues(name).Set(float64(idx.DocCount()))
		r.metrics.IndexTerms.WithLabelValues(name).Set(float64(len(idx.Terms)))
		r.metrics.IndexObjects.WithLabelValues(name).Set(float64(idx.ObjectCount()))
	}
	r.logger.Info("index loaded",
		"index", name,
		"path", src.Path,
		"docs", idx.DocCount(),
		"terms", len(idx.Terms),
		"objects", idx.ObjectCount(),
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
	)
	for _, fn := range r.onReload {
		fn(ctx, name)
	}
	return true, nil
}

// Add registers a new source, or replaces an existing one's settings, and
// loads it.
func (r *Registry) Add(ctx context.Context, src config.IndexSource) error {
	if src.Name == "" || src.Path == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "index name and path are required")
	}
	r.mu.Lock()
	old, existed := r.sources[src.Name]
	r.sources[src.Name] = src
	if existed && old != src {
		delete(r.entries, src.Name)
	}
	w := r.watcher
	r.mu.Unlock()
	if w != nil {
		if err := w.Add(filepath.Dir(absPath(src.Path))); err != nil {
			r.logger.Warn("cannot watch index directory", "index", src.Name, "error", err)
		}
	}
	_, err := r.Reload(ctx, src.Name)
	return err
}

func (r *Registry) Get(name string) (*executor.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.target, true
}

// All returns the loaded targets in name order.
func (r *Registry) All() []*executor.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*executor.Target, 0, len(r.entries))
	for _, name := range sortedNames(r.entries) {
		out = append(out, r.entries[name].target)
	}
	return out
}

// Names lists the loaded indexes.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.entries)
}

// Statuses describes every loaded index in name order.
func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.entries))
	for _, name := range sortedNames(r.entries) {
		e := r.entries[name]
		out = append(out, Status{
			Summary:  e.target.Summary(),
			Checksum: e.checksum,
			Size:     e.size,
			ModTime:  e.modTime,
			LoadedAt: e.loadedAt,
		})
	}
	return out
}

// Has reports whether name is configured, loaded or not.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[name]
	return ok
}

// Configured lists every configured index, including ones that failed to
// load.
func (r *Registry) Configured() []string {
	return r.sourceNames()
}

func (r *Registry) sourceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.sources)
}

func (r *Registry) reloadLock(name string) *sync.Mutex {
	l, _ := r.reloadMu.LoadOrStore(name, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (r *Registry) record(name, status string) {
	if r.metrics != nil {
		r.metrics.IndexReloadsTotal.WithLabelValues(name, status).Inc()
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
