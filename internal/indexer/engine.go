// Package indexer maintains one search index per documentation project and
// writes it out as a searchindex.js artifact whenever it changes.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// IndexComplete announces a freshly written artifact.
type IndexComplete struct {
	Project     string    `json:"project"`
	Path        string    `json:"path"`
	Checksum    string    `json:"checksum"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Objects     int       `json:"objects"`
	FlushedAt   time.Time `json:"flushedAt"`
	DurationMs  float64   `json:"durationMs"`
	ArtifactLen int64     `json:"artifactBytes"`
}

// Stats is a point-in-time view of an engine.
type Stats struct {
	Project   string        `json:"project"`
	Documents int           `json:"documents"`
	SizeBytes int64         `json:"sizeBytes"`
	Dirty     bool          `json:"dirty"`
	LastFlush IndexComplete `json:"lastFlush"`
}

type Option func(*Engine)

// WithOnFlush registers a callback invoked after every successful flush.
func WithOnFlush(fn func(context.Context, IndexComplete)) Option {
	return func(e *Engine) { e.onFlush = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine owns the in-memory index of one project. Mutations mark it dirty;
// Flush writes the artifact only when something changed since the last
// successful flush.
type Engine struct {
	project  string
	memIndex *index.MemoryIndex
	writer   *artifact.Writer
	cfg      config.IndexerConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onFlush  func(context.Context, IndexComplete)

	version atomic.Uint64

	flushMu   sync.Mutex
	flushed   uint64
	lastFlush IndexComplete

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewEngine opens the project's artifact under dir, rehydrating the index
// from it when it exists.
func NewEngine(project, dir string, cfg config.IndexerConfig, opts ...Option) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating project directory: %w", err)
	}
	e := &Engine{
		project:  project,
		memIndex: index.NewMemoryIndex(),
		writer:   artifact.NewWriter(dir, cfg.ArtifactName, cfg.Gzip),
		cfg:      cfg,
		logger:   slog.Default().With("component", "indexer", "project", project),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.rehydrate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) rehydrate() error {
	path := e.writer.Path()
	idx, info, err := artifact.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		e.logger.Info("no existing artifact, starting empty", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("recovering %s: %w", path, err)
	}
	e.memIndex = index.FromSearchIndex(idx)
	e.lastFlush = IndexComplete{
		Project:     e.project,
		Path:        path,
		Checksum:    info.Checksum,
		Documents:   idx.DocCount(),
		Terms:       len(idx.Terms),
		Objects:     idx.ObjectCount(),
		FlushedAt:   info.ModTime,
		ArtifactLen: info.Size,
	}
	e.logger.Info("artifact recovered",
		"path", path,
		"docs", idx.DocCount(),
		"terms", len(idx.Terms),
		"objects", idx.ObjectCount(),
	)
	return nil
}

func (e *Engine) Project() string { return e.project }

// IndexDocument adds or replaces one page.
func (e *Engine) IndexDocument(doc index.Document) error {
	if doc.DocName == "" {
		return fmt.Errorf("indexing into %s: empty docname", e.project)
	}
	e.memIndex.AddDocument(doc)
	e.version.Add(1)
	e.count("upsert")
	e.logger.Debug("document indexed",
		"docname", doc.DocName,
		"objects", len(doc.Objects),
		"mem_size", e.memIndex.Size(),
	)
	return nil
}

// RemoveDocument drops a page and reports whether it existed.
func (e *Engine) RemoveDocument(docName string) bool {
	if !e.memIndex.RemoveDocument(docName) {
		return false
	}
	e.version.Add(1)
	e.count("delete")
	e.logger.Debug("document removed", "docname", docName)
	return true
}

// Dirty reports whether there are unflushed changes.
func (e *Engine) Dirty() bool {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	return e.version.Load() != e.flushed
}

// Flush writes the artifact if the index changed since the last flush.
func (e *Engine) Flush(ctx context.Context) error {
	e.flushMu.Lock()
	v := e.version.Load()
	if v == e.flushed {
		e.flushMu.Unlock()
		return nil
	}
	start := time.Now()
	snap := e.memIndex.Snapshot()
	info, err := e.writer.Write(snap)
	if err != nil {
		e.flushMu.Unlock()
		e.flushResult("error")
		return fmt.Errorf("flushing %s: %w", e.project, err)
	}
	e.flushed = v
	done := IndexComplete{
		Project:     e.project,
		Path:        info.Path,
		Checksum:    info.Checksum,
		Documents:   snap.DocCount(),
		Terms:       len(snap.Terms),
		Objects:     snap.ObjectCount(),
		FlushedAt:   time.Now().UTC(),
		DurationMs:  float64(time.Since(start).Microseconds()) / 1000,
		ArtifactLen: info.Size,
	}
	e.lastFlush = done
	e.flushMu.Unlock()

	e.flushResult("success")
	e.logger.Info("artifact flushed",
		"path", info.Path,
		"docs", done.Documents,
		"terms", done.Terms,
		"objects", done.Objects,
		"bytes", info.Size,
		"duration_ms", done.DurationMs,
	)
	if e.onFlush != nil {
		e.onFlush(ctx, done)
	}
	return nil
}

// StartFlushLoop flushes on every tick of the configured interval until ctx
// is cancelled or Close is called, then performs a final flush.
func (e *Engine) StartFlushLoop(ctx context.Context) {
	interval := e.cfg.FlushInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.finalFlush()
				return
			case <-e.stop:
				return
			case <-ticker.C:
				if err := e.Flush(ctx); err != nil {
					e.logger.Error("periodic flush failed", "error", err)
				}
			}
		}
	}()
}

func (e *Engine) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Flush(ctx); err != nil {
		e.logger.Error("final flush failed", "error", err)
	}
}

// Close stops the flush loop and writes any pending changes.
func (e *Engine) Close() error {
	e.stopOnce.Do(func() { close(e.stop) })
	e.wg.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return e.Flush(ctx)
}

func (e *Engine) Stats() Stats {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	return Stats{
		Project:   e.project,
		Documents: e.memIndex.DocCount(),
		SizeBytes: e.memIndex.Size(),
		Dirty:     e.version.Load() != e.flushed,
		LastFlush: e.lastFlush,
	}
}

func (e *Engine) count(op string) {
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.WithLabelValues(e.project, op).Inc()
	}
}

func (e *Engine) flushResult(status string) {
	if e.metrics != nil {
		e.metrics.IndexFlushesTotal.WithLabelValues(status).Inc()
	}
}
