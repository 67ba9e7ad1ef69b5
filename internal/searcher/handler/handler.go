// Package handler exposes the search service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/registry"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// Searcher is satisfied by *executor.Multi.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, names []string) (*executor.SearchResult, error)
	Lookup(ctx context.Context, name string, names []string) ([]executor.ObjectHit, error)
}

// Indexes is satisfied by *registry.Registry.
type Indexes interface {
	Get(name string) (*executor.Target, bool)
	Statuses() []registry.Status
	Reload(ctx context.Context, name string) (bool, error)
}

type Option func(*Handler)

// WithCache serves repeated queries from c.
func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithCollector tracks every search as an analytics event.
func WithCollector(c *analytics.Collector) Option {
	return func(h *Handler) { h.collector = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

type Handler struct {
	searcher     Searcher
	indexes      Indexes
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(searcher Searcher, indexes Indexes, defaultLimit, maxResults int, opts ...Option) *Handler {
	h := &Handler{
		searcher:     searcher,
		indexes:      indexes,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/objects", h.Objects)
	mux.HandleFunc("GET /api/v1/indexes", h.ListIndexes)
	mux.HandleFunc("GET /api/v1/indexes/{name}/documents", h.Documents)
	mux.HandleFunc("POST /api/v1/indexes/{name}/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	names := indexNames(r)

	var result *executor.SearchResult
	var err error
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, names, func(ctx context.Context) (*executor.SearchResult, error) {
			return h.searcher.Search(ctx, query, limit, names)
		})
	} else {
		result, err = h.searcher.Search(ctx, query, limit, names)
	}
	if err != nil {
		h.observe("error", cacheHit, start, 0)
		log.Error("search failed", "query", query, "error", err)
		h.writeAppError(w, err, "search failed")
		return
	}

	latency := time.Since(start)
	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	h.observe(resultType, cacheHit, start, len(result.Results))

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", float64(latency.Microseconds())/1000,
	)
	if h.collector != nil {
		event := analytics.NewSearchEvent(query, parser.Parse(query).SearchTerms, result.Indexes,
			result.TotalHits, len(result.Results), latency, cacheHit)
		event.FailedIndexes = len(result.Failed)
		event.RequestID = logger.RequestID(ctx)
		h.collector.Track(event)
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Objects(w http.ResponseWriter, r *http.Request) {
	hits, err := h.searcher.Lookup(r.Context(), r.URL.Query().Get("name"), indexNames(r))
	if err != nil {
		h.writeAppError(w, err, "object lookup failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"objects": hits})
}

func (h *Handler) ListIndexes(w http.ResponseWriter, r *http.Request) {
	statuses := h.indexes.Statuses()
	if statuses == nil {
		statuses = []registry.Status{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"indexes": statuses})
}

func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	target, ok := h.indexes.Get(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "index "+strconv.Quote(name)+" is not loaded")
		return
	}
	docs := target.Index.Documents()
	type row struct {
		ID       int    `json:"id"`
		DocName  string `json:"docname"`
		Filename string `json:"filename"`
		Title    string `json:"title"`
		URL      string `json:"url"`
	}
	rows := make([]row, len(docs))
	for i, d := range docs {
		rows[i] = row{ID: d.ID, DocName: d.DocName, Filename: d.Filename, Title: d.Title, URL: target.URL(d.DocName, "")}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"index": name, "documents": rows})
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	swapped, err := h.indexes.Reload(r.Context(), name)
	if err != nil {
		h.logger.Error("manual reload failed", "index", name, "error", err)
		h.writeAppError(w, err, "reload failed")
		return
	}
	status := registry.StatusUnchanged
	if swapped {
		status = registry.StatusLoaded
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"index": name, "status": status})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if n > h.maxResults {
		n = h.maxResults
	}
	return n, true
}

func (h *Handler) observe(resultType string, cacheHit bool, start time.Time, returned int) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if resultType != "error" {
		h.metrics.SearchResultsCount.Observe(float64(returned))
	}
}

// indexNames reads ?index=a,b and repeated ?index= parameters.
func indexNames(r *http.Request) []string {
	var names []string
	for _, v := range r.URL.Query()["index"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError reports client errors verbatim and hides server-side
// detail behind fallback.
func (h *Handler) writeAppError(w http.ResponseWriter, err error, fallback string) {
	status := apperrors.HTTPStatusCode(err)
	msg := fallback
	if status < http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		msg = err.Error()
	}
	h.writeError(w, status, msg)
}
