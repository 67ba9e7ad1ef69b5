// Package executor runs parsed queries against loaded search indexes: one
// index at a time through Target, or several at once through Multi.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// Source provides the loaded indexes. It is satisfied by
// *registry.Registry.
type Source interface {
	Get(name string) (*Target, bool)
	All() []*Target
}

type SearchResult struct {
	Query          string            `json:"query"`
	TotalHits      int               `json:"total_hits"`
	Results        []ranker.Result   `json:"results"`
	HighlightTerms []string          `json:"highlight_terms"`
	Indexes        []string          `json:"indexes"`
	Failed         map[string]string `json:"failed,omitempty"`
	TookMs         float64           `json:"took_ms"`
}

// ObjectHit is a resolved symbol together with its link.
type ObjectHit struct {
	Index string `json:"index"`
	searchindex.ObjectRef
	URL   string `json:"url"`
}

type Multi struct {
	source  Source
	scorer  ranker.Scorer
	timeout time.Duration
	logger  *slog.Logger
}

// NewMulti creates an executor over source. timeout bounds each index
// separately; zero disables it.
func NewMulti(source Source, scorer ranker.Scorer, timeout time.Duration) *Multi {
	return &Multi{
		source:  source,
		scorer:  scorer,
		timeout: timeout,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// targets resolves index names; no names selects every loaded index.
func (m *Multi) targets(names []string) ([]*Target, error) {
	if len(names) == 0 {
		all := m.source.All()
		sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
		return all, nil
	}
	var out []*Target
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		t, ok := m.source.Get(name)
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrIndexNotFound, "index %q is not loaded", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Search queries the named indexes concurrently and merges their results.
// Indexes that fail or time out are reported in Failed; the call fails
// only when every index does.
func (m *Multi) Search(ctx context.Context, query string, limit int, names []string) (*SearchResult, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "search", logger.RequestID(ctx))
	defer func() {
		span.End()
		span.Log(m.logger)
	}()

	plan := parser.Parse(query)
	targets, err := m.targets(names)
	if err != nil {
		return nil, err
	}
	result := &SearchResult{
		Query:          query,
		Results:        []ranker.Result{},
		HighlightTerms: plan.HighlightTerms,
		Indexes:        make([]string, 0, len(targets)),
	}
	for _, t := range targets {
		result.Indexes = append(result.Indexes, t.Name)
	}
	span.SetAttr("indexes", len(targets))
	if plan.Empty() || len(targets) == 0 {
		result.TookMs = elapsedMs(start)
		return result, nil
	}

	lists := make([][]ranker.Result, len(targets))
	var (
		mu     sync.Mutex
		failed = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		g.Go(func() error {
			sctx, child := tracing.Start(gctx, "search:"+t.Name, "")
			defer child.End()
			res, err := resilience.WithTimeout(sctx, m.timeout, "search "+t.Name,
				func(ctx context.Context) ([]ranker.Result, error) {
					return t.Search(ctx, plan, m.scorer)
				})
			child.SetAttr("hits", len(res))
			if err != nil {
				mu.Lock()
				failed[t.Name] = err
				mu.Unlock()
				return nil
			}
			lists[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		result.Failed = make(map[string]string, len(failed))
		for name, err := range failed {
			result.Failed[name] = err.Error()
			m.logger.Warn("index search failed", "index", name, "error", err)
		}
	}
	if len(failed) == len(targets) {
		errs := make([]error, 0, len(failed))
		for _, err := range failed {
			errs = append(errs, err)
		}
		joined := errors.Join(errs...)
		if errors.Is(joined, context.DeadlineExceeded) {
			return nil, apperrors.Newf(apperrors.ErrTimeout, "search timed out: %v", joined)
		}
		return nil, fmt.Errorf("searching %d indexes: %w", len(targets), joined)
	}

	for _, l := range lists {
		result.TotalHits += len(l)
	}
	result.Results = merger.Merge(lists, limit)
	result.TookMs = elapsedMs(start)
	span.SetAttr("total_hits", result.TotalHits)
	return result, nil
}

// Lookup resolves a symbol across the named indexes.
func (m *Multi) Lookup(ctx context.Context, name string, names []string) ([]ObjectHit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "object name is required")
	}
	targets, err := m.targets(names)
	if err != nil {
		return nil, err
	}
	var hits []ObjectHit
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, ref := range t.Index.ObjectsByName(name) {
			hits = append(hits, ObjectHit{Index: t.Name, ObjectRef: ref, URL: t.URL(ref.DocName, ref.Anchor)})
		}
	}
	if len(hits) == 0 {
		return nil, apperrors.Newf(apperrors.ErrObjectNotFound, "no object named %q", name)
	}
	return hits, nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
