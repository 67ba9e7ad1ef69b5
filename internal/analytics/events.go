// Package analytics tracks search and indexing activity: searchers and
// indexers publish events to Kafka, and the analytics service aggregates
// them into query and latency statistics.
package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventIndexFlush EventType = "index_flush"
)

type SearchEvent struct {
	Type          EventType `json:"type"`
	Query         string    `json:"query"`
	Terms         []string  `json:"terms"`
	Indexes       []string  `json:"indexes"`
	TotalHits     int       `json:"total_hits"`
	Returned      int       `json:"returned"`
	LatencyMs     float64   `json:"latency_ms"`
	CacheHit      bool      `json:"cache_hit"`
	FailedIndexes int       `json:"failed_indexes,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Type          EventType `json:"type"`
	Project       string    `json:"project"`
	Documents     int       `json:"documents"`
	Terms         int       `json:"terms"`
	Objects       int       `json:"objects"`
	DurationMs    float64   `json:"duration_ms"`
	ArtifactBytes int64     `json:"artifact_bytes"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewSearchEvent classifies a finished search as a hit or zero-result.
func NewSearchEvent(query string, terms, indexes []string, totalHits, returned int, latency time.Duration, cacheHit bool) SearchEvent {
	t := EventSearch
	if totalHits == 0 {
		t = EventZeroResult
	}
	return SearchEvent{
		Type:      t,
		Query:     query,
		Terms:     terms,
		Indexes:   indexes,
		TotalHits: totalHits,
		Returned:  returned,
		LatencyMs: float64(latency.Microseconds()) / 1000,
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
	}
}

// IndexEventFrom converts an indexer flush notification.
func IndexEventFrom(ic indexer.IndexComplete) IndexEvent {
	return IndexEvent{
		Type:          EventIndexFlush,
		Project:       ic.Project,
		Documents:     ic.Documents,
		Terms:         ic.Terms,
		Objects:       ic.Objects,
		DurationMs:    ic.DurationMs,
		ArtifactBytes: ic.ArtifactLen,
		Timestamp:     ic.FlushedAt,
	}
}
