// Package ingestion defines the document intake API types and the Kafka
// event that carries a page change to the indexer.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

// Event operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Document statuses tracked in the documents table.
const (
	StatusPending = "PENDING"
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
	StatusDeleted = "DELETED"
)

// IngestResponse is returned once a page change is accepted.
type IngestResponse struct {
	Project     string `json:"project"`
	DocName     string `json:"docname"`
	Status      string `json:"status"`
	ContentHash string `json:"contentHash,omitempty"`
	// Unchanged is set when the same content was already accepted; no new
	// event is published.
	Unchanged bool `json:"unchanged,omitempty"`
}

// DocumentEvent is the Kafka payload consumed by the indexer, keyed by
// project so a project's changes are applied in order.
type DocumentEvent struct {
	Op          string         `json:"op"`
	Project     string         `json:"project"`
	Document    index.Document `json:"document"`
	ContentHash string         `json:"contentHash,omitempty"`
	IngestedAt  time.Time      `json:"ingestedAt"`
}
