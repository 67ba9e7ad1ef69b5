// Package publisher records page changes in Postgres and publishes them to
// Kafka for the indexer.
package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Publisher struct {
	store    Store
	producer EventPublisher
	retry    resilience.RetryConfig
	now      func() time.Time
	logger   *slog.Logger
}

func New(store Store, producer EventPublisher) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		retry:    resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond},
		now:      time.Now,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// ContentHash fingerprints everything about a page that affects the index.
func ContentHash(doc index.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("hashing document: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Upsert records doc and publishes an upsert event unless the identical
// content was already accepted.
func (p *Publisher) Upsert(ctx context.Context, project string, doc index.Document) (*ingestion.IngestResponse, error) {
	hash, err := ContentHash(doc)
	if err != nil {
		return nil, err
	}
	changed, err := p.store.Upsert(ctx, project, doc.DocName, doc.Title, hash, len(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("recording document: %w", err)
	}
	resp := &ingestion.IngestResponse{
		Project:     project,
		DocName:     doc.DocName,
		Status:      ingestion.StatusPending,
		ContentHash: hash,
	}
	if !changed {
		p.logger.Info("unchanged document, not republished", "project", project, "docname", doc.DocName)
		resp.Unchanged = true
		return resp, nil
	}
	p.publish(ctx, ingestion.DocumentEvent{
		Op:          ingestion.OpUpsert,
		Project:     project,
		Document:    doc,
		ContentHash: hash,
		IngestedAt:  p.now().UTC(),
	})
	return resp, nil
}

// Delete marks a page deleted and publishes a delete event.
func (p *Publisher) Delete(ctx context.Context, project, docName string) (*ingestion.IngestResponse, error) {
	found, err := p.store.MarkDeleted(ctx, project, docName)
	if err != nil {
		return nil, fmt.Errorf("recording deletion: %w", err)
	}
	if !found {
		return nil, apperrors.Newf(apperrors.ErrDocumentNotFound, "%s/%s", project, docName)
	}
	p.publish(ctx, ingestion.DocumentEvent{
		Op:         ingestion.OpDelete,
		Project:    project,
		Document:   index.Document{DocName: docName},
		IngestedAt: p.now().UTC(),
	})
	return &ingestion.IngestResponse{Project: project, DocName: docName, Status: ingestion.StatusDeleted}, nil
}

// publish retries transient failures. A change that still cannot be
// published stays PENDING in the documents table and is logged.
func (p *Publisher) publish(ctx context.Context, ev ingestion.DocumentEvent) {
	err := resilience.Retry(ctx, "publish-document-event", p.retry, func() error {
		return p.producer.Publish(ctx, kafka.Event{Key: ev.Project, Value: ev})
	})
	if err != nil {
		p.logger.Error("failed to publish document event, left pending",
			"project", ev.Project,
			"docname", ev.Document.DocName,
			"op", ev.Op,
			"error", err,
		)
	}
}
