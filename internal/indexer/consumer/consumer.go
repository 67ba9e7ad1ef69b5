// Package consumer applies document events from Kafka to the per-project
// index engines and records the outcome in Postgres.
package consumer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// EngineRouter is satisfied by *project.Router.
type EngineRouter interface {
	Route(project string) (*indexer.Engine, error)
}

// StatusRecorder records a document's indexing status.
type StatusRecorder interface {
	SetStatus(ctx context.Context, project, docName, status string) error
}

type postgresStatus struct{ db *sql.DB }

func (p postgresStatus) SetStatus(ctx context.Context, project, docName, status string) error {
	return publisher.SetStatus(ctx, p.db, project, docName, status)
}

// PostgresStatus records statuses in the documents table.
func PostgresStatus(db *sql.DB) StatusRecorder {
	return postgresStatus{db: db}
}

// HandleMessage returns a Kafka MessageHandler applying DocumentEvents.
// status may be nil.
func HandleMessage(router EngineRouter, status StatusRecorder) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.DocumentEvent](value)
		if err != nil {
			return err
		}
		if err := validator.ValidateProject(event.Project); err != nil {
			return fmt.Errorf("%w: %v", kafka.ErrSkip, err)
		}
		engine, err := router.Route(event.Project)
		if err != nil {
			return fmt.Errorf("routing project %s: %w", event.Project, err)
		}
		docName := event.Document.DocName

		switch event.Op {
		case ingestion.OpUpsert:
			if err := validator.ValidateDocument(&event.Document); err != nil {
				record(ctx, status, logger, event.Project, docName, ingestion.StatusFailed)
				return fmt.Errorf("%w: %s/%s: %v", kafka.ErrSkip, event.Project, docName, err)
			}
			if err := engine.IndexDocument(event.Document); err != nil {
				record(ctx, status, logger, event.Project, docName, ingestion.StatusFailed)
				return fmt.Errorf("indexing %s/%s: %w", event.Project, docName, err)
			}
			record(ctx, status, logger, event.Project, docName, ingestion.StatusIndexed)
			logger.Info("document indexed", "project", event.Project, "docname", docName)
		case ingestion.OpDelete:
			existed := engine.RemoveDocument(docName)
			record(ctx, status, logger, event.Project, docName, ingestion.StatusDeleted)
			logger.Info("document removed", "project", event.Project, "docname", docName, "existed", existed)
		default:
			return fmt.Errorf("%w: unknown op %q", kafka.ErrSkip, event.Op)
		}
		return nil
	}
}

func record(ctx context.Context, status StatusRecorder, logger *slog.Logger, project, docName, s string) {
	if status == nil {
		return
	}
	if err := status.SetStatus(ctx, project, docName, s); err != nil {
		logger.Error("failed to update document status",
			"project", project,
			"docname", docName,
			"status", s,
			"error", err,
		)
	}
}
