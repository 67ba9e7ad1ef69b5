package publisher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

// Schema creates the documents table. One row per (project, docname)
// tracks the last accepted content hash and the indexing status.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id           BIGSERIAL PRIMARY KEY,
		project      TEXT NOT NULL,
		docname      TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		content_size INTEGER NOT NULL DEFAULT 0,
		status       TEXT NOT NULL DEFAULT 'PENDING',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		indexed_at   TIMESTAMPTZ,
		UNIQUE (project, docname)
	)`,
	`CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (status)`,
}

// Store records accepted page changes.
type Store interface {
	// Upsert records the content hash for a page. changed is false when the
	// same hash was already recorded and the page is not deleted.
	Upsert(ctx context.Context, project, docName, title, hash string, size int) (changed bool, err error)
	// MarkDeleted reports whether a live row existed.
	MarkDeleted(ctx context.Context, project, docName string) (bool, error)
}

type PostgresStore struct {
	db *postgres.Client
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, project, docName, title, hash string, size int) (bool, error) {
	var id int64
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO documents (project, docname, title, content_hash, content_size, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (project, docname) DO UPDATE
				SET title = EXCLUDED.title,
				    content_hash = EXCLUDED.content_hash,
				    content_size = EXCLUDED.content_size,
				    status = EXCLUDED.status,
				    updated_at = NOW()
				WHERE documents.content_hash <> EXCLUDED.content_hash
				   OR documents.status IN ($7, $8)
			RETURNING id`,
			project, docName, title, hash, size, ingestion.StatusPending,
			ingestion.StatusDeleted, ingestion.StatusFailed,
		).Scan(&id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("upserting %s/%s: %w", project, docName, err)
	}
	return true, nil
}

func (s *PostgresStore) MarkDeleted(ctx context.Context, project, docName string) (bool, error) {
	res, err := s.db.DB.ExecContext(ctx, `
		UPDATE documents SET status = $1, updated_at = NOW()
		WHERE project = $2 AND docname = $3 AND status <> $1`,
		ingestion.StatusDeleted, project, docName,
	)
	if err != nil {
		return false, fmt.Errorf("deleting %s/%s: %w", project, docName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting %s/%s: %w", project, docName, err)
	}
	return n > 0, nil
}

// SetStatus records the indexer's outcome for a page.
func SetStatus(ctx context.Context, db *sql.DB, project, docName, status string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE documents
		SET status = $1, indexed_at = CASE WHEN $1 = 'INDEXED' THEN NOW() ELSE indexed_at END
		WHERE project = $2 AND docname = $3`,
		status, project, docName,
	)
	if err != nil {
		return fmt.Errorf("setting status of %s/%s to %s: %w", project, docName, status, err)
	}
	return nil
}
