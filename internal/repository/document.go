package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boardgame-tracker/internal/constants"

	"github.com/rs/zerolog"
)

// Document is one cached upstream response, keyed by kind and entity id.
type Document struct {
	Kind      string
	ID        string
	Body      []byte
	FetchedAt time.Time
}

type DocumentRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewDocumentRepository(sqlDB *sql.DB, logger zerolog.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Get returns nil, nil when the document is not cached.
func (r *DocumentRepository) Get(ctx context.Context, kind, id string) (*Document, error) {
	doc := Document{Kind: kind, ID: id}
	err := r.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM documents WHERE kind = ? AND id = ?`, kind, id,
	).Scan(&doc.Body, &doc.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) Exists(ctx context.Context, kind, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE kind = ? AND id = ?`, kind, id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *DocumentRepository) Upsert(ctx context.Context, doc *Document) error {
	_, err := r.db.ExecContext(ctx, upsertDocumentSQL, doc.Kind, doc.ID, doc.Body, doc.FetchedAt)
	return err
}

const upsertDocumentSQL = `
INSERT INTO documents (kind, id, body, fetched_at) VALUES (?, ?, ?, ?)
ON CONFLICT (kind, id) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`

// UpsertBatch writes all documents in one transaction; either every row
// lands or none does.
func (r *DocumentRepository) UpsertBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertDocumentSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare document upsert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < len(docs); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(docs))
		for _, doc := range docs[i:end] {
			if _, err := stmt.ExecContext(ctx, doc.Kind, doc.ID, doc.Body, doc.FetchedAt); err != nil {
				return fmt.Errorf("failed to upsert document %s/%s: %w", doc.Kind, doc.ID, err)
			}
		}
	}

	return tx.Commit()
}

func (r *DocumentRepository) DeleteKind(ctx context.Context, kind string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE kind = ?`, kind)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
