package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks econ-rag/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore tracks which source files have been ingested and at which content hash.
type DocumentStore interface {
	// Get returns the record for source with its chunk IDs, or ErrNotFound.
	Get(ctx context.Context, source string) (*Document, error)
	// Upsert records a successful ingestion of doc and replaces its chunk references.
	Upsert(ctx context.Context, doc *Document) error
	// Delete removes the record for source and its chunk references.
	// Deleting a missing record is not an error.
	Delete(ctx context.Context, source string) error
	// List returns all records ordered by source. Chunk IDs are not loaded.
	List(ctx context.Context) ([]Document, error)
	// Unreferenced returns the subset of ids that no document other than
	// except references. An empty except considers every document.
	Unreferenced(ctx context.Context, ids []string, except string) ([]string, error)
}

// DocumentRepo implements DocumentStore on SQLite.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Get returns the record for source.
func (r *DocumentRepo) Get(ctx context.Context, source string) (*Document, error) {
	var doc Document
	var ingestedAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT source, hash, collection, chunk_count, rejected_chunks, ingested_at FROM documents WHERE source = ?",
		source,
	).Scan(&doc.Source, &doc.Hash, &doc.Collection, &doc.ChunkCount, &doc.RejectedChunks, &ingestedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.IngestedAt, err = parseTimestamp(ingestedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, "SELECT chunk_id FROM document_chunks WHERE source = ? ORDER BY chunk_id", source)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk references: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk reference: %w", err)
		}
		doc.ChunkIDs = append(doc.ChunkIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Upsert inserts or replaces the record for doc.Source, stamps the ingestion time
// and replaces the document's chunk references, all in one transaction.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (source, hash, collection, chunk_count, rejected_chunks, ingested_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (source) DO UPDATE SET
			hash = excluded.hash,
			collection = excluded.collection,
			chunk_count = excluded.chunk_count,
			rejected_chunks = excluded.rejected_chunks,
			ingested_at = CURRENT_TIMESTAMP`,
		doc.Source, doc.Hash, doc.Collection, doc.ChunkCount, doc.RejectedChunks,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE source = ?", doc.Source); err != nil {
		return fmt.Errorf("failed to clear chunk references: %w", err)
	}
	if len(doc.ChunkIDs) > 0 {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO document_chunks (source, chunk_id) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare chunk references: %w", err)
		}
		defer func() {
			_ = stmt.Close()
		}()
		for _, id := range doc.ChunkIDs {
			if _, err := stmt.ExecContext(ctx, doc.Source, id); err != nil {
				return fmt.Errorf("failed to record chunk reference: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// Delete removes the record for source. Its chunk references go with it.
func (r *DocumentRepo) Delete(ctx context.Context, source string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE source = ?", source); err != nil {
		return fmt.Errorf("failed to delete chunk references: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE source = ?", source); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// Unreferenced returns the ids, in input order, that no document other than except references.
func (r *DocumentRepo) Unreferenced(ctx context.Context, ids []string, except string) ([]string, error) {
	orphans := make([]string, 0, len(ids))
	for _, id := range ids {
		var referenced bool
		err := r.db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM document_chunks WHERE chunk_id = ? AND source <> ?)",
			id, except,
		).Scan(&referenced)
		if err != nil {
			return nil, fmt.Errorf("failed to check chunk references: %w", err)
		}
		if !referenced {
			orphans = append(orphans, id)
		}
	}
	return orphans, nil
}

// List returns all records ordered by source.
func (r *DocumentRepo) List(ctx context.Context) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT source, hash, collection, chunk_count, rejected_chunks, ingested_at FROM documents ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []Document
	for rows.Next() {
		var doc Document
		var ingestedAt string
		if err := rows.Scan(&doc.Source, &doc.Hash, &doc.Collection, &doc.ChunkCount, &doc.RejectedChunks, &ingestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if doc.IngestedAt, err = parseTimestamp(ingestedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// parseTimestamp accepts both layouts SQLite may hand back for DATETIME columns.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
