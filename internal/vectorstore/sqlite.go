package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"econ-rag/internal/contextutil"
)

// SQLiteStore implements VectorStore with brute-force cosine search over
// vectors kept as JSON in the vector_collections / vector_points tables.
// It suits single-node deployments with corpora of a few tens of thousands of chunks.
// The tables are created by storage.Migrate.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore returns a VectorStore backed by a migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) vectorSize(ctx context.Context, collection string) (int, error) {
	var size int
	err := s.db.QueryRowContext(ctx, `SELECT vector_size FROM vector_collections WHERE name = ?`, collection).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read collection: %w", err)
	}
	return size, nil
}

// EnsureCollection registers the collection or validates its vector size.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	size, err := s.vectorSize(ctx, collection)
	if errors.Is(err, ErrCollectionNotFound) {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO vector_collections (name, vector_size) VALUES (?, ?)`, collection, vectorSize); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		logger.InfoContext(ctx, "collection created", "collection", collection, "vector_size", vectorSize, "backend", "sqlite")
		return nil
	}
	if err != nil {
		return err
	}
	if size != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, size)
	}
	return nil
}

// CollectionExists checks if a collection exists.
func (s *SQLiteStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, err := s.vectorSize(ctx, collection)
	if errors.Is(err, ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Upsert replaces points by id inside one transaction, so readers never observe a partial batch.
func (s *SQLiteStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	size, err := s.vectorSize(ctx, collection)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vector_points (collection, id, source, text, meta, vector)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			source = excluded.source, text = excluded.text, meta = excluded.meta, vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, p := range points {
		if len(p.Vec) != size {
			return fmt.Errorf("point %s has vector size %d, expected %d", p.ID, len(p.Vec), size)
		}
		vecJSON, err := json.Marshal(p.Vec)
		if err != nil {
			return fmt.Errorf("failed to encode vector: %w", err)
		}
		metaJSON, err := json.Marshal(p.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		source, _ := p.Meta[MetaSource].(string)
		if _, err := stmt.ExecContext(ctx, collection, p.ID, source, p.Text, string(metaJSON), string(vecJSON)); err != nil {
			return fmt.Errorf("failed to upsert point %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Search scores every point in the collection and returns the k closest.
func (s *SQLiteStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if _, err := s.vectorSize(ctx, collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, text, meta, vector FROM vector_points WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]SearchResult, 0)
	for rows.Next() {
		var id, text, metaStr, vecStr string
		if err := rows.Scan(&id, &text, &metaStr, &vecStr); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}

		var meta map[string]any
		if err := json.Unmarshal([]byte(metaStr), &meta); err != nil {
			continue
		}
		if !matchesFilters(meta, filters) {
			continue
		}

		var vec []float32
		if err := json.Unmarshal([]byte(vecStr), &vec); err != nil || len(vec) != len(query) {
			continue
		}

		results = append(results, SearchResult{
			PointID:  id,
			Text:     text,
			Distance: cosineDistance(query, vec),
			Meta:     meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate points: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func matchesFilters(meta map[string]any, filters map[string]any) bool {
	for key, want := range filters {
		got, ok := meta[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// Count returns the number of points in the collection.
func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.vectorSize(ctx, collection); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_points WHERE collection = ?`, collection).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// Delete removes points by ID inside one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM vector_points WHERE collection = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, collection, id); err != nil {
			return fmt.Errorf("failed to delete point %s: %w", id, err)
		}
	}
	return tx.Commit()
}
