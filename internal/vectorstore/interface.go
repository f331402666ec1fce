package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks econ-rag/internal/vectorstore VectorStore

import (
	"context"
	"errors"
	"math"
)

// ErrCollectionNotFound is returned when an operation targets a collection that does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Payload keys shared by every backend.
const (
	MetaText       = "text"
	MetaSource     = "source"
	MetaPage       = "page"
	MetaChunkIndex = "chunk_index"
)

// Point is one indexed chunk: its vector, its text and source metadata.
// Vec, Text and ID are written together in a single upsert call.
type Point struct {
	ID   string
	Vec  []float32
	Text string
	Meta map[string]any
}

// SearchResult is one nearest-neighbor hit. Distance is cosine distance
// (0 = identical direction), so smaller is closer.
type SearchResult struct {
	PointID  string
	Text     string
	Distance float32
	Meta     map[string]any
}

// VectorStore defines the interface for vector storage operations.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// EnsureCollection creates the collection if missing and validates its vector size otherwise.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection exists. An error means the store is unreachable.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k points ordered by ascending distance.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error)

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Delete removes the points with the given IDs. Unknown IDs are ignored.
	Delete(ctx context.Context, collection string, ids []string) error
}

// cosineDistance returns 1 - cos(a, b), or 1 when either vector is zero.
func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}
