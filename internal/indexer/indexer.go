package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks econ-rag/internal/indexer Embedder

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"econ-rag/internal/contextutil"
	"econ-rag/internal/service"
	"econ-rag/internal/vectorstore"
)

const (
	// MinChunkLength is the shortest trimmed chunk, in runes, that is worth indexing.
	MinChunkLength = 50
	// BatchSize bounds how many chunks go into one embedding call and one upsert.
	BatchSize = 100
)

// Embedder turns texts into vectors. The same implementation must serve
// ingestion and retrieval.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// BatchError reports an ingestion that stopped part way. Batches written
// before the failure stay written.
type BatchError struct {
	Sources []string // Sources with at least one chunk that was not written
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("ingestion stopped, %d sources not processed: %v", len(e.Sources), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Indexer embeds chunks and writes them to the vector store under content-derived ids.
type Indexer struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
	batchSize  int
}

// NewIndexer creates an indexer writing to collection.
func NewIndexer(embedder Embedder, store vectorstore.VectorStore, collection string) *Indexer {
	return &Indexer{
		embedder:   embedder,
		store:      store,
		collection: collection,
		batchSize:  BatchSize,
	}
}

// Viable reports whether text is long enough to be indexed.
func Viable(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= MinChunkLength
}

// ChunkID derives the point id from the trimmed chunk text, so identical
// text always maps to the same point.
func ChunkID(text string) string {
	return uuid.NewHash(sha256.New(), uuid.Nil, []byte(strings.TrimSpace(text)), 8).String()
}

// Upsert writes every viable chunk and returns how many points were written.
// Chunks shorter than MinChunkLength are dropped, and chunks with identical
// text collapse to one point. On failure the count covers the batches that
// were committed and the error is a *BatchError.
func (ix *Indexer) Upsert(ctx context.Context, chunks []Chunk) (int, error) {
	logger := contextutil.LoggerFromContext(ctx).With("component", "indexer")

	pending := make([]Chunk, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	rejected := 0
	for _, c := range chunks {
		if !Viable(c.Text) {
			rejected++
			continue
		}
		id := ChunkID(c.Text)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		pending = append(pending, c)
		ids = append(ids, id)
	}
	if rejected > 0 {
		logger.DebugContext(ctx, "rejected short chunks", "count", rejected, "min_length", MinChunkLength)
	}

	inserted := 0
	for start := 0; start < len(pending); start += ix.batchSize {
		end := min(start+ix.batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = strings.TrimSpace(c.Text)
		}

		vectors, err := ix.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			logger.ErrorContext(ctx, "embedding batch failed", "batch_start", start, "batch_size", len(batch), "error", err)
			return inserted, &BatchError{
				Sources: unprocessedSources(pending[start:]),
				Err:     service.NewExternalServiceError(service.ServiceEmbedding, err),
			}
		}
		if len(vectors) != len(batch) {
			return inserted, &BatchError{
				Sources: unprocessedSources(pending[start:]),
				Err:     service.NewExternalServiceError(service.ServiceEmbedding, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))),
			}
		}

		points := make([]vectorstore.Point, len(batch))
		for i, c := range batch {
			points[i] = vectorstore.Point{
				ID:   ids[start+i],
				Vec:  vectors[i],
				Text: texts[i],
				Meta: chunkMeta(c),
			}
		}

		if err := ix.store.Upsert(ctx, ix.collection, points); err != nil {
			logger.ErrorContext(ctx, "vector upsert failed", "batch_start", start, "batch_size", len(batch), "error", err)
			return inserted, &BatchError{
				Sources: unprocessedSources(pending[start:]),
				Err:     fmt.Errorf("%w: %v", service.ErrIndexUnavailable, err),
			}
		}
		inserted += len(points)
	}

	logger.InfoContext(ctx, "upserted chunks", "collection", ix.collection, "inserted", inserted, "rejected", rejected)
	return inserted, nil
}

// pointIDs returns the distinct point ids of the viable chunks, in order.
func pointIDs(chunks []Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if !Viable(c.Text) {
			continue
		}
		id := ChunkID(c.Text)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func chunkMeta(c Chunk) map[string]any {
	meta := map[string]any{
		vectorstore.MetaSource:     c.Source,
		vectorstore.MetaChunkIndex: c.Index,
	}
	if c.Page > 0 {
		meta[vectorstore.MetaPage] = c.Page
	}
	return meta
}

// unprocessedSources lists distinct sources in first-seen order.
func unprocessedSources(chunks []Chunk) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, c := range chunks {
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		sources = append(sources, c.Source)
	}
	return sources
}
