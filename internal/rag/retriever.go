package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks econ-rag/internal/rag Embedder

import (
	"context"
	"fmt"
	"time"

	"econ-rag/internal/contextutil"
	"econ-rag/internal/service"
	"econ-rag/internal/vectorstore"
)

// Embedder turns texts into vectors. It must be the same model the index was built with.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever runs nearest-neighbor queries against the collection.
type Retriever struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
	timeout    time.Duration
}

// NewRetriever creates a retriever. A zero timeout leaves the embedding call bounded only by ctx.
func NewRetriever(embedder Embedder, store vectorstore.VectorStore, collection string, timeout time.Duration) *Retriever {
	return &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		timeout:    timeout,
	}
}

// Retrieve embeds query and returns up to n chunks, closest first.
// A missing, empty or unreachable index yields an empty result and no error;
// only an embedding failure is reported, as a *service.ExternalServiceError.
func (r *Retriever) Retrieve(ctx context.Context, query string, n int) (RetrievalResult, error) {
	logger := contextutil.LoggerFromContext(ctx).With("component", "retriever")
	result := RetrievalResult{Query: query, Chunks: []Chunk{}}

	if n <= 0 {
		return result, nil
	}

	embedCtx, cancel := withTimeout(ctx, r.timeout)
	vectors, err := r.embedder.EmbedTexts(embedCtx, []string{query})
	cancel()
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return result, service.NewExternalServiceError(service.ServiceEmbedding, err)
	}
	if len(vectors) == 0 {
		return result, service.NewExternalServiceError(service.ServiceEmbedding, fmt.Errorf("no embedding returned for query"))
	}

	hits, err := r.store.Search(ctx, r.collection, vectors[0], n, nil)
	if err != nil {
		logger.WarnContext(ctx, "index search failed, treating as empty", "collection", r.collection, "error", err)
		return result, nil
	}

	for _, hit := range hits {
		if len(result.Chunks) == n {
			break
		}
		result.Chunks = append(result.Chunks, chunkFromHit(hit))
	}

	logger.InfoContext(ctx, "retrieval completed", "requested", n, "results", len(result.Chunks))
	if len(result.Chunks) > 0 {
		logger.DebugContext(ctx, "closest chunk", "source", result.Chunks[0].Source, "distance", result.Chunks[0].Distance)
	}
	return result, nil
}

func chunkFromHit(hit vectorstore.SearchResult) Chunk {
	source, _ := hit.Meta[vectorstore.MetaSource].(string)
	return Chunk{
		ID:       hit.PointID,
		Text:     hit.Text,
		Source:   source,
		Page:     metaInt(hit.Meta, vectorstore.MetaPage),
		Distance: hit.Distance,
	}
}

// metaInt reads a numeric payload field. Backends decode numbers as int64 or float64.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
