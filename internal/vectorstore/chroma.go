package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"econ-rag/internal/contextutil"
)

// ChromaStore implements VectorStore on a Chroma server.
// Embeddings are always supplied by the caller; Chroma's own embedding functions are never used.
type ChromaStore struct {
	client chromago.Client

	mu          sync.RWMutex
	collections map[string]chromago.Collection
}

// NewChromaStore connects to the Chroma HTTP API at baseURL.
func NewChromaStore(baseURL string) (*ChromaStore, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}
	return &ChromaStore{
		client:      client,
		collections: make(map[string]chromago.Collection),
	}, nil
}

// Close releases client resources.
func (s *ChromaStore) Close() error {
	return s.client.Close()
}

// EnsureCollection gets or creates the collection with cosine space.
// Chroma infers the dimension from the first insert, so vectorSize is recorded as metadata only.
func (s *ChromaStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	col, err := s.client.GetOrCreateCollection(ctx, collection,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
				chromago.NewIntAttribute("vector_size", int64(vectorSize)),
				chromago.NewStringAttribute("created_by", "econ-rag"),
			),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to get or create collection: %w", err)
	}

	s.mu.Lock()
	s.collections[collection] = col
	s.mu.Unlock()

	logger.InfoContext(ctx, "collection ready", "collection", collection, "backend", "chroma")
	return nil
}

func (s *ChromaStore) collection(ctx context.Context, name string) (chromago.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[name]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	col, err := s.client.GetCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCollectionNotFound, name, err)
	}

	s.mu.Lock()
	s.collections[name] = col
	s.mu.Unlock()
	return col, nil
}

// CollectionExists checks server reachability first so that "missing" and "unreachable" differ.
func (s *ChromaStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	if err := s.client.Heartbeat(ctx); err != nil {
		return false, fmt.Errorf("chroma heartbeat failed: %w", err)
	}
	if _, err := s.collection(ctx, collection); err != nil {
		return false, nil
	}
	return true, nil
}

// Upsert writes all points in one request.
func (s *ChromaStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	col, err := s.collection(ctx, collection)
	if err != nil {
		return err
	}

	ids := make([]chromago.DocumentID, 0, len(points))
	texts := make([]string, 0, len(points))
	embs := make([]embeddings.Embedding, 0, len(points))
	metas := make([]chromago.DocumentMetadata, 0, len(points))
	for _, p := range points {
		ids = append(ids, chromago.DocumentID(p.ID))
		texts = append(texts, p.Text)
		embs = append(embs, embeddings.NewEmbeddingFromFloat32(p.Vec))
		metas = append(metas, toChromaMetadata(p.Meta))
	}

	err = col.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert documents", "collection", collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert documents: %w", err)
	}

	logger.DebugContext(ctx, "upserted documents", "collection", collection, "count", len(points))
	return nil
}

func toChromaMetadata(meta map[string]any) chromago.DocumentMetadata {
	attrs := make([]*chromago.MetaAttribute, 0, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, chromago.NewStringAttribute(k, val))
		case int:
			attrs = append(attrs, chromago.NewIntAttribute(k, int64(val)))
		case int64:
			attrs = append(attrs, chromago.NewIntAttribute(k, val))
		case float64:
			attrs = append(attrs, chromago.NewFloatAttribute(k, val))
		case bool:
			attrs = append(attrs, chromago.NewBoolAttribute(k, val))
		default:
			attrs = append(attrs, chromago.NewStringAttribute(k, fmt.Sprintf("%v", val)))
		}
	}
	return chromago.NewDocumentMetadata(attrs...)
}

// Search asks for at most min(k, count) neighbors; Chroma rejects n_results above the collection size.
func (s *ChromaStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	col, err := s.collection(ctx, collection)
	if err != nil {
		return nil, err
	}

	count, err := col.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	opts := []chromago.CollectionQueryOption{
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(query)),
		chromago.WithNResults(k),
	}
	if where := buildChromaWhere(filters); where != nil {
		opts = append(opts, chromago.WithWhereQuery(where))
	}

	qr, err := col.Query(ctx, opts...)
	if err != nil {
		logger.ErrorContext(ctx, "failed to query documents", "collection", collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	idGroups := qr.GetIDGroups()
	docGroups := qr.GetDocumentsGroups()
	metaGroups := qr.GetMetadatasGroups()
	distGroups := qr.GetDistancesGroups()
	if len(idGroups) == 0 {
		return nil, nil
	}

	results := make([]SearchResult, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		r := SearchResult{PointID: string(id), Meta: map[string]any{}}
		if len(docGroups) > 0 && i < len(docGroups[0]) && docGroups[0][i] != nil {
			r.Text = docGroups[0][i].ContentString()
		}
		if len(distGroups) > 0 && i < len(distGroups[0]) {
			r.Distance = float32(distGroups[0][i])
		}
		if len(metaGroups) > 0 && i < len(metaGroups[0]) && metaGroups[0][i] != nil {
			r.Meta = metadataToMap(metaGroups[0][i])
		}
		results = append(results, r)
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// metadataToMap round-trips through JSON; DocumentMetadata exposes no iterator.
func metadataToMap(meta chromago.DocumentMetadata) map[string]any {
	out := map[string]any{}
	raw, err := json.Marshal(meta)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

// buildChromaWhere matches filters as string equality; only string metadata is filtered on.
func buildChromaWhere(filters map[string]any) chromago.WhereFilter {
	if len(filters) == 0 {
		return nil
	}
	clauses := make([]chromago.WhereClause, 0, len(filters))
	for k, v := range filters {
		clauses = append(clauses, chromago.EqString(k, fmt.Sprintf("%v", v)))
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return chromago.And(clauses...)
}

// Count returns the number of documents in the collection.
func (s *ChromaStore) Count(ctx context.Context, collection string) (int, error) {
	col, err := s.collection(ctx, collection)
	if err != nil {
		return 0, err
	}
	count, err := col.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Delete removes documents by ID.
func (s *ChromaStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	logger := contextutil.LoggerFromContext(ctx)

	col, err := s.collection(ctx, collection)
	if err != nil {
		return err
	}
	docIDs := make([]chromago.DocumentID, len(ids))
	for i, id := range ids {
		docIDs[i] = chromago.DocumentID(id)
	}
	if err := col.Delete(ctx, chromago.WithIDsDelete(docIDs...)); err != nil {
		logger.ErrorContext(ctx, "failed to delete documents", "collection", collection, "count", len(ids), "error", err)
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	logger.InfoContext(ctx, "deleted documents", "collection", collection, "count", len(ids))
	return nil
}
