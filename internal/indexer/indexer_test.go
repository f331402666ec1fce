package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"econ-rag/internal/indexer/mocks"
	"econ-rag/internal/service"
	"econ-rag/internal/vectorstore"
	vectorstore_mocks "econ-rag/internal/vectorstore/mocks"
)

func longText(prefix string) string {
	return prefix + " " + strings.Repeat("produção industrial paulista ", 3)
}

func vectorsFor(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out
}

func TestChunkID(t *testing.T) {
	a := ChunkID("Indústria automotiva")
	b := ChunkID("  Indústria automotiva \n")
	c := ChunkID("Indústria têxtil")

	if a != b {
		t.Errorf("ChunkID() should ignore surrounding whitespace: %s != %s", a, b)
	}
	if a == c {
		t.Error("ChunkID() should differ for different text")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("ChunkID() = %s is not a UUID: %v", a, err)
	}
}

func TestViable(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "too short", text: "curto", want: false},
		{name: "padding does not count", text: "   " + strings.Repeat("a", 49) + "   ", want: false},
		{name: "exactly minimum", text: strings.Repeat("a", 50), want: true},
		{name: "multibyte counts runes", text: strings.Repeat("ã", 50), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Viable(tt.text); got != tt.want {
				t.Errorf("Viable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIndexer_Upsert_RejectsShortAndDeduplicates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	chunks := []Chunk{
		{Text: longText("A"), Source: "a.pdf", Page: 2, Index: 0},
		{Text: "short", Source: "a.pdf", Index: 1},
		{Text: longText("A") + "  ", Source: "b.txt", Index: 0}, // same trimmed text
		{Text: longText("B"), Source: "b.txt", Index: 1},
	}

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), []string{strings.TrimSpace(longText("A")), strings.TrimSpace(longText("B"))}).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			return vectorsFor(texts), nil
		})

	store.EXPECT().
		Upsert(gomock.Any(), "test-collection", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
			if len(points) != 2 {
				t.Fatalf("Upsert() got %d points, want 2", len(points))
			}
			if points[0].ID != ChunkID(longText("A")) {
				t.Errorf("points[0].ID = %s, want content-derived id", points[0].ID)
			}
			if points[0].Meta[vectorstore.MetaSource] != "a.pdf" || points[0].Meta[vectorstore.MetaPage] != 2 {
				t.Errorf("points[0].Meta = %v", points[0].Meta)
			}
			if _, ok := points[1].Meta[vectorstore.MetaPage]; ok {
				t.Errorf("points[1] has page metadata for a pageless source: %v", points[1].Meta)
			}
			if points[1].Text != strings.TrimSpace(longText("B")) {
				t.Errorf("points[1].Text = %q", points[1].Text)
			}
			return nil
		})

	ix := NewIndexer(embedder, store, "test-collection")
	inserted, err := ix.Upsert(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if inserted != 2 {
		t.Errorf("Upsert() inserted = %d, want 2", inserted)
	}
}

func TestIndexer_Upsert_Batches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	chunks := []Chunk{
		{Text: longText("1"), Source: "a"},
		{Text: longText("2"), Source: "a"},
		{Text: longText("3"), Source: "b"},
		{Text: longText("4"), Source: "b"},
		{Text: longText("5"), Source: "c"},
	}

	var batchSizes []int
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			batchSizes = append(batchSizes, len(texts))
			return vectorsFor(texts), nil
		}).Times(3)
	store.EXPECT().Upsert(gomock.Any(), "c", gomock.Any()).Return(nil).Times(3)

	ix := NewIndexer(embedder, store, "c")
	ix.batchSize = 2

	inserted, err := ix.Upsert(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if inserted != 5 {
		t.Errorf("Upsert() inserted = %d, want 5", inserted)
	}
	if len(batchSizes) != 3 || batchSizes[0] != 2 || batchSizes[1] != 2 || batchSizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [2 2 1]", batchSizes)
	}
}

func TestIndexer_Upsert_EmbeddingFailureKeepsCommittedBatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	chunks := []Chunk{
		{Text: longText("1"), Source: "a"},
		{Text: longText("2"), Source: "a"},
		{Text: longText("3"), Source: "b"},
		{Text: longText("4"), Source: "c"},
	}

	gomock.InOrder(
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Len(2)).
			DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
				return vectorsFor(texts), nil
			}),
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Len(2)).
			Return(nil, errors.New("connection refused")),
	)
	store.EXPECT().Upsert(gomock.Any(), "c", gomock.Len(2)).Return(nil).Times(1)

	ix := NewIndexer(embedder, store, "c")
	ix.batchSize = 2

	inserted, err := ix.Upsert(context.Background(), chunks)
	if inserted != 2 {
		t.Errorf("Upsert() inserted = %d, want 2 from the committed batch", inserted)
	}

	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("Upsert() error = %v, want *BatchError", err)
	}
	if len(batchErr.Sources) != 2 || batchErr.Sources[0] != "b" || batchErr.Sources[1] != "c" {
		t.Errorf("BatchError.Sources = %v, want [b c]", batchErr.Sources)
	}
	if !service.IsService(err, service.ServiceEmbedding) {
		t.Errorf("error %v should be an embedding service error", err)
	}
	if !errors.Is(err, service.ErrExternalService) {
		t.Errorf("error %v should match ErrExternalService", err)
	}
}

func TestIndexer_Upsert_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			return vectorsFor(texts), nil
		})
	store.EXPECT().Upsert(gomock.Any(), "c", gomock.Any()).Return(errors.New("qdrant down"))

	ix := NewIndexer(embedder, store, "c")
	inserted, err := ix.Upsert(context.Background(), []Chunk{{Text: longText("x"), Source: "a"}})

	if inserted != 0 {
		t.Errorf("Upsert() inserted = %d, want 0", inserted)
	}
	if !errors.Is(err, service.ErrIndexUnavailable) {
		t.Errorf("Upsert() error = %v, want ErrIndexUnavailable", err)
	}
}

func TestIndexer_Upsert_NothingViable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No calls expected on either dependency
	ix := NewIndexer(mocks.NewMockEmbedder(ctrl), vectorstore_mocks.NewMockVectorStore(ctrl), "c")

	inserted, err := ix.Upsert(context.Background(), []Chunk{{Text: "tiny", Source: "a"}})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if inserted != 0 {
		t.Errorf("Upsert() inserted = %d, want 0", inserted)
	}
}
