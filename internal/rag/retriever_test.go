package rag

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"econ-rag/internal/rag/mocks"
	"econ-rag/internal/service"
	"econ-rag/internal/vectorstore"
	vectorstore_mocks "econ-rag/internal/vectorstore/mocks"
)

const testCollection = "seade_gecon"

func TestRetriever_Retrieve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)

	vec := []float32{0.1, 0.2, 0.3}
	embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"indústria automotiva"}).Return([][]float32{vec}, nil)
	store.EXPECT().Search(gomock.Any(), testCollection, vec, 2, gomock.Nil()).Return([]vectorstore.SearchResult{
		{PointID: "p1", Text: "primeiro", Distance: 0.1, Meta: map[string]any{vectorstore.MetaSource: "a.pdf", vectorstore.MetaPage: float64(3)}},
		{PointID: "p2", Text: "segundo", Distance: 0.2, Meta: map[string]any{vectorstore.MetaSource: "b.md", vectorstore.MetaPage: int64(0)}},
		{PointID: "p3", Text: "terceiro", Distance: 0.3},
	}, nil)

	r := NewRetriever(embedder, store, testCollection, 0)
	got, err := r.Retrieve(context.Background(), "indústria automotiva", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(got.Chunks) != 2 {
		t.Fatalf("Retrieve() returned %d chunks, want 2", len(got.Chunks))
	}
	first := got.Chunks[0]
	if first.ID != "p1" || first.Text != "primeiro" || first.Source != "a.pdf" || first.Page != 3 || first.Distance != 0.1 {
		t.Errorf("unexpected first chunk: %+v", first)
	}
	if got.Chunks[1].Page != 0 || got.Chunks[1].Source != "b.md" {
		t.Errorf("unexpected second chunk: %+v", got.Chunks[1])
	}
	if got.Query != "indústria automotiva" {
		t.Errorf("Query = %q", got.Query)
	}
}

func TestRetriever_IndexFailuresAreEmpty(t *testing.T) {
	tests := []struct {
		name string
		hits []vectorstore.SearchResult
		err  error
	}{
		{name: "empty index", hits: nil},
		{name: "missing collection", err: vectorstore.ErrCollectionNotFound},
		{name: "unreachable index", err: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			embedder := mocks.NewMockEmbedder(ctrl)
			store := vectorstore_mocks.NewMockVectorStore(ctrl)
			embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0}}, nil)
			store.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), 5, gomock.Any()).Return(tt.hits, tt.err)

			got, err := NewRetriever(embedder, store, testCollection, 0).Retrieve(context.Background(), "q", 5)
			if err != nil {
				t.Fatalf("Retrieve() error = %v, want nil", err)
			}
			if got.Chunks == nil || len(got.Chunks) != 0 {
				t.Errorf("Retrieve() chunks = %v, want empty non-nil slice", got.Chunks)
			}
		})
	}
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		err     error
	}{
		{name: "service error", err: errors.New("503 service unavailable")},
		{name: "no vectors", vectors: [][]float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			embedder := mocks.NewMockEmbedder(ctrl)
			store := vectorstore_mocks.NewMockVectorStore(ctrl)
			embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(tt.vectors, tt.err)

			_, err := NewRetriever(embedder, store, testCollection, 0).Retrieve(context.Background(), "q", 5)
			if err == nil {
				t.Fatal("Retrieve() expected error")
			}
			if !errors.Is(err, service.ErrExternalService) {
				t.Errorf("error should match ErrExternalService: %v", err)
			}
			if !service.IsService(err, service.ServiceEmbedding) {
				t.Errorf("error should name the embedding service: %v", err)
			}
		})
	}
}

func TestRetriever_NonPositiveN(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := NewRetriever(mocks.NewMockEmbedder(ctrl), vectorstore_mocks.NewMockVectorStore(ctrl), testCollection, 0)
	got, err := r.Retrieve(context.Background(), "q", 0)
	if err != nil || len(got.Chunks) != 0 {
		t.Errorf("Retrieve(n=0) = %v, %v; want empty, nil", got.Chunks, err)
	}
}
