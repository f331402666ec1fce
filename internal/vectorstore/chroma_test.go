package vectorstore

import (
	"context"
	"testing"
)

func TestToChromaMetadata(t *testing.T) {
	meta := toChromaMetadata(map[string]any{
		MetaSource: "docs/boletim.pdf",
		MetaPage:   3,
		"score":    0.5,
		"draft":    false,
	})

	if got, ok := meta.GetString(MetaSource); !ok || got != "docs/boletim.pdf" {
		t.Errorf("source = %q, %v", got, ok)
	}
	if got, ok := meta.GetInt(MetaPage); !ok || got != 3 {
		t.Errorf("page = %d, %v", got, ok)
	}
	if got, ok := meta.GetFloat("score"); !ok || got != 0.5 {
		t.Errorf("score = %v, %v", got, ok)
	}
	if got, ok := meta.GetBool("draft"); !ok || got {
		t.Errorf("draft = %v, %v", got, ok)
	}
}

func TestMetadataToMap(t *testing.T) {
	got := metadataToMap(toChromaMetadata(map[string]any{MetaSource: "a.md", MetaPage: 2}))

	if got[MetaSource] != "a.md" {
		t.Errorf("source = %v, want a.md", got[MetaSource])
	}
	// JSON numbers decode as float64
	if got[MetaPage] != float64(2) {
		t.Errorf("page = %v (%T), want 2", got[MetaPage], got[MetaPage])
	}
}

func TestBuildChromaWhere(t *testing.T) {
	if buildChromaWhere(nil) != nil {
		t.Error("buildChromaWhere(nil) should be nil")
	}
	if buildChromaWhere(map[string]any{MetaSource: "a.pdf"}) == nil {
		t.Error("buildChromaWhere(single) should not be nil")
	}
	if buildChromaWhere(map[string]any{MetaSource: "a.pdf", MetaPage: 1}) == nil {
		t.Error("buildChromaWhere(multiple) should not be nil")
	}
}

func TestChromaStore_Search_InvalidK(t *testing.T) {
	store, err := NewChromaStore("http://localhost:8000")
	if err != nil {
		t.Fatalf("NewChromaStore() error = %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	if _, err := store.Search(context.Background(), "seade_gecon", []float32{1, 0}, 0, nil); err == nil {
		t.Error("Search(k=0) expected error")
	}
}
