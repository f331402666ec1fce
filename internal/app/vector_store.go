package app

import (
	"database/sql"
	"fmt"

	"econ-rag/internal/config"
	"econ-rag/internal/vectorstore"
)

// openVectorStore returns the configured backend and its close function, if any.
// The sqlite backend shares the registry database.
func openVectorStore(cfg *config.Config, db *sql.DB) (vectorstore.VectorStore, func() error, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, "")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		return store, store.Close, nil
	case config.BackendChroma:
		store, err := vectorstore.NewChromaStore(cfg.ChromaURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Chroma client: %w", err)
		}
		return store, store.Close, nil
	case config.BackendSQLite:
		return vectorstore.NewSQLiteStore(db), nil, nil
	default:
		return nil, nil, &config.ConfigurationError{Field: "VECTOR_BACKEND", Message: fmt.Sprintf("unknown backend %q", cfg.VectorBackend)}
	}
}
