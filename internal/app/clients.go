package app

import (
	"econ-rag/internal/config"
	"econ-rag/internal/llm"
)

// Clients are the model service clients. They share one rate limiter.
type Clients struct {
	Embedder  *llm.EmbeddingsClient
	Generator *llm.Client
	// Scorer is nil when reranking is disabled by configuration.
	Scorer *llm.RerankClient
}

func wireClients(cfg *config.Config) Clients {
	limiter := llm.NewLimiter(cfg.RequestsPerSecond)

	clients := Clients{
		Embedder:  llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.VectorSize, llm.WithLimiter(limiter)),
		Generator: llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, llm.WithLimiter(limiter)),
	}
	if cfg.RerankEnabled() {
		clients.Scorer = llm.NewRerankClient(cfg.RerankBaseURL, cfg.RerankAPIKey, cfg.RerankModelName, llm.WithLimiter(limiter))
	}
	return clients
}
