package llm

import (
	"context"
	"fmt"
)

// RerankClient calls a cross-encoder served behind a /v1/rerank endpoint
// (Jina, Cohere, Text Embeddings Inference and llama.cpp all accept this shape).
// Each (query, document) pair is scored independently by the model.
type RerankClient struct {
	BaseURL string
	APIKey  string
	Model   string
	opts    options
}

// NewRerankClient creates a new rerank client.
func NewRerankClient(baseURL, apiKey, model string, opts ...Option) *RerankClient {
	return &RerankClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		opts:    applyOptions(opts),
	}
}

// RerankRequest represents the request payload for the rerank API.
type RerankRequest struct {
	Model           string   `json:"model,omitempty"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	ReturnDocuments bool     `json:"return_documents"`
}

// RerankResult is one scored document, identified by its position in the request.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RerankResponse represents the response from the rerank API.
type RerankResponse struct {
	Results []RerankResult `json:"results"`
}

// Score returns one relevance score per document, aligned with documents.
func (c *RerankClient) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, fmt.Errorf("empty documents array")
	}

	payload := RerankRequest{
		Model:     c.Model,
		Query:     query,
		Documents: documents,
	}

	var rerankResp RerankResponse
	if err := postJSON(ctx, c.opts, endpoint(c.BaseURL, "/v1/rerank"), c.APIKey, payload, &rerankResp); err != nil {
		return nil, err
	}

	if len(rerankResp.Results) != len(documents) {
		return nil, fmt.Errorf("expected %d scores, got %d", len(documents), len(rerankResp.Results))
	}

	scores := make([]float64, len(documents))
	seen := make([]bool, len(documents))
	for _, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("score index %d out of range", r.Index)
		}
		if seen[r.Index] {
			return nil, fmt.Errorf("duplicate score index %d", r.Index)
		}
		seen[r.Index] = true
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}
