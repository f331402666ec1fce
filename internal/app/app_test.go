package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econ-rag/internal/config"
	"econ-rag/internal/indexer"
	"econ-rag/internal/llm"
	"econ-rag/internal/rag"
)

const testVectorSize = 8

// bagOfRunes is a deterministic stand-in for an embedding model.
func bagOfRunes(text string, size int) []float64 {
	v := make([]float64, size)
	for _, r := range strings.ToLower(text) {
		v[int(r)%size]++
	}
	v[0] += 0.5
	return v
}

func newEmbeddingServer(t *testing.T, size int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llm.EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := llm.EmbeddingsResponse{}
		for i, text := range req.Input {
			resp.Data = append(resp.Data, llm.EmbeddingData{Index: i, Embedding: bagOfRunes(text, size)})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newChatServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(llm.ChatResponse{
			Choices: []llm.ChatChoice{{Message: llm.Message{Role: llm.RoleAssistant, Content: answer}, FinishReason: "stop"}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, embeddingURL, chatURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		LLMBaseURL:         chatURL,
		LLMModelName:       "gpt-4o",
		LLMAPIKey:          "test-key",
		LLMTemperature:     0.1,
		LLMMaxTokens:       500,
		EmbeddingBaseURL:   embeddingURL,
		EmbeddingModelName: "test-embedding",
		RerankingMode:      config.RerankingDisabled,
		VectorBackend:      config.BackendSQLite,
		CollectionName:     "seade_gecon",
		VectorSize:         testVectorSize,
		ChunkSize:          1000,
		ChunkOverlap:       100,
		DBPath:             filepath.Join(dir, "econ-rag.db"),
		DocumentsDir:       filepath.Join(dir, "documents"),
		QueryLogPath:       filepath.Join(dir, "logs", "queries.csv"),
		QueryLogEnabled:    true,
		RequestsPerSecond:  100,
		AgentToolCount:     config.AgentToolsMulti,
	}
}

func TestNew_IngestAndQuery(t *testing.T) {
	embeddings := newEmbeddingServer(t, testVectorSize)
	chat := newChatServer(t, "A indústria automotiva concentra-se no ABC paulista [1].")
	cfg := testConfig(t, embeddings.URL, chat.URL)

	require.NoError(t, os.MkdirAll(cfg.DocumentsDir, 0o755))
	doc := filepath.Join(cfg.DocumentsDir, "boletim.md")
	require.NoError(t, os.WriteFile(doc, []byte(
		"# Indústria\n\nA indústria automotiva paulista concentra-se na região do ABC, com montadoras e autopeças.\n\n"+
			"As exportações de máquinas e equipamentos cresceram no último trimestre segundo a pesquisa regional.\n",
	), 0o644))

	ctx := context.Background()
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, a.Close())
	}()

	result, err := a.Ingest.Ingest(ctx, []string{cfg.DocumentsDir}, indexer.IngestOptions{})
	require.NoError(t, err)
	assert.Positive(t, result.InsertedCount)

	again, err := a.Ingest.Ingest(ctx, []string{doc}, indexer.IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{doc}, again.SkippedPaths)
	assert.Zero(t, again.InsertedCount)

	resp, err := a.Pipeline.Query(ctx, rag.QueryRequest{Query: "Onde fica a indústria automotiva?"})
	require.NoError(t, err)
	assert.Equal(t, "A indústria automotiva concentra-se no ABC paulista [1].", resp.Response)
	assert.Positive(t, resp.NumDocuments)
	assert.False(t, resp.RerankingEnabled)
	assert.Empty(t, resp.Error)

	status := a.Pipeline.Status(ctx)
	assert.True(t, status.CollectionExists)
	assert.Equal(t, result.InsertedCount, status.CollectionCount)
	assert.True(t, status.LoggingEnabled)

	raw, err := os.ReadFile(cfg.QueryLogPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 2, "header plus one query")

	assert.Len(t, a.Toolbox.Tools(), 3)
}

func TestNew_Router(t *testing.T) {
	embeddings := newEmbeddingServer(t, testVectorSize)
	chat := newChatServer(t, "unused")
	cfg := testConfig(t, embeddings.URL, chat.URL)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer func() {
		_ = a.Close()
	}()

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"query_log":"enabled"`)
}

func TestNew_FailsFast(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		size    int
		wantErr string
	}{
		{
			name:    "unknown backend",
			mutate:  func(cfg *config.Config) { cfg.VectorBackend = "pinecone" },
			size:    testVectorSize,
			wantErr: "VECTOR_BACKEND",
		},
		{
			name:    "embedding size mismatch",
			mutate:  func(cfg *config.Config) {},
			size:    testVectorSize + 1,
			wantErr: "failed to validate embedding client",
		},
		{
			name:    "invalid chunking",
			mutate:  func(cfg *config.Config) { cfg.ChunkOverlap = cfg.ChunkSize },
			size:    testVectorSize,
			wantErr: "CHUNK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embeddings := newEmbeddingServer(t, tt.size)
			cfg := testConfig(t, embeddings.URL, "http://localhost:1")
			tt.mutate(cfg)

			a, err := New(context.Background(), cfg)
			require.Error(t, err)
			assert.Nil(t, a)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckEmbedder_SizeMismatch(t *testing.T) {
	embeddings := newEmbeddingServer(t, 4)
	embedder := llm.NewEmbeddingsClient(embeddings.URL, "", "m", 4)

	err := checkEmbedder(context.Background(), embedder, 8)

	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "VECTOR_SIZE", cfgErr.Field)
}

func TestWireClients_RerankKey(t *testing.T) {
	cfg := testConfig(t, "http://localhost:1", "http://localhost:2")

	clients := wireClients(cfg)
	assert.Nil(t, clients.Scorer, "reranking disabled should not build a scorer")

	cfg.RerankingMode = config.RerankingEnabled
	cfg.RerankBaseURL = "http://localhost:3"
	cfg.RerankAPIKey = "rerank-key"

	clients = wireClients(cfg)
	require.NotNil(t, clients.Scorer)
	assert.Equal(t, "rerank-key", clients.Scorer.APIKey)
	assert.Equal(t, "test-key", clients.Generator.APIKey)
}
