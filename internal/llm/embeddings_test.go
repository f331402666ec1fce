package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewEmbeddingsClient(t *testing.T) {
	client := NewEmbeddingsClient("http://localhost:8080", "test-key", "text-embedding-3-small", 1536)
	if client == nil {
		t.Fatal("NewEmbeddingsClient() returned nil")
	}
	if client.ExpectedSize != 1536 {
		t.Errorf("NewEmbeddingsClient() ExpectedSize = %v, want 1536", client.ExpectedSize)
	}
	if client.opts.httpClient == nil {
		t.Error("NewEmbeddingsClient() http client should default to non-nil")
	}
}

func embeddingsServer(t *testing.T, data []EmbeddingData) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(EmbeddingsResponse{Data: data})
	}
}

func TestEmbeddingsClient_EmbedTexts(t *testing.T) {
	tests := []struct {
		name         string
		texts        []string
		expectedSize int
		serverResp   func(t *testing.T) func(w http.ResponseWriter, r *http.Request)
		wantErr      bool
		wantFirst    float32
	}{
		{
			name:         "successful embedding",
			texts:        []string{"automotive output", "trade balance"},
			expectedSize: 3,
			serverResp: func(t *testing.T) func(w http.ResponseWriter, r *http.Request) {
				return func(w http.ResponseWriter, r *http.Request) {
					if r.URL.Path != "/v1/embeddings" {
						t.Errorf("expected /v1/embeddings, got %s", r.URL.Path)
					}
					if r.Header.Get("Authorization") != "Bearer test-key" {
						t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
					}
					embeddingsServer(t, []EmbeddingData{
						{Index: 0, Embedding: []float64{0.5, 0, 0}},
						{Index: 1, Embedding: []float64{0, 1, 0}},
					})(w, r)
				}
			},
			wantFirst: 0.5,
		},
		{
			name:         "out of order response is realigned",
			texts:        []string{"first", "second"},
			expectedSize: 3,
			serverResp: func(t *testing.T) func(w http.ResponseWriter, r *http.Request) {
				return embeddingsServer(t, []EmbeddingData{
					{Index: 1, Embedding: []float64{2, 2, 2}},
					{Index: 0, Embedding: []float64{1, 1, 1}},
				})
			},
			wantFirst: 1,
		},
		{
			name:         "empty input",
			texts:        []string{},
			expectedSize: 3,
			serverResp: func(t *testing.T) func(w http.ResponseWriter, r *http.Request) {
				return func(w http.ResponseWriter, r *http.Request) {
					t.Error("server should not be called")
				}
			},
			wantErr: true,
		},
		{
			name:         "wrong embedding count",
			texts:        []string{"a", "b"},
			expectedSize: 3,
			serverResp: func(t *testing.T) func(w http.ResponseWriter, r *http.Request) {
				return embeddingsServer(t, []EmbeddingData{{Embedding: []float64{1, 2, 3}}})
			},
			wantErr: true,
		},
		{
			name:         "wrong vector size",
			texts:        []string{"a"},
			expectedSize: 3,
			serverResp: func(t *testing.T) func(w http.ResponseWriter, r *http.Request) {
				return embeddingsServer(t, []EmbeddingData{{Embedding: []float64{1, 2}}})
			},
			wantErr: true,
		},
		{
			name:         "duplicate index",
			texts:        []string{"a", "b"},
			expectedSize: 1,
			serverResp: func(t *testing.T) func(w http.ResponseWriter, r *http.Request) {
				return embeddingsServer(t, []EmbeddingData{
					{Index: 1, Embedding: []float64{1}},
					{Index: 1, Embedding: []float64{2}},
				})
			},
			wantErr: true,
		},
		{
			name:         "server error",
			texts:        []string{"a"},
			expectedSize: 3,
			serverResp: func(t *testing.T) func(w http.ResponseWriter, r *http.Request) {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte("overloaded"))
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp(t)))
			defer server.Close()

			client := NewEmbeddingsClient(server.URL, "test-key", "test-model", tt.expectedSize)
			embeddings, err := client.EmbedTexts(context.Background(), tt.texts)

			if tt.wantErr {
				if err == nil {
					t.Errorf("EmbedTexts() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("EmbedTexts() unexpected error: %v", err)
			}
			if len(embeddings) != len(tt.texts) {
				t.Fatalf("EmbedTexts() returned %d embeddings, want %d", len(embeddings), len(tt.texts))
			}
			if embeddings[0][0] != tt.wantFirst {
				t.Errorf("EmbedTexts() embedding[0][0] = %v, want %v", embeddings[0][0], tt.wantFirst)
			}
		})
	}
}

func TestEmbeddingsClient_RespectsContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "k", "m", 3)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.EmbedTexts(ctx, []string{"slow"}); err == nil {
		t.Error("EmbedTexts() expected timeout error, got nil")
	}
}

func TestLimiter_BlocksUntilContextDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(embeddingsServer(t, []EmbeddingData{{Embedding: []float64{1}}})))
	defer server.Close()

	// One token, refilled once per ten seconds.
	limiter := NewLimiter(0.1)
	client := NewEmbeddingsClient(server.URL, "k", "m", 1, WithLimiter(limiter))

	if _, err := client.EmbedTexts(context.Background(), []string{"first"}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.EmbedTexts(ctx, []string{"second"}); err == nil {
		t.Error("second call should fail while the limiter is exhausted")
	}
}
