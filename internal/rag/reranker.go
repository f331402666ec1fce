package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_scorer.go -package=mocks econ-rag/internal/rag Scorer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"econ-rag/internal/contextutil"
)

// NeutralScore is assigned to every candidate when reranking is not available.
// It sits above the sufficiency floor so pass-through evidence is answered from, at medium confidence.
const NeutralScore = 0.5

// Reranker reorders candidates by query relevance and keeps the best topK.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Chunk, topK int) (RankedEvidence, error)
	// Enabled reports whether a relevance model is configured.
	Enabled() bool
}

// Scorer scores each document against the query, one score per document in input order.
// llm.RerankClient satisfies it.
type Scorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// PassThroughReranker is the degraded mode: candidates keep their distance order
// and all receive NeutralScore.
type PassThroughReranker struct{}

// Rerank returns the first topK candidates unchanged.
func (PassThroughReranker) Rerank(_ context.Context, _ string, candidates []Chunk, topK int) (RankedEvidence, error) {
	return passThrough(candidates, topK), nil
}

// Enabled always reports false.
func (PassThroughReranker) Enabled() bool {
	return false
}

func passThrough(candidates []Chunk, topK int) RankedEvidence {
	n := min(len(candidates), max(topK, 0))
	items := make([]Evidence, 0, n)
	for _, c := range candidates[:n] {
		items = append(items, Evidence{Chunk: c, Score: NeutralScore})
	}
	return RankedEvidence{Items: items}
}

// CrossEncoderReranker scores (query, chunk) pairs with a cross-encoder.
// A failed scoring call degrades that query to pass-through instead of failing it.
type CrossEncoderReranker struct {
	scorer  Scorer
	timeout time.Duration
}

// NewCrossEncoderReranker creates a reranker backed by scorer. A zero timeout
// leaves the call bounded only by the caller's context.
func NewCrossEncoderReranker(scorer Scorer, timeout time.Duration) *CrossEncoderReranker {
	return &CrossEncoderReranker{scorer: scorer, timeout: timeout}
}

// Enabled always reports true.
func (r *CrossEncoderReranker) Enabled() bool {
	return true
}

// Rerank sorts candidates by descending score, ties kept in input order, and truncates to topK.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, candidates []Chunk, topK int) (RankedEvidence, error) {
	logger := contextutil.LoggerFromContext(ctx).With("component", "reranker")

	if len(candidates) == 0 || topK <= 0 {
		return RankedEvidence{Items: []Evidence{}, Reranked: true}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	scoreCtx, cancel := withTimeout(ctx, r.timeout)
	scores, err := r.scorer.Score(scoreCtx, query, texts)
	cancel()
	if err == nil && len(scores) != len(candidates) {
		err = fmt.Errorf("expected %d scores, got %d", len(candidates), len(scores))
	}
	if err != nil {
		logger.WarnContext(ctx, "reranker unavailable, using pass-through order", "candidates", len(candidates), "error", err)
		return passThrough(candidates, topK), nil
	}

	items := make([]Evidence, len(candidates))
	for i, c := range candidates {
		items[i] = Evidence{Chunk: c, Score: scores[i]}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if len(items) > topK {
		items = items[:topK]
	}

	logger.DebugContext(ctx, "rerank completed", "candidates", len(candidates), "kept", len(items), "top_score", items[0].Score)
	return RankedEvidence{Items: items, Reranked: true}, nil
}

// NewReranker picks the cross-encoder when enabled and a scorer is available, and pass-through otherwise.
func NewReranker(enabled bool, scorer Scorer, timeout time.Duration) Reranker {
	if !enabled || scorer == nil {
		return PassThroughReranker{}
	}
	return NewCrossEncoderReranker(scorer, timeout)
}
