package rag

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"econ-rag/internal/contextutil"
	"econ-rag/internal/querylog"
	"econ-rag/internal/service"
	"econ-rag/internal/vectorstore"
)

// Answerer answers a question. It is the only capability external layers need.
type Answerer interface {
	// Query returns an error only for invalid input; every other failure is
	// reported inside the response.
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
}

// Pipeline runs retrieve, rerank, assess, an optional single fallback retry, compose and log.
type Pipeline struct {
	retriever  *Retriever
	reranker   Reranker
	composer   *Composer
	queryLog   querylog.Logger
	store      vectorstore.VectorStore
	collection string
}

// NewPipeline wires the stages. A nil queryLog disables logging.
func NewPipeline(
	retriever *Retriever,
	reranker Reranker,
	composer *Composer,
	queryLog querylog.Logger,
	store vectorstore.VectorStore,
	collection string,
) *Pipeline {
	if reranker == nil {
		reranker = PassThroughReranker{}
	}
	if queryLog == nil {
		queryLog = querylog.Noop{}
	}
	return &Pipeline{
		retriever:  retriever,
		reranker:   reranker,
		composer:   composer,
		queryLog:   queryLog,
		store:      store,
		collection: collection,
	}
}

// overFetch is how many candidates to retrieve for a rerank keeping requested.
func overFetch(requested int) int {
	return max(requested*2, minOverFetch)
}

// Query answers req. Empty input is rejected with a *service.ValidationError before
// any stage runs and is not logged. Otherwise the query always completes and is logged.
func (p *Pipeline) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := contextutil.LoggerFromContext(ctx).With("component", "pipeline")
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return QueryResponse{
			Query:              req.Query,
			Response:           InvalidQuestionAnswer,
			RetrievedDocuments: []string{},
			ConfidenceScores:   []float64{},
			QualityAssessment:  Assess(nil),
			SystemInitialized:  true,
		}, &service.ValidationError{Field: "query", Message: "cannot be empty"}
	}

	requested := req.NResults
	if requested <= 0 {
		requested = DefaultNResults
	}

	logger.InfoContext(ctx, "query started", "query_length", utf8.RuneCountInString(query), "n_results", requested)

	resp := p.run(ctx, query, requested)
	resp.ProcessingTimeMs = math.Round(float64(time.Since(start).Microseconds())/10) / 100

	p.queryLog.Log(ctx, querylog.Entry{
		Timestamp:        start,
		Query:            query,
		ResponseLength:   utf8.RuneCountInString(resp.Response),
		NumDocuments:     resp.NumDocuments,
		ConfidenceAvg:    mean(resp.ConfidenceScores),
		ProcessingTimeMs: resp.ProcessingTimeMs,
		RerankEnabled:    resp.RerankingEnabled,
	})

	logger.InfoContext(ctx, "query completed",
		"num_documents", resp.NumDocuments,
		"recommendation", resp.QualityAssessment.Recommendation,
		"processing_time_ms", resp.ProcessingTimeMs,
		"failed", resp.Error != "",
	)
	return resp, nil
}

// run executes the stages. A panic anywhere becomes a system error response.
func (p *Pipeline) run(ctx context.Context, query string, requested int) (resp QueryResponse) {
	defer func() {
		if r := recover(); r != nil {
			contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "query panicked", "panic", r)
			resp = p.systemError(query, fmt.Errorf("internal error: %v", r))
		}
	}()

	evidence, fallbackQuery, err := p.gather(ctx, query, requested)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "evidence gathering failed", "error", err)
		return p.systemError(query, err)
	}

	resp = QueryResponse{
		Query:              query,
		RetrievedDocuments: evidence.Texts(),
		ConfidenceScores:   evidence.Scores(),
		NumDocuments:       evidence.Len(),
		QualityAssessment:  Assess(evidence.Scores()),
		RerankingEnabled:   p.reranker.Enabled() && (evidence.Len() == 0 || evidence.Reranked),
		SystemInitialized:  true,
		FallbackQuery:      fallbackQuery,
	}

	answer, err := p.composer.Compose(ctx, query, evidence)
	resp.Response = answer
	if err != nil {
		resp.Error = err.Error()
		resp.QualityAssessment.Recommendation = RecommendSystemError
	}
	return resp
}

// gather returns the final evidence for query, running the fallback retry at most once.
// fallbackQuery is set when the retry ran.
func (p *Pipeline) gather(ctx context.Context, query string, requested int) (evidence RankedEvidence, fallbackQuery string, err error) {
	logger := contextutil.LoggerFromContext(ctx).With("component", "pipeline")

	evidence, err = p.retrieveAndRank(ctx, query, query, requested)
	if err != nil {
		return RankedEvidence{}, "", err
	}
	if evidence.Len() == 0 {
		return evidence, "", nil
	}

	qa := Assess(evidence.Scores())
	if qa.HasSufficientData {
		return evidence, "", nil
	}

	rewritten := RewriteQuery(query)
	if rewritten == query {
		return evidence, "", nil
	}

	logger.InfoContext(ctx, "evidence insufficient, retrying with fallback query",
		"quality_score", qa.QualityScore,
		"fallback_query", rewritten,
	)
	evidence, err = p.retrieveAndRank(ctx, rewritten, query, requested)
	if err != nil {
		return RankedEvidence{}, rewritten, err
	}
	return evidence, rewritten, nil
}

// retrieveAndRank searches with searchQuery and scores candidates against the user's question.
func (p *Pipeline) retrieveAndRank(ctx context.Context, searchQuery, question string, requested int) (RankedEvidence, error) {
	retrieval, err := p.retriever.Retrieve(ctx, searchQuery, overFetch(requested))
	if err != nil {
		return RankedEvidence{}, err
	}
	if len(retrieval.Chunks) == 0 {
		return RankedEvidence{Items: []Evidence{}}, nil
	}
	return p.reranker.Rerank(ctx, question, retrieval.Chunks, requested)
}

func (p *Pipeline) systemError(query string, err error) QueryResponse {
	return QueryResponse{
		Query:              query,
		Response:           SystemErrorAnswer,
		RetrievedDocuments: []string{},
		ConfidenceScores:   []float64{},
		QualityAssessment:  QualityAssessment{Recommendation: RecommendSystemError},
		RerankingEnabled:   p.reranker.Enabled(),
		SystemInitialized:  true,
		Error:              err.Error(),
	}
}

// Status reports index reachability and configuration. It never mutates state.
func (p *Pipeline) Status(ctx context.Context) Status {
	st := Status{
		Initialized:      true,
		CollectionName:   p.collection,
		RerankingEnabled: p.reranker.Enabled(),
		LoggingEnabled:   p.queryLog.Enabled(),
	}

	exists, err := p.store.CollectionExists(ctx, p.collection)
	if err != nil {
		st.CollectionError = err.Error()
		return st
	}
	st.IndexReachable = true
	st.CollectionExists = exists
	if !exists {
		return st
	}

	count, err := p.store.Count(ctx, p.collection)
	if err != nil {
		st.CollectionError = err.Error()
		return st
	}
	st.CollectionCount = count
	return st
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
