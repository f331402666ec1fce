package rag

// DefaultNResults is the number of evidence chunks used when a request does not ask for a count.
const DefaultNResults = 5

// minOverFetch is the floor on candidates pulled from the index before reranking.
const minOverFetch = 8

// Chunk is one indexed span of text as returned by the index.
type Chunk struct {
	// ID is the content-derived point id.
	ID string
	// Text is the chunk text.
	Text string
	// Source is the originating document path.
	Source string
	// Page is the 1-based PDF page, or 0 when the source has no pages.
	Page int
	// Distance is the vector distance to the query (lower is closer).
	Distance float32
}

// RetrievalResult is the ordered output of one nearest-neighbor query, closest first.
type RetrievalResult struct {
	Query  string
	Chunks []Chunk
}

// Evidence is a chunk with the relevance score assigned by the reranker.
type Evidence struct {
	Chunk
	Score float64
}

// RankedEvidence is the reranked candidate set, best first.
type RankedEvidence struct {
	Items []Evidence
	// Reranked is false when the pass-through ordering was used.
	Reranked bool
}

// Len returns the number of evidence items.
func (e RankedEvidence) Len() int {
	return len(e.Items)
}

// Scores returns the relevance scores in evidence order.
func (e RankedEvidence) Scores() []float64 {
	scores := make([]float64, len(e.Items))
	for i, item := range e.Items {
		scores[i] = item.Score
	}
	return scores
}

// Texts returns the chunk texts in evidence order.
func (e RankedEvidence) Texts() []string {
	texts := make([]string, len(e.Items))
	for i, item := range e.Items {
		texts[i] = item.Text
	}
	return texts
}

// Recommendation is the outcome category of a quality assessment.
type Recommendation string

const (
	RecommendNoDocuments      Recommendation = "no_documents"
	RecommendAskClarification Recommendation = "ask_clarification"
	RecommendHighConfidence   Recommendation = "high_confidence"
	RecommendMediumConfidence Recommendation = "medium_confidence"
	RecommendLowConfidence    Recommendation = "low_confidence"
	RecommendSystemError      Recommendation = "system_error"
)

// QualityAssessment summarizes whether the evidence is good enough to answer from.
type QualityAssessment struct {
	QualityScore      float64        `json:"quality_score"`
	HasSufficientData bool           `json:"has_sufficient_data"`
	Recommendation    Recommendation `json:"recommendation"`
}

// QueryRequest represents a question sent to the pipeline.
type QueryRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
	// NResults is the number of evidence chunks wanted. Zero or negative means DefaultNResults.
	NResults int `json:"n_results,omitempty"`
}

// QueryResponse is the full result of one query, including diagnostics.
type QueryResponse struct {
	Query              string            `json:"query"`
	Response           string            `json:"response"`
	RetrievedDocuments []string          `json:"retrieved_documents"`
	ConfidenceScores   []float64         `json:"confidence_scores"`
	NumDocuments       int               `json:"num_documents"`
	QualityAssessment  QualityAssessment `json:"quality_assessment"`
	ProcessingTimeMs   float64           `json:"processing_time_ms"`
	RerankingEnabled   bool              `json:"reranking_enabled"`
	SystemInitialized  bool              `json:"system_initialized"`
	// FallbackQuery is the rewritten query when the fallback retry ran.
	FallbackQuery string `json:"fallback_query,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Status is a read-only snapshot of the pipeline's health.
type Status struct {
	Initialized      bool   `json:"initialized"`
	IndexReachable   bool   `json:"index_reachable"`
	CollectionName   string `json:"collection_name"`
	CollectionExists bool   `json:"collection_exists"`
	CollectionCount  int    `json:"collection_count"`
	RerankingEnabled bool   `json:"reranking_enabled"`
	LoggingEnabled   bool   `json:"logging_enabled"`
	CollectionError  string `json:"collection_error,omitempty"`
}
