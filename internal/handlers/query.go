package handlers

import (
	"encoding/json"
	"net/http"

	"econ-rag/internal/contextutil"
	"econ-rag/internal/rag"
)

// QueryHandler handles HTTP requests for questions answered from the indexed documents.
type QueryHandler struct {
	answerer rag.Answerer
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(answerer rag.Answerer) *QueryHandler {
	return &QueryHandler{answerer: answerer}
}

// ServeHTTP handles HTTP requests for queries.
//
// Answer a question about the regional economy of São Paulo from the indexed
// documents. The response always carries answer text; pipeline failures are
// reported inside the body with a system_error recommendation.
//
// swagger:route POST /api/query query
//
// # Answer a question
//
// Retrieves evidence, reranks it, and composes a cited answer.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Answer composed
//	  schema:
//	    "$ref": "#/definitions/QueryResponse"
//	'400':
//	  description: Empty question or malformed body
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req rag.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.NResults < 0 {
		writeError(w, http.StatusBadRequest, "n_results cannot be negative")
		return
	}

	resp, err := h.answerer.Query(ctx, req)
	status := http.StatusOK
	if err != nil {
		logger.WarnContext(ctx, "query rejected", "error", err)
		status = statusForError(err)
	}

	if err := writeJSON(w, status, resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode query response", "error", err)
	}
}
