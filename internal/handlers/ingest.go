package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"econ-rag/internal/contextutil"
	"econ-rag/internal/indexer"
	"econ-rag/internal/storage"
)

// DocumentIngester is the part of indexer.Pipeline the HTTP layer needs.
type DocumentIngester interface {
	Ingest(ctx context.Context, paths []string, opts indexer.IngestOptions) (*indexer.IngestResult, error)
	Remove(ctx context.Context, source string) error
	Documents(ctx context.Context) ([]storage.Document, error)
}

// IngestHandler handles HTTP requests that load documents into the index.
type IngestHandler struct {
	ingester   DocumentIngester
	defaultDir string
}

// NewIngestHandler creates a new IngestHandler. Requests without paths ingest
// defaultDir, and explicit paths must lie inside it.
func NewIngestHandler(ingester DocumentIngester, defaultDir string) *IngestHandler {
	return &IngestHandler{
		ingester:   ingester,
		defaultDir: defaultDir,
	}
}

// IngestRequest represents the HTTP request payload for ingestion.
//
// swagger:model IngestRequest
type IngestRequest struct {
	// Files or directories inside the documents directory. Directories are
	// walked for .pdf, .md and .txt.
	Paths []string `json:"paths,omitempty"`

	// Re-embed documents even when their content hash is unchanged.
	Force bool `json:"force,omitempty"`
}

// IngestResponse reports the ingestion summary. Error is set when the run
// stopped part way; the counts still describe what was committed.
//
// swagger:model IngestResponse
type IngestResponse struct {
	*indexer.IngestResult
	Error string `json:"error,omitempty"`
}

// ServeHTTP handles HTTP requests for ingestion.
//
// swagger:route POST /api/ingest ingest
//
// # Ingest documents
//
// Splits, embeds and upserts the given documents. Unchanged documents are skipped.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Ingestion finished
//	  schema:
//	    "$ref": "#/definitions/IngestResponse"
//	'400':
//	  description: No paths given and no default directory configured
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding service failed part way
//	  schema:
//	    "$ref": "#/definitions/IngestResponse"
//	'503':
//	  description: Vector store unavailable
//	  schema:
//	    "$ref": "#/definitions/IngestResponse"
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req IngestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if h.defaultDir == "" {
		writeError(w, http.StatusBadRequest, "No documents directory configured")
		return
	}

	paths := []string{h.defaultDir}
	if len(req.Paths) > 0 {
		paths = make([]string, 0, len(req.Paths))
		for _, requested := range req.Paths {
			path, err := documentPath(h.defaultDir, requested)
			if err != nil {
				logger.WarnContext(ctx, "rejected ingest path", "path", requested, "error", err)
				writeError(w, http.StatusBadRequest, "Path is outside the documents directory")
				return
			}
			paths = append(paths, path)
		}
	}

	result, err := h.ingester.Ingest(ctx, paths, indexer.IngestOptions{Force: req.Force})
	if err != nil && result == nil {
		logger.ErrorContext(ctx, "ingestion failed", "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	status := http.StatusOK
	resp := IngestResponse{IngestResult: result}
	if err != nil {
		logger.ErrorContext(ctx, "ingestion stopped part way", "inserted", result.InsertedCount, "error", err)
		status = statusForError(err)
		resp.Error = err.Error()
	}

	if err := writeJSON(w, status, resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode ingest response", "error", err)
	}
}
