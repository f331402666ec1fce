package handlers

import (
	"net/http"
	"time"

	"econ-rag/internal/contextutil"
)

// DocumentsHandler lists and removes ingested documents.
type DocumentsHandler struct {
	ingester     DocumentIngester
	documentsDir string
}

// NewDocumentsHandler creates a new DocumentsHandler. Deletes are limited to
// sources inside documentsDir.
func NewDocumentsHandler(ingester DocumentIngester, documentsDir string) *DocumentsHandler {
	return &DocumentsHandler{
		ingester:     ingester,
		documentsDir: documentsDir,
	}
}

// DocumentResponse describes one ingested document.
//
// swagger:model DocumentResponse
type DocumentResponse struct {
	Source         string `json:"source"`
	Hash           string `json:"hash"`
	Collection     string `json:"collection"`
	ChunkCount     int    `json:"chunk_count"`
	RejectedChunks int    `json:"rejected_chunks"`
	IngestedAt     string `json:"ingested_at"`
}

// List handles GET /api/documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := h.ingester.Documents(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "error", err)
		writeError(w, statusForError(err), "Failed to list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, DocumentResponse{
			Source:         doc.Source,
			Hash:           doc.Hash,
			Collection:     doc.Collection,
			ChunkCount:     doc.ChunkCount,
			RejectedChunks: doc.RejectedChunks,
			IngestedAt:     doc.IngestedAt.UTC().Format(time.RFC3339),
		})
	}

	if err := writeJSON(w, http.StatusOK, out); err != nil {
		logger.ErrorContext(ctx, "failed to encode documents response", "error", err)
	}
}

// Delete handles DELETE /api/documents?source=... It removes the source's
// chunks that no other document shares and forgets its registry record.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	requested := r.URL.Query().Get("source")
	if requested == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	source, err := documentPath(h.documentsDir, requested)
	if err != nil {
		logger.WarnContext(ctx, "rejected document source", "source", requested, "error", err)
		writeError(w, http.StatusBadRequest, "Source is outside the documents directory")
		return
	}

	if err := h.ingester.Remove(ctx, source); err != nil {
		logger.ErrorContext(ctx, "failed to remove document", "source", source, "error", err)
		writeError(w, statusForError(err), "Failed to remove document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
