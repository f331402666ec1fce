package handlers

import (
	"net/http"

	"econ-rag/internal/contextutil"
	"econ-rag/internal/rag"
)

// StatusHandler reports the read-only pipeline status.
type StatusHandler struct {
	reporter rag.StatusReporter
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(reporter rag.StatusReporter) *StatusHandler {
	return &StatusHandler{reporter: reporter}
}

// ServeHTTP handles GET /api/status. Collection failures are reported in
// the body, so the endpoint always answers 200.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := writeJSON(w, http.StatusOK, h.reporter.Status(ctx)); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode status response", "error", err)
	}
}
