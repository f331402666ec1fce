package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"econ-rag/internal/contextutil"
	"econ-rag/internal/rag"
)

// ToolInvoker is the tool table exposed to agents.
type ToolInvoker interface {
	Tools() []rag.Tool
	Invoke(ctx context.Context, name, input string) (string, error)
}

// ToolsHandler lists and invokes tools.
type ToolsHandler struct {
	toolbox ToolInvoker
}

// NewToolsHandler creates a new ToolsHandler.
func NewToolsHandler(toolbox ToolInvoker) *ToolsHandler {
	return &ToolsHandler{toolbox: toolbox}
}

// ToolsResponse lists the available tools.
//
// swagger:model ToolsResponse
type ToolsResponse struct {
	Tools []rag.Tool `json:"tools"`
}

// ToolRequest carries the single text input of a tool call.
//
// swagger:model ToolRequest
type ToolRequest struct {
	Input string `json:"input"`
}

// ToolResponse carries a tool's text output.
//
// swagger:model ToolResponse
type ToolResponse struct {
	Tool   string `json:"tool"`
	Output string `json:"output"`
}

// List handles GET /api/tools.
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := writeJSON(w, http.StatusOK, ToolsResponse{Tools: h.toolbox.Tools()}); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode tools response", "error", err)
	}
}

// Invoke handles POST /api/tools/{name}.
func (h *ToolsHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	name := chi.URLParam(r, "name")

	var req ToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	out, err := h.toolbox.Invoke(ctx, name, req.Input)
	if err != nil {
		logger.WarnContext(ctx, "tool invocation failed", "tool", name, "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, ToolResponse{Tool: name, Output: out}); err != nil {
		logger.ErrorContext(ctx, "failed to encode tool response", "error", err)
	}
}
