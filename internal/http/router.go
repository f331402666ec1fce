package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"econ-rag/internal/handlers"
	"econ-rag/internal/querylog"
	"econ-rag/internal/rag"
	"econ-rag/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Answerer       rag.Answerer
	Status         rag.StatusReporter
	Toolbox        handlers.ToolInvoker
	Ingester       handlers.DocumentIngester
	VectorStore    vectorstore.VectorStore
	Registry       handlers.Pinger
	QueryLog       querylog.Logger
	CollectionName string
	DocumentsDir   string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware)
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	queryHandler := handlers.NewQueryHandler(deps.Answerer)
	ingestHandler := handlers.NewIngestHandler(deps.Ingester, deps.DocumentsDir)
	documentsHandler := handlers.NewDocumentsHandler(deps.Ingester, deps.DocumentsDir)
	statusHandler := handlers.NewStatusHandler(deps.Status)
	toolsHandler := handlers.NewToolsHandler(deps.Toolbox)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.Registry, deps.QueryLog, deps.CollectionName)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", queryHandler)
		r.Method(http.MethodPost, "/ingest", ingestHandler)
		r.Method(http.MethodGet, "/status", statusHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Get("/documents", documentsHandler.List)
		r.Delete("/documents", documentsHandler.Delete)
		r.Get("/tools", toolsHandler.List)
		r.Post("/tools/{name}", toolsHandler.Invoke)
	})

	return r
}
