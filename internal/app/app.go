// Package app wires configuration into the ingestion and query pipelines
// shared by the API server and the command line tool.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"

	"econ-rag/internal/config"
	"econ-rag/internal/contextutil"
	"econ-rag/internal/http"
	"econ-rag/internal/indexer"
	"econ-rag/internal/querylog"
	"econ-rag/internal/rag"
	"econ-rag/internal/storage"
	"econ-rag/internal/vectorstore"
)

// App holds the constructed components. Construction fails fast, so a
// returned App has a reachable collection of the configured vector size.
type App struct {
	Cfg         *config.Config
	DB          *sql.DB
	VectorStore vectorstore.VectorStore
	Ingest      *indexer.Pipeline
	Pipeline    *rag.Pipeline
	Toolbox     *rag.Toolbox
	QueryLog    querylog.Logger

	closers []func() error
}

// ConfigureLogging installs the default slog logger described by cfg, writing to w.
func ConfigureLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// New opens the registry and vector index, validates the embedding service
// against the collection, and builds both pipelines.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := contextutil.LoggerFromContext(ctx).With("component", "app")
	a := &App{Cfg: cfg}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := storage.Migrate(db); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.InfoContext(ctx, "database initialized", "path", cfg.DBPath)

	store, closeStore, err := openVectorStore(cfg, db)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.VectorStore = store
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	if err := store.EnsureCollection(ctx, cfg.CollectionName, cfg.VectorSize); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to ensure collection %s: %w", cfg.CollectionName, err)
	}
	logger.InfoContext(ctx, "collection ready", "backend", cfg.VectorBackend, "collection", cfg.CollectionName, "vector_size", cfg.VectorSize)

	clients := wireClients(cfg)
	if err := checkEmbedder(ctx, clients.Embedder, cfg.VectorSize); err != nil {
		_ = a.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "embedding client validated", "model", cfg.EmbeddingModelName)

	a.QueryLog = querylog.Noop{}
	if cfg.QueryLogEnabled {
		a.QueryLog = querylog.NewCSVLogger(cfg.QueryLogPath)
	}

	var scorer rag.Scorer
	if clients.Scorer != nil {
		scorer = clients.Scorer
	}
	reranker := rag.NewReranker(cfg.RerankEnabled(), scorer, cfg.RerankTimeout)
	retriever := rag.NewRetriever(clients.Embedder, store, cfg.CollectionName, cfg.EmbedTimeout)
	composer := rag.NewComposer(clients.Generator, rag.ComposerConfig{
		Model:       cfg.LLMModelName,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.GenerateTimeout,
	})
	a.Pipeline = rag.NewPipeline(retriever, reranker, composer, a.QueryLog, store, cfg.CollectionName)
	a.Toolbox = rag.NewToolbox(a.Pipeline, a.Pipeline, cfg.AgentToolCount)
	logger.InfoContext(ctx, "query pipeline initialized", "reranking", reranker.Enabled(), "query_log", a.QueryLog.Enabled(), "tools", cfg.AgentToolCount)

	loader, err := indexer.NewLoader(cfg.UnidocLicenseKey)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	chunker, err := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Ingest = indexer.NewPipeline(
		loader,
		chunker,
		indexer.NewIndexer(clients.Embedder, store, cfg.CollectionName),
		storage.NewDocumentRepo(db),
		store,
		cfg.CollectionName,
	)

	return a, nil
}

// checkEmbedder embeds a probe text so a wrong model or vector size fails at startup.
func checkEmbedder(ctx context.Context, embedder rag.Embedder, vectorSize int) error {
	vectors, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		return fmt.Errorf("failed to validate embedding client: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) != vectorSize {
		got := 0
		if len(vectors) > 0 {
			got = len(vectors[0])
		}
		return &config.ConfigurationError{
			Field:   "VECTOR_SIZE",
			Message: fmt.Sprintf("embedding vector size mismatch: expected %d, got %d", vectorSize, got),
		}
	}
	return nil
}

// Router builds the HTTP API over the app's components.
func (a *App) Router() nethttp.Handler {
	return http.NewRouter(&http.Deps{
		Answerer:       a.Pipeline,
		Status:         a.Pipeline,
		Toolbox:        a.Toolbox,
		Ingester:       a.Ingest,
		VectorStore:    a.VectorStore,
		Registry:       a.DB,
		QueryLog:       a.QueryLog,
		CollectionName: a.Cfg.CollectionName,
		DocumentsDir:   a.Cfg.DocumentsDir,
	})
}

// Close releases the index client and the database, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
