package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"econ-rag/internal/app"
	"econ-rag/internal/config"
	"econ-rag/internal/indexer"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about the regional economy of São Paulo from indexed
// economic research documents, citing the passages it used.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Econ RAG API
//   description: |
//     Retrieval-augmented question answering over SEADE economic bulletins and related documents.
//     Documents are ingested into a vector index; answers cite the retrieved evidence.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app.ConfigureLogging(cfg, os.Stdout)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	// Keep the index in sync with the documents directory while serving
	if _, err := os.Stat(cfg.DocumentsDir); err == nil {
		go func() {
			watcher := indexer.NewWatcher(a.Ingest, cfg.DocumentsDir)
			if err := watcher.Run(ctx); err != nil {
				slog.Error("Document watcher stopped", "error", err)
			}
		}()
	} else {
		slog.Warn("Documents directory not found, watcher disabled", "dir", cfg.DocumentsDir)
	}

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting API server", "addr", server.Addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed: %v", err)
	}
	slog.Info("API server stopped")
}
