package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"econ-rag/internal/app"
	"econ-rag/internal/cli"
	"econ-rag/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(newServices)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newServices loads configuration and builds the application. Logs go to
// stderr so command output stays clean.
func newServices(ctx context.Context) (*cli.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app.ConfigureLogging(cfg, os.Stderr)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &cli.Services{
		Ingester:     a.Ingest,
		Answerer:     a.Pipeline,
		Status:       a.Pipeline,
		DocumentsDir: cfg.DocumentsDir,
		Close:        a.Close,
	}, nil
}
