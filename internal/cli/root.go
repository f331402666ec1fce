// Package cli implements the econrag command line tool.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"econ-rag/internal/indexer"
	"econ-rag/internal/rag"
	"econ-rag/internal/storage"
)

// DocumentIngester loads, removes and lists indexed documents.
type DocumentIngester interface {
	Ingest(ctx context.Context, paths []string, opts indexer.IngestOptions) (*indexer.IngestResult, error)
	Remove(ctx context.Context, source string) error
	Documents(ctx context.Context) ([]storage.Document, error)
}

// Services are the components the commands drive.
type Services struct {
	Ingester     DocumentIngester
	Answerer     rag.Answerer
	Status       rag.StatusReporter
	DocumentsDir string
	Close        func() error
}

// Factory builds Services on demand, so help and usage errors never touch configuration.
type Factory func(ctx context.Context) (*Services, error)

// NewRootCmd returns the econrag command tree.
func NewRootCmd(factory Factory) *cobra.Command {
	root := &cobra.Command{
		Use:   "econrag",
		Short: "Question answering over São Paulo regional economy documents",
		Long: `econrag ingests economic research documents (PDF, Markdown, text) into a
vector index and answers questions from them with cited evidence.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newIngestCmd(factory),
		newRemoveCmd(factory),
		newWatchCmd(factory),
		newQueryCmd(factory),
		newStatusCmd(factory),
		newServeCheckCmd(factory),
	)
	return root
}

// withServices builds the services for one command run and closes them afterwards.
func withServices(cmd *cobra.Command, factory Factory, run func(*Services) error) (err error) {
	if factory == nil {
		return errors.New("services not configured")
	}
	svc, err := factory(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if svc.Close != nil {
			err = errors.Join(err, svc.Close())
		}
	}()
	return run(svc)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
