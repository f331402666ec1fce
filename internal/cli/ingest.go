package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"econ-rag/internal/indexer"
)

func newIngestCmd(factory Factory) *cobra.Command {
	var (
		force  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "Ingest documents into the vector index",
		Long: `Splits, embeds and upserts the given files or directories.
Directories are walked for .pdf, .md and .txt files. Without arguments the
configured documents directory is ingested. Unchanged files are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, factory, func(svc *Services) error {
				paths := args
				if len(paths) == 0 {
					paths = []string{svc.DocumentsDir}
				}

				result, err := svc.Ingester.Ingest(cmd.Context(), paths, indexer.IngestOptions{Force: force})
				if result != nil {
					if asJSON {
						if jsonErr := printJSON(cmd, result); jsonErr != nil {
							return jsonErr
						}
					} else {
						printIngestResult(cmd, result)
					}
				}
				if err != nil {
					return fmt.Errorf("ingestion failed: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "re-embed documents even when unchanged")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the result as JSON")
	return cmd
}

func printIngestResult(cmd *cobra.Command, result *indexer.IngestResult) {
	cmd.Printf("Inserted chunks: %d\n", result.InsertedCount)
	cmd.Printf("Documents indexed: %d\n", result.Documents)
	cmd.Printf("Rejected chunks: %d\n", result.RejectedChunks)
	if result.Stats.Count > 0 {
		cmd.Printf("Chunk length: min %d, max %d, mean %.1f, p95 %d\n",
			result.Stats.Min, result.Stats.Max, result.Stats.Mean, result.Stats.P95)
	}
	for _, path := range result.SkippedPaths {
		cmd.Printf("  skipped (unchanged): %s\n", path)
	}
	for _, path := range result.RejectedPaths {
		cmd.Printf("  rejected: %s\n", path)
	}
}

func newRemoveCmd(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [source]",
		Short: "Remove a document's chunks from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, factory, func(svc *Services) error {
				if err := svc.Ingester.Remove(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("remove failed: %w", err)
				}
				cmd.Printf("Removed %s\n", args[0])
				return nil
			})
		},
	}
}
