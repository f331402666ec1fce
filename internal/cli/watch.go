package cli

import (
	"github.com/spf13/cobra"

	"econ-rag/internal/indexer"
)

func newWatchCmd(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Keep the index in sync with a directory",
		Long: `Watches a directory tree, re-ingesting files that are written and
removing the chunks of files that are deleted. Runs until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, factory, func(svc *Services) error {
				dir := svc.DocumentsDir
				if len(args) == 1 {
					dir = args[0]
				}

				if _, err := svc.Ingester.Ingest(cmd.Context(), []string{dir}, indexer.IngestOptions{}); err != nil {
					return err
				}
				cmd.Printf("Watching %s\n", dir)
				return indexer.NewWatcher(svc.Ingester, dir).Run(cmd.Context())
			})
		},
	}
}
