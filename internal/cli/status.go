package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(factory Factory) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index and pipeline status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, factory, func(svc *Services) error {
				st := svc.Status.Status(cmd.Context())
				if asJSON {
					return printJSON(cmd, st)
				}
				cmd.Printf("Collection: %s\n", st.CollectionName)
				cmd.Printf("  reachable: %v\n", st.IndexReachable)
				cmd.Printf("  exists: %v\n", st.CollectionExists)
				cmd.Printf("  chunks: %d\n", st.CollectionCount)
				cmd.Printf("Reranking: %s\n", onOff(st.RerankingEnabled))
				cmd.Printf("Query log: %s\n", onOff(st.LoggingEnabled))
				if st.CollectionError != "" {
					cmd.Printf("Collection error: %s\n", st.CollectionError)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output status as JSON")
	return cmd
}

// newServeCheckCmd runs the same startup checks as the API server and exits.
func newServeCheckCmd(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-check",
		Short: "Verify configuration, index and embedding service as the server would at startup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, factory, func(svc *Services) error {
				st := svc.Status.Status(cmd.Context())
				if !st.IndexReachable || !st.CollectionExists {
					return fmt.Errorf("collection %s not ready: %s", st.CollectionName, st.CollectionError)
				}
				cmd.Printf("ok: collection %s reachable with %d chunks\n", st.CollectionName, st.CollectionCount)
				return nil
			})
		},
	}
}
