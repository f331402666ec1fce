package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"econ-rag/internal/rag"
)

func newQueryCmd(factory Factory) *cobra.Command {
	var (
		nResults int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, factory, func(svc *Services) error {
				resp, err := svc.Answerer.Query(cmd.Context(), rag.QueryRequest{
					Query:    strings.Join(args, " "),
					NResults: nResults,
				})
				if err != nil {
					cmd.Println(resp.Response)
					return err
				}
				if asJSON {
					return printJSON(cmd, resp)
				}
				printQueryResponse(cmd, resp)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&nResults, "n-results", "n", rag.DefaultNResults, "number of evidence passages")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the full response as JSON")
	return cmd
}

func printQueryResponse(cmd *cobra.Command, resp rag.QueryResponse) {
	cmd.Println(resp.Response)
	cmd.Println()

	if resp.FallbackQuery != "" {
		cmd.Printf("Retried with: %q\n", resp.FallbackQuery)
	}
	if resp.NumDocuments > 0 {
		cmd.Println("Evidence:")
		for i, doc := range resp.RetrievedDocuments {
			score := 0.0
			if i < len(resp.ConfidenceScores) {
				score = resp.ConfidenceScores[i]
			}
			cmd.Printf("  [%d] (%.3f) %s\n", i+1, score, snippet(doc, 120))
		}
	}

	qa := resp.QualityAssessment
	cmd.Printf("Quality: %.2f (%s), reranking %s, %.0f ms\n",
		qa.QualityScore, qa.Recommendation, onOff(resp.RerankingEnabled), resp.ProcessingTimeMs)
	if resp.Error != "" {
		cmd.Printf("Error: %s\n", resp.Error)
	}
}

// snippet collapses whitespace and cuts text to at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
