package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docstack/docqa/internal/logging"
	"github.com/docstack/docqa/internal/query"
)

// NewAskCmd constructs the `docqa ask` command, which answers a single
// question against the ingested documents and prints the answer with its
// source citations.
func NewAskCmd() *cobra.Command {
	var documentIDs []string
	var modelName string
	var topK int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the ingested documents",
		Long: `Ask a natural language question about the ingested documents.

The answer is grounded in the most similar document chunks and printed with
source citations. The query is recorded in the query log like any API query.

Examples:
  docqa ask "what does the refund policy say about partial returns?"
  docqa ask --model claude-3-5-sonnet "summarise the quarterly report"
  docqa ask --doc 4f1c... --doc 9a2b... "compare the two proposals"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			d, cleanup, err := buildDeps(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer cleanup()

			res, err := d.queries.Perform(ctx, query.Request{
				QueryText:   strings.Join(args, " "),
				DocumentIDs: documentIDs,
				ModelName:   modelName,
				TopK:        topK,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(res.Answer)
			if len(res.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range res.Sources {
					line := fmt.Sprintf("  - %s (chunk %d", src.FileName, src.ChunkIndex)
					if src.Page > 0 {
						line += fmt.Sprintf(", page %d", src.Page)
					}
					line += fmt.Sprintf(", score %.3f)", src.Score)
					fmt.Println(line)
				}
			}
			if res.Status != "success" {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&documentIDs, "doc", nil, "Restrict the query to this document id (repeatable)")
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "Chat model name (default: DEFAULT_LLM_MODEL)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default: DEFAULT_TOP_K)")

	return cmd
}
