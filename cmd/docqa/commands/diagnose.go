package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/docstack/docqa/internal/config"
	"github.com/docstack/docqa/internal/docstore"
	"github.com/docstack/docqa/internal/rag"
)

// checkTimeout bounds each connectivity probe.
const checkTimeout = 5 * time.Second

// NewDiagnoseCmd constructs the `docqa diagnose` command, which checks the
// service's dependencies and configuration and prints a readiness report.
func NewDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check connectivity and configuration",
		Long: `Check docqa's dependencies and configuration.

Probes the SQLite database and the Qdrant vector store, and reports which
chat model and embedding backends are configured. Exits non-zero if a
required dependency is unreachable.

Examples:
  docqa diagnose
  QDRANT_HOST=qdrant.internal docqa diagnose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := config.FromEnv()
			failed := false

			check := func(name string, err error) {
				if err != nil {
					failed = true
					fmt.Printf("FAIL  %-22s %v\n", name, err)
					return
				}
				fmt.Printf("ok    %s\n", name)
			}

			// SQLite.
			docs, err := docstore.Open(set.DBPath)
			check(fmt.Sprintf("sqlite (%s)", set.DBPath), err)
			if err == nil {
				defer docs.Close()
			}

			// Qdrant.
			vectors, err := rag.NewStore(&rag.StoreConfig{
				Host:       set.QdrantHost,
				Port:       set.QdrantPort,
				APIKey:     set.QdrantAPIKey,
				UseTLS:     set.QdrantTLS,
				VectorSize: uint64(set.EmbeddingDimensions),
			}, nil, nil, nil)
			if err == nil {
				defer vectors.Close()
				ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
				_, err = vectors.Client().HealthCheck(ctx)
				cancel()
			}
			check(fmt.Sprintf("qdrant (%s:%d)", set.QdrantHost, set.QdrantPort), err)

			// Configured backends. Only presence is reported, never values.
			fmt.Println()
			fmt.Println("Chat model backends:")
			backend := func(name string, configured bool) {
				state := "not configured"
				if configured {
					state = "configured"
				}
				fmt.Printf("  %-14s %s\n", name, state)
			}
			backend("azure-openai", set.AzureAPIKey != "" && set.AzureEndpoint != "")
			backend("openai", set.OpenAIAPIKey != "")
			backend("anthropic", set.AnthropicAPIKey != "")
			backend("gemini", set.GoogleAPIKey != "")
			backend("ollama", set.OllamaHost != "")

			fmt.Println()
			fmt.Println("Embedding backends:")
			backend("azure-openai", set.AzureAPIKey != "" && set.AzureEmbeddingDeployment != "")
			backend("openai", set.OpenAIAPIKey != "")
			backend("ollama", true) // always available as the last fallback

			fmt.Println()
			fmt.Printf("Default model: %s\n", set.DefaultModel)

			if failed {
				os.Exit(1)
			}
			return nil
		},
	}
}
