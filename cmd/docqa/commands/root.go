// Package commands defines all Cobra CLI commands for the docqa binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/docstack/docqa/internal/audit"
	"github.com/docstack/docqa/internal/config"
	"github.com/docstack/docqa/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docqa",
		Short: "docqa answers questions about your uploaded documents",
		Long: `docqa is a document question-answering service.

Upload PDF, Markdown, CSV, or plain-text documents; docqa chunks and embeds
them into a Qdrant vector store and answers natural language questions
grounded in their content, with source citations.

The chat model is selected per query by model name prefix (gpt, claude,
gemini, local) or via the DEFAULT_LLM_MODEL environment variable or a YAML
config file (~/.docqa/config.yaml).
See 'docqa --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docqa/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewAskCmd(),
		NewIngestCmd(),
		NewDiagnoseCmd(),
		NewVersionCmd(),
	)

	return root
}
