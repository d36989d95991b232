package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docstack/docqa/internal/logging"
	"github.com/docstack/docqa/internal/server"
	"github.com/docstack/docqa/internal/tracing"
)

// NewServeCmd constructs the `docqa serve` command, which starts the HTTP
// server exposing the document and query REST API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docqa HTTP server",
		Long: `Start the docqa HTTP server.

The server exposes the REST API for uploading documents, asking questions,
browsing the query log, and reading usage metrics. Dependencies (Qdrant,
SQLite) are probed on GET /api/ready.

Examples:
  docqa serve
  docqa serve --port 9090
  DEFAULT_LLM_MODEL=claude-3-5-sonnet docqa serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Setup Langfuse tracing, opt-in and a no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			d, cleanup, err := buildDeps(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer cleanup()

			log.Info("serve starting",
				slog.String("db_path", d.set.DBPath),
				slog.String("qdrant", fmt.Sprintf("%s:%d", d.set.QdrantHost, d.set.QdrantPort)),
				slog.String("default_model", d.set.DefaultModel),
			)

			if !cmd.Flags().Changed("host") {
				host = d.set.ServerHost
			}
			if !cmd.Flags().Changed("port") {
				port = d.set.ServerPort
			}

			srv, err := server.New(d.docs, d.pipeline, d.queries, d.reporter, &server.Config{
				Host:   host,
				Port:   port,
				Logger: log,
				Pingers: []server.Pinger{
					&server.QdrantPinger{Client: d.vectors.Client()},
					&server.SQLitePinger{Label: "sqlite", DB: d.docs.DB()},
				},
				APIKey:        d.set.APIKey,
				UploadDir:     d.set.UploadDir,
				MaxUploadSize: d.set.MaxUploadSize,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on")

	return cmd
}
