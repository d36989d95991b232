package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docstack/docqa/internal/docstore"
	"github.com/docstack/docqa/internal/extract"
	"github.com/docstack/docqa/internal/logging"
)

// NewIngestCmd constructs the `docqa ingest` command, which ingests local
// files into the document store and vector store without going through the
// HTTP API.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest local files into the document store",
		Long: `Chunk, embed, and index one or more local files.

Supported file types: PDF, Markdown, CSV, and plain text. Each file becomes
a document with its own vector collection, queryable immediately after
ingestion completes.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  AZURE_OPENAI_*       Azure OpenAI embedding credentials, or
  OPENAI_API_KEY       OpenAI credentials, or
  OLLAMA_HOST          Local Ollama server for self-hosted embeddings

Examples:
  docqa ingest report.pdf
  docqa ingest notes.md data.csv
  docqa ingest docs/*.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			d, cleanup, err := buildDeps(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer cleanup()

			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}

				fileName := filepath.Base(path)
				fileType, err := extract.DetectFileType(fileName, "")
				if err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}

				doc := &docstore.Document{
					ID:         uuid.NewString(),
					FileName:   fileName,
					FileType:   fileType,
					FileSize:   info.Size(),
					FilePath:   path,
					UploadedAt: time.Now().UTC(),
					Status:     docstore.StatusPending,
				}
				if err := d.docs.Insert(ctx, doc); err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}

				log.Info("ingesting",
					slog.String("document_id", doc.ID),
					slog.String("file", fileName),
					slog.String("type", fileType),
				)

				if err := d.pipeline.Process(ctx, doc.ID); err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}

				fmt.Printf("%s  %s\n", doc.ID, fileName)
			}

			log.Info("ingestion complete", slog.Int("files", len(args)))
			return nil
		},
	}

	return cmd
}
