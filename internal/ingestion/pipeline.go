// Package ingestion implements the document ingestion pipeline.
// It extracts text from an uploaded file, splits it into overlapping chunks,
// embeds each chunk, and writes the results into the document's vector
// collection, recording the outcome on the document's metadata row.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/docstack/docqa/internal/docstore"
	"github.com/docstack/docqa/internal/extract"
	"github.com/docstack/docqa/internal/rag"
	"github.com/docstack/docqa/internal/retry"
)

// EmbedderSource yields the embedding provider to use for a run. The
// fallback chain resolver satisfies this.
type EmbedderSource interface {
	Resolve(ctx context.Context) (rag.Embedder, error)
}

// ChunkWriter persists embedded chunks for a document. The vector store
// gateway satisfies this.
type ChunkWriter interface {
	AddChunks(ctx context.Context, documentID string, chunks []rag.Chunk, embeddings [][]float32) error
	DeleteCollection(ctx context.Context, name string)
}

// DocumentStore tracks document metadata through the pipeline.
// *docstore.Store satisfies it.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*docstore.Document, error)
	MarkCompleted(ctx context.Context, id string, chunkCount int) error
	MarkError(ctx context.Context, id, message string) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between
	// consecutive chunks. Defaults to 200 if zero.
	ChunkOverlap int
}

// Pipeline orchestrates the extract → chunk → embed → store flow for one
// uploaded document at a time.
type Pipeline struct {
	// embedders resolves the embedding provider per run.
	embedders EmbedderSource

	// store persists the embedded chunks.
	store ChunkWriter

	// docs tracks document status through the pipeline.
	docs DocumentStore

	// statusRetry bounds the retries on the status write that completes a
	// successful run.
	statusRetry *retry.Policy

	// cfg holds the resolved pipeline configuration.
	cfg Config

	// log is the structured logger for pipeline events.
	log *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(embedders EmbedderSource, store ChunkWriter, docs DocumentStore, cfg Config, log *slog.Logger) (*Pipeline, error) {
	if embedders == nil {
		return nil, fmt.Errorf("ingestion: embedder source must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: chunk writer must not be nil")
	}
	if docs == nil {
		return nil, fmt.Errorf("ingestion: document store must not be nil")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		embedders:   embedders,
		store:       store,
		docs:        docs,
		statusRetry: retry.WritePolicy(),
		cfg:         cfg,
		log:         log,
	}, nil
}

// Process runs the full ingestion flow for a pending document: extract,
// chunk, embed, store, then mark the document completed. Any failure marks
// the document errored with the failure message and returns the error.
func (p *Pipeline) Process(ctx context.Context, documentID string) error {
	started := time.Now()

	doc, err := p.docs.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("ingestion: load document %s: %w", documentID, err)
	}

	chunks, err := p.buildChunks(doc)
	if err != nil {
		return p.fail(ctx, documentID, err)
	}

	emb, err := p.embedders.Resolve(ctx)
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("resolve embedder: %w", err))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := emb.Embed(ctx, texts)
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("embed %d chunks: %w", len(chunks), err))
	}

	// AddChunks marks the document errored itself when its retries run out,
	// so a failure here is already recorded.
	if err := p.store.AddChunks(ctx, documentID, chunks, embeddings); err != nil {
		return fmt.Errorf("ingestion: document %s: %w", documentID, err)
	}

	// The completing status write is retried under the same bounded policy
	// as the chunk writes; if it still fails the document is marked errored.
	err = p.statusRetry.Do(ctx, func() error {
		return p.docs.MarkCompleted(ctx, documentID, len(chunks))
	})
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("mark completed: %w", err))
	}

	p.log.Info("ingestion: document processed",
		slog.String("document_id", documentID),
		slog.String("file_name", doc.FileName),
		slog.Int("chunks", len(chunks)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// Delete removes a document entirely: its vector collection, its uploaded
// file, and its metadata row. Returns docstore.ErrNotFound when the
// document does not exist.
func (p *Pipeline) Delete(ctx context.Context, documentID string) error {
	doc, err := p.docs.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("ingestion: delete %s: %w", documentID, err)
	}

	p.store.DeleteCollection(ctx, rag.CollectionName(documentID))

	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			p.log.Warn("ingestion: failed to remove uploaded file",
				slog.String("document_id", documentID),
				slog.String("path", doc.FilePath),
				slog.Any("error", err),
			)
		}
	}

	if _, err := p.docs.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("ingestion: delete %s: %w", documentID, err)
	}

	p.log.Info("ingestion: document deleted", slog.String("document_id", documentID))
	return nil
}

// buildChunks extracts the document's text and splits it into chunks, each
// tagged with its source page and keywords.
func (p *Pipeline) buildChunks(doc *docstore.Document) ([]rag.Chunk, error) {
	pages, err := extract.Extract(doc.FilePath, doc.FileType)
	if err != nil {
		return nil, err
	}

	var chunks []rag.Chunk
	for _, page := range pages {
		for _, text := range splitText(page.Text, p.cfg.ChunkSize, p.cfg.ChunkOverlap) {
			chunks = append(chunks, rag.Chunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				FileName:   doc.FileName,
				Index:      len(chunks),
				Content:    text,
				Page:       page.Number,
				Keywords:   extractKeywords(text),
			})
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced from %s", doc.FileName)
	}
	return chunks, nil
}

// fail marks the document errored and returns a wrapped error.
func (p *Pipeline) fail(ctx context.Context, documentID string, cause error) error {
	p.log.Error("ingestion: document processing failed",
		slog.String("document_id", documentID),
		slog.Any("error", cause),
	)
	if err := p.docs.MarkError(ctx, documentID, cause.Error()); err != nil {
		p.log.Error("ingestion: failed to persist error status",
			slog.String("document_id", documentID), slog.Any("error", err))
	}
	return fmt.Errorf("ingestion: document %s: %w", documentID, cause)
}
