// Package query implements the question-answering orchestrator: it gathers
// the vector collections a query may draw from, merges them into a combined
// in-process index, retrieves the most similar chunks, and drives a single
// chat model call whose answer is returned with source citations. Every
// query — successful or failed — leaves exactly one query log entry.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"

	"github.com/docstack/docqa/internal/budget"
	"github.com/docstack/docqa/internal/docstore"
	"github.com/docstack/docqa/internal/querylog"
	"github.com/docstack/docqa/internal/rag"
)

// Sentinel errors surfaced in error-flavored results and matched by tests.
var (
	// ErrEmptyQuery is raised for a blank question. It is the only failure
	// that returns an error instead of an error-flavored result.
	ErrEmptyQuery = errors.New("query: query text must not be empty")

	// ErrInvalidThreshold is raised for a similarity threshold outside [0,1].
	ErrInvalidThreshold = errors.New("query: similarity threshold must be in [0,1]")

	// ErrNoCollections means no completed documents exist to query.
	ErrNoCollections = errors.New("query: no document collections available")

	// ErrNoValidStores means every candidate collection failed its probe.
	ErrNoValidStores = errors.New("query: no valid vector stores for query")

	// ErrMerge means assembling the combined index failed.
	ErrMerge = errors.New("query: failed to merge collections")
)

// Request is one question to answer.
type Request struct {
	// QueryText is the user's question. Must be non-blank.
	QueryText string

	// DocumentIDs restricts the query to these documents. Empty means all
	// completed documents.
	DocumentIDs []string

	// ModelName selects the chat model. Empty selects the default.
	ModelName string

	// TopK overrides the retrieval depth. Zero uses the orchestrator default.
	TopK int

	// SimilarityThreshold is an advisory minimum similarity in [0,1].
	// It is validated and recorded but does not filter results.
	SimilarityThreshold float32
}

// Result is the outcome of one query, successful or not.
type Result struct {
	// QueryID is the unique id assigned to this query.
	QueryID string `json:"query_id"`
	// Answer is the model's answer, or the error text on failure.
	Answer string `json:"answer"`
	// Sources are the cited chunks, highest similarity first.
	Sources []querylog.Source `json:"sources"`
	// DocumentIDs are the distinct documents the sources came from.
	DocumentIDs []string `json:"document_ids"`
	// Model is the chat model that was (or would have been) used.
	Model string `json:"model"`
	// Latency is the end-to-end processing time in seconds.
	Latency float64 `json:"latency"`
	// Status is success or error.
	Status string `json:"status"`
	// ErrorMessage is the failure detail on error entries, empty on success.
	ErrorMessage string `json:"error_message,omitempty"`
}

// DocumentSource lists the documents eligible for querying.
// *docstore.Store satisfies it.
type DocumentSource interface {
	IDsByStatus(ctx context.Context, status docstore.Status) ([]string, error)
}

// VectorSource reads collections from the vector store. *rag.Store
// satisfies it.
type VectorSource interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	Count(ctx context.Context, name string) (uint64, error)
	Dump(ctx context.Context, name string) ([]rag.Chunk, [][]float32, error)
}

// EmbedderSource yields the embedding provider for a query.
// *embedder.Resolver satisfies it.
type EmbedderSource interface {
	Resolve(ctx context.Context) (rag.Embedder, error)
}

// ModelSource yields chat models by name. *llm.Resolver satisfies it.
type ModelSource interface {
	Resolve(ctx context.Context, modelName string) (model.BaseChatModel, error)
	EffectiveModel(modelName string) string
}

// Config holds orchestrator defaults.
type Config struct {
	// TopK is the retrieval depth when a request does not set one.
	TopK int

	// MaxContextTokens bounds the prompt context. Zero uses the budget
	// package default.
	MaxContextTokens int
}

// Orchestrator answers questions over the stored documents.
// Safe for concurrent use; each query builds its own combined index.
type Orchestrator struct {
	docs      DocumentSource
	vectors   VectorSource
	embedders EmbedderSource
	models    ModelSource
	log       *querylog.Store
	cfg       Config
	slog      *slog.Logger
}

// New constructs an Orchestrator from its dependencies.
func New(docs DocumentSource, vectors VectorSource, embedders EmbedderSource, models ModelSource, log *querylog.Store, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if docs == nil || vectors == nil || embedders == nil || models == nil || log == nil {
		return nil, fmt.Errorf("query: all dependencies must be non-nil")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		docs:      docs,
		vectors:   vectors,
		embedders: embedders,
		models:    models,
		log:       log,
		cfg:       cfg,
		slog:      logger,
	}, nil
}

// Perform answers one query end to end. Input validation failures return an
// error with no side effects; every other failure is absorbed into an
// error-flavored Result whose answer carries the failure text, and exactly
// one query log entry is written either way.
func (o *Orchestrator) Perform(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.QueryText) == "" {
		return nil, ErrEmptyQuery
	}
	if req.SimilarityThreshold < 0 || req.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, req.SimilarityThreshold)
	}

	queryID := uuid.NewString()
	started := time.Now()
	modelName := o.models.EffectiveModel(req.ModelName)

	res, err := o.answer(ctx, req)
	if err != nil {
		return o.finish(ctx, queryID, req, modelName, started, nil, err), nil
	}
	return o.finish(ctx, queryID, req, modelName, started, res, nil), nil
}

// answered carries the successful inner pipeline output to finish.
type answered struct {
	answer string
	chunks []rag.ScoredChunk
}

// answer runs the retrieval and generation pipeline. Any error it returns
// becomes an error-flavored result.
func (o *Orchestrator) answer(ctx context.Context, req Request) (*answered, error) {
	// Which documents may this query draw from?
	ids := req.DocumentIDs
	if len(ids) == 0 {
		completed, err := o.docs.IDsByStatus(ctx, docstore.StatusCompleted)
		if err != nil {
			return nil, fmt.Errorf("list completed documents: %w", err)
		}
		ids = completed
	}
	if len(ids) == 0 {
		return nil, ErrNoCollections
	}

	// Resolve providers once per query, before touching any collection.
	emb, err := o.embedders.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve embedding provider: %w", err)
	}
	chat, err := o.models.Resolve(ctx, req.ModelName)
	if err != nil {
		return nil, err
	}

	// Probe each collection and merge the healthy ones into the combined
	// index. A failed probe skips that document; a failed merge is fatal.
	index := rag.NewMemoryIndex()
	valid := 0
	for _, id := range ids {
		collection := rag.CollectionName(id)
		if !o.probe(ctx, collection) {
			continue
		}
		chunks, vectors, err := o.vectors.Dump(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMerge, collection, err)
		}
		if err := index.Add(chunks, vectors); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMerge, collection, err)
		}
		valid++
	}
	if valid == 0 {
		return nil, ErrNoValidStores
	}

	topK := req.TopK
	if topK <= 0 {
		topK = o.cfg.TopK
	}
	retriever, err := rag.NewRetriever(emb, index, topK)
	if err != nil {
		return nil, err
	}
	chunks, err := retriever.Retrieve(ctx, req.QueryText)
	if err != nil {
		return nil, err
	}

	if req.SimilarityThreshold > 0 {
		o.slog.Debug("query: similarity threshold is advisory",
			slog.Any("threshold", req.SimilarityThreshold))
	}

	chunks = budget.TrimChunks(chunks, systemPrompt+req.QueryText, o.cfg.MaxContextTokens)

	resp, err := chat.Generate(ctx, buildMessages(req.QueryText, chunks))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &answered{answer: resp.Content, chunks: chunks}, nil
}

// finish builds the Result for a finished query and writes its single query
// log entry. Log write failures are logged but never fail the query.
func (o *Orchestrator) finish(ctx context.Context, queryID string, req Request, modelName string, started time.Time, res *answered, cause error) *Result {
	latency := time.Since(started).Seconds()

	out := &Result{
		QueryID:     queryID,
		Model:       modelName,
		Latency:     latency,
		Sources:     []querylog.Source{},
		DocumentIDs: []string{},
	}
	if cause != nil {
		out.Status = querylog.StatusError
		out.Answer = fmt.Sprintf("Error processing query: %v", cause)
		out.ErrorMessage = cause.Error()
		o.slog.Error("query: failed",
			slog.String("query_id", queryID),
			slog.Any("error", cause),
		)
	} else {
		out.Status = querylog.StatusSuccess
		out.Answer = res.answer
		out.Sources, out.DocumentIDs = extractSources(res.chunks)
		o.slog.Info("query: answered",
			slog.String("query_id", queryID),
			slog.String("model", modelName),
			slog.Int("sources", len(out.Sources)),
			slog.Float64("latency", latency),
		)
	}

	entry := &querylog.Entry{
		ID:           queryID,
		QueryText:    req.QueryText,
		Answer:       out.Answer,
		Sources:      out.Sources,
		DocumentIDs:  out.DocumentIDs,
		Model:        modelName,
		Latency:      latency,
		Status:       out.Status,
		ErrorMessage: out.ErrorMessage,
	}
	if err := o.log.Append(ctx, entry); err != nil {
		o.slog.Error("query: failed to write query log entry",
			slog.String("query_id", queryID), slog.Any("error", err))
	}
	return out
}

// probe reports whether a collection is usable for this query: it must
// exist and hold at least one point. Probe failures are skipped with a
// warning rather than failing the query.
func (o *Orchestrator) probe(ctx context.Context, collection string) bool {
	exists, err := o.vectors.CollectionExists(ctx, collection)
	if err != nil {
		o.slog.Warn("query: collection probe failed",
			slog.String("collection", collection), slog.Any("error", err))
		return false
	}
	if !exists {
		o.slog.Warn("query: collection missing", slog.String("collection", collection))
		return false
	}
	n, err := o.vectors.Count(ctx, collection)
	if err != nil {
		o.slog.Warn("query: collection count failed",
			slog.String("collection", collection), slog.Any("error", err))
		return false
	}
	if n == 0 {
		o.slog.Warn("query: collection empty", slog.String("collection", collection))
		return false
	}
	return true
}

// extractSources converts the prompt chunks into citations, dropping any
// whose content is whitespace-only, and collects the distinct document ids
// in first-seen order.
func extractSources(chunks []rag.ScoredChunk) ([]querylog.Source, []string) {
	sources := []querylog.Source{}
	docIDs := []string{}
	seen := make(map[string]bool)

	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		sources = append(sources, querylog.Source{
			DocumentID: c.DocumentID,
			FileName:   c.FileName,
			ChunkIndex: c.Index,
			Content:    c.Content,
			Score:      c.Score,
			Page:       c.Page,
			Keywords:   c.Keywords,
		})
		if !seen[c.DocumentID] {
			seen[c.DocumentID] = true
			docIDs = append(docIDs, c.DocumentID)
		}
	}
	return sources, docIDs
}

// Get returns a previously logged query by id.
func (o *Orchestrator) Get(ctx context.Context, queryID string) (*querylog.Entry, error) {
	return o.log.Get(ctx, queryID)
}

// List returns logged queries newest-first with pagination, plus the total
// count.
func (o *Orchestrator) List(ctx context.Context, limit, skip int) ([]querylog.Entry, int, error) {
	return o.log.List(ctx, limit, skip)
}
