package commands

import (
	"fmt"
	"log/slog"

	"github.com/docstack/docqa/internal/config"
	"github.com/docstack/docqa/internal/docstore"
	"github.com/docstack/docqa/internal/embedder"
	"github.com/docstack/docqa/internal/ingestion"
	"github.com/docstack/docqa/internal/llm"
	"github.com/docstack/docqa/internal/logging"
	"github.com/docstack/docqa/internal/metrics"
	"github.com/docstack/docqa/internal/query"
	"github.com/docstack/docqa/internal/querylog"
	"github.com/docstack/docqa/internal/rag"
)

// deps bundles the wired service dependencies shared by the commands.
type deps struct {
	set       config.Settings
	docs      *docstore.Store
	qlog      *querylog.Store
	vectors   *rag.Store
	embedders *embedder.Resolver
	models    *llm.Resolver
	pipeline  *ingestion.Pipeline
	queries   *query.Orchestrator
	reporter  *metrics.Reporter
}

// buildDeps wires the full dependency graph from the environment. The
// returned cleanup closes every held connection and must be called before
// exit.
func buildDeps(log *slog.Logger) (*deps, func(), error) {
	set := config.FromEnv()

	docs, err := docstore.Open(set.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open document store: %w", err)
	}

	qlog, err := querylog.Open(set.DBPath)
	if err != nil {
		docs.Close()
		return nil, nil, fmt.Errorf("open query log: %w", err)
	}

	vectors, err := rag.NewStore(&rag.StoreConfig{
		Host:       set.QdrantHost,
		Port:       set.QdrantPort,
		APIKey:     set.QdrantAPIKey,
		UseTLS:     set.QdrantTLS,
		VectorSize: uint64(set.EmbeddingDimensions),
	}, docs, nil, logging.ForComponent(log, "rag"))
	if err != nil {
		docs.Close()
		qlog.Close()
		return nil, nil, fmt.Errorf("connect to qdrant at %s:%d: %w", set.QdrantHost, set.QdrantPort, err)
	}

	embedders := embedder.NewResolver(embedder.DefaultChain(&embedder.ChainConfig{
		AzureAPIKey:     set.AzureAPIKey,
		AzureEndpoint:   set.AzureEndpoint,
		AzureDeployment: set.AzureEmbeddingDeployment,
		AzureAPIVersion: set.AzureAPIVersion,
		OpenAIAPIKey:    set.OpenAIAPIKey,
		OpenAIModel:     set.OpenAIEmbeddingModel,
		OllamaHost:      set.OllamaHost,
	}), logging.ForComponent(log, "embedder"))

	models := llm.NewResolver(&llm.Config{
		DefaultModel:    set.DefaultModel,
		MaxTokens:       set.MaxTokens,
		AzureAPIKey:     set.AzureAPIKey,
		AzureEndpoint:   set.AzureEndpoint,
		AzureDeployment: set.AzureDeployment,
		AzureAPIVersion: set.AzureAPIVersion,
		OpenAIAPIKey:    set.OpenAIAPIKey,
		AnthropicAPIKey: set.AnthropicAPIKey,
		GoogleAPIKey:    set.GoogleAPIKey,
		OllamaHost:      set.OllamaHost,
	}, logging.ForComponent(log, "llm"))

	pipeline, err := ingestion.NewPipeline(embedders, vectors, docs, ingestion.Config{
		ChunkSize:    set.ChunkSize,
		ChunkOverlap: set.ChunkOverlap,
	}, logging.ForComponent(log, "ingestion"))
	if err != nil {
		closeAll(docs, qlog, vectors)
		return nil, nil, fmt.Errorf("build ingestion pipeline: %w", err)
	}

	queries, err := query.New(docs, vectors, embedders, models, qlog, query.Config{
		TopK: set.TopK,
	}, logging.ForComponent(log, "query"))
	if err != nil {
		closeAll(docs, qlog, vectors)
		return nil, nil, fmt.Errorf("build query orchestrator: %w", err)
	}

	d := &deps{
		set:       set,
		docs:      docs,
		qlog:      qlog,
		vectors:   vectors,
		embedders: embedders,
		models:    models,
		pipeline:  pipeline,
		queries:   queries,
		reporter:  metrics.NewReporter(qlog),
	}
	return d, func() { closeAll(docs, qlog, vectors) }, nil
}

func closeAll(docs *docstore.Store, qlog *querylog.Store, vectors *rag.Store) {
	_ = docs.Close()
	_ = qlog.Close()
	_ = vectors.Close()
}
