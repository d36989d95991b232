package rag

import (
	"context"
	"fmt"
)

// Searcher is the read side of an in-process index. *MemoryIndex satisfies it.
type Searcher interface {
	Search(query []float32, topK int) []ScoredChunk
}

// Retriever combines an Embedder with a Searcher: it embeds the query text
// at retrieval time and delegates the similarity search, bounded to topK
// results.
type Retriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// index performs the similarity search.
	index Searcher

	// topK bounds the number of results per retrieval.
	topK int
}

// NewRetriever constructs a Retriever over the given index. topK values
// below 1 fall back to 4, matching the service's default.
func NewRetriever(embedder Embedder, index Searcher, topK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}, nil
}

// Retrieve embeds the query and returns its topK most similar chunks.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]ScoredChunk, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("rag: embedder returned an empty vector for query")
	}
	return r.index.Search(embeddings[0], r.topK), nil
}
