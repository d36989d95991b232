// Package rag defines the retrieval-augmented generation building blocks of
// the docqa service: the chunk data model, the embedding interface, the
// Qdrant-backed vector store gateway, and the per-query combined index.
// The query orchestrator depends only on these types, never on a concrete
// vector backend.
package rag

import (
	"context"
)

// collectionPrefix is the fixed prefix prepended to a document id to form
// its vector collection name. One collection holds exactly one document.
const collectionPrefix = "doc_"

// CollectionName returns the deterministic vector collection name for a
// document id. The transform is collision-free because document ids are
// themselves unique.
func CollectionName(documentID string) string {
	return collectionPrefix + documentID
}

// Chunk is a contiguous slice of a document's extracted text — the unit of
// embedding, storage, and retrieval.
type Chunk struct {
	// ID is the unique identifier of this chunk (a UUID, used as the vector
	// point id).
	ID string

	// DocumentID identifies the document this chunk was sliced from.
	DocumentID string

	// FileName is the original file name of the owning document.
	FileName string

	// Index is the sequential position of this chunk within its document.
	Index int

	// Content is the chunk's raw text.
	Content string

	// Page is the 1-based source page for paginated formats (PDF).
	// Zero when the source format has no pages.
	Page int

	// Keywords holds optional comma-separated keyword metadata.
	Keywords string
}

// ScoredChunk is a retrieved chunk together with its similarity score.
type ScoredChunk struct {
	Chunk

	// Score is the cosine similarity assigned at retrieval time (0.0–1.0).
	Score float32
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// StatusWriter records a terminal embedding failure against the owning
// document. The gateway calls it when a write exhausts its retry budget so
// the document's persisted status reflects the failure.
type StatusWriter interface {
	MarkError(ctx context.Context, documentID, message string) error
}
