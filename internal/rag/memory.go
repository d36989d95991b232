package rag

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is the per-query ephemeral combined index: a brute-force
// cosine similarity index assembled in process memory from the dumps of
// every collection a query touches, then discarded. It trades memory for
// the simplicity of single-index retrieval.
type MemoryIndex struct {
	// mu guards chunks and vectors. A query builds and searches its own
	// index, but the probe fan-out may insert concurrently.
	mu      sync.RWMutex
	chunks  []Chunk
	vectors [][]float32
}

// NewMemoryIndex returns an empty combined index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add inserts chunks with their parallel vectors.
func (m *MemoryIndex) Add(chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("rag: chunks/vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	m.vectors = append(m.vectors, vectors...)
	return nil
}

// Len returns the number of indexed chunks.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Search returns at most topK chunks ordered by descending cosine
// similarity to the query vector. An empty index yields an empty result.
func (m *MemoryIndex) Search(query []float32, topK int) []ScoredChunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if topK <= 0 || len(m.chunks) == 0 {
		return nil
	}

	scored := make([]ScoredChunk, 0, len(m.chunks))
	for i, vec := range m.vectors {
		scored = append(scored, ScoredChunk{
			Chunk: m.chunks[i],
			Score: cosine(query, vec),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}

// cosine returns the cosine similarity of a and b, or 0 when either vector
// is zero-length or zero-normed.
func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
