package rag

import (
	"context"
	"testing"
)

func Test_CollectionName_Deterministic(t *testing.T) {
	t.Parallel()
	if got := CollectionName("abc-123"); got != "doc_abc-123" {
		t.Errorf("want doc_abc-123, got %q", got)
	}
}

func Test_MemoryIndex_SearchOrdersByScore(t *testing.T) {
	t.Parallel()
	idx := NewMemoryIndex()

	chunks := []Chunk{
		{ID: "a", Content: "orthogonal"},
		{ID: "b", Content: "aligned"},
		{ID: "c", Content: "opposite"},
	}
	vectors := [][]float32{
		{0, 1},
		{1, 0},
		{-1, 0},
	}
	if err := idx.Add(chunks, vectors); err != nil {
		t.Fatalf("add: %v", err)
	}

	got := idx.Search([]float32{1, 0}, 3)
	if len(got) != 3 {
		t.Fatalf("want 3 results, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Errorf("want order [b a c], got [%s %s %s]", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[0].Score <= got[1].Score || got[1].Score <= got[2].Score {
		t.Errorf("scores not descending: %v %v %v", got[0].Score, got[1].Score, got[2].Score)
	}
}

func Test_MemoryIndex_TopKBoundsResults(t *testing.T) {
	t.Parallel()
	idx := NewMemoryIndex()

	var chunks []Chunk
	var vectors [][]float32
	for i := range 10 {
		chunks = append(chunks, Chunk{ID: string(rune('a' + i))})
		vectors = append(vectors, []float32{float32(i), 1})
	}
	if err := idx.Add(chunks, vectors); err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := idx.Search([]float32{1, 1}, 4); len(got) != 4 {
		t.Errorf("want 4 results, got %d", len(got))
	}
}

func Test_MemoryIndex_EmptyIndexReturnsEmpty(t *testing.T) {
	t.Parallel()
	idx := NewMemoryIndex()
	if got := idx.Search([]float32{1, 0}, 4); len(got) != 0 {
		t.Errorf("want empty result from empty index, got %d", len(got))
	}
}

func Test_MemoryIndex_AddLengthMismatchRejected(t *testing.T) {
	t.Parallel()
	idx := NewMemoryIndex()
	err := idx.Add([]Chunk{{ID: "a"}}, nil)
	if err == nil {
		t.Fatal("want error on chunks/vectors length mismatch")
	}
}

// fixedEmbedder returns one pre-set vector for any input.
type fixedEmbedder struct {
	vec []float32
	err error
}

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func Test_Retriever_EmbedsQueryAndSearches(t *testing.T) {
	t.Parallel()
	idx := NewMemoryIndex()
	if err := idx.Add(
		[]Chunk{{ID: "x", Content: "hit"}, {ID: "y", Content: "miss"}},
		[][]float32{{1, 0}, {0, 1}},
	); err != nil {
		t.Fatalf("add: %v", err)
	}

	r, err := NewRetriever(&fixedEmbedder{vec: []float32{1, 0}}, idx, 1)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	got, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != "x" {
		t.Fatalf("want single hit x, got %+v", got)
	}
}

func Test_Retriever_EmptyEmbeddingIsError(t *testing.T) {
	t.Parallel()
	r, err := NewRetriever(&fixedEmbedder{vec: nil}, NewMemoryIndex(), 4)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}
	if _, err := r.Retrieve(context.Background(), "q"); err == nil {
		t.Fatal("want error for empty query embedding")
	}
}
