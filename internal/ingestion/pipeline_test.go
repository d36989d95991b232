package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docstack/docqa/internal/docstore"
	"github.com/docstack/docqa/internal/rag"
	"github.com/docstack/docqa/internal/retry"
)

// fixedEmbedder returns a constant vector per input text.
type fixedEmbedder struct {
	err error
}

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// stubSource resolves to a fixed embedder.
type stubSource struct {
	emb *fixedEmbedder
	err error
}

func (s *stubSource) Resolve(context.Context) (rag.Embedder, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.emb, nil
}

// captureWriter records the chunks it was asked to store.
type captureWriter struct {
	chunks  []rag.Chunk
	deleted []string
	err     error
}

func (w *captureWriter) AddChunks(_ context.Context, _ string, chunks []rag.Chunk, _ [][]float32) error {
	if w.err != nil {
		return w.err
	}
	w.chunks = chunks
	return nil
}

func (w *captureWriter) DeleteCollection(_ context.Context, name string) {
	w.deleted = append(w.deleted, name)
}

func newTestPipeline(t *testing.T, src EmbedderSource, writer ChunkWriter) (*Pipeline, *docstore.Store) {
	t.Helper()
	docs, err := docstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = docs.Close() })

	p, err := NewPipeline(src, writer, docs, Config{ChunkSize: 100, ChunkOverlap: 20}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p, docs
}

func insertUpload(t *testing.T, docs *docstore.Store, id, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), id+".txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	err := docs.Insert(context.Background(), &docstore.Document{
		ID:         id,
		FileName:   id + ".txt",
		FileType:   "txt",
		FileSize:   int64(len(content)),
		FilePath:   path,
		UploadedAt: time.Now().UTC(),
		Status:     docstore.StatusPending,
	})
	if err != nil {
		t.Fatalf("insert document: %v", err)
	}
}

func Test_Pipeline_ProcessSuccess(t *testing.T) {
	t.Parallel()
	writer := &captureWriter{}
	p, docs := newTestPipeline(t, &stubSource{emb: &fixedEmbedder{}}, writer)

	content := strings.Repeat("searchable document text with content ", 20)
	insertUpload(t, docs, "doc-1", content)

	if err := p.Process(context.Background(), "doc-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(writer.chunks) == 0 {
		t.Fatal("expected chunks to be stored")
	}
	for i, c := range writer.chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.DocumentID != "doc-1" || c.Page != 1 {
			t.Errorf("chunk %d = %+v", i, c)
		}
		if c.ID == "" {
			t.Errorf("chunk %d missing id", i)
		}
	}

	doc, err := docs.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != docstore.StatusCompleted {
		t.Errorf("status = %s, want completed", doc.Status)
	}
	if doc.ChunkCount != len(writer.chunks) {
		t.Errorf("chunk count = %d, want %d", doc.ChunkCount, len(writer.chunks))
	}
}

// flakyDocs delegates to a real store but fails MarkCompleted a set number
// of times before letting it through.
type flakyDocs struct {
	*docstore.Store
	failures  int
	completed int
}

func (f *flakyDocs) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	f.completed++
	if f.completed <= f.failures {
		return errors.New("database is locked")
	}
	return f.Store.MarkCompleted(ctx, id, chunkCount)
}

func Test_Pipeline_CompletionWriteRetried(t *testing.T) {
	t.Parallel()
	docs, err := docstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = docs.Close() })

	flaky := &flakyDocs{Store: docs, failures: 2}
	p, err := NewPipeline(&stubSource{emb: &fixedEmbedder{}}, &captureWriter{}, flaky, Config{ChunkSize: 100, ChunkOverlap: 20}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	p.statusRetry = &retry.Policy{MaxAttempts: 3, Initial: time.Millisecond, Max: time.Millisecond}

	insertUpload(t, docs, "doc-1", strings.Repeat("retryable status write ", 10))

	if err := p.Process(context.Background(), "doc-1"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if flaky.completed != 3 {
		t.Errorf("mark completed attempts = %d, want 3", flaky.completed)
	}

	doc, err := docs.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != docstore.StatusCompleted {
		t.Errorf("status = %s, want completed", doc.Status)
	}
}

func Test_Pipeline_CompletionWriteExhausted(t *testing.T) {
	t.Parallel()
	docs, err := docstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = docs.Close() })

	flaky := &flakyDocs{Store: docs, failures: 10}
	p, err := NewPipeline(&stubSource{emb: &fixedEmbedder{}}, &captureWriter{}, flaky, Config{ChunkSize: 100, ChunkOverlap: 20}, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	p.statusRetry = &retry.Policy{MaxAttempts: 3, Initial: time.Millisecond, Max: time.Millisecond}

	insertUpload(t, docs, "doc-1", strings.Repeat("retryable status write ", 10))

	if err := p.Process(context.Background(), "doc-1"); err == nil {
		t.Fatal("expected error")
	}
	if flaky.completed != 3 {
		t.Errorf("mark completed attempts = %d, want 3", flaky.completed)
	}

	doc, err := docs.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != docstore.StatusError {
		t.Errorf("status = %s, want error", doc.Status)
	}
	if !strings.Contains(doc.ErrorMessage, "mark completed") {
		t.Errorf("error message = %q", doc.ErrorMessage)
	}
}

func Test_Pipeline_ProcessEmbedFailure(t *testing.T) {
	t.Parallel()
	src := &stubSource{emb: &fixedEmbedder{err: errors.New("provider down")}}
	p, docs := newTestPipeline(t, src, &captureWriter{})

	insertUpload(t, docs, "doc-1", "some text to embed")

	if err := p.Process(context.Background(), "doc-1"); err == nil {
		t.Fatal("expected error")
	}

	doc, err := docs.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != docstore.StatusError {
		t.Errorf("status = %s, want error", doc.Status)
	}
	if !strings.Contains(doc.ErrorMessage, "provider down") {
		t.Errorf("error message = %q", doc.ErrorMessage)
	}
}

func Test_Pipeline_ProcessMissingDocument(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, &stubSource{emb: &fixedEmbedder{}}, &captureWriter{})

	err := p.Process(context.Background(), "absent")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func Test_Pipeline_Delete(t *testing.T) {
	t.Parallel()
	writer := &captureWriter{}
	p, docs := newTestPipeline(t, &stubSource{emb: &fixedEmbedder{}}, writer)

	insertUpload(t, docs, "doc-1", "content")

	doc, _ := docs.Get(context.Background(), "doc-1")
	if err := p.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(writer.deleted) != 1 || writer.deleted[0] != rag.CollectionName("doc-1") {
		t.Errorf("deleted collections = %v", writer.deleted)
	}
	if _, err := os.Stat(doc.FilePath); !os.IsNotExist(err) {
		t.Errorf("uploaded file still present: %v", err)
	}
	if _, err := docs.Get(context.Background(), "doc-1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func Test_SplitText_Overlap(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("word ", 100) // 500 chars
	chunks := splitText(text, 100, 20)

	if len(chunks) < 4 {
		t.Fatalf("chunks = %d, want several", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d is %d chars", i, len(c))
		}
		if c == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func Test_SplitText_ShortInput(t *testing.T) {
	t.Parallel()
	chunks := splitText("tiny", 100, 20)
	if len(chunks) != 1 || chunks[0] != "tiny" {
		t.Errorf("chunks = %v", chunks)
	}
	if got := splitText("   ", 100, 20); got != nil {
		t.Errorf("whitespace input: %v", got)
	}
}

func Test_ExtractKeywords(t *testing.T) {
	t.Parallel()
	text := "Kubernetes cluster configuration. The cluster runs Kubernetes workloads; cluster upgrades happen monthly."
	got := extractKeywords(text)

	words := strings.Split(got, ",")
	if len(words) == 0 || words[0] != "cluster" {
		t.Errorf("keywords = %q, want cluster first", got)
	}
	for _, w := range words {
		if stopwords[w] {
			t.Errorf("stopword %q in keywords", w)
		}
	}
}
