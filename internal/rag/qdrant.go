package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/docstack/docqa/internal/retry"
)

// writeBatchSize bounds how many points are upserted per request so large
// documents never buffer their full embedding set in one RPC.
const writeBatchSize = 50

// dumpLimit caps how many points Dump will pull from one collection.
// Collections are per-document, so this is a safety bound, not a page size.
const dumpLimit = 10000

// ErrEmbeddingWrite is returned by AddChunks once the write retry budget is
// exhausted. Callers match it with errors.Is.
var ErrEmbeddingWrite = errors.New("embedding write failed")

// StoreConfig holds connection parameters for the Qdrant vector store.
type StoreConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// VectorSize is the dimensionality of stored embeddings.
	VectorSize uint64
}

// pointsClient is the slice of the Qdrant client the gateway uses. Tests
// substitute a fake to exercise failure paths without a server.
type pointsClient interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, name string) error
	Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error)
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Scroll(ctx context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	Close() error
}

// Store is the vector store gateway. It wraps a Qdrant client with
// per-collection lifecycle operations, batched writes under a bounded retry
// policy, similarity search, and full-collection dumps for the per-query
// merge. Safe for concurrent use.
type Store struct {
	// client is the Qdrant client surface the gateway calls through.
	client pointsClient

	// raw is the concrete gRPC client, kept for readiness probes.
	raw *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *StoreConfig

	// writeRetry is the bounded backoff policy applied to AddChunks.
	writeRetry *retry.Policy

	// status records terminal write failures on the owning document.
	// Nil disables status write-back (tests).
	status StatusWriter

	// log is the structured logger for gateway events.
	log *slog.Logger
}

// NewStore connects to Qdrant and returns a ready Store. The write retry
// policy defaults to retry.WritePolicy when nil.
func NewStore(cfg *StoreConfig, status StatusWriter, writeRetry *retry.Policy, log *slog.Logger) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if writeRetry == nil {
		writeRetry = retry.WritePolicy()
	}
	if log == nil {
		log = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("rag: create qdrant client: %w", err)
	}

	return &Store{
		client:     client,
		raw:        client,
		cfg:        cfg,
		writeRetry: writeRetry,
		status:     status,
		log:        log,
	}, nil
}

// Client exposes the underlying Qdrant client for readiness probes.
func (s *Store) Client() *qdrant.Client { return s.raw }

// EnsureCollection creates the named collection if it does not already
// exist. Idempotent.
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("rag: check collection %q: %w", name, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("rag: create collection %q: %w", name, err)
	}
	return nil
}

// CollectionExists reports whether the named collection exists.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("rag: check collection %q: %w", name, err)
	}
	return exists, nil
}

// DeleteCollection removes the named collection. Absent collections are a
// no-op, and failures are logged rather than returned — deletion is
// best-effort cleanup that must never block document removal.
func (s *Store) DeleteCollection(ctx context.Context, name string) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		s.log.Warn("rag: delete collection existence check failed",
			slog.String("collection", name), slog.Any("error", err))
		return
	}
	if !exists {
		return
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		s.log.Warn("rag: delete collection failed",
			slog.String("collection", name), slog.Any("error", err))
	}
}

// Count returns the exact number of points in the collection. The count is
// read fresh from the server, never from a cache, so it can verify a write
// that just completed.
func (s *Store) Count(ctx context.Context, name string) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("rag: count %q: %w", name, err)
	}
	return n, nil
}

// AddChunks writes a document's chunks and their embeddings into the
// document's collection in batches of 50, under the bounded write retry
// policy. Each attempt re-writes all batches and then verifies a non-zero
// point count with a fresh read; a zero count consumes a retry attempt.
// On exhaustion the owning document is marked errored and an error wrapping
// [ErrEmbeddingWrite] is returned.
func (s *Store) AddChunks(ctx context.Context, documentID string, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("rag: chunks/embeddings length mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	collection := CollectionName(documentID)

	attempt := 0
	err := s.writeRetry.Do(ctx, func() error {
		attempt++
		if err := s.EnsureCollection(ctx, collection); err != nil {
			return err
		}
		if err := s.writeBatches(ctx, collection, chunks, embeddings); err != nil {
			return err
		}

		// A write that leaves the collection empty is a failure, not a success.
		n, err := s.Count(ctx, collection)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("collection %q empty after write", collection)
		}
		return nil
	})
	if err != nil {
		msg := fmt.Sprintf("failed to store embeddings after %d attempts: %v", attempt, err)
		s.log.Error("rag: embedding write exhausted retries",
			slog.String("document_id", documentID),
			slog.Int("attempts", attempt),
			slog.Any("error", err),
		)
		if s.status != nil {
			if serr := s.status.MarkError(ctx, documentID, msg); serr != nil {
				s.log.Error("rag: failed to persist error status",
					slog.String("document_id", documentID), slog.Any("error", serr))
			}
		}
		return fmt.Errorf("rag: document %s: %w: %v", documentID, ErrEmbeddingWrite, err)
	}

	return nil
}

// writeBatches upserts all chunk points in fixed-size batches.
func (s *Store) writeBatches(ctx context.Context, collection string, chunks []Chunk, embeddings [][]float32) error {
	for start := 0; start < len(chunks); start += writeBatchSize {
		end := min(start+writeBatchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunks[i].ID),
				Vectors: qdrant.NewVectors(embeddings[i]...),
				Payload: qdrant.NewValueMap(chunkPayload(chunks[i])),
			})
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("upsert batch [%d:%d): %w", start, end, err)
		}
	}
	return nil
}

// Search returns the top-k most similar chunks in the collection for the
// query embedding, ordered by descending similarity. An empty result is
// valid, not an error.
func (s *Store) Search(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]ScoredChunk, error) {
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("rag: search %q: %w", collection, err)
	}

	out := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		c := chunkFromPayload(r.Payload)
		c.ID = r.Id.GetUuid()
		out = append(out, ScoredChunk{Chunk: c, Score: r.Score})
	}
	return out, nil
}

// Dump returns every chunk in the collection together with its stored
// vector. It feeds the per-query merge into the combined index.
func (s *Store) Dump(ctx context.Context, collection string) ([]Chunk, [][]float32, error) {
	n, err := s.Count(ctx, collection)
	if err != nil {
		return nil, nil, err
	}
	if n == 0 {
		return nil, nil, nil
	}
	if n > dumpLimit {
		n = dumpLimit
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          qdrant.PtrOf(uint32(n)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rag: dump %q: %w", collection, err)
	}

	chunks := make([]Chunk, 0, len(points))
	vectors := make([][]float32, 0, len(points))
	for _, p := range points {
		c := chunkFromPayload(p.Payload)
		c.ID = p.Id.GetUuid()
		chunks = append(chunks, c)
		vectors = append(vectors, p.Vectors.GetVector().GetData())
	}
	return chunks, vectors, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// chunkPayload flattens a Chunk into the Qdrant point payload.
func chunkPayload(c Chunk) map[string]any {
	return map[string]any{
		"content":     c.Content,
		"document_id": c.DocumentID,
		"file_name":   c.FileName,
		"chunk_index": int64(c.Index),
		"page":        int64(c.Page),
		"keywords":    c.Keywords,
	}
}

// chunkFromPayload rebuilds a Chunk from a point payload. Missing keys yield
// zero values rather than errors — old points may predate newer fields.
func chunkFromPayload(p map[string]*qdrant.Value) Chunk {
	var c Chunk
	if p == nil {
		return c
	}
	if v, ok := p["content"]; ok {
		c.Content = v.GetStringValue()
	}
	if v, ok := p["document_id"]; ok {
		c.DocumentID = v.GetStringValue()
	}
	if v, ok := p["file_name"]; ok {
		c.FileName = v.GetStringValue()
	}
	if v, ok := p["chunk_index"]; ok {
		c.Index = int(v.GetIntegerValue())
	}
	if v, ok := p["page"]; ok {
		c.Page = int(v.GetIntegerValue())
	}
	if v, ok := p["keywords"]; ok {
		c.Keywords = v.GetStringValue()
	}
	return c
}
