package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/docstack/docqa/internal/rag"
)

// stubEmbedder returns a fixed vector, or an error, for any input.
type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func candidate(name string, e rag.Embedder, buildErr error) Candidate {
	return Candidate{
		Name:  name,
		Build: func() (rag.Embedder, error) { return e, buildErr },
	}
}

func Test_Resolver_FirstHealthyCandidateWins(t *testing.T) {
	t.Parallel()
	primary := &stubEmbedder{vec: []float32{1, 2, 3}}
	fallback := &stubEmbedder{vec: []float32{4, 5}}

	r := NewResolver([]Candidate{
		candidate("primary", primary, nil),
		candidate("fallback", fallback, nil),
	}, nil)

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != primary {
		t.Error("want primary provider selected")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback probed %d times, want 0", fallback.calls)
	}
}

func Test_Resolver_FallsThroughOnProbeFailure(t *testing.T) {
	t.Parallel()
	broken := &stubEmbedder{err: errors.New("unauthorized")}
	empty := &stubEmbedder{vec: nil}
	healthy := &stubEmbedder{vec: []float32{1}}

	r := NewResolver([]Candidate{
		candidate("broken", broken, nil),
		candidate("empty-vector", empty, nil),
		candidate("healthy", healthy, nil),
	}, nil)

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != healthy {
		t.Error("want healthy provider selected after fallthrough")
	}
}

func Test_Resolver_SkipsUnconfiguredCandidates(t *testing.T) {
	t.Parallel()
	healthy := &stubEmbedder{vec: []float32{1}}

	r := NewResolver([]Candidate{
		candidate("unconfigured", nil, nil),
		candidate("healthy", healthy, nil),
	}, nil)

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != healthy {
		t.Error("want healthy provider after skipping unconfigured one")
	}
}

func Test_Resolver_AllFailedReturnsSentinel(t *testing.T) {
	t.Parallel()
	r := NewResolver([]Candidate{
		candidate("a", &stubEmbedder{err: errors.New("down")}, nil),
		candidate("b", nil, errors.New("bad config")),
	}, nil)

	_, err := r.Resolve(context.Background())
	if !errors.Is(err, ErrNoEmbeddingProvider) {
		t.Fatalf("want ErrNoEmbeddingProvider, got %v", err)
	}
}

func Test_Resolver_CachesWinnerAcrossCalls(t *testing.T) {
	t.Parallel()
	healthy := &stubEmbedder{vec: []float32{1}}
	builds := 0
	r := NewResolver([]Candidate{{
		Name: "healthy",
		Build: func() (rag.Embedder, error) {
			builds++
			return healthy, nil
		},
	}}, nil)

	for range 3 {
		if _, err := r.Resolve(context.Background()); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if builds != 1 {
		t.Errorf("want 1 construction, got %d", builds)
	}
	if healthy.calls != 1 {
		t.Errorf("want 1 probe call, got %d", healthy.calls)
	}
}

func Test_DefaultChain_OrderAndConfiguration(t *testing.T) {
	t.Parallel()
	chain := DefaultChain(&ChainConfig{
		OpenAIAPIKey: "sk-x",
	})
	if len(chain) != 4 {
		t.Fatalf("want 4 candidates, got %d", len(chain))
	}

	// Azure is unconfigured: its Build must return nil, nil.
	e, err := chain[0].Build()
	if e != nil || err != nil {
		t.Errorf("unconfigured azure candidate: want nil,nil got %v,%v", e, err)
	}

	// OpenAI has a key: it must construct.
	e, err = chain[1].Build()
	if e == nil || err != nil {
		t.Errorf("openai candidate: want instance, got %v,%v", e, err)
	}

	// Both self-hosted fallbacks always construct.
	for i := 2; i < 4; i++ {
		e, err = chain[i].Build()
		if e == nil || err != nil {
			t.Errorf("candidate %d (%s): want instance, got %v,%v", i, chain[i].Name, e, err)
		}
	}
}
