package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/docstack/docqa/internal/rag"
)

// Default models for the self-hosted fallback chain. nomic-embed-text is the
// larger, better fallback; all-MiniLM is the last-resort small model.
const (
	fallbackOllamaModel   = "nomic-embed-text"
	lastResortOllamaModel = "all-minilm"

	// probeText is the throwaway input used for the health-check embed call.
	probeText = "test"
)

// ErrNoEmbeddingProvider is returned by Resolve when every candidate in the
// chain fails its health check.
var ErrNoEmbeddingProvider = errors.New("embedder: no working embedding provider")

// Candidate is one provider in the fallback chain: a name for logging and a
// constructor. Construction must be cheap; the expensive part is the health
// check embed call the resolver issues afterwards.
type Candidate struct {
	// Name identifies the provider in logs (e.g. "azure-openai").
	Name string

	// Build constructs the provider. A nil return with nil error is treated
	// as "not configured" and skipped.
	Build func() (rag.Embedder, error)
}

// ChainConfig holds the credentials and endpoints the default chain draws on.
type ChainConfig struct {
	// AzureAPIKey, AzureEndpoint, AzureDeployment, AzureAPIVersion configure
	// the primary managed provider (Azure OpenAI embeddings).
	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	// OpenAIAPIKey and OpenAIModel configure the plain OpenAI alternative
	// used when Azure is not configured.
	OpenAIAPIKey string
	OpenAIModel  string

	// OllamaHost is the base URL of the local Ollama server used for the
	// self-hosted fallbacks.
	OllamaHost string
}

// DefaultChain returns the fixed-priority candidate list: the managed
// provider first (Azure OpenAI, or plain OpenAI when Azure is not
// configured), then two progressively smaller self-hosted Ollama models.
func DefaultChain(cfg *ChainConfig) []Candidate {
	host := cfg.OllamaHost
	if host == "" {
		host = "http://localhost:11434"
	}

	return []Candidate{
		{
			Name: "azure-openai",
			Build: func() (rag.Embedder, error) {
				if cfg.AzureAPIKey == "" || cfg.AzureEndpoint == "" || cfg.AzureDeployment == "" {
					return nil, nil
				}
				return NewOpenAIEmbedder(&OpenAIConfig{
					BaseURL:    cfg.AzureEndpoint + "/openai",
					APIKey:     cfg.AzureAPIKey,
					Model:      cfg.AzureDeployment,
					Azure:      true,
					APIVersion: cfg.AzureAPIVersion,
				}), nil
			},
		},
		{
			Name: "openai",
			Build: func() (rag.Embedder, error) {
				if cfg.OpenAIAPIKey == "" {
					return nil, nil
				}
				model := cfg.OpenAIModel
				if model == "" {
					model = "text-embedding-3-small"
				}
				return NewOpenAIEmbedder(&OpenAIConfig{
					BaseURL: "https://api.openai.com/v1",
					APIKey:  cfg.OpenAIAPIKey,
					Model:   model,
				}), nil
			},
		},
		{
			Name: "ollama-" + fallbackOllamaModel,
			Build: func() (rag.Embedder, error) {
				return NewOllamaEmbedder(host, fallbackOllamaModel), nil
			},
		},
		{
			Name: "ollama-" + lastResortOllamaModel,
			Build: func() (rag.Embedder, error) {
				return NewOllamaEmbedder(host, lastResortOllamaModel), nil
			},
		},
	}
}

// Resolver walks an ordered candidate chain and returns the first provider
// that passes a health-check embed call. The winner is cached for the life
// of the process — embedding providers are stateless per call, so a single
// shared instance serves all queries.
type Resolver struct {
	// chain is the ordered candidate list, highest priority first.
	chain []Candidate

	// log is the structured logger for resolution events.
	log *slog.Logger

	// mu guards cached.
	mu sync.Mutex

	// cached is the provider that last passed its health check.
	cached rag.Embedder
}

// NewResolver constructs a Resolver over the given chain.
func NewResolver(chain []Candidate, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{chain: chain, log: log}
}

// Resolve returns a working embedding provider, trying candidates in
// priority order until one answers the probe with a non-empty vector.
// Subsequent calls reuse the cached winner. Returns an error wrapping
// [ErrNoEmbeddingProvider] when every candidate fails.
func (r *Resolver) Resolve(ctx context.Context) (rag.Embedder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil {
		return r.cached, nil
	}

	var lastErr error
	for _, c := range r.chain {
		e, err := c.Build()
		if err != nil {
			r.log.Warn("embedder: candidate construction failed",
				slog.String("provider", c.Name), slog.Any("error", err))
			lastErr = err
			continue
		}
		if e == nil {
			r.log.Debug("embedder: candidate not configured, skipping",
				slog.String("provider", c.Name))
			continue
		}

		vecs, err := e.Embed(ctx, []string{probeText})
		if err != nil {
			r.log.Warn("embedder: candidate failed health check",
				slog.String("provider", c.Name), slog.Any("error", err))
			lastErr = err
			continue
		}
		if len(vecs) == 0 || len(vecs[0]) == 0 {
			r.log.Warn("embedder: candidate returned empty probe vector",
				slog.String("provider", c.Name))
			lastErr = fmt.Errorf("provider %s returned empty vector", c.Name)
			continue
		}

		r.log.Info("embedder: provider selected",
			slog.String("provider", c.Name),
			slog.Int("dimensions", len(vecs[0])),
		)
		r.cached = e
		return e, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: last failure: %v", ErrNoEmbeddingProvider, lastErr)
	}
	return nil, ErrNoEmbeddingProvider
}
