// Package llm resolves a chat model instance for a requested model name.
// Dispatch is by name prefix: "azure-gpt*" selects Azure OpenAI, "gpt*"
// selects OpenAI, "claude*" selects Anthropic, "gemini*" selects Google
// Gemini, and local model names ("llama*", "mistral*", "qwen*") select a
// local Ollama instance. Unrecognized names fall back to the Azure backend.
// All backends are constructed through the eino-ext model components so the
// orchestrator only ever sees an eino ChatModel.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
)

// ErrLLMInit is returned when a chat model backend cannot be constructed.
// Resolution failures are fatal for the current query and are never retried.
var ErrLLMInit = errors.New("llm: initialization failed")

// qaTemperature is the fixed sampling temperature for question answering.
// Low, so answers stay grounded in the retrieved context.
const qaTemperature float32 = 0.2

// defaultMaxTokens caps the response length when the config does not set one.
const defaultMaxTokens = 4096

// Config holds the credentials and endpoints for every supported backend.
// Only the backends actually selected by model-name dispatch need their
// fields populated.
type Config struct {
	// DefaultModel is used when the caller supplies no model name.
	DefaultModel string

	// MaxTokens caps the number of tokens generated per response.
	MaxTokens int

	// AzureAPIKey, AzureEndpoint, AzureDeployment, AzureAPIVersion configure
	// Azure OpenAI — the default backend.
	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	// OpenAIAPIKey configures the OpenAI backend.
	OpenAIAPIKey string

	// AnthropicAPIKey configures the Anthropic (Claude) backend.
	AnthropicAPIKey string

	// GoogleAPIKey configures the Gemini backend.
	GoogleAPIKey string

	// OllamaHost is the base URL of the local Ollama server.
	OllamaHost string
}

// Resolver constructs chat models on demand. It holds no per-query state
// and is safe for concurrent use.
type Resolver struct {
	// cfg holds backend credentials and defaults.
	cfg *Config

	// log is the structured logger for resolution events.
	log *slog.Logger
}

// NewResolver constructs a Resolver over the given backend config.
func NewResolver(cfg *Config, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{cfg: cfg, log: log}
}

// Resolve returns a ready chat model for modelName, or the configured
// default model when modelName is empty. Construction failures are wrapped
// with [ErrLLMInit].
func (r *Resolver) Resolve(ctx context.Context, modelName string) (model.BaseChatModel, error) {
	name := r.EffectiveModel(modelName)

	maxTokens := r.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var (
		m       model.BaseChatModel
		backend string
		err     error
	)
	switch {
	case strings.HasPrefix(name, "azure-gpt"):
		backend = "azure"
		m, err = r.newAzure(ctx, maxTokens)
	case strings.HasPrefix(name, "gpt"):
		backend = "openai"
		m, err = r.newOpenAI(ctx, name, maxTokens)
	case strings.HasPrefix(name, "claude"):
		backend = "anthropic"
		m, err = r.newClaude(ctx, name, maxTokens)
	case strings.HasPrefix(name, "gemini"):
		backend = "gemini"
		m, err = r.newGemini(ctx, name)
	case hasLocalPrefix(name):
		backend = "ollama"
		m, err = r.newOllama(ctx, name)
	default:
		// Unrecognized names go to the default managed backend.
		backend = "azure"
		m, err = r.newAzure(ctx, maxTokens)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: model %q via %s: %v", ErrLLMInit, name, backend, err)
	}

	r.log.Debug("llm: chat model resolved",
		slog.String("model", name),
		slog.String("backend", backend),
	)
	return m, nil
}

// EffectiveModel returns the model name Resolve will use for a request:
// the request's own name, else the configured default, else gpt-4o.
func (r *Resolver) EffectiveModel(modelName string) string {
	if modelName != "" {
		return modelName
	}
	if r.cfg.DefaultModel != "" {
		return r.cfg.DefaultModel
	}
	return "gpt-4o"
}

// localModelPrefixes lists name prefixes that identify locally hosted
// Ollama models.
var localModelPrefixes = []string{"llama", "mistral", "qwen"}

// hasLocalPrefix reports whether the model name identifies a local model.
func hasLocalPrefix(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range localModelPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
