package llm

import (
	"context"
	"fmt"

	einoclaude "github.com/cloudwego/eino-ext/components/model/claude"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// newAzure constructs a ChatModel backed by Azure OpenAI Service.
// The deployment name is used verbatim — Azure deployment names may contain
// dots that the default mapper would strip.
func (r *Resolver) newAzure(ctx context.Context, maxTokens int) (model.BaseChatModel, error) {
	if r.cfg.AzureAPIKey == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_API_KEY is required for the azure backend")
	}
	if r.cfg.AzureEndpoint == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_ENDPOINT is required for the azure backend")
	}
	if r.cfg.AzureDeployment == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_DEPLOYMENT is required for the azure backend")
	}
	temp := qaTemperature
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:                r.cfg.AzureDeployment,
		APIKey:               r.cfg.AzureAPIKey,
		BaseURL:              r.cfg.AzureEndpoint,
		ByAzure:              true,
		APIVersion:           r.cfg.AzureAPIVersion,
		MaxTokens:            &maxTokens,
		Temperature:          &temp,
		AzureModelMapperFunc: func(model string) string { return model },
	})
}

// newOpenAI constructs a ChatModel backed by the OpenAI API.
func (r *Resolver) newOpenAI(ctx context.Context, name string, maxTokens int) (model.BaseChatModel, error) {
	if r.cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai backend")
	}
	temp := qaTemperature
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       name,
		APIKey:      r.cfg.OpenAIAPIKey,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
}

// newClaude constructs a ChatModel backed by the Anthropic API.
func (r *Resolver) newClaude(ctx context.Context, name string, maxTokens int) (model.BaseChatModel, error) {
	if r.cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic backend")
	}
	temp := qaTemperature
	return einoclaude.NewChatModel(ctx, &einoclaude.Config{ //nolint:wrapcheck // constructor passthrough
		APIKey:      r.cfg.AnthropicAPIKey,
		Model:       name,
		MaxTokens:   maxTokens,
		Temperature: &temp,
	})
}

// newGemini constructs a ChatModel backed by Google Gemini (AI Studio).
func (r *Resolver) newGemini(ctx context.Context, name string) (model.BaseChatModel, error) {
	if r.cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required for the gemini backend")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  r.cfg.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return einogemini.NewChatModel(ctx, &einogemini.Config{ //nolint:wrapcheck // constructor passthrough
		Client: client,
		Model:  name,
	})
}

// newOllama constructs a ChatModel backed by a local Ollama instance.
func (r *Resolver) newOllama(ctx context.Context, name string) (model.BaseChatModel, error) {
	baseURL := r.cfg.OllamaHost
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		BaseURL: baseURL,
		Model:   name,
	})
}
