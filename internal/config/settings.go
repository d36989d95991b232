package config

import (
	"os"
	"strconv"
)

// Defaults applied when neither YAML nor env provides a value.
const (
	defaultDBPath        = "docqa.db"
	defaultUploadDir     = "uploads"
	defaultMaxUploadSize = 50 << 20 // 50 MiB
	defaultQdrantHost    = "localhost"
	defaultQdrantPort    = 6334
	defaultDimensions    = 1536
	defaultChunkSize     = 1000
	defaultChunkOverlap  = 200
	defaultTopK          = 4
	defaultServerHost    = "0.0.0.0"
	defaultServerPort    = 8000
	defaultModel         = "gpt-4o"
)

// Settings is the fully resolved runtime configuration, read from the
// environment after Load has layered any YAML file underneath it. Commands
// build their dependencies from this rather than reading env vars directly.
type Settings struct {
	// DBPath is the SQLite database path.
	DBPath string
	// UploadDir is where uploaded files are stored.
	UploadDir string
	// MaxUploadSize is the maximum accepted upload size in bytes.
	MaxUploadSize int64

	// QdrantHost, QdrantPort, QdrantAPIKey and QdrantTLS describe the
	// vector store connection.
	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantTLS    bool

	// EmbeddingDimensions is the vector size of stored embeddings.
	EmbeddingDimensions int

	// DefaultModel is the LLM used when a query names none.
	DefaultModel string
	// MaxTokens caps model response length; zero means the backend default.
	MaxTokens int

	// Provider credentials.
	AzureAPIKey              string
	AzureEndpoint            string
	AzureDeployment          string
	AzureEmbeddingDeployment string
	AzureAPIVersion          string
	OpenAIAPIKey             string
	OpenAIEmbeddingModel     string
	AnthropicAPIKey          string
	GoogleAPIKey             string
	OllamaHost               string

	// ChunkSize and ChunkOverlap control document splitting.
	ChunkSize    int
	ChunkOverlap int
	// TopK is the default retrieval depth per query.
	TopK int

	// ServerHost, ServerPort and APIKey configure the HTTP server.
	ServerHost string
	ServerPort int
	APIKey     string
}

// FromEnv builds Settings from the current environment, filling defaults
// for anything unset.
func FromEnv() Settings {
	return Settings{
		DBPath:        envOr("DOCQA_DB_PATH", defaultDBPath),
		UploadDir:     envOr("DOCQA_UPLOAD_DIR", defaultUploadDir),
		MaxUploadSize: envInt64("DOCQA_MAX_UPLOAD_SIZE", defaultMaxUploadSize),

		QdrantHost:   envOr("QDRANT_HOST", defaultQdrantHost),
		QdrantPort:   envInt("QDRANT_PORT", defaultQdrantPort),
		QdrantAPIKey: os.Getenv("QDRANT_API_KEY"),
		QdrantTLS:    os.Getenv("QDRANT_TLS") == "true",

		EmbeddingDimensions: envInt("EMBEDDING_DIMENSIONS", defaultDimensions),

		DefaultModel: envOr("DEFAULT_LLM_MODEL", defaultModel),
		MaxTokens:    envInt("MODEL_MAX_TOKENS", 0),

		AzureAPIKey:              os.Getenv("AZURE_OPENAI_API_KEY"),
		AzureEndpoint:            os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureDeployment:          os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
		AzureEmbeddingDeployment: os.Getenv("AZURE_EMBEDDING_DEPLOYMENT"),
		AzureAPIVersion:          os.Getenv("AZURE_OPENAI_API_VERSION"),
		OpenAIAPIKey:             os.Getenv("OPENAI_API_KEY"),
		OpenAIEmbeddingModel:     os.Getenv("OPENAI_EMBEDDING_MODEL"),
		AnthropicAPIKey:          os.Getenv("ANTHROPIC_API_KEY"),
		GoogleAPIKey:             os.Getenv("GOOGLE_API_KEY"),
		OllamaHost:               os.Getenv("OLLAMA_HOST"),

		ChunkSize:    envInt("CHUNK_SIZE", defaultChunkSize),
		ChunkOverlap: envInt("CHUNK_OVERLAP", defaultChunkOverlap),
		TopK:         envInt("DEFAULT_TOP_K", defaultTopK),

		ServerHost: envOr("SERVER_HOST", defaultServerHost),
		ServerPort: envInt("SERVER_PORT", defaultServerPort),
		APIKey:     os.Getenv("DOCQA_API_KEY"),
	}
}

// envOr returns the env var value, or fallback when unset or empty.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt parses an int env var, returning fallback on unset or bad input.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envInt64 parses an int64 env var, returning fallback on unset or bad input.
func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
