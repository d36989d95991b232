package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  default: claude-3-5-sonnet
  max_tokens: 8192
  azure:
    endpoint: https://my-resource.openai.azure.com
    deployment: gpt-4o
    embedding_deployment: text-embedding-ada-002
    api_version: "2025-04-01-preview"
qdrant:
  host: qdrant.internal
  port: 6334
storage:
  db_path: /var/lib/docqa/docqa.db
  upload_dir: /var/lib/docqa/uploads
chunking:
  size: 800
  overlap: 100
retrieval:
  top_k: 6
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"DEFAULT_LLM_MODEL", "MODEL_MAX_TOKENS",
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT",
		"AZURE_EMBEDDING_DEPLOYMENT", "AZURE_OPENAI_API_VERSION",
		"QDRANT_HOST", "QDRANT_PORT",
		"DOCQA_DB_PATH", "DOCQA_UPLOAD_DIR",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "DEFAULT_TOP_K",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"DEFAULT_LLM_MODEL":          "claude-3-5-sonnet",
		"MODEL_MAX_TOKENS":           "8192",
		"AZURE_OPENAI_ENDPOINT":      "https://my-resource.openai.azure.com",
		"AZURE_OPENAI_DEPLOYMENT":    "gpt-4o",
		"AZURE_EMBEDDING_DEPLOYMENT": "text-embedding-ada-002",
		"AZURE_OPENAI_API_VERSION":   "2025-04-01-preview",
		"QDRANT_HOST":                "qdrant.internal",
		"QDRANT_PORT":                "6334",
		"DOCQA_DB_PATH":              "/var/lib/docqa/docqa.db",
		"DOCQA_UPLOAD_DIR":           "/var/lib/docqa/uploads",
		"CHUNK_SIZE":                 "800",
		"CHUNK_OVERLAP":              "100",
		"DEFAULT_TOP_K":              "6",
		"LOG_LEVEL":                  "debug",
		"LOG_FORMAT":                 "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  default: llama3
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("DEFAULT_LLM_MODEL", "gpt-4o")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("DEFAULT_LLM_MODEL"); got != "gpt-4o" {
		t.Errorf("DEFAULT_LLM_MODEL: expected env override %q, got %q", "gpt-4o", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"DOCQA_DB_PATH", "DOCQA_UPLOAD_DIR", "DOCQA_MAX_UPLOAD_SIZE",
		"QDRANT_HOST", "QDRANT_PORT", "CHUNK_SIZE", "CHUNK_OVERLAP",
		"DEFAULT_TOP_K", "SERVER_HOST", "SERVER_PORT", "DEFAULT_LLM_MODEL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	s := FromEnv()
	if s.DBPath != "docqa.db" {
		t.Errorf("DBPath = %q", s.DBPath)
	}
	if s.QdrantHost != "localhost" || s.QdrantPort != 6334 {
		t.Errorf("qdrant = %s:%d", s.QdrantHost, s.QdrantPort)
	}
	if s.ChunkSize != 1000 || s.ChunkOverlap != 200 {
		t.Errorf("chunking = %d/%d", s.ChunkSize, s.ChunkOverlap)
	}
	if s.TopK != 4 {
		t.Errorf("TopK = %d", s.TopK)
	}
	if s.MaxUploadSize != 50<<20 {
		t.Errorf("MaxUploadSize = %d", s.MaxUploadSize)
	}
	if s.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q", s.DefaultModel)
	}
	if s.ServerPort != 8000 {
		t.Errorf("ServerPort = %d", s.ServerPort)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "600")
	t.Setenv("DEFAULT_TOP_K", "8")
	t.Setenv("QDRANT_TLS", "true")
	t.Setenv("DOCQA_MAX_UPLOAD_SIZE", "1048576")

	s := FromEnv()
	if s.ChunkSize != 600 {
		t.Errorf("ChunkSize = %d, want 600", s.ChunkSize)
	}
	if s.TopK != 8 {
		t.Errorf("TopK = %d, want 8", s.TopK)
	}
	if !s.QdrantTLS {
		t.Error("QdrantTLS = false, want true")
	}
	if s.MaxUploadSize != 1048576 {
		t.Errorf("MaxUploadSize = %d", s.MaxUploadSize)
	}
}

func TestFromEnv_BadIntFallsBack(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")

	s := FromEnv()
	if s.ChunkSize != 1000 {
		t.Errorf("ChunkSize = %d, want default 1000", s.ChunkSize)
	}
}
