package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func Test_Resolve_MissingCredentialsWrapsErrLLMInit(t *testing.T) {
	t.Parallel()
	r := NewResolver(&Config{DefaultModel: "gpt-4o"}, nil)

	_, err := r.Resolve(context.Background(), "")
	if !errors.Is(err, ErrLLMInit) {
		t.Fatalf("want ErrLLMInit, got %v", err)
	}
	if !strings.Contains(err.Error(), "gpt-4o") {
		t.Errorf("error should name the model: %v", err)
	}
}

func Test_Resolve_PrefixSelectsBackend(t *testing.T) {
	t.Parallel()
	// No credentials anywhere — every resolution fails, but the failure
	// message names the dispatched backend, which is what matters here.
	r := NewResolver(&Config{}, nil)

	cases := []struct {
		model   string
		backend string
	}{
		{"azure-gpt-4o", "azure"},
		{"gpt-4o-mini", "openai"},
		{"claude-sonnet-4-20250514", "anthropic"},
		{"gemini-1.5-pro", "gemini"},
		{"some-unknown-model", "azure"},
	}
	for _, tc := range cases {
		_, err := r.Resolve(context.Background(), tc.model)
		if err == nil {
			t.Fatalf("%s: want credential error", tc.model)
		}
		if !strings.Contains(err.Error(), "via "+tc.backend) {
			t.Errorf("%s: want backend %s, got: %v", tc.model, tc.backend, err)
		}
	}
}

func Test_Resolve_LocalPrefixesDispatchToOllama(t *testing.T) {
	for _, name := range []string{"llama3", "mistral-7b", "qwen2.5"} {
		if !hasLocalPrefix(name) {
			t.Errorf("%s: want local prefix match", name)
		}
	}
	if hasLocalPrefix("gpt-4o") {
		t.Error("gpt-4o must not match a local prefix")
	}
}

func Test_Resolve_EmptyNameUsesDefaultModel(t *testing.T) {
	t.Parallel()
	r := NewResolver(&Config{DefaultModel: "claude-sonnet-4-20250514"}, nil)

	_, err := r.Resolve(context.Background(), "")
	if err == nil {
		t.Fatal("want credential error")
	}
	if !strings.Contains(err.Error(), "via anthropic") {
		t.Errorf("default model should dispatch to anthropic: %v", err)
	}
}
