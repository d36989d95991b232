// Package budget provides token budget estimation and context trimming for
// query answering. Because queries may run against multiple LLM backends
// with different tokenizers, this package uses a conservative
// character-based heuristic: 1 token ≈ 4 characters (English prose and
// tabular text). This deliberately under-estimates token counts to leave
// headroom for model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/docstack/docqa/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving
	// room for the answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimChunks drops retrieved chunks from the tail until the combined
// estimated token count of the reserved text (prompt scaffolding plus the
// question) and the remaining chunk contents fits within maxTokens. Chunks
// arrive ordered by descending similarity, so the least relevant are
// dropped first.
//
// If even a single chunk does not fit alongside the reserved text, an empty
// slice is returned — callers answer from no context rather than overflow.
func TrimChunks(chunks []rag.ScoredChunk, reserved string, maxTokens int) []rag.ScoredChunk {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	budget := maxTokens - Estimate(reserved)

	total := 0
	for _, c := range chunks {
		total += Estimate(c.Content)
	}
	for len(chunks) > 0 && total > budget {
		total -= Estimate(chunks[len(chunks)-1].Content)
		chunks = chunks[:len(chunks)-1]
	}
	return chunks
}
