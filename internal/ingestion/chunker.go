package ingestion

import (
	"sort"
	"strings"
)

// maxKeywords bounds how many keywords are attached to each chunk.
const maxKeywords = 5

// splitText splits text into chunks of at most size characters with the
// given overlap between consecutive chunks. Chunk boundaries snap back to
// the nearest whitespace when one is close, so words are rarely cut in half.
func splitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}

	var chunks []string
	for start := 0; start < len(text); {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		// Snap to the last whitespace in the final tenth of the chunk.
		cut := end
		if i := strings.LastIndexAny(text[start:end], " \t\n"); i > size-size/10 {
			cut = start + i
		}
		chunks = append(chunks, strings.TrimSpace(text[start:cut]))

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	// Drop any whitespace-only fragments produced by aggressive snapping.
	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// stopwords excluded from keyword extraction.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"has": true, "have": true, "was": true, "were": true, "with": true,
	"this": true, "that": true, "from": true, "they": true, "will": true,
	"what": true, "when": true, "which": true, "their": true, "there": true,
	"been": true, "than": true, "then": true, "them": true, "these": true,
	"its": true, "into": true, "also": true, "such": true, "each": true,
	"other": true, "more": true, "some": true, "only": true, "over": true,
	"any": true, "may": true, "should": true, "would": true, "could": true,
	"about": true, "after": true, "before": true, "between": true,
}

// extractKeywords returns the most frequent non-stopword terms of the text,
// comma-joined, for storage alongside the chunk. Ties break alphabetically
// so the result is deterministic.
func extractKeywords(text string) string {
	freq := make(map[string]int)
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(raw, ".,;:!?\"'()[]{}<>*#`-_")
		if len(word) < 3 || stopwords[word] {
			continue
		}
		freq[word]++
	}
	if len(freq) == 0 {
		return ""
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > maxKeywords {
		words = words[:maxKeywords]
	}
	return strings.Join(words, ",")
}
