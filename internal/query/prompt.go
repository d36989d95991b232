package query

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/docstack/docqa/internal/rag"
)

// systemPrompt instructs the model to answer only from the supplied context.
const systemPrompt = `You are a helpful assistant that answers questions about uploaded documents.
Answer the question based solely on the provided context. If the context does
not contain enough information to answer, say that you do not know. Do not
invent facts that are not in the context.`

// buildMessages assembles the chat messages for one answer: the fixed
// system prompt plus a user message carrying the retrieved context and the
// question. With no chunks the user message carries the question alone and
// the model is expected to say it does not know.
func buildMessages(question string, chunks []rag.ScoredChunk) []*schema.Message {
	var b strings.Builder
	if len(chunks) > 0 {
		b.WriteString("Context:\n\n")
		for _, c := range chunks {
			fmt.Fprintf(&b, "[Source: %s, chunk %d", c.FileName, c.Index)
			if c.Page > 0 {
				fmt.Fprintf(&b, ", page %d", c.Page)
			}
			b.WriteString("]\n")
			b.WriteString(strings.TrimSpace(c.Content))
			b.WriteString("\n\n")
		}
	}
	fmt.Fprintf(&b, "Question: %s", question)

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(b.String()),
	}
}
