package engine

import (
	"strings"

	"github.com/ragline/ragline/internal/budget"
	"github.com/ragline/ragline/internal/rag"
)

// promptHeader is the grounding instruction that opens every prompt. It
// anchors the model to the retrieved context and tells it to admit ignorance
// rather than invent answers.
const promptHeader = `You are a helpful assistant grounding your answers in the provided context.
If the context doesn't contain the answer, say you don't know based on the context.`

// buildContext concatenates the retrieved chunks in ranked order, separated
// by blank lines, after trimming the lowest-ranked chunks to the token
// budget. Zero retrieved documents yields an empty block — that is a valid
// outcome, not an error.
func buildContext(docs []rag.Document, maxTokens int) string {
	if len(docs) == 0 {
		return ""
	}
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Text)
	}
	texts = budget.TrimChunks(texts, maxTokens)
	return strings.Join(texts, "\n\n")
}

// buildPrompt assembles the fixed prompt template: grounding instruction,
// optional verified-answer hint, context block, and the raw query. The hint
// augments generation — it never replaces it.
func buildPrompt(hint *rag.LearnedAnswer, contextBlock, query string) string {
	var sb strings.Builder
	sb.WriteString(promptHeader)
	sb.WriteString("\n\n")

	if hint != nil {
		sb.WriteString("[Previous Verified Answer]: ")
		sb.WriteString(hint.Answer)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Context:\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n\n")

	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nResponse:")

	return sb.String()
}
