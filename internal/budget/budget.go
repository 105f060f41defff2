// Package budget provides token budget estimation and context trimming for
// prompt assembly. Because the service supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose and code). This
// deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default budget for the retrieved-context
	// block of the prompt. Conservative enough to fit within 8k-context
	// models while leaving room for the query, hint, and output.
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

// TrimChunks drops retrieved chunks from the tail (the lowest-ranked results)
// until the estimated total token count fits within maxTokens. The head of
// the slice is the best-scoring chunk and is kept whenever anything fits; if
// even the first chunk alone exceeds the budget it is still returned so the
// prompt never silently loses its single best piece of context.
func TrimChunks(chunks []string, maxTokens int) []string {
	if len(chunks) == 0 || maxTokens <= 0 {
		return chunks
	}

	total := 0
	for i, c := range chunks {
		total += Estimate(c)
		if total > maxTokens && i > 0 {
			return chunks[:i]
		}
	}
	return chunks
}
