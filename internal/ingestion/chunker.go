package ingestion

import (
	"strings"
	"unicode/utf8"
)

// Default chunking geometry. 1500 characters keeps each chunk within a few
// hundred tokens; 200 characters of overlap preserves sentence context across
// chunk boundaries.
const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 200

	// boundaryFraction is how far into a chunk the sentence-boundary search
	// begins. Breaking earlier than 70% would waste too much of the chunk.
	boundaryFraction = 0.7
)

// sentenceSeparators are the boundary markers considered when ending a chunk,
// in preference order. The chunk breaks after the separator.
var sentenceSeparators = []string{". ", ".\n", "? ", "! ", "\n\n"}

// Chunker splits text into overlapping character chunks, preferring to break
// at sentence boundaries in the tail of each chunk.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker constructs a Chunker. Non-positive size or overlap selects the
// defaults; an overlap at or above size is clamped to size/10 so the scan
// always advances.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 10
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks text. Each chunk is at most size characters; when a sentence
// separator occurs past 70% of the chunk the break moves back to it, so most
// chunks end on a sentence. Consecutive chunks share overlap characters.
// Empty or whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		// Hard cuts are byte offsets; never leave one mid-rune.
		end = runeStart(text, end)
		if end <= start {
			_, n := utf8.DecodeRuneInString(text[start:])
			end = start + n
		}

		if cut := lastSeparator(text[start:end], int(float64(c.size)*boundaryFraction)); cut > 0 {
			end = start + cut
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := runeStart(text, end-c.overlap)
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// runeStart backs i up to the nearest UTF-8 rune boundary at or before it.
func runeStart(s string, i int) int {
	if i < 0 {
		return 0
	}
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// lastSeparator returns the index just past the last sentence separator that
// starts at or after from, or 0 when none is found.
func lastSeparator(s string, from int) int {
	best := 0
	for _, sep := range sentenceSeparators {
		if i := strings.LastIndex(s, sep); i >= from && i+len(sep) > best {
			best = i + len(sep)
		}
	}
	return best
}
