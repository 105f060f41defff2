package rag

import (
	"context"
	"fmt"
	"math"
)

// QueryPrefix is the instruction template prepended to every query before
// embedding. BGE-family retrieval models are trained with this exact prefix
// for the query side of asymmetric search; documents are embedded without it.
const QueryPrefix = "Represent this sentence for searching relevant passages: "

// Encoder wraps an Embedder with the asymmetric document/query encoding scheme
// and L2 normalization, so that the index's cosine metric reduces to a dot
// product. It is safe for concurrent use if the wrapped Embedder is.
type Encoder struct {
	// embedder is the underlying embedding backend.
	embedder Embedder

	// dimensions is the vector size the index was created with. Every
	// embedding returned by the backend must match it exactly.
	dimensions int
}

// NewEncoder constructs an Encoder. dimensions must equal the vector size of
// the target index collections; a backend returning a different length is a
// configuration error surfaced on the first encode call.
func NewEncoder(embedder Embedder, dimensions int) (*Encoder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("rag: dimensions must be positive, got %d", dimensions)
	}
	return &Encoder{embedder: embedder, dimensions: dimensions}, nil
}

// Dimensions returns the configured vector size.
func (e *Encoder) Dimensions() int { return e.dimensions }

// EncodeDocuments embeds a batch of texts with the document-side encoding
// (no instruction prefix) and normalizes each vector to unit length.
func (e *Encoder) EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("rag: document encoding failed: %w", err)
	}
	for i, v := range vectors {
		if len(v) != e.dimensions {
			return nil, fmt.Errorf("rag: embedding dimension mismatch: got %d, index expects %d", len(v), e.dimensions)
		}
		vectors[i] = normalize(v)
	}
	return vectors, nil
}

// EncodeQuery embeds a single query with the query-side encoding: the fixed
// instruction prefix is applied before embedding, and the result is
// normalized to unit length. Learned-answer records must always be keyed by
// this encoding, never the document encoding.
func (e *Encoder) EncodeQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.embedder.Embed(ctx, []string{QueryPrefix + query})
	if err != nil {
		return nil, fmt.Errorf("rag: query encoding failed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("rag: expected 1 embedding, got %d", len(vectors))
	}
	if len(vectors[0]) != e.dimensions {
		return nil, fmt.Errorf("rag: embedding dimension mismatch: got %d, index expects %d", len(vectors[0]), e.dimensions)
	}
	return normalize(vectors[0]), nil
}

// normalize scales v to unit L2 norm. A zero vector is returned unchanged —
// it has no direction to preserve and scores zero against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
