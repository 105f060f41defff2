package rag

import (
	"context"
	"math"
	"testing"
)

// recordingEmbedder captures the texts it was asked to embed and returns a
// fixed vector for each.
type recordingEmbedder struct {
	texts []string
	vec   []float32
}

func (r *recordingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	r.texts = append(r.texts, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = r.vec
	}
	return out, nil
}

func TestEncodeQuery_AppliesPrefix(t *testing.T) {
	t.Parallel()

	emb := &recordingEmbedder{vec: []float32{3, 4}}
	enc, err := NewEncoder(emb, 2)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	if _, err := enc.EncodeQuery(context.Background(), "what is qdrant"); err != nil {
		t.Fatalf("EncodeQuery: %v", err)
	}
	if len(emb.texts) != 1 {
		t.Fatalf("embedder saw %d texts, want 1", len(emb.texts))
	}
	want := QueryPrefix + "what is qdrant"
	if emb.texts[0] != want {
		t.Errorf("embedded text = %q, want %q", emb.texts[0], want)
	}
}

func TestEncodeDocuments_NoPrefix(t *testing.T) {
	t.Parallel()

	emb := &recordingEmbedder{vec: []float32{1, 0}}
	enc, err := NewEncoder(emb, 2)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	if _, err := enc.EncodeDocuments(context.Background(), []string{"some chunk"}); err != nil {
		t.Fatalf("EncodeDocuments: %v", err)
	}
	if emb.texts[0] != "some chunk" {
		t.Errorf("embedded text = %q, document encoding must not carry the query prefix", emb.texts[0])
	}
}

func TestEncode_NormalizesToUnitLength(t *testing.T) {
	t.Parallel()

	emb := &recordingEmbedder{vec: []float32{3, 4}}
	enc, err := NewEncoder(emb, 2)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	vec, err := enc.EncodeQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("EncodeQuery: %v", err)
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("squared norm = %f, want 1", norm)
	}
	// Direction preserved: 3-4-5 triangle normalizes to (0.6, 0.8).
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Errorf("vec = %v, want (0.6, 0.8)", vec)
	}
}

func TestEncode_DimensionMismatchRejected(t *testing.T) {
	t.Parallel()

	emb := &recordingEmbedder{vec: []float32{1, 0, 0}}
	enc, err := NewEncoder(emb, 2)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	if _, err := enc.EncodeQuery(context.Background(), "q"); err == nil {
		t.Error("expected dimension mismatch error on query encoding")
	}
	if _, err := enc.EncodeDocuments(context.Background(), []string{"d"}); err == nil {
		t.Error("expected dimension mismatch error on document encoding")
	}
}

func TestNewEncoder_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewEncoder(nil, 2); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewEncoder(&recordingEmbedder{}, 0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	t.Parallel()

	v := normalize([]float32{0, 0, 0})
	for _, x := range v {
		if x != 0 {
			t.Fatalf("zero vector changed: %v", v)
		}
	}
}
