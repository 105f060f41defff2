package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ragline/ragline/internal/rag"
)

// fakeEmbedder returns canned vectors keyed by text. Query encoding prepends
// the retrieval prefix, so lookups strip it first. Unknown texts get a vector
// orthogonal to everything in the table.
type fakeEmbedder struct {
	vecs map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		key := strings.TrimPrefix(text, rag.QueryPrefix)
		if v, ok := f.vecs[key]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

// stubGenerator records the prompt it was handed and returns a fixed answer
// or error.
type stubGenerator struct {
	answer string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func newTestEngine(t *testing.T, gen *stubGenerator) (*Engine, *rag.MemoryIndex) {
	t.Helper()

	emb := &fakeEmbedder{vecs: map[string][]float32{
		"what is qdrant":   {1, 0, 0},
		"what's qdrant":    {0.99, 0.141, 0},
		"unrelated topic":  {0, 1, 0},
		"qdrant stores high-dimensional embeddings": {0.9, 0.436, 0},
	}}
	encoder, err := rag.NewEncoder(emb, 3)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	index := rag.NewMemoryIndex()
	cfg := &Config{Encoder: encoder, Index: index}
	if gen != nil {
		cfg.Generator = gen
	}
	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng, index
}

func seedDocument(t *testing.T, eng *Engine, index *rag.MemoryIndex, id uint64, text string) {
	t.Helper()
	vecs, err := eng.encoder.EncodeDocuments(context.Background(), []string{text})
	if err != nil {
		t.Fatalf("EncodeDocuments: %v", err)
	}
	docs := []rag.Document{{ID: id, Text: text}}
	if err := index.UpsertDocuments(context.Background(), docs, vecs); err != nil {
		t.Fatalf("UpsertDocuments: %v", err)
	}
}

func TestAnswer_ReturnsGeneratedAnswerAndCaches(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{answer: "Qdrant is a vector database."}
	eng, index := newTestEngine(t, gen)
	seedDocument(t, eng, index, 1, "qdrant stores high-dimensional embeddings")

	res, err := eng.Answer(context.Background(), "what is qdrant")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Answer != "Qdrant is a vector database." {
		t.Errorf("Answer = %q", res.Answer)
	}
	if res.InteractionID == "" || res.InteractionID == SentinelInteractionID {
		t.Errorf("InteractionID = %q, want fresh UUID", res.InteractionID)
	}

	entry, ok := eng.Cache().Get(res.InteractionID)
	if !ok {
		t.Fatal("interaction not cached")
	}
	if entry.Query != "what is qdrant" || entry.Answer != res.Answer {
		t.Errorf("cached entry mismatch: %+v", entry)
	}

	if !strings.Contains(gen.prompt, "qdrant stores high-dimensional embeddings") {
		t.Errorf("prompt missing retrieved context:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Query: what is qdrant") {
		t.Errorf("prompt missing query:\n%s", gen.prompt)
	}
}

func TestAnswer_EmptyRetrievalStillGenerates(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{answer: "I don't know based on the context."}
	eng, _ := newTestEngine(t, gen)

	res, err := eng.Answer(context.Background(), "unrelated topic")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Answer == "" {
		t.Error("expected an answer even with zero retrieved documents")
	}
	if !strings.Contains(gen.prompt, "Context:\n\n") {
		t.Errorf("expected empty context block in prompt:\n%s", gen.prompt)
	}
}

func TestAnswer_NoCredentialReturnsSentinel(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, nil)

	res, err := eng.Answer(context.Background(), "what is qdrant")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.InteractionID != SentinelInteractionID {
		t.Errorf("InteractionID = %q, want %q", res.InteractionID, SentinelInteractionID)
	}
	if !strings.Contains(res.Answer, "credential") {
		t.Errorf("Answer = %q, want instructive credential message", res.Answer)
	}
	if eng.Cache().Len() != 0 {
		t.Error("sentinel interaction must not be cached")
	}
}

func TestAnswer_GenerationFailureDegrades(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: errors.New("all backends down")}
	eng, _ := newTestEngine(t, gen)

	res, err := eng.Answer(context.Background(), "what is qdrant")
	if err != nil {
		t.Fatalf("Answer: %v (generation failure must not be fatal)", err)
	}
	if !strings.Contains(res.Answer, "Error generating response") {
		t.Errorf("Answer = %q, want synthetic error answer", res.Answer)
	}
	// The degraded interaction is still cached so feedback on it resolves.
	if _, ok := eng.Cache().Get(res.InteractionID); !ok {
		t.Error("degraded interaction should still be cached")
	}
}

func TestAnswer_LearnedHintAugmentsPrompt(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{answer: "ok"}
	eng, index := newTestEngine(t, gen)

	// Store a verified answer under the query embedding, then ask a
	// near-duplicate question that clears the 0.75 similarity bar.
	vec, err := eng.encoder.EncodeQuery(context.Background(), "what is qdrant")
	if err != nil {
		t.Fatalf("EncodeQuery: %v", err)
	}
	rec := rag.LearnedAnswer{ID: "learned-1", Query: "what is qdrant", Answer: "A vector database."}
	if err := index.UpsertLearned(context.Background(), rec, vec); err != nil {
		t.Fatalf("UpsertLearned: %v", err)
	}

	res, err := eng.Answer(context.Background(), "what's qdrant")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(gen.prompt, "[Previous Verified Answer]: A vector database.") {
		t.Errorf("prompt missing verified-answer hint:\n%s", gen.prompt)
	}
	if !res.LearnedHit {
		t.Error("LearnedHit = false, want true")
	}
}

func TestAnswer_DissimilarLearnedRecordIgnored(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{answer: "ok"}
	eng, index := newTestEngine(t, gen)

	vec, err := eng.encoder.EncodeQuery(context.Background(), "unrelated topic")
	if err != nil {
		t.Fatalf("EncodeQuery: %v", err)
	}
	rec := rag.LearnedAnswer{ID: "learned-1", Query: "unrelated topic", Answer: "Something else."}
	if err := index.UpsertLearned(context.Background(), rec, vec); err != nil {
		t.Fatalf("UpsertLearned: %v", err)
	}

	res, err := eng.Answer(context.Background(), "what is qdrant")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if strings.Contains(gen.prompt, "[Previous Verified Answer]") {
		t.Errorf("dissimilar learned record leaked into prompt:\n%s", gen.prompt)
	}
	if res.LearnedHit {
		t.Error("LearnedHit = true, want false")
	}
}

func TestNew_NegativeThresholdDisablesFiltering(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{answer: "ok"}
	emb := &fakeEmbedder{vecs: map[string][]float32{
		"what is qdrant":  {1, 0, 0},
		"unrelated topic": {0, 1, 0},
	}}
	encoder, err := rag.NewEncoder(emb, 3)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	index := rag.NewMemoryIndex()

	// Zero means unset and selects the defaults; a negative threshold is the
	// explicit way to switch similarity filtering off.
	eng, err := New(&Config{
		Encoder:           encoder,
		Index:             index,
		Generator:         gen,
		DocumentThreshold: -1,
		LearnedThreshold:  -1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seedDocument(t, eng, index, 1, "unrelated topic")

	if _, err := eng.Answer(context.Background(), "what is qdrant"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(gen.prompt, "unrelated topic") {
		t.Errorf("zero-similarity document excluded with filtering disabled:\n%s", gen.prompt)
	}
}
