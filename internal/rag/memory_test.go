package rag

import (
	"context"
	"testing"
)

func TestMemoryIndex_UpsertOverwritesByID(t *testing.T) {
	t.Parallel()
	m := NewMemoryIndex()
	ctx := context.Background()

	docs := []Document{{ID: 1, Text: "first"}}
	if err := m.UpsertDocuments(ctx, docs, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	docs[0].Text = "second"
	if err := m.UpsertDocuments(ctx, docs, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	if m.DocumentCount() != 1 {
		t.Fatalf("DocumentCount = %d, want 1", m.DocumentCount())
	}
	hits, err := m.SearchDocuments(ctx, []float32{1, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "second" {
		t.Errorf("hits = %+v, want single overwritten doc", hits)
	}
}

func TestMemoryIndex_SearchThresholdAndOrder(t *testing.T) {
	t.Parallel()
	m := NewMemoryIndex()
	ctx := context.Background()

	docs := []Document{
		{ID: 1, Text: "exact"},
		{ID: 2, Text: "close"},
		{ID: 3, Text: "orthogonal"},
	}
	vecs := [][]float32{{1, 0}, {0.8, 0.6}, {0, 1}}
	if err := m.UpsertDocuments(ctx, docs, vecs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := m.SearchDocuments(ctx, []float32{1, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits above threshold, got %d", len(hits))
	}
	if hits[0].ID != 1 || hits[1].ID != 2 {
		t.Errorf("hits not sorted by score desc: %+v", hits)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("scores not descending: %f, %f", hits[0].Score, hits[1].Score)
	}
}

func TestMemoryIndex_SearchLimit(t *testing.T) {
	t.Parallel()
	m := NewMemoryIndex()
	ctx := context.Background()

	var docs []Document
	var vecs [][]float32
	for i := uint64(1); i <= 5; i++ {
		docs = append(docs, Document{ID: i, Text: "doc"})
		vecs = append(vecs, []float32{1, 0})
	}
	if err := m.UpsertDocuments(ctx, docs, vecs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := m.SearchDocuments(ctx, []float32{1, 0}, 3, 0.5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("want 3 hits with limit 3, got %d", len(hits))
	}
}

func TestMemoryIndex_LearnedBestMatchOnly(t *testing.T) {
	t.Parallel()
	m := NewMemoryIndex()
	ctx := context.Background()

	recs := []struct {
		rec LearnedAnswer
		vec []float32
	}{
		{LearnedAnswer{ID: "a", Answer: "close"}, []float32{0.8, 0.6}},
		{LearnedAnswer{ID: "b", Answer: "closest"}, []float32{1, 0}},
	}
	for _, r := range recs {
		if err := m.UpsertLearned(ctx, r.rec, r.vec); err != nil {
			t.Fatalf("upsert learned: %v", err)
		}
	}

	hit, err := m.SearchLearned(ctx, []float32{1, 0}, 0.75)
	if err != nil {
		t.Fatalf("search learned: %v", err)
	}
	if hit == nil || hit.ID != "b" {
		t.Fatalf("hit = %+v, want record b", hit)
	}

	// Below threshold yields nil, not an error.
	miss, err := m.SearchLearned(ctx, []float32{0, 1}, 0.75)
	if err != nil {
		t.Fatalf("search learned: %v", err)
	}
	if miss != nil {
		t.Errorf("miss = %+v, want nil below threshold", miss)
	}
}

func TestMemoryIndex_ClearCollectionsIndependent(t *testing.T) {
	t.Parallel()
	m := NewMemoryIndex()
	ctx := context.Background()

	if err := m.UpsertDocuments(ctx, []Document{{ID: 1, Text: "d"}}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("upsert docs: %v", err)
	}
	if err := m.UpsertLearned(ctx, LearnedAnswer{ID: "a"}, []float32{1, 0}); err != nil {
		t.Fatalf("upsert learned: %v", err)
	}

	if err := m.ClearDocuments(ctx); err != nil {
		t.Fatalf("clear documents: %v", err)
	}
	if m.DocumentCount() != 0 {
		t.Error("documents should be cleared")
	}
	if m.LearnedCount() != 1 {
		t.Error("clearing documents must not touch learned answers")
	}

	if err := m.UpsertDocuments(ctx, []Document{{ID: 2, Text: "d2"}}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("upsert docs: %v", err)
	}
	if err := m.ClearLearned(ctx); err != nil {
		t.Fatalf("clear learned: %v", err)
	}
	if m.LearnedCount() != 0 {
		t.Error("learned answers should be cleared")
	}
	if m.DocumentCount() != 1 {
		t.Error("clearing learned answers must not touch documents")
	}
}

func TestMemoryIndex_VectorCountMismatch(t *testing.T) {
	t.Parallel()
	m := NewMemoryIndex()

	err := m.UpsertDocuments(context.Background(), []Document{{ID: 1}}, nil)
	if err == nil {
		t.Fatal("expected error when vectors are not parallel to docs")
	}
}
