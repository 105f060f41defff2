package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryIndex implements Index with brute-force cosine similarity over
// in-process slices. It is the default backend when no Qdrant host is
// configured and the backbone of hermetic tests. Vectors are assumed
// L2-normalized, so similarity is a plain dot product.
type MemoryIndex struct {
	mu sync.RWMutex

	// docs maps document ID to its record; docVectors is keyed the same way
	// so a repeated ID overwrites in place.
	docs       map[uint64]Document
	docVectors map[uint64][]float32

	// learned records accumulate append-only; duplicates are expected.
	learned        []LearnedAnswer
	learnedVectors [][]float32
}

// NewMemoryIndex constructs an empty MemoryIndex with both collections ready.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		docs:       make(map[uint64]Document),
		docVectors: make(map[uint64][]float32),
	}
}

// UpsertDocuments stores or overwrites document chunks by ID.
func (m *MemoryIndex) UpsertDocuments(_ context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("rag: %d documents but %d vectors", len(docs), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, doc := range docs {
		m.docs[doc.ID] = doc
		m.docVectors[doc.ID] = vectors[i]
	}
	return nil
}

// SearchDocuments returns up to limit documents scoring at or above
// threshold, sorted by score descending.
func (m *MemoryIndex) SearchDocuments(_ context.Context, vector []float32, limit int, threshold float32) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []Document
	for id, v := range m.docVectors {
		score := dot(v, vector)
		if score < threshold {
			continue
		}
		doc := m.docs[id]
		doc.Score = score
		hits = append(hits, doc)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// UpsertLearned appends a learned answer. Records are never overwritten.
func (m *MemoryIndex) UpsertLearned(_ context.Context, rec LearnedAnswer, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.learned = append(m.learned, rec)
	m.learnedVectors = append(m.learnedVectors, vector)
	return nil
}

// SearchLearned returns the best learned answer at or above threshold, or nil.
func (m *MemoryIndex) SearchLearned(_ context.Context, vector []float32, threshold float32) (*LearnedAnswer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	best := -1
	var bestScore float32
	for i, v := range m.learnedVectors {
		score := dot(v, vector)
		if score < threshold {
			continue
		}
		if best == -1 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best == -1 {
		return nil, nil
	}
	rec := m.learned[best]
	rec.Score = bestScore
	return &rec, nil
}

// ClearDocuments resets the document collection only.
func (m *MemoryIndex) ClearDocuments(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[uint64]Document)
	m.docVectors = make(map[uint64][]float32)
	return nil
}

// ClearLearned resets the learned collection only.
func (m *MemoryIndex) ClearLearned(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.learned = nil
	m.learnedVectors = nil
	return nil
}

// LearnedCount returns the number of learned records. Used by tests and the
// readiness diagnostics.
func (m *MemoryIndex) LearnedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.learned)
}

// DocumentCount returns the number of stored document chunks.
func (m *MemoryIndex) DocumentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Ping always succeeds — the index lives in this process.
func (m *MemoryIndex) Ping(context.Context) error { return nil }

// Close is a no-op for the in-memory index.
func (m *MemoryIndex) Close() error { return nil }

// dot computes the inner product of two equal-length vectors. Shorter input
// bounds the loop defensively when lengths differ.
func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
