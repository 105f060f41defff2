// Package rag defines the interfaces for the retrieval-and-learning engine's
// collaborators: text embedding and the two-collection vector index (document
// chunks plus learned answers). Concrete implementations (Qdrant, in-memory)
// satisfy these interfaces so the engine never depends on a specific backend
// or on a particular client API version.
package rag

import (
	"context"
)

// Document represents a unit of ingested knowledge stored in the document index.
type Document struct {
	// ID is the caller-assigned numeric identifier, unique within the
	// document collection. Re-upserting the same ID overwrites the record.
	ID uint64

	// Text is the raw chunk text. It is both embedded and stored as payload.
	Text string

	// Metadata holds arbitrary key-value pairs (filename, chunk index, etc.).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// LearnedAnswer is a previously verified question/answer pair. The vector
// stored for it is the embedding of Query; Answer is payload only and is
// never embedded.
type LearnedAnswer struct {
	// ID is the system-generated unique identifier (UUID).
	ID string

	// Query is the original question text, kept for reference.
	Query string

	// Answer is the verified answer text returned on a similarity hit.
	Answer string

	// Score is the similarity score assigned during retrieval.
	Score float32
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the vector index consumed by the engine. It owns two independent
// collections: document chunks and learned answers. Clearing one collection
// must never affect the other. Implementations must be safe to call from
// multiple goroutines; concurrent upserts to the same ID resolve as
// last-writer-wins.
type Index interface {
	// UpsertDocuments stores or overwrites a batch of document chunks.
	// vectors must be parallel to docs — vectors[i] is the embedding of docs[i].
	UpsertDocuments(ctx context.Context, docs []Document, vectors [][]float32) error

	// SearchDocuments returns up to limit documents whose cosine similarity
	// to vector is at least threshold, sorted by score descending.
	// An empty result is valid, not an error.
	SearchDocuments(ctx context.Context, vector []float32, limit int, threshold float32) ([]Document, error)

	// UpsertLearned stores a learned answer under its own fresh ID.
	// vector must be the query-encoded embedding of rec.Query.
	UpsertLearned(ctx context.Context, rec LearnedAnswer, vector []float32) error

	// SearchLearned returns the single best learned answer at or above
	// threshold, or nil when there is no sufficiently similar past query.
	SearchLearned(ctx context.Context, vector []float32, threshold float32) (*LearnedAnswer, error)

	// ClearDocuments resets the document collection only.
	ClearDocuments(ctx context.Context) error

	// ClearLearned resets the learned-answer collection only.
	ClearLearned(ctx context.Context) error

	// Ping checks whether the index backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the index.
	Close() error
}
