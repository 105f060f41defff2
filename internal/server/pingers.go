package server

import (
	"context"
	"fmt"

	"github.com/ragline/ragline/internal/rag"
)

// IndexPinger probes the vector index backend. It satisfies the Pinger
// interface and is used by GET /api/ready.
type IndexPinger struct {
	// index is the vector index to probe.
	index rag.Index
	// name identifies the backend in readiness responses (e.g. "qdrant").
	name string
}

// NewIndexPinger constructs an IndexPinger for the given index and label.
func NewIndexPinger(index rag.Index, name string) *IndexPinger {
	return &IndexPinger{index: index, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *IndexPinger) Name() string { return p.name }

// Ping delegates to the index's own health check.
func (p *IndexPinger) Ping(ctx context.Context) error {
	if err := p.index.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// EmbedderPinger probes the embedding backend with a single short embed call.
// Remote backends bill per token, so the probe text is one word.
type EmbedderPinger struct {
	// embedder is the embedding backend to probe.
	embedder rag.Embedder
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embedder and label.
func NewEmbedderPinger(embedder rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: embedder, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds a one-word probe and checks a non-empty vector came back.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vecs, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed probe failed: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("embed probe returned empty vector")
	}
	return nil
}
