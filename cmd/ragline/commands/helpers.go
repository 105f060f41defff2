package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/ragline/ragline/internal/embedder"
	"github.com/ragline/ragline/internal/rag"
)

// buildEncoder constructs the embedding backend and the asymmetric encoder on
// top of it. The embedder is returned separately so callers can register it
// as a readiness probe.
func buildEncoder(log *slog.Logger) (rag.Embedder, *rag.Encoder, error) {
	if err := embedder.ValidatePreflight(log); err != nil {
		return nil, nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")
	dims := getEnvInt("EMBEDDING_DIMENSIONS", embedder.DefaultDimensions(backend))

	encoder, err := rag.NewEncoder(emb, dims)
	if err != nil {
		return nil, nil, err
	}

	log.Info("embedder initialised",
		slog.String("provider", backend),
		slog.Int("dimensions", dims),
	)
	return emb, encoder, nil
}

// buildIndex opens the vector index. When QDRANT_HOST is set (or required is
// true) it connects to Qdrant; otherwise it falls back to a process-local
// in-memory index that loses all data on exit.
func buildIndex(ctx context.Context, dims int, required bool, log *slog.Logger) (rag.Index, error) {
	host := os.Getenv("QDRANT_HOST")
	if host == "" && !required {
		log.Warn("QDRANT_HOST not set, using in-memory index (data is not persisted)")
		return rag.NewMemoryIndex(), nil
	}
	if host == "" {
		host = "localhost"
	}

	port := getEnvInt("QDRANT_PORT", 6334)
	cfg := &rag.QdrantConfig{
		Host:                host,
		Port:                port,
		DocumentsCollection: getEnvOrDefault("QDRANT_DOCUMENTS_COLLECTION", rag.DefaultDocumentsCollection),
		LearnedCollection:   getEnvOrDefault("QDRANT_LEARNED_COLLECTION", rag.DefaultLearnedCollection),
		VectorSize:          uint64(dims), //nolint:gosec // dimensions are bounded
		APIKey:              os.Getenv("QDRANT_API_KEY"),
		UseTLS:              os.Getenv("QDRANT_TLS") == "true",
	}

	index, err := rag.NewQdrantIndex(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant index ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("documents_collection", cfg.DocumentsCollection),
		slog.String("learned_collection", cfg.LearnedCollection),
	)
	return index, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
