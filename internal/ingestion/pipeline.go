// Package ingestion implements the document ingestion pipeline: raw text or
// fetched pages are chunked, encoded with the document-side embedding, and
// upserted into the document collection. The pipeline serves both the upload
// API and the `ragline ingest` / `ragline seed` CLI commands.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ragline/ragline/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1500 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Defaults to 200 if zero.
	ChunkOverlap int

	// HTTPTimeout is the timeout for each page fetch request.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Pipeline orchestrates the chunk → encode → upsert flow.
type Pipeline struct {
	// encoder produces document-side embeddings for the chunks.
	encoder *rag.Encoder

	// index persists the encoded chunks.
	index rag.Index

	// chunker splits raw text into overlapping chunks.
	chunker *Chunker

	// httpClient fetches remote pages for URL ingestion.
	httpClient *http.Client

	// userAgent is sent with every fetch request.
	userAgent string
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(encoder *rag.Encoder, index rag.Index, cfg *Config) (*Pipeline, error) {
	if encoder == nil {
		return nil, fmt.Errorf("ingestion: encoder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ragline/1.0 (document ingestion)"
	}

	return &Pipeline{
		encoder:    encoder,
		index:      index,
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		userAgent:  cfg.UserAgent,
	}, nil
}

// AddDocuments encodes and upserts pre-chunked texts with caller-assigned
// IDs. texts and ids must be parallel; metadata may be nil or parallel.
// Re-submitting an existing ID overwrites that record.
func (p *Pipeline) AddDocuments(ctx context.Context, texts []string, ids []uint64, metadata []map[string]string) error {
	if len(texts) != len(ids) {
		return fmt.Errorf("ingestion: %d texts but %d ids", len(texts), len(ids))
	}
	if metadata != nil && len(metadata) != len(texts) {
		return fmt.Errorf("ingestion: %d texts but %d metadata entries", len(texts), len(metadata))
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := p.encoder.EncodeDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("ingestion: %w", err)
	}

	docs := make([]rag.Document, len(texts))
	for i, text := range texts {
		docs[i] = rag.Document{ID: ids[i], Text: text}
		if metadata != nil {
			docs[i].Metadata = metadata[i]
		}
	}
	if err := p.index.UpsertDocuments(ctx, docs, vectors); err != nil {
		return fmt.Errorf("ingestion: upsert failed: %w", err)
	}
	return nil
}

// IngestText chunks a single body of text and upserts the chunks under IDs
// derived from the source name and chunk index. It returns the number of
// chunks stored.
func (p *Pipeline) IngestText(ctx context.Context, source, text string) (int, error) {
	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	ids := make([]uint64, len(chunks))
	metadata := make([]map[string]string, len(chunks))
	for i := range chunks {
		ids[i] = chunkID(source, i)
		metadata[i] = map[string]string{
			"source":      source,
			"chunk_index": fmt.Sprintf("%d", i),
		}
	}
	if err := p.AddDocuments(ctx, chunks, ids, metadata); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// IngestURL fetches a page and ingests its body as text, keyed by the URL.
// It returns the number of chunks stored.
func (p *Pipeline) IngestURL(ctx context.Context, url string) (int, error) {
	content, err := p.fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("ingestion: fetch failed for %s: %w", url, err)
	}
	return p.IngestText(ctx, url, content)
}

// fetch retrieves the raw text content of a URL.
func (p *Pipeline) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/plain, text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}

// chunkID derives a stable numeric ID from the source name and chunk index,
// so re-ingesting the same source overwrites rather than duplicates.
func chunkID(source string, index int) uint64 {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, index)))
	return binary.BigEndian.Uint64(h[:8])
}
