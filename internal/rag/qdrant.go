package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Default collection names, matching the reference deployment.
const (
	// DefaultDocumentsCollection holds ingested text chunks.
	DefaultDocumentsCollection = "rag_documents"
	// DefaultLearnedCollection holds verified question/answer pairs.
	DefaultLearnedCollection = "rag_learned_qa"
)

// QdrantConfig holds connection parameters for a Qdrant-backed Index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// DocumentsCollection is the collection name for document chunks.
	DocumentsCollection string

	// LearnedCollection is the collection name for learned answers.
	LearnedCollection string

	// VectorSize is the dimensionality of the embeddings in both collections.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements Index backed by a Qdrant instance, one collection
// per tier. Both collections share the vector size and cosine metric but are
// otherwise fully independent.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *QdrantConfig
}

// NewQdrantIndex creates a QdrantIndex, ensuring both collections exist
// (creating them if necessary), and returns a ready-to-use Index.
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.DocumentsCollection == "" {
		cfg.DocumentsCollection = DefaultDocumentsCollection
	}
	if cfg.LearnedCollection == "" {
		cfg.LearnedCollection = DefaultLearnedCollection
	}
	if cfg.DocumentsCollection == cfg.LearnedCollection {
		return nil, fmt.Errorf("qdrant: documents and learned collections must be distinct, both are %q", cfg.DocumentsCollection)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: cfg}
	for _, name := range []string{cfg.DocumentsCollection, cfg.LearnedCollection} {
		if err := idx.ensureCollection(ctx, name); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

// ensureCollection creates the named collection if it does not already exist.
func (q *QdrantIndex) ensureCollection(ctx context.Context, name string) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection %q: %w", name, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
	}

	return nil
}

// recreateCollection drops and recreates exactly one collection. The
// existence check distinguishes "collection was absent" (nothing to drop)
// from a genuine deletion failure, which is surfaced.
func (q *QdrantIndex) recreateCollection(ctx context.Context, name string) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection %q: %w", name, err)
	}
	if exists {
		if err := q.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("qdrant: failed to delete collection %q: %w", name, err)
		}
	}
	return q.ensureCollection(ctx, name)
}

// UpsertDocuments stores or overwrites a batch of document chunks in the
// document collection. Numeric IDs are caller-assigned, so a repeated ID is
// an overwrite by contract.
func (q *QdrantIndex) UpsertDocuments(ctx context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("qdrant: %d documents but %d vectors", len(docs), len(vectors))
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		payload := map[string]interface{}{
			"text": doc.Text,
		}
		for k, v := range doc.Metadata {
			payload[k] = v
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(doc.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.DocumentsCollection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: document upsert failed: %w", err)
	}

	return nil
}

// SearchDocuments performs a cosine similarity search over the document
// collection. Qdrant applies both the limit and the score threshold
// server-side and returns results sorted by score descending.
func (q *QdrantIndex) SearchDocuments(ctx context.Context, vector []float32, limit int, threshold float32) ([]Document, error) {
	lim := uint64(limit)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.DocumentsCollection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &lim,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: document search failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := Document{
			ID:       r.Id.GetNum(),
			Score:    r.Score,
			Metadata: make(map[string]string),
		}
		for k, v := range r.Payload {
			if k == "text" {
				doc.Text = v.GetStringValue()
				continue
			}
			doc.Metadata[k] = v.GetStringValue()
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// UpsertLearned stores a learned answer in the learned collection. IDs are
// freshly generated UUIDs, so records accumulate rather than overwrite —
// repeated reinforcement of the same question is intentional.
func (q *QdrantIndex) UpsertLearned(ctx context.Context, rec LearnedAnswer, vector []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(rec.ID),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"query":  rec.Query,
			"answer": rec.Answer,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.LearnedCollection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("qdrant: learned upsert failed: %w", err)
	}

	return nil
}

// SearchLearned returns the single most similar learned answer at or above
// threshold, or nil when no past query is close enough.
func (q *QdrantIndex) SearchLearned(ctx context.Context, vector []float32, threshold float32) (*LearnedAnswer, error) {
	lim := uint64(1)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.LearnedCollection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &lim,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: learned search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	r := results[0]
	rec := &LearnedAnswer{
		ID:    r.Id.GetUuid(),
		Score: r.Score,
	}
	if v, ok := r.Payload["query"]; ok {
		rec.Query = v.GetStringValue()
	}
	if v, ok := r.Payload["answer"]; ok {
		rec.Answer = v.GetStringValue()
	}

	return rec, nil
}

// ClearDocuments resets the document collection. The learned collection is
// never touched.
func (q *QdrantIndex) ClearDocuments(ctx context.Context) error {
	return q.recreateCollection(ctx, q.cfg.DocumentsCollection)
}

// ClearLearned resets the learned collection. The document collection is
// never touched.
func (q *QdrantIndex) ClearLearned(ctx context.Context) error {
	return q.recreateCollection(ctx, q.cfg.LearnedCollection)
}

// Ping calls the Qdrant HealthCheck RPC.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
