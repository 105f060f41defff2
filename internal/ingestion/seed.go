package ingestion

import "context"

// seedCorpus is the built-in demo corpus installed by Seed. It is small on
// purpose: enough to exercise retrieval, the learned-answer loop, and the
// similarity thresholds without external data.
var seedCorpus = []string{
	"Retrieval-Augmented Generation (RAG) combines a document retriever with a language model so answers are grounded in stored knowledge.",
	"Vector databases like Qdrant are essential for storing high-dimensional embeddings.",
	"Embeddings map text into a dense vector space where semantically similar texts lie close together.",
	"Cosine similarity measures the angle between two vectors and is the standard metric for comparing normalized embeddings.",
	"A similarity threshold filters out retrieved results that are not relevant enough to the query.",
	"Caching verified answers lets a system return consistent responses to questions it has already answered well.",
	"User feedback signals which generated answers are worth keeping and which should be discarded.",
	"Chunking long documents with overlap preserves context that would otherwise be lost at chunk boundaries.",
}

// Seed upserts the built-in demo corpus, one document per entry. It returns
// the number of documents stored. Seeding is idempotent: IDs derive from the
// corpus content, so repeated seeds overwrite in place.
func (p *Pipeline) Seed(ctx context.Context) (int, error) {
	ids := make([]uint64, len(seedCorpus))
	metadata := make([]map[string]string, len(seedCorpus))
	for i := range seedCorpus {
		ids[i] = chunkID("seed", i)
		metadata[i] = map[string]string{"source": "seed"}
	}
	if err := p.AddDocuments(ctx, seedCorpus, ids, metadata); err != nil {
		return 0, err
	}
	return len(seedCorpus), nil
}
