package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/ingestion"
	"github.com/ragline/ragline/internal/logging"
)

// NewIngestCmd constructs the `ragline ingest` command, which chunks, embeds,
// and indexes documents into the vector store.
func NewIngestCmd() *cobra.Command {
	var urls []string
	var files []string
	var chunkSize int
	var chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into the vector store",
		Long: `Fetch, chunk, embed, and index documents into the Qdrant vector store.

Ingested documents provide the retrieval context for answering queries.
Re-ingesting the same source overwrites its existing chunks rather than
duplicating them.

Required environment variables:
  QDRANT_HOST              Qdrant server hostname (default: localhost)
  QDRANT_PORT              Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY           Optional API key for authenticated clusters
  EMBEDDING_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*              Provider-specific overrides (see README)

Examples:
  ragline ingest --url https://example.com/docs/getting-started
  ragline ingest --file ./notes/architecture.md --file ./notes/runbook.md
  ragline ingest --url https://example.com/faq --chunk-size 800`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if len(urls) == 0 && len(files) == 0 {
				return fmt.Errorf("ingest: at least one --url or --file is required")
			}

			_, encoder, err := buildEncoder(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			index, err := buildIndex(ctx, encoder.Dimensions(), true, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = index.Close() }()

			pipeline, err := ingestion.NewPipeline(encoder, index, &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			total := 0
			for _, u := range urls {
				n, err := pipeline.IngestURL(ctx, u)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", u, err)
				}
				log.Info("source indexed", slog.String("url", u), slog.Int("chunks", n))
				total += n
			}
			for _, f := range files {
				data, err := os.ReadFile(f)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				n, err := pipeline.IngestText(ctx, filepath.Base(f), string(data))
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", f, err)
				}
				log.Info("source indexed", slog.String("file", f), slog.Int("chunks", n))
				total += n
			}

			log.Info("ingestion complete",
				slog.Int("sources", len(urls)+len(files)),
				slog.Int("chunks", total),
			)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Document URL to ingest (repeatable)")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Local text file to ingest (repeatable)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", ingestion.DefaultChunkSize, "Maximum characters per chunk")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", ingestion.DefaultChunkOverlap, "Characters of overlap between consecutive chunks")

	return cmd
}
