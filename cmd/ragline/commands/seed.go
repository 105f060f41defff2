package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/ingestion"
	"github.com/ragline/ragline/internal/logging"
)

// NewSeedCmd constructs the `ragline seed` command, which loads the built-in
// sample corpus so a fresh install can be queried immediately.
func NewSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in sample corpus into the vector store",
		Long: `Embed and index the built-in sample documents.

Seeding is idempotent: running it twice overwrites the same records instead
of duplicating them. Use it to smoke-test a fresh deployment before
ingesting real documents.

Examples:
  ragline seed
  QDRANT_HOST=qdrant.internal ragline seed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			_, encoder, err := buildEncoder(log)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			index, err := buildIndex(ctx, encoder.Dimensions(), true, log)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			defer func() { _ = index.Close() }()

			pipeline, err := ingestion.NewPipeline(encoder, index, nil)
			if err != nil {
				return fmt.Errorf("seed: failed to create pipeline: %w", err)
			}

			n, err := pipeline.Seed(ctx)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			log.Info("seed complete", slog.Int("documents", n))
			return nil
		},
	}
}
