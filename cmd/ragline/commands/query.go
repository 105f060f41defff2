package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/engine"
	"github.com/ragline/ragline/internal/logging"
)

// NewQueryCmd constructs the `ragline query` command, which answers a single
// question against the indexed corpus and prints the result to stdout.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a single question against the indexed corpus",
		Long: `Answer one question using retrieval-augmented generation.

The question is embedded, matched against previously learned answers and the
document index, and answered by the configured model provider grounded on
the retrieved context.

Examples:
  ragline query "what is qdrant used for?"
  MODEL_PROVIDER=openai ragline query "summarise the architecture notes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			_, encoder, err := buildEncoder(log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			index, err := buildIndex(ctx, encoder.Dimensions(), true, log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer func() { _ = index.Close() }()

			eng, err := engine.New(&engine.Config{
				Encoder:           encoder,
				Index:             index,
				Generator:         buildGenerator(ctx, log),
				DocumentThreshold: getEnvFloat32("RETRIEVAL_DOCUMENT_THRESHOLD", 0),
				LearnedThreshold:  getEnvFloat32("RETRIEVAL_LEARNED_THRESHOLD", 0),
				SearchLimit:       getEnvInt("RETRIEVAL_SEARCH_LIMIT", 0),
			})
			if err != nil {
				return fmt.Errorf("query: failed to initialise engine: %w", err)
			}

			res, err := eng.Answer(ctx, args[0])
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			fmt.Fprintln(os.Stdout, res.Answer)
			log.Debug("query answered", slog.String("interaction_id", res.InteractionID))
			return nil
		},
	}

	return cmd
}
