package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/engine"
	"github.com/ragline/ragline/internal/ingestion"
	"github.com/ragline/ragline/internal/logging"
	"github.com/ragline/ragline/internal/provider"
	"github.com/ragline/ragline/internal/rag"
	"github.com/ragline/ragline/internal/server"
	"github.com/ragline/ragline/internal/store"
	"github.com/ragline/ragline/internal/tracing"
)

// NewServeCmd constructs the `ragline serve` command, which starts the HTTP
// server exposing the query, feedback, and document management API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ragline HTTP server",
		Long: `Start the ragline HTTP server on localhost.

The server exposes the REST API for querying the document corpus, submitting
answer feedback, and managing documents. Without a generation credential the
server still starts: queries are answered with a configuration hint instead
of a model response.

Examples:
  ragline serve
  ragline serve --port 9090
  MODEL_PROVIDER=openai ragline serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			emb, encoder, err := buildEncoder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			index, err := buildIndex(ctx, encoder.Dimensions(), false, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = index.Close() }()

			generator := buildGenerator(ctx, log)

			// Open the interaction journal. RAGLINE_JOURNAL_DB overrides the
			// default path (~/.ragline/journal.db). Set to "disabled" to skip.
			var journal *store.SQLiteJournal
			dbPath := os.Getenv("RAGLINE_JOURNAL_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("journal: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					j, jErr := store.Open(dbPath)
					if jErr != nil {
						log.Warn("journal: failed to open, disabling", slog.Any("error", jErr))
					} else {
						journal = j
						defer func() { _ = j.Close() }()
						log.Info("journal: opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("journal: disabled via RAGLINE_JOURNAL_DB=disabled")
			}

			engCfg := &engine.Config{
				Encoder:           encoder,
				Index:             index,
				Generator:         generator,
				DocumentThreshold: getEnvFloat32("RETRIEVAL_DOCUMENT_THRESHOLD", 0),
				LearnedThreshold:  getEnvFloat32("RETRIEVAL_LEARNED_THRESHOLD", 0),
				SearchLimit:       getEnvInt("RETRIEVAL_SEARCH_LIMIT", 0),
				CacheCapacity:     getEnvInt("INTERACTION_CACHE_CAPACITY", 0),
				MaxContextTokens:  getEnvInt("MAX_CONTEXT_TOKENS", 0),
			}
			if journal != nil {
				engCfg.Journal = journal
			}

			eng, err := engine.New(engCfg)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise engine: %w", err)
			}

			pipeline, err := ingestion.NewPipeline(encoder, index, nil)
			if err != nil {
				return fmt.Errorf("serve: failed to create ingestion pipeline: %w", err)
			}

			deps := &server.Dependencies{
				Engine:   eng,
				Pipeline: pipeline,
				Admin:    index,
			}
			if journal != nil {
				deps.History = journal
			}

			srv, err := server.New(deps, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: buildPingers(index, emb),
				APIKey:  os.Getenv("RAGLINE_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}

// buildGenerator initialises the generation provider. A missing credential is
// not fatal: the engine runs degraded and answers with a configuration hint,
// so the server can come up before keys are provisioned.
func buildGenerator(ctx context.Context, log *slog.Logger) provider.Generator {
	gen, err := provider.NewFromEnv(ctx)
	if err != nil {
		if errors.Is(err, provider.ErrNoCredential) {
			log.Warn("generation disabled", slog.Any("error", err))
			return nil
		}
		log.Warn("generation unavailable", slog.Any("error", err))
		return nil
	}
	primary, fallback := provider.ConfigFromEnv().ModelNames()
	log.Info("provider initialised",
		slog.String("primary_model", primary),
		slog.String("fallback_model", fallback),
	)
	return gen
}

// buildPingers assembles the readiness probes for /api/ready: the vector
// index and the embedding backend. The generation provider is deliberately
// not probed — a ping would burn tokens on every readiness check.
func buildPingers(index rag.Index, emb rag.Embedder) []server.Pinger {
	name := "qdrant"
	if _, ok := index.(*rag.MemoryIndex); ok {
		name = "memory-index"
	}
	return []server.Pinger{
		server.NewIndexPinger(index, name),
		server.NewEmbedderPinger(emb, "embedder"),
	}
}
