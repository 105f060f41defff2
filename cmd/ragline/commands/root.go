// Package commands defines all Cobra CLI commands for the ragline binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ragline/ragline/internal/audit"
	"github.com/ragline/ragline/internal/config"
	"github.com/ragline/ragline/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragline",
		Short: "ragline — a self-improving retrieval-augmented answer service",
		Long: `ragline answers questions against your own document corpus.

Documents are chunked, embedded, and stored in a vector index. Queries are
answered by an LLM grounded on the most relevant chunks, and answers that
users mark as good are saved so near-duplicate questions are answered
instantly without calling the model again.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.ragline/config.yaml).
See 'ragline --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Pick up a local .env if present. Real env vars still win.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragline/config.yaml)")

	root.AddCommand(
		NewQueryCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewSeedCmd(),
		NewVersionCmd(),
	)

	return root
}
