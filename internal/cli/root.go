// Package cli wires configuration and adapters into the docqa commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Question answering over your own documents",
	Long: `docqa ingests local documents, indexes them as vector embeddings,
and answers questions grounded in the indexed content with citations.

Example usage:
  docqa ingest ./docs              # Index a directory of documents
  docqa ask "how do I configure X" # Ask a question over the corpus
  docqa list                       # Show indexed documents`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// API keys commonly live in a local .env during development.
		_ = godotenv.Load()

		var err error
		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log = newLogger(cfg.Logging.Level)
		slog.SetDefault(log)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docqa.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
