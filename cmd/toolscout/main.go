// toolscout is the command line surface of the codiesvibe search pipeline:
// index tool documents into the local store, inspect the domain schema, and
// run agentic searches against it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/foyzulkarim/codiesvibe-search/internal/config"
	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	debug      bool

	// Loaded once in the persistent pre-run
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "toolscout",
	Short: "Agentic hybrid search over the codiesvibe tools directory",
	Long: `toolscout turns natural language queries into validated query plans
and executes them against vector and structured backends.

A query flows through intent extraction, deterministic analysis, LLM
planning, plan validation, and parallel fan-out with rank fusion. Every
stage boundary is schema-validated; vocabulary literals are enforced
exactly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration rejected: %w", err)
		}

		if err := logging.Initialize("."); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		logger.Debug("configuration loaded",
			zap.String("provider", cfg.Embedding.Provider),
			zap.Int("deadline_ms", cfg.Search.DeadlineMS))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "attach intent and plan to search output")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
