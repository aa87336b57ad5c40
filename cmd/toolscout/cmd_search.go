package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foyzulkarim/codiesvibe-search/internal/embedding"
	"github.com/foyzulkarim/codiesvibe-search/internal/executor"
	"github.com/foyzulkarim/codiesvibe-search/internal/intent"
	"github.com/foyzulkarim/codiesvibe-search/internal/llm"
	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
	"github.com/foyzulkarim/codiesvibe-search/internal/planner"
	"github.com/foyzulkarim/codiesvibe-search/internal/prompts"
	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
	"github.com/foyzulkarim/codiesvibe-search/internal/search"
	"github.com/foyzulkarim/codiesvibe-search/internal/store"
)

var interactive bool

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run an agentic search against the indexed tools",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, cleanup, err := buildPipeline()
		if err != nil {
			return err
		}
		defer cleanup()

		if interactive {
			return runInteractive(cmd.Context(), pipeline)
		}
		if len(args) == 0 {
			return fmt.Errorf("provide a query or use --interactive")
		}
		return runOnce(cmd.Context(), pipeline, strings.Join(args, " "))
	},
}

func init() {
	searchCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read queries from stdin until EOF")
}

// buildPipeline assembles the full stack from configuration: schema,
// prompts, LLM client, embedding engine, local store, executor, and the
// pipeline itself.
func buildPipeline() (*search.Pipeline, func(), error) {
	domainSchema, err := schema.LoadOrDefault(cfg.Search.SchemaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("schema rejected: %w", err)
	}

	generator := prompts.NewGenerator(domainSchema)

	if cfg.LLM.APIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is required for search")
	}
	client := llm.NewGeminiClient(cfg.LLM.APIKey)

	embedCfg := embedding.DefaultConfig()
	embedCfg.Provider = cfg.Embedding.Provider
	embedCfg.OllamaEndpoint = cfg.Embedding.OllamaEndpoint
	embedCfg.OllamaModel = cfg.Embedding.OllamaModel
	embedCfg.GenAIAPIKey = cfg.LLM.APIKey
	embedCfg.GenAIModel = cfg.Embedding.GenAIModel
	engine, err := embedding.NewEngine(embedCfg)
	if err != nil {
		return nil, nil, err
	}

	local, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	audit, err := logging.NewAuditTrail(".")
	if err != nil {
		logger.Warn("audit trail disabled", zap.Error(err))
		audit = nil
	}

	pipeline := search.New(
		intent.NewExtractor(client, domainSchema, generator.IntentPrompt(), cfg.Search.ConfidenceFloor),
		planner.NewPlanner(client, domainSchema, generator.PlanningPrompt()),
		executor.New(local, local, engine, local, executor.DefaultConfig()),
		audit,
		search.Config{
			Deadline:       cfg.Deadline(),
			ScoreThreshold: cfg.Search.ScoreThreshold,
			EnableCache:    cfg.Search.EnableCache,
			CacheTTL:       cfg.CacheTTL(),
		},
	)

	cleanup := func() {
		local.Close()
		if audit != nil {
			audit.Close()
		}
	}
	return pipeline, cleanup, nil
}

func runOnce(ctx context.Context, pipeline *search.Pipeline, query string) error {
	response, err := pipeline.Search(ctx, query, search.Options{Debug: debug})
	if err != nil {
		return err
	}
	fmt.Print(renderResponse(response, debug))
	return nil
}

// runInteractive reads one query per line until EOF. A schema watcher warns
// when the schema file changes on disk so the operator knows a restart is
// needed.
func runInteractive(ctx context.Context, pipeline *search.Pipeline) error {
	if cfg.Search.SchemaPath != "" {
		stop, err := schema.Watch(cfg.Search.SchemaPath)
		if err != nil {
			logger.Warn("schema watch unavailable", zap.Error(err))
		} else {
			defer stop()
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("toolscout interactive mode. Enter a query, or Ctrl-D to exit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if err := runOnce(ctx, pipeline, query); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return scanner.Err()
}
