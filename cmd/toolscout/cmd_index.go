package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foyzulkarim/codiesvibe-search/internal/embedding"
	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
	"github.com/foyzulkarim/codiesvibe-search/internal/store"
)

// indexedTool is one entry in the index input file: the structured payload
// stored for filtering plus the text to embed per vector collection.
type indexedTool struct {
	ID      string                 `json:"id"`
	Payload map[string]interface{} `json:"payload"`
	Texts   map[string]string      `json:"texts"`
}

var indexCmd = &cobra.Command{
	Use:   "index <tools.json>",
	Short: "Index tool documents into the local store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domainSchema, err := schema.LoadOrDefault(cfg.Search.SchemaPath)
		if err != nil {
			return fmt.Errorf("schema rejected: %w", err)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var tools []indexedTool
		if err := json.Unmarshal(data, &tools); err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}

		embedCfg := embedding.DefaultConfig()
		embedCfg.Provider = cfg.Embedding.Provider
		embedCfg.OllamaEndpoint = cfg.Embedding.OllamaEndpoint
		embedCfg.OllamaModel = cfg.Embedding.OllamaModel
		embedCfg.GenAIAPIKey = cfg.LLM.APIKey
		embedCfg.GenAIModel = cfg.Embedding.GenAIModel
		// Documents are embedded for retrieval, queries against them are not.
		embedCfg.TaskType = "RETRIEVAL_DOCUMENT"
		engine, err := embedding.NewEngine(embedCfg)
		if err != nil {
			return err
		}

		local, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer local.Close()
		local.SetEmbeddingEngine(engine)

		embeddingFields := map[string]string{}
		for _, collection := range domainSchema.EnabledCollections() {
			embeddingFields[collection] = domainSchema.EmbeddingFieldFor(collection)
		}

		indexed := 0
		for _, tool := range tools {
			if tool.ID == "" {
				logger.Warn("skipping tool without id")
				continue
			}
			for collection := range tool.Texts {
				if _, ok := embeddingFields[collection]; !ok {
					return fmt.Errorf("tool %s targets unknown collection %q", tool.ID, collection)
				}
			}
			doc := store.ToolDocument{ID: tool.ID, Payload: tool.Payload, Texts: tool.Texts}
			if err := local.IndexTool(cmd.Context(), domainSchema.StructuredDatabase.Collection, embeddingFields, doc); err != nil {
				return fmt.Errorf("failed to index %s: %w", tool.ID, err)
			}
			indexed++
		}

		stats, _ := local.Stats()
		logger.Info("indexing complete",
			zap.Int("indexed", indexed),
			zap.Any("store", stats))
		fmt.Printf("indexed %d tools into %s\n", indexed, cfg.Store.DatabasePath)
		return nil
	},
}
