package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [path]",
	Short: "Validate and summarize a domain schema",
	Long: `Loads the schema at the given path (or the built-in tools schema when
omitted) and prints its validation result, vocabularies, and collections.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Search.SchemaPath
		if len(args) == 1 {
			path = args[0]
		}

		var s *schema.DomainSchema
		var err error
		if path == "" {
			s = schema.DefaultToolsSchema()
		} else if s, err = schema.Load(path); err != nil {
			return err
		}

		result := s.Validate()
		fmt.Printf("schema: %s %s\n", s.Name, s.Version)
		fmt.Printf("valid:  %v (%d errors, %d warnings)\n", result.Valid, len(result.Errors), len(result.Warnings))
		for _, e := range result.Errors {
			fmt.Printf("  error:   %s\n", e)
		}
		for _, w := range result.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}

		fmt.Println("vocabularies:")
		for _, axis := range schema.KnownAxes {
			fmt.Printf("  %-15s %d values\n", axis, len(s.Vocabulary(axis)))
		}

		fmt.Println("collections:")
		for _, c := range s.VectorCollections {
			state := "enabled"
			if !c.Enabled {
				state = "disabled"
			}
			fmt.Printf("  %-15s dim=%d field=%s (%s)\n", c.Name, c.Dimension, c.EmbeddingField, state)
		}

		fmt.Printf("structured: %s (%s), %d filterable fields\n",
			s.StructuredDatabase.Collection, s.StructuredDatabase.Type, len(s.StructuredDatabase.FilterableFields))
		return nil
	},
}
