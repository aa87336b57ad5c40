// Package prompts generates the intent-extraction and query-planning system
// prompts from the domain schema. Generation is pure text substitution: for a
// fixed schema the output is byte-identical across runs.
package prompts

import (
	"fmt"
	"strings"

	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
)

// Generator renders system prompts from a domain schema.
type Generator struct {
	schema *schema.DomainSchema
}

// NewGenerator creates a prompt generator bound to a schema.
func NewGenerator(s *schema.DomainSchema) *Generator {
	return &Generator{schema: s}
}

// =============================================================================
// INTENT EXTRACTION PROMPT
// =============================================================================

const intentTemplate = `You are the intent extractor for the {{SCHEMA_NAME}} tool directory.
Given a user query about software tools, emit ONE JSON object and nothing else.

The object must have exactly this shape:

{{INTENT_SKELETON}}

Vocabulary constraints. Use EXACT values only - no synonyms, no case changes,
no values outside these lists. Omit (null) a field rather than inventing a value:

{{VOCABULARY_CONSTRAINTS}}

Price extraction rules:
- "under $X", "less than $X", "below $X"  -> priceComparison {"operator": "less_than", "value": X}
- "up to $X", "at most $X"                -> priceComparison {"operator": "less_than_or_equal", "value": X}
- "over $X", "more than $X"               -> priceComparison {"operator": "greater_than", "value": X}
- "around $X", "about $X", "roughly $X"   -> priceComparison {"operator": "around", "value": X}
- "exactly $X"                            -> priceComparison {"operator": "equal", "value": X}
- "between $X and $Y", "$X-$Y"            -> priceRange {"min": X, "max": Y}
- "per month"/"monthly" -> billingPeriod "Monthly"; "per year"/"yearly"/"annual" -> "Yearly"
- "free" -> pricingModel "Free", never a priceComparison of 0.
- Prices are never negative. Strip currency symbols; default currency is USD.

Set confidence between 0 and 1 reflecting how completely the query maps onto
the fields above. Do not wrap the JSON in markdown fences.`

// IntentPrompt renders the system prompt for intent extraction.
func (g *Generator) IntentPrompt() string {
	replacer := strings.NewReplacer(
		"{{SCHEMA_NAME}}", g.schema.Name,
		"{{INTENT_SKELETON}}", g.intentSkeleton(),
		"{{VOCABULARY_CONSTRAINTS}}", g.vocabularyConstraints(),
	)
	return replacer.Replace(intentTemplate)
}

// intentSkeleton renders the JSON skeleton of the intent record, with enum
// expansions, nullable markers for optional fields and nested objects inline.
func (g *Generator) intentSkeleton() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, f := range g.schema.IntentFields {
		sb.WriteString(renderFieldSkeleton(f, "  "))
		if i < len(g.schema.IntentFields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

func renderFieldSkeleton(f schema.FieldDef, indent string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s%q: ", indent, f.Name))

	switch f.Type {
	case schema.FieldEnum:
		sb.WriteString(fmt.Sprintf("<one of: %s>", strings.Join(quoteAll(f.EnumValues), " | ")))
	case schema.FieldString:
		sb.WriteString("<string>")
	case schema.FieldNumber:
		sb.WriteString("<number>")
	case schema.FieldBoolean:
		sb.WriteString("<boolean>")
	case schema.FieldArray:
		sb.WriteString("[<string>, ...]")
	case schema.FieldObject:
		sb.WriteString("{\n")
		for i, child := range f.Children {
			sb.WriteString(renderFieldSkeleton(child, indent+"  "))
			if i < len(f.Children)-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString(indent + "}")
	}

	if !f.Required {
		sb.WriteString("  // nullable")
	}
	return sb.String()
}

// vocabularyConstraints renders one line per axis with literal-quoted values.
func (g *Generator) vocabularyConstraints() string {
	var sb strings.Builder
	for _, axis := range schema.KnownAxes {
		values := g.schema.Vocabulary(axis)
		if len(values) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", axis, strings.Join(quoteAll(values), ", ")))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// QUERY PLANNING PROMPT
// =============================================================================

const planningTemplate = `You are the query planner for the {{SCHEMA_NAME}} tool directory.
Given an extracted intent and an intent analysis, emit ONE JSON query plan and
nothing else:

{
  "strategy": <one of: "hybrid" | "multi-vector" | "vector-only" | "metadata-only" | "semantic-kg">,
  "vectorSources": [{"collection": <string>, "topK": <1-200>}, ...],
  "structuredSources": [{"source": <string>, "filters": [{"field": <string>, "operator": <string>, "value": <any>}, ...], "limit": <1-200>}],
  "fusion": <one of: "rrf" | "weighted_sum" | "concat" | "none">,
  "maxRefinementCycles": <0-5>,
  "explanation": <string>,
  "confidence": <0-1>
}

Available vector collections:

{{COLLECTION_DESCRIPTORS}}

Weighting hints per focus:
- identity-focused: primary "tools" at full weight, supportive "functionality" at reduced weight.
- capability-focused: primary "functionality", supportive "tools" and "usecases".
- usecase-focused: primary "usecases", supportive "functionality" and "tools".
- technical-focused: primary "interface", supportive "tools" and "functionality".

Structured filters may ONLY target these fields, with EXACT vocabulary values
(no synonyms, no case changes):

{{FILTER_CATALOGUE}}

Filters MUST be an array of {"field", "operator", "value"} objects - never a
map keyed by field name.

Fusion methods:
- "rrf": reciprocal rank fusion; robust default when three or more ranked lists disagree on scale.
- "weighted_sum": weighted sum of normalized scores; best for exactly two sources with known weights.
- "concat": append lists in order without renormalization; for a single dominant source plus a tail.
- "none": a single source passes through untouched.`

// PlanningPrompt renders the system prompt for query planning.
func (g *Generator) PlanningPrompt() string {
	replacer := strings.NewReplacer(
		"{{SCHEMA_NAME}}", g.schema.Name,
		"{{COLLECTION_DESCRIPTORS}}", g.collectionDescriptors(),
		"{{FILTER_CATALOGUE}}", g.filterCatalogue(),
	)
	return replacer.Replace(planningTemplate)
}

func (g *Generator) collectionDescriptors() string {
	var sb strings.Builder
	for _, c := range g.schema.VectorCollections {
		state := "enabled"
		if !c.Enabled {
			state = "DISABLED - do not use"
		}
		sb.WriteString(fmt.Sprintf("- %q (embedding field %q, %d dims, %s): %s\n",
			c.Name, c.EmbeddingField, c.Dimension, state, c.Description))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (g *Generator) filterCatalogue() string {
	var sb strings.Builder
	for _, field := range g.schema.StructuredDatabase.FilterableFields {
		sb.WriteString(fmt.Sprintf("- %q", field))
		if axis := axisForFilterField(field); axis != "" {
			values := g.schema.Vocabulary(axis)
			sb.WriteString(fmt.Sprintf(": EXACT values only: %s", strings.Join(quoteAll(values), ", ")))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// axisForFilterField maps a structured filter field to its vocabulary axis.
// Fields without an axis (e.g. the priced-tier array) return "".
func axisForFilterField(field string) string {
	switch field {
	case schema.FilterFieldCategory:
		return schema.AxisCategories
	case schema.FilterFieldInterface:
		return schema.AxisInterface
	case schema.FilterFieldFunctionality:
		return schema.AxisFunctionality
	case schema.FilterFieldDeployment:
		return schema.AxisDeployment
	case schema.FilterFieldPricingModel:
		return schema.AxisPricingModels
	case "userTypes":
		return schema.AxisUserTypes
	case "industries":
		return schema.AxisIndustries
	default:
		return ""
	}
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return quoted
}
