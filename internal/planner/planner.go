package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/foyzulkarim/codiesvibe-search/internal/filter"
	"github.com/foyzulkarim/codiesvibe-search/internal/intent"
	"github.com/foyzulkarim/codiesvibe-search/internal/llm"
	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
)

// ErrPlanningFailed: the model produced no usable plan draft.
var ErrPlanningFailed = errors.New("query planning failed")

// Planner drafts a plan with the LLM and hardens it deterministically.
type Planner struct {
	client       llm.Client
	schema       *schema.DomainSchema
	systemPrompt string
}

// NewPlanner creates a planner. systemPrompt comes from the prompt generator.
func NewPlanner(client llm.Client, s *schema.DomainSchema, systemPrompt string) *Planner {
	return &Planner{client: client, schema: s, systemPrompt: systemPrompt}
}

// rawPlan is the model's draft before post-validation. structuredSources are
// parsed loosely and discarded: the filter builder is the only producer of
// structured filters.
type rawPlan struct {
	Strategy            string            `json:"strategy"`
	VectorSources       []rawVectorSource `json:"vectorSources"`
	StructuredSources   json.RawMessage   `json:"structuredSources"`
	Fusion              string            `json:"fusion"`
	MaxRefinementCycles int               `json:"maxRefinementCycles"`
	Explanation         string            `json:"explanation"`
}

type rawVectorSource struct {
	Collection        string `json:"collection"`
	QueryVectorSource string `json:"queryVectorSource"`
	TopK              int    `json:"topK"`
}

// Plan runs the full pipeline stage: analyze, draft via the model, repair
// the draft, validate. The returned plan is ready for execution.
func (p *Planner) Plan(ctx context.Context, r *intent.Record) (*QueryPlan, error) {
	timer := logging.StartTimer(logging.CategoryPlanner, "Plan")
	defer timer.Stop()

	analysis := Analyze(r)
	logging.Planner("analysis: strategy=%s primary=%v secondary=%v",
		analysis.RecommendedStrategy, analysis.PrimaryCollections, analysis.SecondaryCollections)

	draft, err := p.draft(ctx, r, analysis)
	if err != nil {
		return nil, err
	}

	plan := p.enhance(draft, r, analysis)

	if err := Validate(p.schema, plan); err != nil {
		return nil, err
	}

	logging.Planner("plan: strategy=%s vectorSources=%d structuredSources=%d fusion=%s confidence=%.2f",
		plan.Strategy, len(plan.VectorSources), len(plan.StructuredSources), plan.Fusion, plan.Confidence)
	return plan, nil
}

func (p *Planner) draft(ctx context.Context, r *intent.Record, analysis Analysis) (*rawPlan, error) {
	userPrompt, err := buildUserPrompt(r, analysis)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanningFailed, err)
	}

	response, err := p.client.CompleteWithSystem(ctx, p.systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanningFailed, err)
	}

	jsonStr := llm.ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON found in response", ErrPlanningFailed)
	}

	var draft rawPlan
	if err := json.Unmarshal([]byte(jsonStr), &draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanningFailed, err)
	}
	return &draft, nil
}

func buildUserPrompt(r *intent.Record, analysis Analysis) (string, error) {
	intentJSON, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	analysisJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Extracted intent:
%s

Deterministic analysis:
%s

Produce the query plan as JSON. Requirements:
- "vectorSources" must cover the primary collections from the analysis.
- Any "filters" array must be a JSON array of {"field", "operator", "value"} objects, never an object keyed by field name.
- Field values must use the EXACT vocabulary literals from the system prompt.`, intentJSON, analysisJSON), nil
}

// enhance repairs the model's draft: disabled collections are dropped,
// missing recommended collections injected, embedding fields and query
// vector sources assigned from the schema, structured filters rebuilt from
// the intent, and fusion, strategy, and confidence derived from the final
// source mix.
func (p *Planner) enhance(draft *rawPlan, r *intent.Record, analysis Analysis) *QueryPlan {
	plan := &QueryPlan{
		MaxRefinementCycles: clampInt(draft.MaxRefinementCycles, 0, MaxRefinementCycles),
		Explanation:         draft.Explanation,
	}

	seen := map[string]bool{}
	for _, raw := range draft.VectorSources {
		if !p.schema.CollectionEnabled(raw.Collection) {
			logging.PlannerWarn("dropping vector source on %q: collection not enabled", raw.Collection)
			continue
		}
		if seen[raw.Collection] {
			continue
		}
		seen[raw.Collection] = true

		topK := raw.TopK
		if topK <= 0 {
			topK = analysis.topKFor(raw.Collection)
		}
		plan.VectorSources = append(plan.VectorSources, VectorSource{
			Collection:        raw.Collection,
			EmbeddingField:    p.schema.EmbeddingFieldFor(raw.Collection),
			QueryVectorSource: resolveVectorSource(raw.QueryVectorSource, r),
			TopK:              clampInt(topK, MinTopK, MaxTopK),
			Weight:            analysis.weightFor(raw.Collection),
		})
	}

	inject := append(append([]string{}, analysis.PrimaryCollections...), analysis.SecondaryCollections...)
	for _, collection := range inject {
		if seen[collection] || !p.schema.CollectionEnabled(collection) {
			continue
		}
		seen[collection] = true
		plan.VectorSources = append(plan.VectorSources, VectorSource{
			Collection:        collection,
			EmbeddingField:    p.schema.EmbeddingFieldFor(collection),
			QueryVectorSource: resolveVectorSource("", r),
			TopK:              clampInt(analysis.topKFor(collection), MinTopK, MaxTopK),
			Weight:            analysis.weightFor(collection),
		})
	}

	predicates, _ := filter.Build(r)
	if len(predicates) > 0 {
		plan.StructuredSources = []StructuredSource{{
			Source:  p.schema.StructuredDatabase.Collection,
			Filters: predicates,
			Limit:   StructuredSourceLimit,
		}}
	}

	switch n := len(plan.VectorSources); {
	case n > 2:
		plan.Fusion = FusionRRF
	case n == 2:
		plan.Fusion = FusionWeightedSum
	case n == 1:
		plan.Fusion = FusionNone
	default:
		plan.Fusion = FusionConcat
	}

	switch n := len(plan.VectorSources); {
	case n > 2:
		plan.Strategy = StrategyMultiVec
	case n > 0 && len(plan.StructuredSources) > 0:
		plan.Strategy = StrategyHybrid
	case n > 0:
		plan.Strategy = StrategyMultiVec
	case inSet(Strategies, draft.Strategy):
		plan.Strategy = draft.Strategy
	default:
		plan.Strategy = analysis.RecommendedStrategy
	}

	plan.Confidence = blendConfidence(r.Confidence, analysis, plan)
	return plan
}

// resolveVectorSource picks where the query vector comes from. A reference
// tool always wins; a model request for semantic variants is honored only
// when the intent actually carries variants.
func resolveVectorSource(requested string, r *intent.Record) string {
	if r.ReferenceTool != "" {
		return VectorFromReferenceTool
	}
	if requested == VectorFromVariant && len(r.SemanticVariants) > 0 {
		return VectorFromVariant
	}
	return VectorFromQueryText
}

// blendConfidence scales intent confidence by how much of the recommended
// primary coverage the plan achieved, with a small boost when the final
// strategy agrees with the recommendation. Rounded to two decimals.
func blendConfidence(c float64, analysis Analysis, plan *QueryPlan) float64 {
	coverage := 1.0
	if len(analysis.PrimaryCollections) > 0 {
		covered := 0
		for _, primary := range analysis.PrimaryCollections {
			for _, vs := range plan.VectorSources {
				if vs.Collection == primary {
					covered++
					break
				}
			}
		}
		coverage = float64(covered) / float64(len(analysis.PrimaryCollections))
	}

	blended := c * (0.7 + 0.3*coverage)
	if plan.Strategy == analysis.RecommendedStrategy {
		blended = math.Min(1.0, blended+0.1)
	}
	return math.Round(blended*100) / 100
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
