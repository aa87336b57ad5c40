// Package planner turns a validated intent record into an executable query
// plan. A deterministic analysis pass recommends a strategy, an LLM call
// drafts the plan, and a post-validation pass repairs and hardens the draft
// before the validator accepts it.
package planner

import (
	"github.com/foyzulkarim/codiesvibe-search/internal/filter"
)

// Search strategies. The first six are recommendations from intent analysis;
// the rest are execution-level strategies the planner or the model may pick
// once the source mix is known.
const (
	StrategyIdentity   = "identity-focused"
	StrategyCapability = "capability-focused"
	StrategyUseCase    = "usecase-focused"
	StrategyTechnical  = "technical-focused"
	StrategyMultiC     = "multi-collection-hybrid"
	StrategyAdaptive   = "adaptive-weighted"
	StrategyMultiVec   = "multi-vector"
	StrategyHybrid     = "hybrid"
	StrategyVectorOnly = "vector-only"
	StrategyMetadata   = "metadata-only"
	StrategySemanticKG = "semantic-kg"
)

// Strategies is the closed set of admissible plan strategies.
var Strategies = []string{
	StrategyIdentity, StrategyCapability, StrategyUseCase, StrategyTechnical,
	StrategyMultiC, StrategyAdaptive, StrategyMultiVec, StrategyHybrid,
	StrategyVectorOnly, StrategyMetadata, StrategySemanticKG,
}

// Fusion methods.
const (
	FusionRRF         = "rrf"
	FusionWeightedSum = "weighted_sum"
	FusionConcat      = "concat"
	FusionNone        = "none"
)

// FusionMethods is the closed set of admissible fusion methods.
var FusionMethods = []string{FusionRRF, FusionWeightedSum, FusionConcat, FusionNone}

// Query vector sources.
const (
	VectorFromQueryText     = "query_text"
	VectorFromReferenceTool = "reference_tool_embedding"
	VectorFromVariant       = "semantic_variant"
)

// QueryVectorSources is the closed set of admissible query vector sources.
var QueryVectorSources = []string{VectorFromQueryText, VectorFromReferenceTool, VectorFromVariant}

// Plan bounds.
const (
	MinTopK               = 1
	MaxTopK               = 200
	MaxRefinementCycles   = 5
	StructuredSourceLimit = 100
	PrimaryTopK           = 70
	SecondaryTopK         = 40
	DefaultTopK           = 50
	WeightPrimary         = 1.0
	WeightSecondary       = 0.6
	WeightTertiary        = 0.4
	WeightUnspecified     = 0.5
)

// VectorSource is one vector search to fan out. Weight feeds weighted_sum
// fusion and tie-breaking.
type VectorSource struct {
	Collection        string  `json:"collection"`
	EmbeddingField    string  `json:"embeddingField"`
	QueryVectorSource string  `json:"queryVectorSource"`
	TopK              int     `json:"topK"`
	Weight            float64 `json:"weight"`
}

// StructuredSource is the single structured query in a plan. Filters is
// always a sequence; the validator rejects anything else.
type StructuredSource struct {
	Source  string             `json:"source"`
	Filters []filter.Predicate `json:"filters"`
	Limit   int                `json:"limit"`
}

// QueryPlan is the executor's complete instruction set for one request.
type QueryPlan struct {
	Strategy            string             `json:"strategy"`
	VectorSources       []VectorSource     `json:"vectorSources"`
	StructuredSources   []StructuredSource `json:"structuredSources"`
	Fusion              string             `json:"fusion"`
	MaxRefinementCycles int                `json:"maxRefinementCycles"`
	Explanation         string             `json:"explanation,omitempty"`
	Confidence          float64            `json:"confidence"`
}

// TopKTotal sums per-source topK, capped at MaxTopK. It bounds the final
// candidate list after fusion.
func (p *QueryPlan) TopKTotal() int {
	total := 0
	for _, vs := range p.VectorSources {
		total += vs.TopK
	}
	if total == 0 {
		for _, ss := range p.StructuredSources {
			total += ss.Limit
		}
	}
	if total > MaxTopK {
		return MaxTopK
	}
	return total
}

func inSet(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
