// Package intent defines the structured intent record extracted from a user
// query and the extractor that produces it. The record is the only thing the
// planner ever sees: every vocabulary-bound field is guaranteed to be an
// exact vocabulary member by the time extraction returns.
package intent

// Primary goals the extractor may emit.
const (
	GoalFind      = "find"
	GoalCompare   = "compare"
	GoalRecommend = "recommend"
	GoalExplore   = "explore"
	GoalAnalyze   = "analyze"
	GoalExplain   = "explain"
)

// PrimaryGoals is the closed set of admissible goals.
var PrimaryGoals = []string{GoalFind, GoalCompare, GoalRecommend, GoalExplore, GoalAnalyze, GoalExplain}

// Comparison modes relating a reference tool to the request.
const (
	CompareSimilarTo     = "similar_to"
	CompareVs            = "vs"
	CompareAlternativeTo = "alternative_to"
)

// ComparisonModes is the closed set of admissible comparison modes.
var ComparisonModes = []string{CompareSimilarTo, CompareVs, CompareAlternativeTo}

// Price comparison operators.
const (
	OpLessThan           = "less_than"
	OpLessThanOrEqual    = "less_than_or_equal"
	OpGreaterThan        = "greater_than"
	OpGreaterThanOrEqual = "greater_than_or_equal"
	OpEqual              = "equal"
	OpNotEqual           = "not_equal"
	OpAround             = "around"
	OpBetween            = "between"
)

// PriceOperators is the closed set of admissible price operators.
var PriceOperators = []string{
	OpLessThan, OpLessThanOrEqual, OpGreaterThan, OpGreaterThanOrEqual,
	OpEqual, OpNotEqual, OpAround, OpBetween,
}

// PriceRange is an explicit price interval. Nil bounds are open.
type PriceRange struct {
	Min           *float64 `json:"min"`
	Max           *float64 `json:"max"`
	Currency      string   `json:"currency,omitempty"`
	BillingPeriod string   `json:"billingPeriod,omitempty"`
}

// PriceComparison is a single-sided price constraint.
type PriceComparison struct {
	Operator      string  `json:"operator"`
	Value         float64 `json:"value"`
	Currency      string  `json:"currency,omitempty"`
	BillingPeriod string  `json:"billingPeriod,omitempty"`
}

// Record is the structured summary of a user's goal. Scalar preference
// fields are empty strings when absent; array fields may be nil.
type Record struct {
	PrimaryGoal    string `json:"primaryGoal"`
	ReferenceTool  string `json:"referenceTool,omitempty"`
	ComparisonMode string `json:"comparisonMode,omitempty"`

	Category      string   `json:"category,omitempty"`
	Interface     string   `json:"interface,omitempty"`
	Functionality []string `json:"functionality,omitempty"`
	Deployment    string   `json:"deployment,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	UserType      string   `json:"userType,omitempty"`
	PricingModel  string   `json:"pricingModel,omitempty"`
	BillingPeriod string   `json:"billingPeriod,omitempty"`

	PriceRange      *PriceRange      `json:"priceRange,omitempty"`
	PriceComparison *PriceComparison `json:"priceComparison,omitempty"`

	SemanticVariants []string `json:"semanticVariants,omitempty"`
	Constraints      []string `json:"constraints,omitempty"`

	Confidence float64 `json:"confidence"`
}

// HasPriceConstraint reports whether the record carries any price filter.
func (r *Record) HasPriceConstraint() bool {
	return r.PriceRange != nil || r.PriceComparison != nil
}

// FeatureCount returns the number of functionality tags.
func (r *Record) FeatureCount() int {
	return len(r.Functionality)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
