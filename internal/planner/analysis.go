package planner

import (
	"github.com/foyzulkarim/codiesvibe-search/internal/intent"
)

// Analysis is the deterministic pre-planning pass: a recommended strategy
// plus the collections it wants searched, split by priority.
type Analysis struct {
	RecommendedStrategy  string   `json:"recommendedStrategy"`
	PrimaryCollections   []string `json:"primaryCollections"`
	SecondaryCollections []string `json:"secondaryCollections"`
}

// Analyze derives a strategy recommendation from the intent record. Rules
// are checked in order and the first match wins.
func Analyze(r *intent.Record) Analysis {
	switch {
	case r.ReferenceTool != "" || r.PrimaryGoal == intent.GoalFind:
		return Analysis{
			RecommendedStrategy:  StrategyIdentity,
			PrimaryCollections:   []string{"tools"},
			SecondaryCollections: []string{"functionality"},
		}
	case r.FeatureCount() > 0 || r.PrimaryGoal == intent.GoalAnalyze:
		return Analysis{
			RecommendedStrategy:  StrategyCapability,
			PrimaryCollections:   []string{"functionality"},
			SecondaryCollections: []string{"tools", "usecases"},
		}
	case r.PrimaryGoal == intent.GoalRecommend || r.PrimaryGoal == intent.GoalExplore:
		return Analysis{
			RecommendedStrategy:  StrategyUseCase,
			PrimaryCollections:   []string{"usecases"},
			SecondaryCollections: []string{"functionality", "tools"},
		}
	case r.Deployment != "" || r.Interface != "":
		return Analysis{
			RecommendedStrategy:  StrategyTechnical,
			PrimaryCollections:   []string{"interface"},
			SecondaryCollections: []string{"tools", "functionality"},
		}
	case r.FeatureCount() >= 3 || len(r.Constraints) >= 3 ||
		(r.FeatureCount() > 0 && len(r.Constraints) > 0):
		return Analysis{
			RecommendedStrategy:  StrategyMultiC,
			PrimaryCollections:   []string{"tools", "functionality", "usecases"},
			SecondaryCollections: []string{"interface"},
		}
	default:
		return Analysis{
			RecommendedStrategy:  StrategyAdaptive,
			PrimaryCollections:   []string{"tools", "functionality"},
			SecondaryCollections: nil,
		}
	}
}

// weightFor returns the fusion weight of a collection under an analysis:
// primaries carry full weight, the leading secondary a reduced one, further
// secondaries less again, and anything the model added on its own a neutral
// half.
func (a Analysis) weightFor(collection string) float64 {
	for _, c := range a.PrimaryCollections {
		if c == collection {
			return WeightPrimary
		}
	}
	for i, c := range a.SecondaryCollections {
		if c == collection {
			if i == 0 {
				return WeightSecondary
			}
			return WeightTertiary
		}
	}
	return WeightUnspecified
}

// topKFor returns the recommended depth for a collection injected into the
// plan: primaries search deepest, secondaries shallower, the rest default.
func (a Analysis) topKFor(collection string) int {
	for _, c := range a.PrimaryCollections {
		if c == collection {
			return PrimaryTopK
		}
	}
	for _, c := range a.SecondaryCollections {
		if c == collection {
			return SecondaryTopK
		}
	}
	return DefaultTopK
}
