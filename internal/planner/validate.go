package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
)

// ErrPlanInvalid: the plan violates a structural invariant. Always fatal
// for the request.
var ErrPlanInvalid = errors.New("plan invalid")

// Validate checks a plan against the schema: collections exist, embedding
// fields belong to the schema-derived set, filters target filterable fields
// and are fully formed, and every bounded value is in bounds. All
// violations are collected before failing.
func Validate(s *schema.DomainSchema, plan *QueryPlan) error {
	var problems []string

	if !inSet(Strategies, plan.Strategy) {
		problems = append(problems, fmt.Sprintf("unknown strategy %q", plan.Strategy))
	}
	if !inSet(FusionMethods, plan.Fusion) {
		problems = append(problems, fmt.Sprintf("unknown fusion method %q", plan.Fusion))
	}
	if plan.Confidence < 0 || plan.Confidence > 1 {
		problems = append(problems, fmt.Sprintf("confidence %.3f outside [0,1]", plan.Confidence))
	}
	if plan.MaxRefinementCycles < 0 || plan.MaxRefinementCycles > MaxRefinementCycles {
		problems = append(problems, fmt.Sprintf("maxRefinementCycles %d outside [0,%d]",
			plan.MaxRefinementCycles, MaxRefinementCycles))
	}

	embeddingFields := s.EmbeddingFieldSet()
	for i, vs := range plan.VectorSources {
		if _, ok := s.Collection(vs.Collection); !ok {
			problems = append(problems, fmt.Sprintf("vectorSources[%d]: unknown collection %q", i, vs.Collection))
		}
		if vs.TopK <= 0 {
			problems = append(problems, fmt.Sprintf("vectorSources[%d]: topK %d is not positive", i, vs.TopK))
		} else if vs.TopK > MaxTopK {
			logging.PlannerWarn("vectorSources[%d]: topK %d above %d", i, vs.TopK, MaxTopK)
		}
		if !embeddingFields[vs.EmbeddingField] {
			problems = append(problems, fmt.Sprintf("vectorSources[%d]: embedding field %q not in schema", i, vs.EmbeddingField))
		}
		if !inSet(QueryVectorSources, vs.QueryVectorSource) {
			problems = append(problems, fmt.Sprintf("vectorSources[%d]: unknown query vector source %q", i, vs.QueryVectorSource))
		}
	}

	for i, ss := range plan.StructuredSources {
		if ss.Source == "" {
			problems = append(problems, fmt.Sprintf("structuredSources[%d]: source is empty", i))
		}
		if ss.Limit <= 0 {
			problems = append(problems, fmt.Sprintf("structuredSources[%d]: limit %d is not positive", i, ss.Limit))
		}
		if ss.Filters == nil {
			problems = append(problems, fmt.Sprintf("structuredSources[%d]: filters missing", i))
		}
		for j, f := range ss.Filters {
			if f.Field == "" {
				problems = append(problems, fmt.Sprintf("structuredSources[%d].filters[%d]: field is empty", i, j))
			} else if !s.FilterableField(f.Field) {
				problems = append(problems, fmt.Sprintf("structuredSources[%d].filters[%d]: field %q is not filterable", i, j, f.Field))
			}
			if f.Operator == "" {
				problems = append(problems, fmt.Sprintf("structuredSources[%d].filters[%d]: operator is empty", i, j))
			}
			if f.Value == nil {
				problems = append(problems, fmt.Sprintf("structuredSources[%d].filters[%d]: value is undefined", i, j))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrPlanInvalid, strings.Join(problems, "; "))
	}
	return nil
}
