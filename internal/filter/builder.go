// Package filter converts a validated intent record into structured filter
// predicates. The builder is pure and deterministic: the same record always
// yields the same predicates in the same order, and it never fails.
package filter

import (
	"fmt"
	"math"

	"github.com/foyzulkarim/codiesvibe-search/internal/intent"
	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
)

// Predicate operators understood by the structured store.
const (
	OpIn        = "in"
	OpElemMatch = "elemMatch"

	CmpLess           = "<"
	CmpLessOrEqual    = "<="
	CmpGreater        = ">"
	CmpGreaterOrEqual = ">="
	CmpEqual          = "="
	CmpNotEqual       = "!="
)

// Predicate is a single structured filter condition. For OpIn, Value is a
// []string of admissible members. For OpElemMatch, Value is a
// map[string]interface{} matched against elements of an array field, where
// nested maps keyed by comparison operators express numeric ranges.
type Predicate struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Build derives predicates from the record in a fixed order: price range
// first, then price comparison, then membership predicates for category,
// interface, deployment, functionality, and pricing model. Absent fields
// contribute nothing. The returned warnings are advisory and never block
// the query.
func Build(r *intent.Record) ([]Predicate, []string) {
	var predicates []Predicate
	var warnings []string

	if r.PriceRange != nil {
		predicates = append(predicates, priceRangePredicate(r.PriceRange))
	}
	if r.PriceComparison != nil {
		p, warn := priceComparisonPredicate(r.PriceComparison)
		predicates = append(predicates, p)
		if warn != "" {
			warnings = append(warnings, warn)
			logging.PlannerWarn("filter builder: %s", warn)
		}
	}

	memberships := []struct {
		field  string
		values []string
	}{
		{schema.FilterFieldCategory, asList(r.Category)},
		{schema.FilterFieldInterface, asList(r.Interface)},
		{schema.FilterFieldDeployment, asList(r.Deployment)},
		{schema.FilterFieldFunctionality, r.Functionality},
		{schema.FilterFieldPricingModel, asList(r.PricingModel)},
	}
	for _, m := range memberships {
		if len(m.values) == 0 {
			continue
		}
		predicates = append(predicates, Predicate{
			Field:    m.field,
			Operator: OpIn,
			Value:    m.values,
		})
	}

	return predicates, warnings
}

// priceRangePredicate matches pricing entries inside the given interval.
// Nil bounds are open and contribute no comparison.
func priceRangePredicate(pr *intent.PriceRange) Predicate {
	match := map[string]interface{}{}
	price := map[string]interface{}{}
	if pr.Min != nil {
		price[CmpGreaterOrEqual] = math.Max(0, *pr.Min)
	}
	if pr.Max != nil {
		price[CmpLessOrEqual] = math.Max(0, *pr.Max)
	}
	if len(price) > 0 {
		match["price"] = price
	}
	if pr.BillingPeriod != "" {
		match["billingPeriod"] = pr.BillingPeriod
	}
	return Predicate{Field: schema.FilterFieldPricing, Operator: OpElemMatch, Value: match}
}

// priceComparisonPredicate translates a one-sided price constraint into an
// element match. Unknown operators degrade to equality with a warning so a
// malformed comparison narrows results instead of dropping the constraint.
func priceComparisonPredicate(pc *intent.PriceComparison) (Predicate, string) {
	value := math.Max(0, pc.Value)
	var price interface{}
	var warn string

	switch pc.Operator {
	case intent.OpLessThan:
		price = map[string]interface{}{CmpLess: value}
	case intent.OpLessThanOrEqual:
		price = map[string]interface{}{CmpLessOrEqual: value}
	case intent.OpGreaterThan:
		price = map[string]interface{}{CmpGreater: value}
	case intent.OpGreaterThanOrEqual:
		price = map[string]interface{}{CmpGreaterOrEqual: value}
	case intent.OpEqual:
		price = map[string]interface{}{CmpEqual: value}
	case intent.OpNotEqual:
		price = map[string]interface{}{CmpNotEqual: value}
	case intent.OpAround:
		// Around means within ten percent either side, rounded to whole
		// currency units with ties away from zero.
		price = map[string]interface{}{
			CmpGreaterOrEqual: math.Round(0.9 * value),
			CmpLessOrEqual:    math.Round(1.1 * value),
		}
	case intent.OpBetween:
		price = map[string]interface{}{
			CmpGreaterOrEqual: 0.0,
			CmpLessOrEqual:    value,
		}
	default:
		price = map[string]interface{}{CmpEqual: value}
		warn = fmt.Sprintf("unknown price operator %q, treating as equality", pc.Operator)
	}

	match := map[string]interface{}{"price": price}
	if pc.BillingPeriod != "" {
		match["billingPeriod"] = pc.BillingPeriod
	}
	return Predicate{Field: schema.FilterFieldPricing, Operator: OpElemMatch, Value: match}, warn
}

func asList(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
