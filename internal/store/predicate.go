package store

import (
	"strings"

	"github.com/foyzulkarim/codiesvibe-search/internal/filter"
)

// MatchesAll reports whether a document payload satisfies every predicate.
func MatchesAll(payload map[string]interface{}, predicates []filter.Predicate) bool {
	for _, p := range predicates {
		if !Matches(payload, p) {
			return false
		}
	}
	return true
}

// Matches evaluates a single predicate against a payload. Unknown operators
// never match.
func Matches(payload map[string]interface{}, p filter.Predicate) bool {
	value := lookup(payload, p.Field)

	switch p.Operator {
	case filter.OpIn:
		return matchIn(value, p.Value)
	case filter.OpElemMatch:
		return matchElemMatch(value, p.Value)
	case filter.CmpEqual, filter.CmpNotEqual, filter.CmpLess, filter.CmpLessOrEqual,
		filter.CmpGreater, filter.CmpGreaterOrEqual:
		return matchComparison(p.Operator, value, p.Value)
	default:
		return false
	}
}

// lookup walks a dotted field path through nested objects.
func lookup(payload map[string]interface{}, field string) interface{} {
	parts := strings.Split(field, ".")
	var current interface{} = payload
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// matchIn succeeds when the document value (scalar or array) intersects the
// predicate's member list.
func matchIn(docValue, predValue interface{}) bool {
	members := stringList(predValue)
	if len(members) == 0 {
		return false
	}
	for _, dv := range stringList(docValue) {
		for _, m := range members {
			if dv == m {
				return true
			}
		}
	}
	return false
}

// matchElemMatch succeeds when at least one element of an array field
// satisfies every inner condition. Scalar inner conditions are equality;
// map conditions are operator-keyed numeric comparisons.
func matchElemMatch(docValue, predValue interface{}) bool {
	conditions, ok := predValue.(map[string]interface{})
	if !ok {
		return false
	}
	elements, ok := docValue.([]interface{})
	if !ok {
		return false
	}
	for _, raw := range elements {
		elem, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if elemSatisfies(elem, conditions) {
			return true
		}
	}
	return false
}

func elemSatisfies(elem, conditions map[string]interface{}) bool {
	for key, cond := range conditions {
		value := elem[key]
		switch c := cond.(type) {
		case map[string]interface{}:
			n, ok := asNumber(value)
			if !ok {
				return false
			}
			for op, bound := range c {
				b, ok := asNumber(bound)
				if !ok || !compare(op, n, b) {
					return false
				}
			}
		default:
			if !scalarEqual(value, cond) {
				return false
			}
		}
	}
	return true
}

func matchComparison(op string, docValue, predValue interface{}) bool {
	if op == filter.CmpEqual || op == filter.CmpNotEqual {
		if _, numeric := asNumber(predValue); !numeric {
			eq := scalarEqual(docValue, predValue)
			if op == filter.CmpNotEqual {
				return !eq
			}
			return eq
		}
	}
	a, ok := asNumber(docValue)
	if !ok {
		return false
	}
	b, ok := asNumber(predValue)
	if !ok {
		return false
	}
	return compare(op, a, b)
}

func compare(op string, a, b float64) bool {
	switch op {
	case filter.CmpLess:
		return a < b
	case filter.CmpLessOrEqual:
		return a <= b
	case filter.CmpGreater:
		return a > b
	case filter.CmpGreaterOrEqual:
		return a >= b
	case filter.CmpEqual:
		return a == b
	case filter.CmpNotEqual:
		return a != b
	default:
		return false
	}
}

func scalarEqual(a, b interface{}) bool {
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			return an == bn
		}
		return false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	return a == b
}

// asNumber coerces the numeric types JSON decoding and predicate building
// can produce.
func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// stringList coerces a scalar string, []string, or []interface{} of strings
// into a flat list.
func stringList(v interface{}) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []interface{}:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
