package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/foyzulkarim/codiesvibe-search/internal/llm"
	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
)

// Failure modes of extraction. Callers branch on these with errors.Is.
var (
	// ErrExtractionFailed: the model produced no parsable structure.
	ErrExtractionFailed = errors.New("intent extraction failed")
	// ErrVocabularyMismatch: a field value falls outside its vocabulary.
	ErrVocabularyMismatch = errors.New("vocabulary mismatch")
	// ErrLowConfidence: the record's confidence is below the configured floor.
	ErrLowConfidence = errors.New("intent confidence below floor")
)

// Extractor turns a raw query into a validated intent record using an LLM.
type Extractor struct {
	client          llm.Client
	schema          *schema.DomainSchema
	systemPrompt    string
	confidenceFloor float64
}

// NewExtractor creates an extractor. systemPrompt comes from the prompt
// generator; confidenceFloor below-zero disables the low-confidence check.
func NewExtractor(client llm.Client, s *schema.DomainSchema, systemPrompt string, confidenceFloor float64) *Extractor {
	return &Extractor{
		client:          client,
		schema:          s,
		systemPrompt:    systemPrompt,
		confidenceFloor: confidenceFloor,
	}
}

// Extract runs the LLM and returns a sanitized, validated intent record.
func (e *Extractor) Extract(ctx context.Context, query string) (*Record, error) {
	timer := logging.StartTimer(logging.CategoryIntent, "Extract")
	defer timer.Stop()

	response, err := e.client.CompleteWithSystem(ctx, e.systemPrompt, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	record, err := Parse(response)
	if err != nil {
		return nil, err
	}

	Sanitize(record)

	if err := Validate(e.schema, record); err != nil {
		return nil, err
	}

	if e.confidenceFloor >= 0 && record.Confidence < e.confidenceFloor {
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, record.Confidence, e.confidenceFloor)
	}

	logging.Intent("extracted intent: goal=%s category=%q features=%d confidence=%.2f",
		record.PrimaryGoal, record.Category, record.FeatureCount(), record.Confidence)
	return record, nil
}

// Parse extracts a Record from a raw model response.
func Parse(response string) (*Record, error) {
	jsonStr := llm.ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON found in response", ErrExtractionFailed)
	}

	var record Record
	if err := json.Unmarshal([]byte(jsonStr), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return &record, nil
}

// Sanitize normalizes numeric fields in place: price values are floored at
// zero, confidence is clamped into [0,1], and NaN confidence becomes zero.
func Sanitize(r *Record) {
	if r.PriceComparison != nil {
		r.PriceComparison.Value = math.Max(0, r.PriceComparison.Value)
	}
	if r.PriceRange != nil {
		if r.PriceRange.Min != nil {
			v := math.Max(0, *r.PriceRange.Min)
			r.PriceRange.Min = &v
		}
		if r.PriceRange.Max != nil {
			v := math.Max(0, *r.PriceRange.Max)
			r.PriceRange.Max = &v
		}
	}
	if math.IsNaN(r.Confidence) {
		r.Confidence = 0
	}
	r.Confidence = math.Max(0, math.Min(1, r.Confidence))
}

// Validate checks the intent validity conditions: required fields present,
// every vocabulary-bound field an exact vocabulary member, confidence in
// bounds. Violations name the field and the offending value.
func Validate(s *schema.DomainSchema, r *Record) error {
	if r.PrimaryGoal == "" {
		return fmt.Errorf("%w: primaryGoal is required", ErrExtractionFailed)
	}
	if !contains(PrimaryGoals, r.PrimaryGoal) {
		return vocabError("primaryGoal", r.PrimaryGoal)
	}
	if r.ComparisonMode != "" && !contains(ComparisonModes, r.ComparisonMode) {
		return vocabError("comparisonMode", r.ComparisonMode)
	}

	checks := []struct {
		field string
		axis  string
		value string
	}{
		{"category", schema.AxisCategories, r.Category},
		{"interface", schema.AxisInterface, r.Interface},
		{"deployment", schema.AxisDeployment, r.Deployment},
		{"industry", schema.AxisIndustries, r.Industry},
		{"userType", schema.AxisUserTypes, r.UserType},
		{"pricingModel", schema.AxisPricingModels, r.PricingModel},
		{"billingPeriod", schema.AxisBillingPeriods, r.BillingPeriod},
	}
	for _, c := range checks {
		if c.value != "" && !s.InVocabulary(c.axis, c.value) {
			return vocabError(c.field, c.value)
		}
	}

	for _, f := range r.Functionality {
		if !s.InVocabulary(schema.AxisFunctionality, f) {
			return vocabError("functionality", f)
		}
	}

	if r.PriceComparison != nil {
		if r.PriceComparison.Operator == "" {
			return fmt.Errorf("%w: priceComparison.operator is required", ErrExtractionFailed)
		}
		if !contains(PriceOperators, r.PriceComparison.Operator) {
			return vocabError("priceComparison.operator", r.PriceComparison.Operator)
		}
		if r.PriceComparison.Value < 0 {
			return fmt.Errorf("%w: priceComparison.value must be non-negative", ErrExtractionFailed)
		}
		if r.PriceComparison.BillingPeriod != "" && !s.InVocabulary(schema.AxisBillingPeriods, r.PriceComparison.BillingPeriod) {
			return vocabError("priceComparison.billingPeriod", r.PriceComparison.BillingPeriod)
		}
	}
	if r.PriceRange != nil && r.PriceRange.BillingPeriod != "" {
		if !s.InVocabulary(schema.AxisBillingPeriods, r.PriceRange.BillingPeriod) {
			return vocabError("priceRange.billingPeriod", r.PriceRange.BillingPeriod)
		}
	}

	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.3f outside [0,1]", ErrExtractionFailed, r.Confidence)
	}

	return nil
}

func vocabError(field, value string) error {
	return fmt.Errorf("%w: field %q value %q", ErrVocabularyMismatch, field, strings.TrimSpace(value))
}
