package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
)

// =============================================================================
// SCHEMA VALIDATION
// =============================================================================

// ValidationResult aggregates everything wrong (or suspicious) with a schema.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// semverPattern matches a plain MAJOR.MINOR.PATCH version.
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// recommendedIntentFields are fields every useful schema should declare.
var recommendedIntentFields = []string{"primaryGoal", "functionality", "confidence"}

// Validate checks the schema against its structural invariants. Errors make
// the schema unusable; warnings indicate likely misconfiguration.
func (s *DomainSchema) Validate() ValidationResult {
	timer := logging.StartTimer(logging.CategorySchema, "Validate")
	defer timer.Stop()

	result := ValidationResult{Valid: true}

	if strings.TrimSpace(s.Name) == "" {
		result.addError("schema name is missing or empty")
	}

	if s.Version != "" && !semverPattern.MatchString(s.Version) {
		result.addWarning(fmt.Sprintf("version %q is not semver (expected MAJOR.MINOR.PATCH)", s.Version))
	}

	s.validateVocabularies(&result)
	s.validateIntentFields(&result)
	s.validateCollections(&result)
	s.validateStructuredDatabase(&result)

	if len(result.Errors) > 0 {
		result.Valid = false
		logging.SchemaError("schema %q invalid: %d errors", s.Name, len(result.Errors))
	}
	for _, w := range result.Warnings {
		logging.SchemaWarn("schema %q: %s", s.Name, w)
	}

	return result
}

// AssertValid validates and returns a single error aggregating all problems.
func (s *DomainSchema) AssertValid() error {
	result := s.Validate()
	if result.Valid {
		return nil
	}
	return fmt.Errorf("schema %q failed validation: %s", s.Name, strings.Join(result.Errors, "; "))
}

func (s *DomainSchema) validateVocabularies(result *ValidationResult) {
	for _, axis := range KnownAxes {
		values, ok := s.Vocabularies[axis]
		if !ok || len(values) == 0 {
			result.addWarning(fmt.Sprintf("vocabulary %q is empty", axis))
			continue
		}
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				result.addError(fmt.Sprintf("vocabulary %q contains an empty value", axis))
				continue
			}
			if seen[v] {
				result.addWarning(fmt.Sprintf("vocabulary %q contains duplicate value %q", axis, v))
			}
			seen[v] = true
		}
	}
}

func (s *DomainSchema) validateIntentFields(result *ValidationResult) {
	if len(s.IntentFields) == 0 {
		result.addError("no intent fields declared")
		return
	}

	seen := make(map[string]bool, len(s.IntentFields))
	for _, f := range s.IntentFields {
		if strings.TrimSpace(f.Name) == "" {
			result.addError("intent field with missing name")
			continue
		}
		if seen[f.Name] {
			result.addError(fmt.Sprintf("duplicate intent field name %q", f.Name))
		}
		seen[f.Name] = true
		validateField(f, f.Name, result)
	}

	for _, rec := range recommendedIntentFields {
		if !seen[rec] {
			result.addWarning(fmt.Sprintf("recommended intent field %q is missing", rec))
		}
	}
}

// validateField checks a single field definition. Children of object fields
// are validated recursively with prefix-scoped messages.
func validateField(f FieldDef, prefix string, result *ValidationResult) {
	switch f.Type {
	case FieldString, FieldNumber, FieldBoolean, FieldArray, FieldObject, FieldEnum:
	default:
		result.addError(fmt.Sprintf("%s: unknown field type %q", prefix, f.Type))
	}

	if f.Type == FieldEnum && len(f.EnumValues) == 0 {
		result.addError(fmt.Sprintf("%s: enum field without enumValues", prefix))
	}

	if f.Type != FieldObject && len(f.Children) > 0 {
		result.addError(fmt.Sprintf("%s: children on non-object field", prefix))
	}

	childSeen := make(map[string]bool, len(f.Children))
	for _, child := range f.Children {
		childPrefix := prefix + "." + child.Name
		if strings.TrimSpace(child.Name) == "" {
			result.addError(fmt.Sprintf("%s: child field with missing name", prefix))
			continue
		}
		if childSeen[child.Name] {
			result.addError(fmt.Sprintf("%s: duplicate child field name", childPrefix))
		}
		childSeen[child.Name] = true
		validateField(child, childPrefix, result)
	}
}

func (s *DomainSchema) validateCollections(result *ValidationResult) {
	seen := make(map[string]bool, len(s.VectorCollections))
	anyEnabled := false
	for _, c := range s.VectorCollections {
		if strings.TrimSpace(c.Name) == "" {
			result.addError("vector collection with missing name")
			continue
		}
		if seen[c.Name] {
			result.addError(fmt.Sprintf("duplicate vector collection name %q", c.Name))
		}
		seen[c.Name] = true

		if c.Dimension <= 0 {
			result.addError(fmt.Sprintf("collection %q: dimension must be a positive integer, got %d", c.Name, c.Dimension))
		}
		if strings.TrimSpace(c.EmbeddingField) == "" {
			result.addError(fmt.Sprintf("collection %q: missing embeddingField", c.Name))
		}
		if c.Enabled {
			anyEnabled = true
		}
	}
	if len(s.VectorCollections) > 0 && !anyEnabled {
		result.addWarning("no vector collection is enabled")
	}
}

func (s *DomainSchema) validateStructuredDatabase(result *ValidationResult) {
	if strings.TrimSpace(s.StructuredDatabase.Collection) == "" {
		result.addError("structuredDatabase.collection is missing")
	}
	if !knownDatabaseTypes[s.StructuredDatabase.Type] {
		result.addError(fmt.Sprintf("structuredDatabase.type %q is unknown", s.StructuredDatabase.Type))
	}
}

func (r *ValidationResult) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *ValidationResult) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
