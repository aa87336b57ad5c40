package schema

import (
	"strings"
	"testing"
)

func TestDefaultSchemaIsValid(t *testing.T) {
	s := DefaultToolsSchema()
	result := s.Validate()
	if !result.Valid {
		t.Fatalf("default schema invalid: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("default schema produced warnings: %v", result.Warnings)
	}
	if err := s.AssertValid(); err != nil {
		t.Fatalf("AssertValid on default schema: %v", err)
	}
}

func TestValidateMissingName(t *testing.T) {
	s := DefaultToolsSchema()
	s.Name = "  "
	result := s.Validate()
	if result.Valid {
		t.Fatal("expected invalid schema")
	}
	assertHasError(t, result, "name is missing")
}

func TestValidateDuplicateIntentField(t *testing.T) {
	s := DefaultToolsSchema()
	s.IntentFields = append(s.IntentFields, FieldDef{Name: "category", Type: FieldString})
	result := s.Validate()
	if result.Valid {
		t.Fatal("expected invalid schema")
	}
	assertHasError(t, result, `duplicate intent field name "category"`)
}

func TestValidateEnumWithoutValues(t *testing.T) {
	s := DefaultToolsSchema()
	s.IntentFields = append(s.IntentFields, FieldDef{Name: "sortOrder", Type: FieldEnum})
	result := s.Validate()
	if result.Valid {
		t.Fatal("expected invalid schema")
	}
	assertHasError(t, result, "sortOrder: enum field without enumValues")
}

func TestValidateNonPositiveDimension(t *testing.T) {
	s := DefaultToolsSchema()
	s.VectorCollections[0].Dimension = 0
	result := s.Validate()
	if result.Valid {
		t.Fatal("expected invalid schema")
	}
	assertHasError(t, result, "dimension must be a positive integer")
}

func TestValidateMissingStructuredCollection(t *testing.T) {
	s := DefaultToolsSchema()
	s.StructuredDatabase.Collection = ""
	result := s.Validate()
	if result.Valid {
		t.Fatal("expected invalid schema")
	}
	assertHasError(t, result, "structuredDatabase.collection is missing")
}

func TestValidateUnknownDatabaseType(t *testing.T) {
	s := DefaultToolsSchema()
	s.StructuredDatabase.Type = "cassandra"
	result := s.Validate()
	if result.Valid {
		t.Fatal("expected invalid schema")
	}
	assertHasError(t, result, `structuredDatabase.type "cassandra" is unknown`)
}

func TestValidateWarnings(t *testing.T) {
	s := DefaultToolsSchema()
	s.Version = "v1"                                                         // not semver
	s.Vocabularies[AxisIndustries] = nil                                     // empty axis
	s.Vocabularies[AxisDeployment] = append(s.Vocabularies[AxisDeployment], "Cloud") // duplicate
	for i := range s.VectorCollections {
		s.VectorCollections[i].Enabled = false
	}

	result := s.Validate()
	if !result.Valid {
		t.Fatalf("warnings must not invalidate: %v", result.Errors)
	}

	wantWarnings := []string{
		"is not semver",
		`vocabulary "industries" is empty`,
		`duplicate value "Cloud"`,
		"no vector collection is enabled",
	}
	for _, want := range wantWarnings {
		if !containsSubstring(result.Warnings, want) {
			t.Errorf("missing warning %q in %v", want, result.Warnings)
		}
	}
}

func TestValidateRecommendedFieldWarning(t *testing.T) {
	s := DefaultToolsSchema()
	var kept []FieldDef
	for _, f := range s.IntentFields {
		if f.Name != "confidence" {
			kept = append(kept, f)
		}
	}
	s.IntentFields = kept

	result := s.Validate()
	if !containsSubstring(result.Warnings, `recommended intent field "confidence" is missing`) {
		t.Fatalf("expected recommended-field warning, got %v", result.Warnings)
	}
}

func TestValidateNestedChildren(t *testing.T) {
	s := DefaultToolsSchema()
	s.IntentFields = append(s.IntentFields, FieldDef{
		Name: "budget", Type: FieldObject,
		Children: []FieldDef{
			{Name: "cap", Type: FieldEnum}, // enum without values, nested
			{Name: "cap", Type: FieldNumber},
		},
	})
	result := s.Validate()
	if result.Valid {
		t.Fatal("expected invalid schema")
	}
	assertHasError(t, result, "budget.cap: enum field without enumValues")
	assertHasError(t, result, "budget.cap: duplicate child field name")
}

func TestVocabularyClosure(t *testing.T) {
	s := DefaultToolsSchema()
	if !s.InVocabulary(AxisInterface, "CLI") {
		t.Fatal("CLI must be in interface vocabulary")
	}
	if s.InVocabulary(AxisInterface, "cli") {
		t.Fatal("vocabulary lookup must be case-sensitive")
	}
	if s.InVocabulary(AxisInterface, "Terminal") {
		t.Fatal("no synonym expansion allowed")
	}
}

func TestEmbeddingFieldResolution(t *testing.T) {
	s := DefaultToolsSchema()
	if got := s.EmbeddingFieldFor("tools"); got != "semantic" {
		t.Fatalf("EmbeddingFieldFor(tools)=%q, want semantic", got)
	}
	if got := s.EmbeddingFieldFor("functionality"); got != "entities.functionality" {
		t.Fatalf("EmbeddingFieldFor(functionality)=%q, want entities.functionality", got)
	}
	if got := s.EmbeddingFieldFor("nope"); got != "" {
		t.Fatalf("EmbeddingFieldFor(nope)=%q, want empty", got)
	}
}

func assertHasError(t *testing.T, result ValidationResult, substr string) {
	t.Helper()
	if !containsSubstring(result.Errors, substr) {
		t.Fatalf("expected error containing %q, got %v", substr, result.Errors)
	}
}

func containsSubstring(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
