// Package schema defines the domain schema that drives the whole search
// pipeline: controlled vocabularies, the intent record shape, vector
// collections and the structured database descriptor. The schema is
// constructed once at startup, validated once, and never mutated.
package schema

// =============================================================================
// VOCABULARY AXES
// =============================================================================

// Vocabulary axis names. These are the only axes the pipeline knows about;
// every vocabulary-bound intent field maps to exactly one of them.
const (
	AxisCategories     = "categories"
	AxisFunctionality  = "functionality"
	AxisUserTypes      = "userTypes"
	AxisInterface      = "interface"
	AxisDeployment     = "deployment"
	AxisIndustries     = "industries"
	AxisPricingModels  = "pricingModels"
	AxisBillingPeriods = "billingPeriods"
)

// KnownAxes lists every vocabulary axis in canonical order.
var KnownAxes = []string{
	AxisCategories,
	AxisFunctionality,
	AxisUserTypes,
	AxisInterface,
	AxisDeployment,
	AxisIndustries,
	AxisPricingModels,
	AxisBillingPeriods,
}

// =============================================================================
// INTENT FIELD DEFINITIONS
// =============================================================================

// FieldType enumerates the admissible intent field types.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
	FieldObject  FieldType = "object"
	FieldEnum    FieldType = "enum"
)

// FieldDef describes one field of the intent record the extractor must emit.
type FieldDef struct {
	Name        string     `yaml:"name" json:"name"`
	Type        FieldType  `yaml:"type" json:"type"`
	Required    bool       `yaml:"required" json:"required"`
	Description string     `yaml:"description" json:"description"`
	EnumValues  []string   `yaml:"enumValues,omitempty" json:"enumValues,omitempty"`
	Children    []FieldDef `yaml:"children,omitempty" json:"children,omitempty"`

	// VocabularyAxis binds a field to a controlled vocabulary. Empty means
	// the field is free-form.
	VocabularyAxis string `yaml:"vocabularyAxis,omitempty" json:"vocabularyAxis,omitempty"`
}

// =============================================================================
// VECTOR COLLECTIONS
// =============================================================================

// VectorCollection describes a single vector search collection.
type VectorCollection struct {
	Name           string `yaml:"name" json:"name"`
	EmbeddingField string `yaml:"embeddingField" json:"embeddingField"`
	Dimension      int    `yaml:"dimension" json:"dimension"`
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	Description    string `yaml:"description,omitempty" json:"description,omitempty"`
}

// =============================================================================
// STRUCTURED DATABASE
// =============================================================================

// StructuredDatabase describes the metadata store the filter predicates
// target. FilterableFields is the single source of truth for filter field
// names: the filter builder emits nothing outside this list.
type StructuredDatabase struct {
	Collection       string   `yaml:"collection" json:"collection"`
	Type             string   `yaml:"type" json:"type"`
	SearchFields     []string `yaml:"searchFields" json:"searchFields"`
	FilterableFields []string `yaml:"filterableFields" json:"filterableFields"`
}

// Known structured database types.
var knownDatabaseTypes = map[string]bool{
	"sqlite":  true,
	"mongodb": true,
}

// =============================================================================
// DOMAIN SCHEMA
// =============================================================================

// DomainSchema is the process-wide immutable configuration of the pipeline.
type DomainSchema struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	Vocabularies map[string][]string `yaml:"vocabularies" json:"vocabularies"`

	IntentFields []FieldDef `yaml:"intentFields" json:"intentFields"`

	VectorCollections []VectorCollection `yaml:"vectorCollections" json:"vectorCollections"`

	StructuredDatabase StructuredDatabase `yaml:"structuredDatabase" json:"structuredDatabase"`

	// EmbeddingFields maps a collection name to the payload path whose
	// vector is used for similarity search (e.g. tools -> semantic).
	EmbeddingFields map[string]string `yaml:"embeddingFields,omitempty" json:"embeddingFields,omitempty"`
}

// Vocabulary returns the values of an axis, or nil if the axis is unknown.
func (s *DomainSchema) Vocabulary(axis string) []string {
	return s.Vocabularies[axis]
}

// InVocabulary reports whether value is an exact member of the axis.
// No case folding, no synonym expansion.
func (s *DomainSchema) InVocabulary(axis, value string) bool {
	for _, v := range s.Vocabularies[axis] {
		if v == value {
			return true
		}
	}
	return false
}

// Collection returns the named vector collection, if declared.
func (s *DomainSchema) Collection(name string) (VectorCollection, bool) {
	for _, c := range s.VectorCollections {
		if c.Name == name {
			return c, true
		}
	}
	return VectorCollection{}, false
}

// CollectionEnabled reports whether name is a declared, enabled collection.
func (s *DomainSchema) CollectionEnabled(name string) bool {
	c, ok := s.Collection(name)
	return ok && c.Enabled
}

// EnabledCollections returns the names of all enabled collections in
// declaration order.
func (s *DomainSchema) EnabledCollections() []string {
	var names []string
	for _, c := range s.VectorCollections {
		if c.Enabled {
			names = append(names, c.Name)
		}
	}
	return names
}

// EmbeddingFieldFor resolves the embedding field for a collection. Falls
// back to the collection's own declaration when no explicit mapping exists.
func (s *DomainSchema) EmbeddingFieldFor(collection string) string {
	if f, ok := s.EmbeddingFields[collection]; ok {
		return f
	}
	if c, ok := s.Collection(collection); ok {
		return c.EmbeddingField
	}
	return ""
}

// EmbeddingFieldSet returns the closed set of admissible embedding fields.
func (s *DomainSchema) EmbeddingFieldSet() map[string]bool {
	set := make(map[string]bool)
	for _, c := range s.VectorCollections {
		set[c.EmbeddingField] = true
	}
	for _, f := range s.EmbeddingFields {
		set[f] = true
	}
	return set
}

// FilterableField reports whether field may appear in a filter predicate.
func (s *DomainSchema) FilterableField(field string) bool {
	for _, f := range s.StructuredDatabase.FilterableFields {
		if f == field {
			return true
		}
	}
	return false
}

// IntentField returns the definition of a top-level intent field.
func (s *DomainSchema) IntentField(name string) (FieldDef, bool) {
	for _, f := range s.IntentFields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}
