package schema

// DefaultToolsSchema returns the built-in schema for the codiesvibe tools
// directory. It is the reference configuration the pipeline ships with;
// deployments may override it with a YAML schema file.
func DefaultToolsSchema() *DomainSchema {
	return &DomainSchema{
		Name:    "codiesvibe-tools",
		Version: "1.2.0",

		Vocabularies: map[string][]string{
			AxisCategories: {
				"Code Editor", "IDE", "AI Assistant", "Code Review",
				"Testing", "DevOps", "Database", "API Development",
				"Documentation", "Design", "Project Management",
				"Security", "Monitoring", "Data Science",
			},
			AxisFunctionality: {
				"Code Generation", "Code Completion", "Code Search",
				"Refactoring", "Debugging", "Test Generation",
				"Documentation Generation", "Chat", "Agent Workflows",
				"Image Generation", "Data Analysis", "Deployment",
			},
			AxisUserTypes: {
				"Developer", "Data Scientist", "Designer",
				"Product Manager", "DevOps Engineer", "Student", "Team",
			},
			AxisInterface: {
				"CLI", "Web", "Desktop", "IDE Plugin", "API", "Mobile",
			},
			AxisDeployment: {
				"Cloud", "Self-Hosted", "Hybrid",
			},
			AxisIndustries: {
				"Software", "Finance", "Healthcare", "Education",
				"E-Commerce", "Gaming", "Media",
			},
			AxisPricingModels: {
				"Free", "Freemium", "Subscription", "One-Time", "Usage-Based",
			},
			AxisBillingPeriods: {
				"Monthly", "Yearly", "One-Time",
			},
		},

		IntentFields: []FieldDef{
			{
				Name: "primaryGoal", Type: FieldEnum, Required: true,
				Description: "What the user ultimately wants to do",
				EnumValues:  []string{"find", "compare", "recommend", "explore", "analyze", "explain"},
			},
			{
				Name: "referenceTool", Type: FieldString,
				Description: "Tool the user names as a point of comparison, if any",
			},
			{
				Name: "comparisonMode", Type: FieldEnum,
				Description: "How the reference tool relates to the request",
				EnumValues:  []string{"similar_to", "vs", "alternative_to"},
			},
			{
				Name: "category", Type: FieldString,
				Description:    "Tool category preference",
				VocabularyAxis: AxisCategories,
			},
			{
				Name: "interface", Type: FieldString,
				Description:    "Preferred interface",
				VocabularyAxis: AxisInterface,
			},
			{
				Name: "functionality", Type: FieldArray,
				Description:    "Capabilities the tool must have",
				VocabularyAxis: AxisFunctionality,
			},
			{
				Name: "deployment", Type: FieldString,
				Description:    "Preferred deployment model",
				VocabularyAxis: AxisDeployment,
			},
			{
				Name: "industry", Type: FieldString,
				Description:    "Industry context, if stated",
				VocabularyAxis: AxisIndustries,
			},
			{
				Name: "userType", Type: FieldString,
				Description:    "Who the tool is for",
				VocabularyAxis: AxisUserTypes,
			},
			{
				Name: "pricingModel", Type: FieldString,
				Description:    "Pricing model preference",
				VocabularyAxis: AxisPricingModels,
			},
			{
				Name: "billingPeriod", Type: FieldString,
				Description:    "Billing period preference",
				VocabularyAxis: AxisBillingPeriods,
			},
			{
				Name: "priceRange", Type: FieldObject,
				Description: "Explicit price interval, when both or either bound is stated",
				Children: []FieldDef{
					{Name: "min", Type: FieldNumber, Description: "Lower bound, null if open"},
					{Name: "max", Type: FieldNumber, Description: "Upper bound, null if open"},
					{Name: "currency", Type: FieldString, Description: "ISO currency code"},
					{Name: "billingPeriod", Type: FieldString, Description: "Billing period the bounds refer to", VocabularyAxis: AxisBillingPeriods},
				},
			},
			{
				Name: "priceComparison", Type: FieldObject,
				Description: "Single-sided price constraint (under, over, around...)",
				Children: []FieldDef{
					{Name: "operator", Type: FieldEnum, EnumValues: []string{
						"less_than", "less_than_or_equal", "greater_than",
						"greater_than_or_equal", "equal", "not_equal",
						"around", "between",
					}},
					{Name: "value", Type: FieldNumber, Description: "Price value the operator applies to"},
					{Name: "currency", Type: FieldString},
					{Name: "billingPeriod", Type: FieldString, VocabularyAxis: AxisBillingPeriods},
				},
			},
			{
				Name: "semanticVariants", Type: FieldArray,
				Description: "Alternative phrasings of the query for vector search",
			},
			{
				Name: "constraints", Type: FieldArray,
				Description: "Hard requirements stated in prose (e.g. offline, open source)",
			},
			{
				Name: "confidence", Type: FieldNumber, Required: true,
				Description: "Extractor's confidence in this record, 0 to 1",
			},
		},

		VectorCollections: []VectorCollection{
			{Name: "tools", EmbeddingField: "semantic", Dimension: 768, Enabled: true,
				Description: "Tool identity: name, tagline, description"},
			{Name: "functionality", EmbeddingField: "entities.functionality", Dimension: 768, Enabled: true,
				Description: "Capability descriptions per tool"},
			{Name: "usecases", EmbeddingField: "entities.usecases", Dimension: 768, Enabled: true,
				Description: "Scenario and workflow descriptions"},
			{Name: "interface", EmbeddingField: "entities.interface", Dimension: 768, Enabled: true,
				Description: "Platform and interface descriptions"},
		},

		StructuredDatabase: StructuredDatabase{
			Collection:   "tools",
			Type:         "sqlite",
			SearchFields: []string{"name", "tagline", "description"},
			FilterableFields: []string{
				"categories.primary", "interface", "functionality",
				"deployment", "pricingModel", "pricing",
				"userTypes", "industries",
			},
		},

		EmbeddingFields: map[string]string{
			"tools":         "semantic",
			"functionality": "entities.functionality",
			"usecases":      "entities.usecases",
			"interface":     "entities.interface",
		},
	}
}

// FilterTargets names the structured-store field each intent preference maps
// to. The structured database's filterableFields list is the source of truth;
// these constants exist so the filter builder and tests agree on spelling.
const (
	FilterFieldCategory      = "categories.primary"
	FilterFieldInterface     = "interface"
	FilterFieldFunctionality = "functionality"
	FilterFieldDeployment    = "deployment"
	FilterFieldPricingModel  = "pricingModel"
	FilterFieldPricing       = "pricing"
)
