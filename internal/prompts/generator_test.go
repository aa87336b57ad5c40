package prompts

import (
	"strings"
	"testing"

	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
)

func TestIntentPromptDeterminism(t *testing.T) {
	g := NewGenerator(schema.DefaultToolsSchema())
	first := g.IntentPrompt()
	for i := 0; i < 5; i++ {
		if got := g.IntentPrompt(); got != first {
			t.Fatalf("IntentPrompt not deterministic on run %d", i)
		}
	}
}

func TestPlanningPromptDeterminism(t *testing.T) {
	g := NewGenerator(schema.DefaultToolsSchema())
	first := g.PlanningPrompt()
	for i := 0; i < 5; i++ {
		if got := g.PlanningPrompt(); got != first {
			t.Fatalf("PlanningPrompt not deterministic on run %d", i)
		}
	}
}

func TestIntentPromptContent(t *testing.T) {
	g := NewGenerator(schema.DefaultToolsSchema())
	prompt := g.IntentPrompt()

	for _, want := range []string{
		`"primaryGoal": <one of: "find" | "compare" | "recommend" | "explore" | "analyze" | "explain">`,
		`"priceComparison": {`,
		`"operator": <one of: "less_than"`,
		`// nullable`,
		`- interface: "CLI", "Web", "Desktop", "IDE Plugin", "API", "Mobile"`,
		`- pricingModels: "Free", "Freemium", "Subscription", "One-Time", "Usage-Based"`,
		`"free" -> pricingModel "Free"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("intent prompt missing %q", want)
		}
	}

	// Required fields carry no nullable marker.
	if strings.Contains(prompt, `"confidence": <number>  // nullable`) {
		t.Error("required field confidence marked nullable")
	}
}

func TestPlanningPromptContent(t *testing.T) {
	g := NewGenerator(schema.DefaultToolsSchema())
	prompt := g.PlanningPrompt()

	for _, want := range []string{
		`"tools" (embedding field "semantic", 768 dims, enabled)`,
		`identity-focused: primary "tools"`,
		`"categories.primary": EXACT values only:`,
		`"pricing"`,
		`never a`,
		`"rrf": reciprocal rank fusion`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("planning prompt missing %q", want)
		}
	}
}

func TestPlanningPromptMarksDisabledCollections(t *testing.T) {
	s := schema.DefaultToolsSchema()
	s.VectorCollections[3].Enabled = false // interface
	prompt := NewGenerator(s).PlanningPrompt()
	if !strings.Contains(prompt, "DISABLED - do not use") {
		t.Fatal("disabled collection not marked in planning prompt")
	}
}
