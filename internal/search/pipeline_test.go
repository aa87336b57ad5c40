package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/foyzulkarim/codiesvibe-search/internal/executor"
	"github.com/foyzulkarim/codiesvibe-search/internal/filter"
	"github.com/foyzulkarim/codiesvibe-search/internal/intent"
	"github.com/foyzulkarim/codiesvibe-search/internal/planner"
	"github.com/foyzulkarim/codiesvibe-search/internal/schema"
)

// scriptedLLM replays canned responses: first the intent JSON, then the
// plan JSON, mirroring the two model calls a request makes.
type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteWithSystem(ctx, "", prompt)
}

func (s *scriptedLLM) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.calls >= len(s.responses) {
		return "", fmt.Errorf("scripted LLM exhausted after %d calls", s.calls)
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

type fakeVectors struct {
	hits map[string][]executor.Hit
	fail map[string]error
}

func (f *fakeVectors) Search(ctx context.Context, collection string, vector []float32, topK int) ([]executor.Hit, error) {
	if err, ok := f.fail[collection]; ok {
		return nil, err
	}
	hits := f.hits[collection]
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

type fakeStructured struct {
	docs    []executor.Document
	filters []filter.Predicate
}

func (f *fakeStructured) Query(ctx context.Context, collection string, filters []filter.Predicate, limit int) ([]executor.Document, error) {
	f.filters = filters
	return f.docs, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeToolVectors struct {
	known map[string][]float32
}

func (f *fakeToolVectors) ToolVector(ctx context.Context, toolID, embeddingField string) ([]float32, error) {
	if v, ok := f.known[toolID]; ok {
		return v, nil
	}
	return nil, executor.ErrVectorNotFound
}

const defaultDraft = `{
	"strategy": "identity-focused",
	"vectorSources": [{"collection": "tools", "queryVectorSource": "query_text", "topK": 70}],
	"explanation": "baseline plan"
}`

func defaultHits() map[string][]executor.Hit {
	return map[string][]executor.Hit{
		"tools": {
			{ID: "tool-a", Score: 0.9, Payload: map[string]interface{}{"name": "Tool A"}},
			{ID: "tool-b", Score: 0.5},
		},
		"functionality": {
			{ID: "tool-b", Score: 0.7},
			{ID: "tool-c", Score: 0.3},
		},
		"usecases":  {{ID: "tool-a", Score: 0.4}},
		"interface": {{ID: "tool-d", Score: 0.6}},
	}
}

type fixture struct {
	pipeline   *Pipeline
	structured *fakeStructured
	vectors    *fakeVectors
}

func newFixture(t *testing.T, intentJSON string, cfg Config) *fixture {
	t.Helper()
	s := schema.DefaultToolsSchema()
	llm := &scriptedLLM{responses: []string{intentJSON, defaultDraft}}

	vectors := &fakeVectors{hits: defaultHits()}
	structured := &fakeStructured{docs: []executor.Document{{ID: "struct-1"}}}
	tools := &fakeToolVectors{known: map[string][]float32{"Cursor IDE": {1, 0, 0}}}

	run := executor.New(vectors, structured, fakeEmbedder{}, tools, executor.DefaultConfig())
	p := New(
		intent.NewExtractor(llm, s, "intent-system", 0.3),
		planner.NewPlanner(llm, s, "planner-system"),
		run,
		nil,
		cfg,
	)
	return &fixture{pipeline: p, structured: structured, vectors: vectors}
}

func defaultTestConfig() Config {
	return Config{Deadline: 5 * time.Second, ScoreThreshold: 0.5}
}

func TestSearchFreeCliTools(t *testing.T) {
	// S1: structured filters in order interface then pricingModel, and a
	// vector source on tools.
	f := newFixture(t, `{
		"primaryGoal": "find",
		"interface": "CLI",
		"pricingModel": "Free",
		"confidence": 0.9
	}`, defaultTestConfig())

	resp, err := f.pipeline.Search(context.Background(), "free cli tools", Options{Debug: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Candidates) == 0 {
		t.Fatal("expected candidates")
	}

	wantFilters := []filter.Predicate{
		{Field: schema.FilterFieldInterface, Operator: filter.OpIn, Value: []string{"CLI"}},
		{Field: schema.FilterFieldPricingModel, Operator: filter.OpIn, Value: []string{"Free"}},
	}
	if diff := cmp.Diff(wantFilters, f.structured.filters); diff != "" {
		t.Errorf("structured filters mismatch (-want +got):\n%s", diff)
	}

	foundTools := false
	for _, vs := range resp.Plan.VectorSources {
		if vs.Collection == "tools" {
			foundTools = true
		}
	}
	if !foundTools {
		t.Error("plan missing vector source on tools")
	}
}

func TestSearchPriceComparison(t *testing.T) {
	// S2: under $50 per month becomes an elemMatch on the pricing array.
	f := newFixture(t, `{
		"primaryGoal": "find",
		"priceComparison": {"operator": "less_than", "value": 50, "billingPeriod": "Monthly"},
		"confidence": 0.85
	}`, defaultTestConfig())

	resp, err := f.pipeline.Search(context.Background(), "AI tools under $50 per month", Options{Debug: true})
	if err != nil {
		t.Fatal(err)
	}

	want := filter.Predicate{
		Field:    schema.FilterFieldPricing,
		Operator: filter.OpElemMatch,
		Value: map[string]interface{}{
			"billingPeriod": "Monthly",
			"price":         map[string]interface{}{"<": 50.0},
		},
	}
	if len(resp.Plan.StructuredSources) != 1 {
		t.Fatalf("structuredSources=%d, want 1", len(resp.Plan.StructuredSources))
	}
	if diff := cmp.Diff(want, resp.Plan.StructuredSources[0].Filters[0]); diff != "" {
		t.Errorf("price filter mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchPriceRangeAndCategory(t *testing.T) {
	// S3: range filter first, then the category membership filter.
	f := newFixture(t, `{
		"primaryGoal": "find",
		"category": "Code Editor",
		"priceRange": {"min": 20, "max": 100, "billingPeriod": "Monthly"},
		"confidence": 0.9
	}`, defaultTestConfig())

	resp, err := f.pipeline.Search(context.Background(), "code editor between $20-100 monthly", Options{Debug: true})
	if err != nil {
		t.Fatal(err)
	}

	filters := resp.Plan.StructuredSources[0].Filters
	wantRange := filter.Predicate{
		Field:    schema.FilterFieldPricing,
		Operator: filter.OpElemMatch,
		Value: map[string]interface{}{
			"billingPeriod": "Monthly",
			"price":         map[string]interface{}{">=": 20.0, "<=": 100.0},
		},
	}
	wantCategory := filter.Predicate{
		Field:    schema.FilterFieldCategory,
		Operator: filter.OpIn,
		Value:    []string{"Code Editor"},
	}
	if diff := cmp.Diff(wantRange, filters[0]); diff != "" {
		t.Errorf("range filter mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantCategory, filters[1]); diff != "" {
		t.Errorf("category filter mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchReferenceToolAlternative(t *testing.T) {
	// S4: reference tool drives the query vector; strategy ends hybrid.
	f := newFixture(t, `{
		"primaryGoal": "find",
		"referenceTool": "Cursor IDE",
		"comparisonMode": "alternative_to",
		"category": "Code Editor",
		"priceComparison": {"operator": "less_than", "value": 20, "billingPeriod": "Monthly"},
		"confidence": 0.85
	}`, defaultTestConfig())

	resp, err := f.pipeline.Search(context.Background(), "Cursor alternative but cheaper", Options{Debug: true})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Plan.Strategy != planner.StrategyHybrid && resp.Plan.Strategy != planner.StrategyIdentity {
		t.Errorf("strategy=%s, want hybrid or identity-focused", resp.Plan.Strategy)
	}
	found := false
	for _, vs := range resp.Plan.VectorSources {
		if vs.QueryVectorSource == planner.VectorFromReferenceTool {
			found = true
		}
	}
	if !found {
		t.Error("no vector source uses the reference tool embedding")
	}
}

func TestSearchAroundPrice(t *testing.T) {
	// S5: around $30 becomes the closed interval [27, 33].
	f := newFixture(t, `{
		"primaryGoal": "find",
		"priceComparison": {"operator": "around", "value": 30, "billingPeriod": "Monthly"},
		"confidence": 0.8
	}`, defaultTestConfig())

	resp, err := f.pipeline.Search(context.Background(), "tools around $30 per month", Options{Debug: true})
	if err != nil {
		t.Fatal(err)
	}

	price := resp.Plan.StructuredSources[0].Filters[0].Value.(map[string]interface{})["price"]
	want := map[string]interface{}{">=": 27.0, "<=": 33.0}
	if diff := cmp.Diff(want, price); diff != "" {
		t.Errorf("around interval mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchMultiAxisFilters(t *testing.T) {
	// S6: filters for pricing model, functionality, and deployment, with
	// a functionality vector source in the plan.
	f := newFixture(t, `{
		"primaryGoal": "find",
		"pricingModel": "Free",
		"functionality": ["Code Generation"],
		"deployment": "Self-Hosted",
		"confidence": 0.9
	}`, defaultTestConfig())

	resp, err := f.pipeline.Search(context.Background(), "free offline AI code generator", Options{Debug: true})
	if err != nil {
		t.Fatal(err)
	}

	fields := map[string]bool{}
	for _, p := range resp.Plan.StructuredSources[0].Filters {
		fields[p.Field] = true
	}
	for _, want := range []string{schema.FilterFieldDeployment, schema.FilterFieldFunctionality, schema.FilterFieldPricingModel} {
		if !fields[want] {
			t.Errorf("missing filter on %s", want)
		}
	}

	foundFunctionality := false
	for _, vs := range resp.Plan.VectorSources {
		if vs.Collection == "functionality" {
			foundFunctionality = true
		}
	}
	if !foundFunctionality {
		t.Error("plan missing functionality vector source")
	}
}

func TestSearchVocabularyMismatchIsFatal(t *testing.T) {
	f := newFixture(t, `{
		"primaryGoal": "find",
		"interface": "Terminal",
		"confidence": 0.9
	}`, defaultTestConfig())

	resp, err := f.pipeline.Search(context.Background(), "terminal tools", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Candidates) != 0 {
		t.Fatal("fatal error must return zero candidates")
	}
	if len(resp.Errors) == 0 {
		t.Fatal("expected error entries")
	}
	e := resp.Errors[0]
	if e.Kind != KindVocabularyMismatch || e.Node != nodeIntentExtractor || e.Recovered {
		t.Fatalf("error=%+v", e)
	}
}

func TestSearchSurvivesSourceFailure(t *testing.T) {
	f := newFixture(t, `{"primaryGoal": "find", "confidence": 0.9}`, defaultTestConfig())
	f.vectors.fail = map[string]error{"functionality": errors.New("backend down")}

	resp, err := f.pipeline.Search(context.Background(), "any tools", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Candidates) == 0 {
		t.Fatal("expected partial results despite source failure")
	}

	recovered := 0
	for _, e := range resp.Errors {
		if e.Kind == KindSourceUnavailable && e.Recovered {
			recovered++
			if e.Node != "vector:functionality" {
				t.Errorf("failure node=%s, want vector:functionality", e.Node)
			}
		}
	}
	if recovered != 1 {
		t.Fatalf("recovered errors=%d, want 1", recovered)
	}
}

func TestSearchDedupAcrossSources(t *testing.T) {
	f := newFixture(t, `{"primaryGoal": "find", "confidence": 0.9}`, defaultTestConfig())

	resp, err := f.pipeline.Search(context.Background(), "any tools", Options{})
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, c := range resp.Candidates {
		if seen[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestSearchScoreThreshold(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.ScoreThreshold = 0.9
	f := newFixture(t, `{"primaryGoal": "find", "confidence": 0.9}`, cfg)

	resp, err := f.pipeline.Search(context.Background(), "any tools", Options{})
	if err != nil {
		t.Fatal(err)
	}
	// Only tool-a's 0.9 cosine normalizes to 0.95 and clears the bar.
	if len(resp.Candidates) != 1 || resp.Candidates[0].ID != "tool-a" {
		t.Fatalf("candidates=%+v, want only tool-a", resp.Candidates)
	}
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.ScoreThreshold = 0.99
	f := newFixture(t, `{"primaryGoal": "find", "confidence": 0.9}`, cfg)
	f.structured.docs = nil

	resp, err := f.pipeline.Search(context.Background(), "nothing matches", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Candidates) != 0 {
		t.Fatal("expected zero candidates")
	}
	found := false
	for _, e := range resp.Errors {
		if e.Kind == KindEmptyResult && e.Recovered {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected recovered empty-result entry, got %+v", resp.Errors)
	}
}

func TestSearchCache(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.EnableCache = true
	cfg.CacheTTL = time.Minute

	s := schema.DefaultToolsSchema()
	llm := &scriptedLLM{responses: []string{
		`{"primaryGoal": "find", "confidence": 0.9}`, defaultDraft,
	}}
	run := executor.New(&fakeVectors{hits: defaultHits()}, &fakeStructured{}, fakeEmbedder{}, nil, executor.DefaultConfig())
	p := New(
		intent.NewExtractor(llm, s, "intent-system", 0.3),
		planner.NewPlanner(llm, s, "planner-system"),
		run, nil, cfg,
	)

	first, err := p.Search(context.Background(), "cached query", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Fatal("first response must not be cached")
	}

	// The scripted LLM is exhausted: a second hit can only succeed via
	// the cache.
	second, err := p.Search(context.Background(), "cached query", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Fatal("second response should come from cache")
	}
	if second.RequestID == first.RequestID {
		t.Fatal("cached responses must still get fresh request ids")
	}
	if len(second.Candidates) != len(first.Candidates) {
		t.Fatalf("cached candidates=%d, want %d", len(second.Candidates), len(first.Candidates))
	}
}
