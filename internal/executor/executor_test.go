package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/foyzulkarim/codiesvibe-search/internal/filter"
	"github.com/foyzulkarim/codiesvibe-search/internal/planner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeVectors serves canned hits per collection and can fail or stall
// selected collections.
type fakeVectors struct {
	hits  map[string][]Hit
	fail  map[string]error
	stall map[string]time.Duration
}

func (f *fakeVectors) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error) {
	if d, ok := f.stall[collection]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
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
	docs []Document
	err  error
}

func (f *fakeStructured) Query(ctx context.Context, collection string, filters []filter.Predicate, limit int) ([]Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	docs := f.docs
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeToolVectors struct {
	vectors map[string][]float32
}

func (f *fakeToolVectors) ToolVector(ctx context.Context, toolID, embeddingField string) ([]float32, error) {
	if v, ok := f.vectors[toolID]; ok {
		return v, nil
	}
	return nil, ErrVectorNotFound
}

func vectorSource(collection string, topK int, weight float64) planner.VectorSource {
	return planner.VectorSource{
		Collection:        collection,
		EmbeddingField:    "semantic",
		QueryVectorSource: planner.VectorFromQueryText,
		TopK:              topK,
		Weight:            weight,
	}
}

func twoSourcePlan() *planner.QueryPlan {
	return &planner.QueryPlan{
		Strategy: planner.StrategyMultiVec,
		VectorSources: []planner.VectorSource{
			vectorSource("tools", 10, 1.0),
			vectorSource("functionality", 10, 0.6),
		},
		Fusion:     planner.FusionWeightedSum,
		Confidence: 0.8,
	}
}

func TestExecuteFusesTwoSources(t *testing.T) {
	vectors := &fakeVectors{hits: map[string][]Hit{
		"tools":         {{ID: "a", Score: 0.8}, {ID: "b", Score: 0.4}},
		"functionality": {{ID: "b", Score: 0.6}, {ID: "c", Score: 0.2}},
	}}
	e := New(vectors, &fakeStructured{}, &fakeEmbedder{}, nil, DefaultConfig())

	result, err := e.Execute(context.Background(), twoSourcePlan(), "query", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}

	seen := map[string]bool{}
	for _, c := range result.Candidates {
		if seen[c.ID] {
			t.Fatalf("duplicate id %s in final list", c.ID)
		}
		seen[c.ID] = true
	}
	if !seen["a"] || !seen["b"] || !seen["c"] {
		t.Fatalf("missing candidates: %v", seen)
	}
	// b appears in both sources and must carry merged provenance.
	for _, c := range result.Candidates {
		if c.ID == "b" && len(c.Provenance) != 2 {
			t.Fatalf("b provenance=%d entries, want 2", len(c.Provenance))
		}
	}
}

func TestExecuteQueryEmbeddedOnce(t *testing.T) {
	embedder := &fakeEmbedder{}
	vectors := &fakeVectors{hits: map[string][]Hit{"tools": {{ID: "a", Score: 0.5}}}}
	e := New(vectors, &fakeStructured{}, embedder, nil, DefaultConfig())

	if _, err := e.Execute(context.Background(), twoSourcePlan(), "query", nil, ""); err != nil {
		t.Fatal(err)
	}
	if embedder.calls != 1 {
		t.Fatalf("embedder called %d times, want 1", embedder.calls)
	}
}

func TestExecuteSurvivesSingleSourceFailure(t *testing.T) {
	vectors := &fakeVectors{
		hits: map[string][]Hit{"tools": {{ID: "a", Score: 0.8}}},
		fail: map[string]error{"functionality": errors.New("connection reset")},
	}
	e := New(vectors, &fakeStructured{}, &fakeEmbedder{}, nil, DefaultConfig())

	result, err := e.Execute(context.Background(), twoSourcePlan(), "query", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Candidates) == 0 {
		t.Fatal("expected partial results")
	}
	if len(result.Failures) != 1 {
		t.Fatalf("failures=%v, want exactly one", result.Failures)
	}
	f := result.Failures[0]
	if f.Source != "vector:functionality" || f.Kind != KindSourceUnavailable {
		t.Fatalf("failure=%+v", f)
	}
}

func TestExecuteClassifiesTimeout(t *testing.T) {
	vectors := &fakeVectors{
		hits:  map[string][]Hit{"tools": {{ID: "a", Score: 0.8}}},
		stall: map[string]time.Duration{"functionality": time.Second},
	}
	cfg := DefaultConfig()
	cfg.VectorTimeout = 20 * time.Millisecond
	e := New(vectors, &fakeStructured{}, &fakeEmbedder{}, nil, cfg)

	result, err := e.Execute(context.Background(), twoSourcePlan(), "query", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failures) != 1 || result.Failures[0].Kind != KindSourceTimeout {
		t.Fatalf("failures=%v, want one timeout", result.Failures)
	}
}

func TestExecuteAllSourcesFailed(t *testing.T) {
	vectors := &fakeVectors{fail: map[string]error{
		"tools":         errors.New("down"),
		"functionality": errors.New("down"),
	}}
	e := New(vectors, &fakeStructured{}, &fakeEmbedder{}, nil, DefaultConfig())

	if _, err := e.Execute(context.Background(), twoSourcePlan(), "query", nil, ""); !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("want ErrAllSourcesFailed, got %v", err)
	}
}

func TestExecuteStructuredScore(t *testing.T) {
	plan := &planner.QueryPlan{
		Strategy: planner.StrategyHybrid,
		VectorSources: []planner.VectorSource{
			vectorSource("tools", 10, 1.0),
		},
		StructuredSources: []planner.StructuredSource{{
			Source: "tools",
			Filters: []filter.Predicate{
				{Field: "pricingModel", Operator: filter.OpIn, Value: []string{"Free"}},
			},
			Limit: 100,
		}},
		Fusion:     planner.FusionWeightedSum,
		Confidence: 0.8,
	}
	vectors := &fakeVectors{hits: map[string][]Hit{"tools": {{ID: "a", Score: 1.0}}}}
	structured := &fakeStructured{docs: []Document{{ID: "s1"}, {ID: "s2"}}}
	e := New(vectors, structured, &fakeEmbedder{}, nil, DefaultConfig())

	result, err := e.Execute(context.Background(), plan, "query", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range result.Candidates {
		if c.ID == "s1" || c.ID == "s2" {
			// Weighted sum of the fixed 0.5 score at the 0.5 default weight.
			if c.Score != 0.25 {
				t.Fatalf("structured candidate score=%.2f, want 0.25", c.Score)
			}
		}
	}
}

func TestExecuteTruncatesToTopKTotal(t *testing.T) {
	var hits []Hit
	for i := 0; i < 30; i++ {
		hits = append(hits, Hit{ID: fmt.Sprintf("t%02d", i), Score: 1 - float64(i)*0.01})
	}
	plan := &planner.QueryPlan{
		Strategy:      planner.StrategyMultiVec,
		VectorSources: []planner.VectorSource{vectorSource("tools", 5, 1.0)},
		Fusion:        planner.FusionNone,
		Confidence:    0.8,
	}
	vectors := &fakeVectors{hits: map[string][]Hit{"tools": hits}}
	e := New(vectors, &fakeStructured{}, &fakeEmbedder{}, nil, DefaultConfig())

	result, err := e.Execute(context.Background(), plan, "query", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Candidates) != 5 {
		t.Fatalf("returned=%d, want 5", len(result.Candidates))
	}
	if result.Stats.Returned != 5 {
		t.Fatalf("stats.returned=%d, want 5", result.Stats.Returned)
	}
}

func TestExecuteReferenceToolVector(t *testing.T) {
	plan := twoSourcePlan()
	for i := range plan.VectorSources {
		plan.VectorSources[i].QueryVectorSource = planner.VectorFromReferenceTool
	}
	embedder := &fakeEmbedder{}
	vectors := &fakeVectors{hits: map[string][]Hit{"tools": {{ID: "a", Score: 0.9}}}}
	tools := &fakeToolVectors{vectors: map[string][]float32{"Cursor IDE": {1, 2, 3}}}
	e := New(vectors, &fakeStructured{}, embedder, tools, DefaultConfig())

	if _, err := e.Execute(context.Background(), plan, "alternative to cursor", nil, "Cursor IDE"); err != nil {
		t.Fatal(err)
	}
	// Stored vector used directly; nothing embedded.
	if embedder.calls != 0 {
		t.Fatalf("embedder called %d times, want 0", embedder.calls)
	}
}

func TestExecuteReferenceToolFallsBackToQueryText(t *testing.T) {
	plan := twoSourcePlan()
	for i := range plan.VectorSources {
		plan.VectorSources[i].QueryVectorSource = planner.VectorFromReferenceTool
	}
	embedder := &fakeEmbedder{}
	vectors := &fakeVectors{hits: map[string][]Hit{"tools": {{ID: "a", Score: 0.9}}}}
	e := New(vectors, &fakeStructured{}, embedder, &fakeToolVectors{}, DefaultConfig())

	result, err := e.Execute(context.Background(), plan, "alternative to unknowntool", nil, "UnknownTool")
	if err != nil {
		t.Fatal(err)
	}
	if embedder.calls != 1 {
		t.Fatalf("embedder called %d times, want 1 (fallback)", embedder.calls)
	}
	if len(result.Candidates) == 0 {
		t.Fatal("expected results via fallback vector")
	}
}

func TestExecuteCompletionOrderIndependent(t *testing.T) {
	hits := map[string][]Hit{
		"tools":         {{ID: "a", Score: 0.8}, {ID: "b", Score: 0.4}},
		"functionality": {{ID: "b", Score: 0.6}, {ID: "c", Score: 0.2}},
	}
	fast := &fakeVectors{hits: hits}
	slow := &fakeVectors{hits: hits, stall: map[string]time.Duration{"tools": 50 * time.Millisecond}}

	run := func(v *fakeVectors) []string {
		e := New(v, &fakeStructured{}, &fakeEmbedder{}, nil, DefaultConfig())
		result, err := e.Execute(context.Background(), twoSourcePlan(), "query", nil, "")
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, c := range result.Candidates {
			ids = append(ids, c.ID)
		}
		return ids
	}

	a, b := run(fast), run(slow)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order differs at %d: %v vs %v", i, a, b)
		}
	}
}
