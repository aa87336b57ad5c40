package store

import (
	"context"
	"errors"
	"testing"

	"github.com/foyzulkarim/codiesvibe-search/internal/executor"
	"github.com/foyzulkarim/codiesvibe-search/internal/filter"
)

// stubEngine returns a fixed vector per known text so similarity ordering
// is predictable.
type stubEngine struct {
	vectors map[string][]float32
}

func (s *stubEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEngine) Dimensions() int { return 3 }
func (s *stubEngine) Name() string    { return "stub" }

func openTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	s.SetEmbeddingEngine(&stubEngine{vectors: map[string][]float32{
		"editor description": {1, 0, 0},
		"debugger features":  {0, 1, 0},
	}})
	return s
}

func indexFixtures(t *testing.T, s *LocalStore) {
	t.Helper()
	ctx := context.Background()
	fields := map[string]string{"tools": "semantic"}

	docs := []ToolDocument{
		{
			ID: "editor-1",
			Payload: map[string]interface{}{
				"interface":    []interface{}{"CLI"},
				"pricingModel": []interface{}{"Free"},
			},
			Texts: map[string]string{"tools": "editor description"},
		},
		{
			ID: "debugger-1",
			Payload: map[string]interface{}{
				"interface":    []interface{}{"Web"},
				"pricingModel": []interface{}{"Subscription"},
			},
			Texts: map[string]string{"tools": "debugger features"},
		},
	}
	for _, doc := range docs {
		if err := s.IndexTool(ctx, "tools", fields, doc); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSearchRanksByCosine(t *testing.T) {
	s := openTestStore(t)
	indexFixtures(t, s)

	hits, err := s.Search(context.Background(), "tools", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "editor-1" {
		t.Fatalf("top hit=%s, want editor-1", hits[0].ID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("scores not descending: %f <= %f", hits[0].Score, hits[1].Score)
	}
	if hits[0].Payload == nil {
		t.Fatal("hit payload not attached")
	}
}

func TestSearchRespectsTopK(t *testing.T) {
	s := openTestStore(t)
	indexFixtures(t, s)

	hits, err := s.Search(context.Background(), "tools", []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
}

func TestQueryAppliesPredicates(t *testing.T) {
	s := openTestStore(t)
	indexFixtures(t, s)

	docs, err := s.Query(context.Background(), "tools", []filter.Predicate{
		{Field: "pricingModel", Operator: filter.OpIn, Value: []string{"Free"}},
	}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "editor-1" {
		t.Fatalf("docs=%+v, want only editor-1", docs)
	}
}

func TestToolVectorRoundTrip(t *testing.T) {
	s := openTestStore(t)
	indexFixtures(t, s)

	vec, err := s.ToolVector(context.Background(), "editor-1", "semantic")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[0] != 1 {
		t.Fatalf("unexpected vector: %v", vec)
	}

	_, err = s.ToolVector(context.Background(), "missing-tool", "semantic")
	if !errors.Is(err, executor.ErrVectorNotFound) {
		t.Fatalf("want ErrVectorNotFound, got %v", err)
	}
}

func TestReindexReplacesRows(t *testing.T) {
	s := openTestStore(t)
	indexFixtures(t, s)

	doc := ToolDocument{
		ID: "editor-1",
		Payload: map[string]interface{}{
			"pricingModel": []interface{}{"Subscription"},
		},
		Texts: map[string]string{"tools": "editor description"},
	}
	if err := s.IndexTool(context.Background(), "tools", map[string]string{"tools": "semantic"}, doc); err != nil {
		t.Fatal(err)
	}

	docs, err := s.Query(context.Background(), "tools", []filter.Predicate{
		{Field: "pricingModel", Operator: filter.OpIn, Value: []string{"Free"}},
	}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Fatalf("stale payload survived reindex: %+v", docs)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["documents"].(int64) != 2 {
		t.Fatalf("documents=%v, want 2", stats["documents"])
	}
}
