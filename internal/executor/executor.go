// Package executor runs a query plan: it resolves query vectors, fans out
// to every source in parallel under per-source deadlines, fuses the ranked
// results, and returns a deduplicated candidate list. Source failures are
// recovered locally; the executor only fails outright when every source
// fails or the plan names a backend nothing exposes.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foyzulkarim/codiesvibe-search/internal/filter"
	"github.com/foyzulkarim/codiesvibe-search/internal/fusion"
	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
	"github.com/foyzulkarim/codiesvibe-search/internal/planner"
)

// ErrAllSourcesFailed: no source produced anything; the request cannot be
// answered even partially.
var ErrAllSourcesFailed = errors.New("all plan sources failed")

// ErrVectorNotFound is returned by ToolVectors when no stored embedding
// exists for the requested tool and field.
var ErrVectorNotFound = errors.New("tool vector not found")

// Hit is one ranked vector-search result. Score is a raw cosine similarity
// in [-1,1].
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]interface{}
}

// Document is one structured-query result.
type Document struct {
	ID      string
	Payload map[string]interface{}
}

// VectorSearcher searches one collection with a query vector.
type VectorSearcher interface {
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error)
}

// StructuredStore evaluates filter predicates against a collection.
type StructuredStore interface {
	Query(ctx context.Context, collection string, filters []filter.Predicate, limit int) ([]Document, error)
}

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ToolVectors resolves the stored embedding of a known tool. Implementations
// return ErrVectorNotFound when the tool or field is absent.
type ToolVectors interface {
	ToolVector(ctx context.Context, toolID, embeddingField string) ([]float32, error)
}

// Failure kinds for per-source errors.
const (
	KindSourceUnavailable = "source-unavailable"
	KindSourceTimeout     = "source-timeout"
)

// SourceFailure records a recovered per-source fault.
type SourceFailure struct {
	Source string
	Kind   string
	Err    error
}

func (f SourceFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Source, f.Kind, f.Err)
}

// SourceStat captures one source's outcome for the stats block.
type SourceStat struct {
	Source    string `json:"source"`
	LatencyMS int64  `json:"latencyMs"`
	Results   int    `json:"results"`
	Failed    bool   `json:"failed,omitempty"`
	TimedOut  bool   `json:"timedOut,omitempty"`
}

// Stats describes how a plan execution went.
type Stats struct {
	Sources         []SourceStat `json:"sources"`
	Fusion          string       `json:"fusion"`
	TotalCandidates int          `json:"totalCandidates"`
	Returned        int          `json:"returned"`
	ElapsedMS       int64        `json:"elapsedMs"`
}

// Result is the executor's complete output: fused candidates, execution
// stats, and every recovered failure.
type Result struct {
	Candidates []fusion.Candidate
	Stats      Stats
	Failures   []SourceFailure
}

// Config bounds per-source work.
type Config struct {
	VectorTimeout     time.Duration
	StructuredTimeout time.Duration
	StructuredScore   float64
}

// DefaultConfig returns the standard source budgets.
func DefaultConfig() Config {
	return Config{
		VectorTimeout:     5 * time.Second,
		StructuredTimeout: 3 * time.Second,
		StructuredScore:   0.5,
	}
}

// Executor owns plan execution against concrete backends.
type Executor struct {
	vectors     VectorSearcher
	structured  StructuredStore
	embedder    Embedder
	toolVectors ToolVectors
	config      Config
}

// New creates an executor. toolVectors may be nil when reference-tool
// lookups are not supported by the deployment.
func New(vectors VectorSearcher, structured StructuredStore, embedder Embedder, toolVectors ToolVectors, config Config) *Executor {
	return &Executor{
		vectors:     vectors,
		structured:  structured,
		embedder:    embedder,
		toolVectors: toolVectors,
		config:      config,
	}
}

// Execute runs the plan for the original query text. Partial results are
// returned whenever at least one source succeeds.
func (e *Executor) Execute(ctx context.Context, plan *planner.QueryPlan, query string, variants []string, referenceTool string) (*Result, error) {
	start := time.Now()
	timer := logging.StartTimer(logging.CategoryExecutor, "Execute")
	defer timer.Stop()

	sourceCount := len(plan.VectorSources) + len(plan.StructuredSources)
	if sourceCount == 0 {
		return &Result{Stats: Stats{Fusion: plan.Fusion}}, nil
	}

	vectors, vectorFailures := e.resolveQueryVectors(ctx, plan, query, variants, referenceTool)

	lists := make([]fusion.List, sourceCount)
	stats := make([]SourceStat, sourceCount)
	failures := make([]SourceFailure, sourceCount)
	haveFailure := make([]bool, sourceCount)

	g, gctx := errgroup.WithContext(ctx)
	for i, vs := range plan.VectorSources {
		i, vs := i, vs
		name := "vector:" + vs.Collection
		stats[i].Source = name

		if f, bad := vectorFailures[vs.QueryVectorSource]; bad {
			failures[i] = SourceFailure{Source: name, Kind: KindSourceUnavailable, Err: f}
			haveFailure[i] = true
			stats[i].Failed = true
			continue
		}
		vector := vectors[vs.QueryVectorSource]

		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, e.config.VectorTimeout)
			defer cancel()

			sourceStart := time.Now()
			hits, err := e.vectors.Search(sctx, vs.Collection, vector, vs.TopK)
			stats[i].LatencyMS = time.Since(sourceStart).Milliseconds()
			if err != nil {
				failures[i] = classify(name, sctx, err)
				haveFailure[i] = true
				stats[i].Failed = true
				stats[i].TimedOut = failures[i].Kind == KindSourceTimeout
				logging.ExecutorWarn("%v", failures[i])
				return nil
			}

			lists[i] = vectorList(name, vs, hits)
			stats[i].Results = len(hits)
			return nil
		})
	}

	for j, ss := range plan.StructuredSources {
		i, ss := len(plan.VectorSources)+j, ss
		name := "structured:" + ss.Source
		stats[i].Source = name

		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, e.config.StructuredTimeout)
			defer cancel()

			sourceStart := time.Now()
			docs, err := e.structured.Query(sctx, ss.Source, ss.Filters, ss.Limit)
			stats[i].LatencyMS = time.Since(sourceStart).Milliseconds()
			if err != nil {
				failures[i] = classify(name, sctx, err)
				haveFailure[i] = true
				stats[i].Failed = true
				stats[i].TimedOut = failures[i].Kind == KindSourceTimeout
				logging.ExecutorWarn("%v", failures[i])
				return nil
			}

			lists[i] = e.structuredList(name, ss, docs)
			stats[i].Results = len(docs)
			return nil
		})
	}

	// Worker funcs always return nil; the group exists for the join and
	// the shared cancellation context.
	_ = g.Wait()

	var live []fusion.List
	var recovered []SourceFailure
	for i := range lists {
		if haveFailure[i] {
			recovered = append(recovered, failures[i])
			continue
		}
		live = append(live, lists[i])
	}

	if len(live) == 0 {
		return nil, fmt.Errorf("%w: %d sources, %d failures", ErrAllSourcesFailed, sourceCount, len(recovered))
	}

	candidates := fuse(plan.Fusion, live)
	total := len(candidates)
	if limit := plan.TopKTotal(); len(candidates) > limit {
		candidates = candidates[:limit]
	}

	logging.Executor("executed plan: sources=%d live=%d fused=%d returned=%d fusion=%s",
		sourceCount, len(live), total, len(candidates), plan.Fusion)

	return &Result{
		Candidates: candidates,
		Stats: Stats{
			Sources:         stats,
			Fusion:          plan.Fusion,
			TotalCandidates: total,
			Returned:        len(candidates),
			ElapsedMS:       time.Since(start).Milliseconds(),
		},
		Failures: recovered,
	}, nil
}

// resolveQueryVectors acquires each distinct query vector the plan needs.
// The query text is embedded at most once per request. A resolution failure
// is recorded per vector source kind so only the sources that need that
// vector fail.
func (e *Executor) resolveQueryVectors(ctx context.Context, plan *planner.QueryPlan, query string, variants []string, referenceTool string) (map[string][]float32, map[string]error) {
	vectors := map[string][]float32{}
	failures := map[string]error{}

	need := map[string]bool{}
	for _, vs := range plan.VectorSources {
		need[vs.QueryVectorSource] = true
	}

	embedQueryText := func() ([]float32, error) {
		if v, ok := vectors[planner.VectorFromQueryText]; ok {
			return v, nil
		}
		v, err := e.embedder.Embed(ctx, query)
		if err == nil {
			vectors[planner.VectorFromQueryText] = v
		}
		return v, err
	}

	if need[planner.VectorFromQueryText] {
		if _, err := embedQueryText(); err != nil {
			failures[planner.VectorFromQueryText] = fmt.Errorf("embed query: %w", err)
		}
	}

	if need[planner.VectorFromVariant] {
		text := query
		if len(variants) > 0 {
			text = variants[0]
		}
		v, err := e.embedder.Embed(ctx, text)
		if err != nil {
			failures[planner.VectorFromVariant] = fmt.Errorf("embed variant: %w", err)
		} else {
			vectors[planner.VectorFromVariant] = v
		}
	}

	if need[planner.VectorFromReferenceTool] {
		v, err := e.referenceVector(ctx, plan, referenceTool)
		if err != nil {
			// Fall back to the query text so a missing stored vector
			// degrades instead of killing every vector source.
			logging.ExecutorWarn("reference tool vector unavailable (%v), falling back to query text", err)
			if qv, qerr := embedQueryText(); qerr == nil {
				vectors[planner.VectorFromReferenceTool] = qv
			} else {
				failures[planner.VectorFromReferenceTool] = fmt.Errorf("reference vector: %w", err)
			}
		} else {
			vectors[planner.VectorFromReferenceTool] = v
		}
	}

	return vectors, failures
}

func (e *Executor) referenceVector(ctx context.Context, plan *planner.QueryPlan, referenceTool string) ([]float32, error) {
	if e.toolVectors == nil {
		return nil, ErrVectorNotFound
	}
	if referenceTool == "" {
		return nil, fmt.Errorf("%w: no reference tool named", ErrVectorNotFound)
	}
	field := ""
	for _, vs := range plan.VectorSources {
		if vs.QueryVectorSource == planner.VectorFromReferenceTool {
			field = vs.EmbeddingField
			break
		}
	}
	return e.toolVectors.ToolVector(ctx, referenceTool, field)
}

// vectorList converts ranked hits into a fusion list, normalizing cosine
// similarities into [0,1].
func vectorList(source string, vs planner.VectorSource, hits []Hit) fusion.List {
	list := fusion.List{Source: source, Weight: vs.Weight}
	for rank, hit := range hits {
		score := fusion.NormalizeCosine(hit.Score)
		list.Candidates = append(list.Candidates, fusion.Candidate{
			ID:      hit.ID,
			Score:   score,
			Payload: hit.Payload,
			Provenance: []fusion.Provenance{{
				Source: source,
				Rank:   rank + 1,
				Score:  score,
				Weight: vs.Weight,
			}},
		})
	}
	return list
}

// structuredList converts filter matches into a fusion list with the fixed
// structured score.
func (e *Executor) structuredList(source string, ss planner.StructuredSource, docs []Document) fusion.List {
	weight := planner.WeightUnspecified
	list := fusion.List{Source: source, Weight: weight}
	for rank, doc := range docs {
		list.Candidates = append(list.Candidates, fusion.Candidate{
			ID:      doc.ID,
			Score:   e.config.StructuredScore,
			Payload: doc.Payload,
			Provenance: []fusion.Provenance{{
				Source: source,
				Rank:   rank + 1,
				Score:  e.config.StructuredScore,
				Weight: weight,
			}},
		})
	}
	return list
}

func fuse(method string, lists []fusion.List) []fusion.Candidate {
	switch method {
	case planner.FusionRRF:
		return fusion.RRF(lists)
	case planner.FusionWeightedSum:
		return fusion.WeightedSum(lists)
	case planner.FusionNone:
		if len(lists) == 1 {
			return fusion.Single(lists[0])
		}
		return fusion.WeightedSum(lists)
	default:
		out := fusion.Concat(lists)
		sortStable(out)
		return out
	}
}

// sortStable orders concatenated candidates by score without regrouping
// equal scores across sources.
func sortStable(candidates []fusion.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

// classify maps a source error to timeout or unavailability.
func classify(source string, ctx context.Context, err error) SourceFailure {
	kind := KindSourceUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindSourceTimeout
	}
	return SourceFailure{Source: source, Kind: kind, Err: err}
}
