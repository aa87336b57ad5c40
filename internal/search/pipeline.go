// Package search wires the full pipeline together: query in, extracted
// intent, validated plan, parallel execution, fused candidates out. Every
// stage boundary carries a validated payload and every failure becomes a
// structured error entry rather than an exception path.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foyzulkarim/codiesvibe-search/internal/executor"
	"github.com/foyzulkarim/codiesvibe-search/internal/fusion"
	"github.com/foyzulkarim/codiesvibe-search/internal/intent"
	"github.com/foyzulkarim/codiesvibe-search/internal/logging"
	"github.com/foyzulkarim/codiesvibe-search/internal/planner"
)

// Pipeline node names used in error entries and audit events.
const (
	nodeIntentExtractor = "intent-extractor"
	nodeQueryPlanner    = "query-planner"
	nodeExecutor        = "executor"
)

// Extractor produces a validated intent record from a raw query.
type Extractor interface {
	Extract(ctx context.Context, query string) (*intent.Record, error)
}

// Planner produces a validated query plan from an intent record.
type Planner interface {
	Plan(ctx context.Context, record *intent.Record) (*planner.QueryPlan, error)
}

// Runner executes a plan against the configured backends.
type Runner interface {
	Execute(ctx context.Context, plan *planner.QueryPlan, query string, variants []string, referenceTool string) (*executor.Result, error)
}

// Options tune a single search call.
type Options struct {
	Debug      bool
	DeadlineMS int
	SessionID  string
}

// Response is the complete answer to one search call. Errors holds every
// structured failure, recovered or not; Intent and Plan are attached only
// in debug mode.
type Response struct {
	RequestID  string             `json:"requestId"`
	Candidates []fusion.Candidate `json:"candidates"`
	Stats      executor.Stats     `json:"stats"`
	Errors     []PipelineError    `json:"errors,omitempty"`
	Intent     *intent.Record     `json:"intent,omitempty"`
	Plan       *planner.QueryPlan `json:"plan,omitempty"`
	Cached     bool               `json:"cached,omitempty"`
}

// Config bounds pipeline behavior.
type Config struct {
	Deadline       time.Duration
	ScoreThreshold float64
	EnableCache    bool
	CacheTTL       time.Duration
}

// Pipeline owns one configured search flow. Safe for concurrent use.
type Pipeline struct {
	extractor Extractor
	planner   Planner
	runner    Runner
	audit     *logging.AuditTrail
	cache     *responseCache
	config    Config
}

// New assembles a pipeline. audit may be nil to disable the audit trail.
func New(e Extractor, p Planner, r Runner, audit *logging.AuditTrail, config Config) *Pipeline {
	pipeline := &Pipeline{
		extractor: e,
		planner:   p,
		runner:    r,
		audit:     audit,
		config:    config,
	}
	if config.EnableCache && config.CacheTTL > 0 {
		pipeline.cache = newResponseCache(config.CacheTTL)
	}
	return pipeline
}

// Search runs the full pipeline for one query. Fatal stage failures return
// a response with zero candidates and an unrecovered error entry; source
// faults are recovered and reported alongside partial results.
func (p *Pipeline) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	requestID := uuid.NewString()
	log := logging.WithRequestID(logging.CategoryExecutor, requestID)
	log.Info("search: %q", query)

	p.record(logging.AuditQueryReceived, requestID, "", map[string]interface{}{
		"query": query, "session": opts.SessionID,
	})

	if p.cache != nil {
		if cached, ok := p.cache.get(query); ok {
			log.Info("cache hit")
			copied := *cached
			copied.RequestID = requestID
			copied.Cached = true
			return &copied, nil
		}
	}

	deadline := p.config.Deadline
	if opts.DeadlineMS > 0 {
		deadline = time.Duration(opts.DeadlineMS) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	response := &Response{RequestID: requestID}

	record, err := p.extractor.Extract(ctx, query)
	if err != nil {
		kind := KindExtractionFailed
		if errors.Is(err, intent.ErrVocabularyMismatch) {
			kind = KindVocabularyMismatch
		}
		response.Errors = append(response.Errors, newError(nodeIntentExtractor, kind, err.Error(), false))
		p.record(logging.AuditIntentRejected, requestID, nodeIntentExtractor, map[string]interface{}{"error": err.Error()})
		p.record(logging.AuditQueryFailed, requestID, nodeIntentExtractor, nil)
		return response, nil
	}
	if opts.Debug {
		response.Intent = record
	}
	p.record(logging.AuditIntentExtracted, requestID, nodeIntentExtractor, map[string]interface{}{
		"goal": record.PrimaryGoal, "confidence": record.Confidence,
	})

	plan, err := p.planner.Plan(ctx, record)
	if err != nil {
		response.Errors = append(response.Errors, newError(nodeQueryPlanner, KindPlanInvalid, err.Error(), false))
		p.record(logging.AuditPlanRejected, requestID, nodeQueryPlanner, map[string]interface{}{"error": err.Error()})
		p.record(logging.AuditQueryFailed, requestID, nodeQueryPlanner, nil)
		return response, nil
	}
	if opts.Debug {
		response.Plan = plan
	}
	p.record(logging.AuditPlanEmitted, requestID, nodeQueryPlanner, map[string]interface{}{
		"strategy": plan.Strategy, "fusion": plan.Fusion,
		"vectorSources": len(plan.VectorSources), "structuredSources": len(plan.StructuredSources),
	})

	result, err := p.runner.Execute(ctx, plan, query, record.SemanticVariants, record.ReferenceTool)
	if err != nil {
		kind := KindSourceUnavailable
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = KindDeadlineExceeded
		}
		response.Errors = append(response.Errors, newError(nodeExecutor, kind, err.Error(), false))
		p.record(logging.AuditQueryFailed, requestID, nodeExecutor, map[string]interface{}{"error": err.Error()})
		return response, nil
	}

	for _, failure := range result.Failures {
		kind := KindSourceUnavailable
		event := logging.AuditSourceFailed
		if failure.Kind == executor.KindSourceTimeout {
			kind = KindSourceTimeout
			event = logging.AuditSourceTimeout
		}
		response.Errors = append(response.Errors, newError(failure.Source, kind, failure.Err.Error(), true))
		p.record(event, requestID, failure.Source, map[string]interface{}{"error": failure.Err.Error()})
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		response.Errors = append(response.Errors,
			newError(nodeExecutor, KindDeadlineExceeded, "request deadline hit; returning partial results", true))
	}

	response.Candidates = p.applyThreshold(result.Candidates)
	response.Stats = result.Stats
	response.Stats.Returned = len(response.Candidates)

	p.record(logging.AuditFusionApplied, requestID, nodeExecutor, map[string]interface{}{
		"fusion": result.Stats.Fusion, "returned": len(response.Candidates),
	})

	if len(response.Candidates) == 0 {
		response.Errors = append(response.Errors, newError(nodeExecutor, KindEmptyResult,
			fmt.Sprintf("no candidates above threshold %.2f", p.config.ScoreThreshold), true))
	}

	p.record(logging.AuditQueryComplete, requestID, "", map[string]interface{}{
		"candidates": len(response.Candidates), "errors": len(response.Errors),
	})
	log.Info("done: %d candidates, %d errors", len(response.Candidates), len(response.Errors))

	if p.cache != nil && len(response.Errors) == 0 {
		p.cache.set(query, response)
	}
	return response, nil
}

// applyThreshold drops candidates whose best source-local score is below
// the configured floor. Fused scores are not compared directly because rank
// fusion produces values on a different scale.
func (p *Pipeline) applyThreshold(candidates []fusion.Candidate) []fusion.Candidate {
	if p.config.ScoreThreshold <= 0 {
		return candidates
	}
	var kept []fusion.Candidate
	for _, c := range candidates {
		best := 0.0
		for _, prov := range c.Provenance {
			if prov.Score > best {
				best = prov.Score
			}
		}
		if best >= p.config.ScoreThreshold {
			kept = append(kept, c)
		}
	}
	return kept
}

func (p *Pipeline) record(event logging.AuditEventType, requestID, node string, fields map[string]interface{}) {
	if p.audit == nil {
		return
	}
	p.audit.Record(event, requestID, node, fields)
}
