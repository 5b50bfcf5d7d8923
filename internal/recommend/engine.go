// Package recommend selects, scores, and ranks similar catalog items for one
// source item or for a batch of them.
package recommend

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/catalog"
	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/enrich"
	"github.com/sells-group/similar-cli/internal/metrics"
	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/scorer"
)

// Stage names a step of a single-item lookup.
type Stage string

const (
	StageInit            Stage = "INIT"
	StageSourceLookup    Stage = "SOURCE_LOOKUP"
	StageCandidateSearch Stage = "CANDIDATE_SEARCH"
	StageScoreFilter     Stage = "SCORE_FILTER"
	StageFallbackRelax   Stage = "FALLBACK_RELAX"
	StageEnrichTopK      Stage = "ENRICH_TOP_K"
	StageFinalScore      Stage = "FINAL_SCORE"
	StageSortTruncate    Stage = "SORT_TRUNCATE"
	StageDone            Stage = "DONE"
)

// Engine runs single-item lookups. It is safe for concurrent use.
type Engine struct {
	store    catalog.Store
	pipeline *enrich.Pipeline
	scorer   *scorer.Scorer
}

// NewEngine creates an Engine. pipeline may be nil to disable enrichment.
func NewEngine(store catalog.Store, pipeline *enrich.Pipeline, sc *scorer.Scorer) *Engine {
	return &Engine{store: store, pipeline: pipeline, scorer: sc}
}

// Scorer returns the engine's scorer.
func (e *Engine) Scorer() *scorer.Scorer { return e.scorer }

// lookup carries the state of one Recommend call between stages.
type lookup struct {
	stage  Stage
	src    model.Product
	phase1 []scored // every candidate, basic mode, best first
	scored []scored // enriched candidates, full mode
	seen   map[string]bool
}

// Recommend returns the ranked recommendations for one source item. Expected
// outcomes (missing source, no candidates, too few candidates) are reported
// through the result status; store failures yield StatusError with the
// failing stage in the message.
func (e *Engine) Recommend(ctx context.Context, cat model.Catalog, id string) *model.ProcessingResult {
	start := time.Now()
	res := &model.ProcessingResult{SourceID: id, Catalog: cat}
	st := &lookup{stage: StageInit, seen: make(map[string]bool)}

	defer func() {
		res.Duration = time.Since(start)
		metrics.RecordResult(string(cat), "single", string(res.Status), res.Duration)
	}()

	fail := func(err error) *model.ProcessingResult {
		err = eris.Wrapf(err, "recommend: %s", st.stage)
		zap.L().Error("recommend: lookup failed",
			zap.String("source_id", id),
			zap.String("stage", string(st.stage)),
			zap.Error(err),
		)
		res.Status = model.StatusError
		res.Error = err.Error()
		return res
	}

	st.stage = StageSourceLookup
	src, err := e.store.GetProduct(ctx, cat, id)
	if err != nil {
		return fail(err)
	}
	if src == nil {
		res.Status = model.StatusNoData
		return res
	}
	st.src = src
	if e.pipeline != nil {
		e.pipeline.EnrichOne(ctx, src)
	}

	st.stage = StageCandidateSearch
	cands, err := SelectCandidates(ctx, e.store, src)
	if err != nil {
		return fail(err)
	}
	if len(cands) == 0 {
		res.Status = model.StatusNoSimilar
		return res
	}

	cfg := e.scorer.Config()

	st.stage = StageScoreFilter
	st.phase1 = make([]scored, 0, len(cands))
	passed := 0
	for _, c := range cands {
		s := scored{cand: c, breakdown: e.scorer.Evaluate(src, c, scorer.ModeBasic)}
		st.phase1 = append(st.phase1, s)
		if s.score() >= cfg.MinScoreThreshold {
			passed++
		}
	}
	if passed == 0 {
		res.Status = model.StatusNoSimilar
		return res
	}
	sortScored(st.phase1)

	st.stage = StageEnrichTopK
	top := st.phase1[:min(passed, 2*cfg.MaxRecommendations)]
	e.enrichAndScore(ctx, st, top)

	st.stage = StageFinalScore
	qualified := 0
	for _, s := range st.scored {
		if s.score() >= cfg.MinScoreThreshold {
			qualified++
		}
	}

	if qualified < cfg.MinRecommendations {
		st.stage = StageFallbackRelax
		e.relax(ctx, st, cfg, qualified)
	}

	st.stage = StageSortTruncate
	res.Recommendations, res.Status = finalize(cfg, st.scored)
	st.stage = StageDone

	zap.L().Debug("recommend: lookup complete",
		zap.String("source_id", id),
		zap.String("status", string(res.Status)),
		zap.Int("candidates", len(cands)),
		zap.Int("scored", len(st.scored)),
		zap.Int("recommendations", len(res.Recommendations)),
	)
	return res
}

// enrichAndScore enriches batch in one call and adds the full-mode scores.
func (e *Engine) enrichAndScore(ctx context.Context, st *lookup, batch []scored) {
	recs := make([]model.Product, 0, len(batch))
	for _, s := range batch {
		recs = append(recs, s.cand)
	}
	if e.pipeline != nil {
		e.pipeline.EnrichMany(ctx, recs)
	}
	for _, c := range recs {
		st.seen[c.Base().ID] = true
		st.scored = append(st.scored, scored{cand: c, breakdown: e.scorer.Evaluate(st.src, c, scorer.ModeFull)})
	}
}

// relax enriches and scores further phase-1 candidates, best first, in chunks
// of MaxRecommendations until enough reach the relaxed threshold or the pool
// is exhausted. Candidates scored earlier are never dropped.
func (e *Engine) relax(ctx context.Context, st *lookup, cfg config.ScoringConfig, qualified int) {
	floor := relaxedThreshold(cfg)

	admitted := 0
	for _, s := range st.scored {
		if s.score() >= floor && s.score() < cfg.MinScoreThreshold {
			admitted++
		}
	}

	var pool []scored
	for _, s := range st.phase1 {
		if !st.seen[s.id()] && s.score() >= floor {
			pool = append(pool, s)
		}
	}

	chunk := max(cfg.MaxRecommendations, 1)
	for start := 0; start < len(pool) && qualified+admitted < cfg.MaxRecommendations; start += chunk {
		before := len(st.scored)
		e.enrichAndScore(ctx, st, pool[start:min(start+chunk, len(pool))])
		for _, s := range st.scored[before:] {
			switch {
			case s.score() >= cfg.MinScoreThreshold:
				qualified++
			case s.score() >= floor:
				admitted++
			}
		}
	}

	zap.L().Debug("recommend: fallback relaxation",
		zap.String("source_id", st.src.Base().ID),
		zap.Float64("relaxed_threshold", floor),
		zap.Int("qualified", qualified),
		zap.Int("relaxed", admitted),
	)
}
