package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/similar-cli/internal/catalog"
	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/enrich"
	"github.com/sells-group/similar-cli/internal/metrics"
	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/scorer"
)

// DefaultMaxConcurrentGroups bounds the number of groups scored at once.
const DefaultMaxConcurrentGroups = 4

// ProgressFunc receives (processed, total, message) after each item and once
// on completion. Calls are serialized.
type ProgressFunc func(processed, total int, message string)

// Orchestrator processes many source items with a fixed number of store
// queries: every source, reference row, and link is preloaded once, then
// sources are grouped by their mandatory attributes and each group is scored
// against the in-memory pool.
type Orchestrator struct {
	store    catalog.Store
	pipeline *enrich.Pipeline
	scorer   *scorer.Scorer
	cfg      config.BatchConfig

	// evaluate scores one pair in full mode.
	evaluate func(src, cand model.Product) scorer.Breakdown
}

// NewOrchestrator creates an Orchestrator. pipeline may be nil to disable
// enrichment.
func NewOrchestrator(store catalog.Store, pipeline *enrich.Pipeline, sc *scorer.Scorer, cfg config.BatchConfig) *Orchestrator {
	if cfg.MaxConcurrentGroups <= 0 {
		cfg.MaxConcurrentGroups = DefaultMaxConcurrentGroups
	}
	return &Orchestrator{
		store:    store,
		pipeline: pipeline,
		scorer:   sc,
		cfg:      cfg,
		evaluate: func(src, cand model.Product) scorer.Breakdown {
			return sc.Evaluate(src, cand, scorer.ModeFull)
		},
	}
}

// group is the set of input positions sharing one group key.
type group struct {
	key     model.GroupKey
	indices []int
}

// progress serializes progress callbacks.
type progress struct {
	mu        sync.Mutex
	fn        ProgressFunc
	processed int
	total     int
}

func (p *progress) step(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	if p.fn != nil {
		p.fn(p.processed, p.total, message)
	}
}

func (p *progress) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fn != nil {
		p.fn(p.processed, p.total, "completed")
	}
}

// Run processes ids of catalog cat and returns one result per input position,
// in input order. It never fails as a whole: per-item problems are reported
// through each item's status.
func (o *Orchestrator) Run(ctx context.Context, cat model.Catalog, ids []string, fn ProgressFunc) *model.BatchResult {
	start := time.Now()
	batch := &model.BatchResult{
		RunID:   uuid.NewString(),
		Results: make([]model.ProcessingResult, len(ids)),
	}
	for i, id := range ids {
		batch.Results[i] = model.ProcessingResult{SourceID: id, Catalog: cat}
	}
	prog := &progress{fn: fn, total: len(ids)}

	defer func() {
		batch.Duration = time.Since(start)
		batch.Tally()
		metrics.BatchDuration.WithLabelValues(string(cat)).Observe(batch.Duration.Seconds())
		zap.L().Info("recommend: batch complete",
			zap.String("run_id", batch.RunID),
			zap.String("catalog", string(cat)),
			zap.Int("total", batch.Total),
			zap.Int("success", batch.Counts[model.StatusSuccess]),
			zap.Int("errors", batch.Counts[model.StatusError]),
			zap.Duration("duration", batch.Duration),
		)
	}()

	if len(ids) == 0 {
		prog.done()
		return batch
	}

	sources, pool, err := o.preload(ctx, cat, ids)
	if err != nil {
		msg := eris.Wrap(err, "recommend: PRELOAD").Error()
		zap.L().Error("recommend: batch preload failed", zap.String("run_id", batch.RunID), zap.Error(err))
		for i := range batch.Results {
			batch.Results[i].Status = model.StatusError
			batch.Results[i].Error = msg
			prog.step(batch.Results[i].SourceID)
		}
		prog.done()
		return batch
	}

	groups := make(map[model.GroupKey]*group)
	var order []*group
	for i, id := range ids {
		src, ok := sources[id]
		if !ok || !model.HasMandatory(src) {
			batch.Results[i].Status = model.StatusNoData
			metrics.RecordResult(string(cat), "batch", string(model.StatusNoData), 0)
			prog.step(id)
			continue
		}
		key := model.KeyOf(src)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, g)
		}
		g.indices = append(g.indices, i)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.MaxConcurrentGroups)
	for _, g := range order {
		eg.Go(func() error {
			cands := SelectFromPool(pool, g.key, "")
			for _, i := range g.indices {
				id := ids[i]
				if err := gctx.Err(); err != nil {
					batch.Results[i].Status = model.StatusError
					batch.Results[i].Error = eris.Wrap(err, "recommend: batch cancelled").Error()
				} else {
					batch.Results[i] = o.processOne(cat, sources[id], cands)
				}
				prog.step(id)
			}
			return nil
		})
	}
	_ = eg.Wait() // workers record failures per item and always return nil

	prog.done()
	return batch
}

// preload fetches the sources, the optional expanded pool, and all enrichment
// data, and returns the sources by id plus the enriched candidate pool.
func (o *Orchestrator) preload(ctx context.Context, cat model.Catalog, ids []string) (map[string]model.Product, []model.Product, error) {
	sources, err := o.store.GetProducts(ctx, cat, ids)
	if err != nil {
		return nil, nil, err
	}

	pool := make([]model.Product, 0, len(sources))
	inPool := make(map[string]bool, len(sources))
	for _, id := range ids {
		if p, ok := sources[id]; ok && !inPool[id] {
			inPool[id] = true
			pool = append(pool, p)
		}
	}

	if o.cfg.ExpandPool {
		keys := make(map[model.GroupKey]bool)
		var list []model.GroupKey
		for _, p := range pool {
			if k := model.KeyOf(p); k.Complete() && !keys[k] {
				keys[k] = true
				list = append(list, k)
			}
		}
		members, err := o.store.FindGroupMembers(ctx, cat, list)
		if err != nil {
			zap.L().Warn("recommend: pool expansion failed, scoring against the batch only", zap.Error(err))
		}
		for _, m := range members {
			if !inPool[m.Base().ID] {
				inPool[m.Base().ID] = true
				pool = append(pool, m)
			}
		}
	}

	if o.pipeline != nil {
		poolIDs := model.IDs(pool)
		lookup := o.pipeline.Preload(ctx, cat, poolIDs)
		for _, p := range pool {
			lookup.Apply(p)
		}
	}

	zap.L().Info("recommend: batch preloaded",
		zap.String("catalog", string(cat)),
		zap.Int("requested", len(ids)),
		zap.Int("found", len(sources)),
		zap.Int("pool", len(pool)),
	)
	return sources, pool, nil
}

// processOne scores src against its group's candidates. A panic while scoring
// becomes an ERROR result for this item only.
func (o *Orchestrator) processOne(cat model.Catalog, src model.Product, cands []model.Product) (res model.ProcessingResult) {
	start := time.Now()
	id := src.Base().ID
	res = model.ProcessingResult{SourceID: id, Catalog: cat}

	defer func() {
		if r := recover(); r != nil {
			res.Status = model.StatusError
			res.Recommendations = nil
			res.Error = fmt.Sprintf("recommend: %s: panic scoring %s: %v", StageFinalScore, id, r)
			zap.L().Error("recommend: item failed", zap.String("source_id", id), zap.Any("panic", r))
		}
		res.Duration = time.Since(start)
		metrics.RecordResult(string(cat), "batch", string(res.Status), res.Duration)
	}()

	list := make([]scored, 0, len(cands))
	for _, c := range cands {
		if c.Base().ID == id {
			continue
		}
		list = append(list, scored{cand: c, breakdown: o.evaluate(src, c)})
	}
	if len(list) == 0 {
		res.Status = model.StatusNoSimilar
		return res
	}

	res.Recommendations, res.Status = finalize(o.scorer.Config(), list)
	return res
}
