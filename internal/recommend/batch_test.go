package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/similar-cli/internal/catalog/catalogtest"
	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/enrich"
	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/scorer"
)

func newOrchestrator(t *testing.T, mem *catalogtest.Memory, cfg config.BatchConfig) *Orchestrator {
	t.Helper()
	return NewOrchestrator(mem, enrich.New(mem, mem, nil), newScorer(t, nil), cfg)
}

func TestRun_MatchesSingleItemPath(t *testing.T) {
	mem := fallbackFixture()
	sc := newScorer(t, nil)
	engine := NewEngine(mem, enrich.New(mem, mem, nil), sc)
	orch := NewOrchestrator(mem, enrich.New(mem, mem, nil), sc, config.BatchConfig{})

	batch := orch.Run(context.Background(), model.CatalogPrimary, fixtureIDs, nil)
	require.Len(t, batch.Results, len(fixtureIDs))

	for _, id := range []string{"S0", "A1", "A2"} {
		t.Run(id, func(t *testing.T) {
			single := engine.Recommend(context.Background(), model.CatalogPrimary, id)
			var fromBatch model.ProcessingResult
			for _, r := range batch.Results {
				if r.SourceID == id {
					fromBatch = r
				}
			}

			assert.Equal(t, single.Status, fromBatch.Status)
			require.Equal(t, recIDs(single.Recommendations), recIDs(fromBatch.Recommendations))
			for i := range single.Recommendations {
				assert.Equal(t, single.Recommendations[i].Score, fromBatch.Recommendations[i].Score)
				assert.Equal(t, single.Recommendations[i].Explanation, fromBatch.Recommendations[i].Explanation)
				assert.Equal(t, single.Recommendations[i].Tag, fromBatch.Recommendations[i].Tag)
			}
		})
	}
}

func TestRun_FaultyItemIsIsolated(t *testing.T) {
	mem := fallbackFixture()
	orch := newOrchestrator(t, mem, config.BatchConfig{MaxConcurrentGroups: 2})
	sc := orch.scorer
	orch.evaluate = func(src, cand model.Product) scorer.Breakdown {
		if src.Base().ID == "A2" {
			panic("corrupt record")
		}
		return sc.Evaluate(src, cand, scorer.ModeFull)
	}

	batch := orch.Run(context.Background(), model.CatalogPrimary, fixtureIDs, nil)
	require.Len(t, batch.Results, len(fixtureIDs))

	errs := 0
	for i, r := range batch.Results {
		assert.Equal(t, fixtureIDs[i], r.SourceID, "results keep input order")
		if r.Status == model.StatusError {
			errs++
			assert.Equal(t, "A2", r.SourceID)
			assert.Contains(t, r.Error, "corrupt record")
			assert.Empty(t, r.Recommendations)
		}
	}
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, batch.Counts[model.StatusError])
	assert.Equal(t, len(fixtureIDs), batch.Total)
}

func TestRun_Statuses(t *testing.T) {
	noBrand := catalogtest.Primary(model.Record{ID: "N1", Type: "Sandal", Demographic: "Adult-F", Stock: 2}, "38")
	mem := fallbackFixture().Add(noBrand)
	orch := newOrchestrator(t, mem, config.BatchConfig{})

	ids := []string{"S0", "missing", "N1", "E1", "S0"}
	batch := orch.Run(context.Background(), model.CatalogPrimary, ids, nil)

	// S0 and E1 are the only members of their groups in the batch, so their
	// pools are empty.
	want := []model.Status{
		model.StatusNoSimilar,
		model.StatusNoData,
		model.StatusNoData,
		model.StatusNoSimilar,
		model.StatusNoSimilar,
	}
	got := make([]model.Status, len(batch.Results))
	for i, r := range batch.Results {
		got[i] = r.Status
		assert.Equal(t, ids[i], r.SourceID)
	}
	assert.Equal(t, want, got)
	assert.NotEmpty(t, batch.RunID)
}

func TestRun_ExpandPool(t *testing.T) {
	mem := fallbackFixture()
	orch := newOrchestrator(t, mem, config.BatchConfig{ExpandPool: true})

	batch := orch.Run(context.Background(), model.CatalogPrimary, []string{"S0"}, nil)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, model.StatusSuccess, batch.Results[0].Status)
	assert.Equal(t, []string{"A1", "A2", "A3", "B1", "B2", "B3", "B4"}, recIDs(batch.Results[0].Recommendations))
	assert.Equal(t, 1, mem.Calls("FindGroupMembers"))
}

func TestRun_FixedQueryCount(t *testing.T) {
	mem := fallbackFixture()
	orch := newOrchestrator(t, mem, config.BatchConfig{})

	orch.Run(context.Background(), model.CatalogPrimary, fixtureIDs, nil)

	assert.Equal(t, 1, mem.Calls("GetProducts"))
	assert.Equal(t, 1, mem.Calls("ResolveLinks"))
	assert.LessOrEqual(t, mem.Calls("GetReferenceAttrs"), 2)
	assert.Equal(t, 0, mem.Calls("FindCandidates"))
	assert.Equal(t, 0, mem.Calls("GetProduct"))
}

func TestRun_PreloadFailure(t *testing.T) {
	mem := fallbackFixture().FailNext("GetProducts", errors.New("connection refused"))
	orch := newOrchestrator(t, mem, config.BatchConfig{})

	batch := orch.Run(context.Background(), model.CatalogPrimary, []string{"S0", "A1"}, nil)
	require.Len(t, batch.Results, 2)
	for _, r := range batch.Results {
		assert.Equal(t, model.StatusError, r.Status)
		assert.Contains(t, r.Error, "PRELOAD")
	}
	assert.Equal(t, 2, batch.Counts[model.StatusError])
}

func TestRun_Progress(t *testing.T) {
	mem := fallbackFixture()
	orch := newOrchestrator(t, mem, config.BatchConfig{MaxConcurrentGroups: 3})

	type call struct {
		processed, total int
		message          string
	}
	var (
		mu    sync.Mutex
		calls []call
	)
	orch.Run(context.Background(), model.CatalogPrimary, fixtureIDs, func(processed, total int, message string) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, call{processed, total, message})
	})

	require.Len(t, calls, len(fixtureIDs)+1)
	for i, c := range calls[:len(fixtureIDs)] {
		assert.Equal(t, i+1, c.processed)
		assert.Equal(t, len(fixtureIDs), c.total)
	}
	assert.Equal(t, call{len(fixtureIDs), len(fixtureIDs), "completed"}, calls[len(calls)-1])
}

func TestRun_ConcurrencyDoesNotChangeResults(t *testing.T) {
	mem := fallbackFixture()
	sequential := newOrchestrator(t, mem, config.BatchConfig{MaxConcurrentGroups: 1}).
		Run(context.Background(), model.CatalogPrimary, fixtureIDs, nil)
	parallel := newOrchestrator(t, mem, config.BatchConfig{MaxConcurrentGroups: 8}).
		Run(context.Background(), model.CatalogPrimary, fixtureIDs, nil)

	require.Len(t, parallel.Results, len(sequential.Results))
	for i := range sequential.Results {
		assert.Equal(t, sequential.Results[i].Status, parallel.Results[i].Status)
		assert.Equal(t, recIDs(sequential.Results[i].Recommendations), recIDs(parallel.Results[i].Recommendations))
	}
}

func TestRun_CancelledContext(t *testing.T) {
	mem := fallbackFixture()
	orch := newOrchestrator(t, mem, config.BatchConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := orch.Run(ctx, model.CatalogPrimary, []string{"S0", "missing"}, nil)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, model.StatusError, batch.Results[0].Status)
	assert.Contains(t, batch.Results[0].Error, "cancelled")
	assert.Equal(t, model.StatusNoData, batch.Results[1].Status)
}

func TestRun_Empty(t *testing.T) {
	orch := newOrchestrator(t, catalogtest.NewMemory(), config.BatchConfig{})
	var calls int
	batch := orch.Run(context.Background(), model.CatalogPrimary, nil, func(int, int, string) { calls++ })
	assert.Empty(t, batch.Results)
	assert.Equal(t, 0, batch.Total)
	assert.Equal(t, 1, calls)
}
