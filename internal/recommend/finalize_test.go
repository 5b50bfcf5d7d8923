package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/similar-cli/internal/catalog/catalogtest"
	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/scorer"
)

func fixed(id string, score float64) scored {
	return scored{
		cand:      sandal(id, "38", "", "", 1),
		breakdown: scorer.Breakdown{Raw: score, Total: score},
	}
}

func TestFinalize(t *testing.T) {
	cfg := scorerConfig{
		MinRecommendations: 3,
		MaxRecommendations: 4,
		MinScoreThreshold:  50,
		FallbackFloor:      20,
		FallbackStep:       20,
	}

	tests := []struct {
		name   string
		in     []scored
		ids    []string
		tags   []model.Tag
		status model.Status
	}{
		{
			name:   "enough qualified",
			in:     []scored{fixed("a", 60), fixed("b", 70), fixed("c", 55), fixed("d", 40)},
			ids:    []string{"b", "a", "c"},
			tags:   []model.Tag{model.TagQualified, model.TagQualified, model.TagQualified},
			status: model.StatusSuccess,
		},
		{
			name:   "relaxed fill up to max",
			in:     []scored{fixed("a", 60), fixed("d", 40), fixed("e", 35), fixed("f", 31), fixed("g", 10)},
			ids:    []string{"a", "d", "e", "f"},
			tags:   []model.Tag{model.TagQualified, model.TagRelaxed, model.TagRelaxed, model.TagRelaxed},
			status: model.StatusSuccess,
		},
		{
			name:   "relaxed still short",
			in:     []scored{fixed("a", 60), fixed("g", 10)},
			ids:    []string{"a"},
			tags:   []model.Tag{model.TagQualified},
			status: model.StatusInsufficient,
		},
		{
			name:   "ties broken by id",
			in:     []scored{fixed("z", 60), fixed("m", 60), fixed("a", 60)},
			ids:    []string{"a", "m", "z"},
			tags:   []model.Tag{model.TagQualified, model.TagQualified, model.TagQualified},
			status: model.StatusSuccess,
		},
		{
			name:   "truncated to max",
			in:     []scored{fixed("a", 90), fixed("b", 80), fixed("c", 70), fixed("d", 60), fixed("e", 55)},
			ids:    []string{"a", "b", "c", "d"},
			tags:   []model.Tag{model.TagQualified, model.TagQualified, model.TagQualified, model.TagQualified},
			status: model.StatusSuccess,
		},
		{
			name:   "nothing above any threshold",
			in:     []scored{fixed("g", 10)},
			ids:    []string{},
			tags:   []model.Tag{},
			status: model.StatusNoSimilar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, status := finalize(cfg, tt.in)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.ids, recIDs(recs))
			tags := make([]model.Tag, len(recs))
			for i, r := range recs {
				tags[i] = r.Tag
			}
			assert.Equal(t, tt.tags, tags)
		})
	}
}

func TestSelectCandidates(t *testing.T) {
	mem := fallbackFixture()
	src, err := mem.GetProduct(context.Background(), model.CatalogPrimary, "S0")
	require.NoError(t, err)

	got, err := SelectCandidates(context.Background(), mem, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3", "B1", "B2", "B3", "B4", "C1"}, model.IDs(got))

	incomplete := catalogtest.Primary(model.Record{ID: "X", Type: "Sandal", Brand: "Acme"}, "38")
	got, err = SelectCandidates(context.Background(), mem, incomplete)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, mem.Calls("FindCandidates"))
}

func TestSelectFromPool(t *testing.T) {
	pool := []model.Product{
		sandal("S0", "38", "", "", 1),
		sandal("A1", "38", "", "", 1),
		sandal("D1", "38", "", "", 0),
		catalogtest.Primary(model.Record{ID: "E1", Type: "Sandal", Demographic: "Adult-F", Brand: "Other", Stock: 1}, "38"),
	}
	key := model.KeyOf(pool[0])

	assert.Equal(t, []string{"A1"}, model.IDs(SelectFromPool(pool, key, "S0")))
	assert.Equal(t, []string{"S0", "A1"}, model.IDs(SelectFromPool(pool, key, "")))
	assert.Empty(t, SelectFromPool(pool, model.GroupKey{Type: "Sandal"}, ""))
}
