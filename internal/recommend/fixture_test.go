package recommend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/similar-cli/internal/catalog/catalogtest"
	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/scorer"
)

func sandal(id, size, season, mold string, stock int) *model.PrimaryProduct {
	return catalogtest.Primary(model.Record{
		ID: id, Type: "Sandal", Demographic: "Adult-F", Brand: "Acme",
		Season: season, Stock: stock, Molds: [model.NumMolds]string{mold},
	}, size)
}

// fallbackFixture holds a source S0 with, under the default config:
//   - A1..A3: full score 81, above the threshold of 50
//   - B1..B4: full score 32.5-34.5, below the threshold but above the relaxed 30
//   - C1: full score 11.5, below every threshold
//   - D1 out of stock, E1 another brand
func fallbackFixture() *catalogtest.Memory {
	other := catalogtest.Primary(model.Record{
		ID: "E1", Type: "Sandal", Demographic: "Adult-F", Brand: "Other", Stock: 9,
	}, "38")
	return catalogtest.NewMemory().Add(
		sandal("S0", "38", "Summer", "L1", 5),
		sandal("A1", "38", "Summer", "L1", 1),
		sandal("A2", "38", "Summer", "L1", 1),
		sandal("A3", "38", "Summer", "L1", 1),
		sandal("B1", "38", "", "", 3),
		sandal("B2", "38", "", "", 1),
		sandal("B3", "38", "", "", 1),
		sandal("B4", "38", "", "", 1),
		sandal("C1", "44", "Winter", "", 1),
		sandal("D1", "38", "Summer", "L1", 0),
		other,
	)
}

type scorerConfig = config.ScoringConfig

var fixtureIDs = []string{"S0", "A1", "A2", "A3", "B1", "B2", "B3", "B4", "C1", "D1", "E1"}

func newScorer(t *testing.T, mutate func(*scorerConfig)) *scorer.Scorer {
	t.Helper()
	cfg := scorer.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	sc, err := scorer.New(cfg)
	require.NoError(t, err)
	return sc
}

func recIDs(recs []model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.CandidateID()
	}
	return out
}
