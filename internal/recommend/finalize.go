package recommend

import (
	"math"
	"sort"

	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/scorer"
)

// scored is a candidate with its full-mode breakdown.
type scored struct {
	cand      model.Product
	breakdown scorer.Breakdown
}

func (s scored) id() string { return s.cand.Base().ID }

func (s scored) score() float64 { return s.breakdown.Total }

// sortScored orders by score descending, then by candidate id.
func sortScored(list []scored) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].score() != list[j].score() {
			return list[i].score() > list[j].score()
		}
		return list[i].id() < list[j].id()
	})
}

// relaxedThreshold is the lowered threshold used by fallback relaxation. It
// never exceeds the configured threshold.
func relaxedThreshold(cfg config.ScoringConfig) float64 {
	return math.Min(cfg.MinScoreThreshold,
		math.Max(cfg.FallbackFloor, cfg.MinScoreThreshold-cfg.FallbackStep))
}

// finalize applies the threshold, fallback relaxation, ordering, and
// truncation to fully scored candidates and derives the status.
//
// Candidates at or above the threshold are always kept (up to the maximum).
// When fewer than MinRecommendations qualify, the best remaining candidates at
// or above the relaxed threshold are added, tagged relaxed, until
// MaxRecommendations is reached.
func finalize(cfg config.ScoringConfig, all []scored) ([]model.Recommendation, model.Status) {
	list := append([]scored(nil), all...)
	sortScored(list)

	var qualified, rest []scored
	for _, s := range list {
		if s.score() >= cfg.MinScoreThreshold {
			qualified = append(qualified, s)
		} else {
			rest = append(rest, s)
		}
	}
	if len(qualified) > cfg.MaxRecommendations {
		qualified = qualified[:cfg.MaxRecommendations]
	}

	recs := make([]model.Recommendation, 0, len(qualified))
	for _, s := range qualified {
		recs = append(recs, recommendation(s, model.TagQualified))
	}

	if len(recs) < cfg.MinRecommendations {
		floor := relaxedThreshold(cfg)
		for _, s := range rest {
			if len(recs) >= cfg.MaxRecommendations || s.score() < floor {
				break
			}
			recs = append(recs, recommendation(s, model.TagRelaxed))
		}
	}

	switch {
	case len(recs) == 0:
		return recs, model.StatusNoSimilar
	case len(recs) < cfg.MinRecommendations:
		return recs, model.StatusInsufficient
	}
	return recs, model.StatusSuccess
}

func recommendation(s scored, tag model.Tag) model.Recommendation {
	return model.Recommendation{
		Candidate:   s.cand,
		Score:       s.score(),
		Explanation: s.breakdown.String(),
		Tag:         tag,
	}
}
