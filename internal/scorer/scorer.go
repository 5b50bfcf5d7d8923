package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/model"
)

// Mode selects which rules Evaluate applies.
type Mode int

const (
	// ModeBasic uses only directly stored attributes. It skips material,
	// construction attributes, the mold cascade with its penalty, and the
	// enrichment-quality bonus.
	ModeBasic Mode = iota
	// ModeFull applies every rule.
	ModeFull
)

func (m Mode) String() string {
	if m == ModeBasic {
		return "basic"
	}
	return "full"
}

// Rule names used in contributions and explanations.
const (
	RuleBase      = "base"
	RuleSize      = "size"
	RuleSeason    = "season"
	RuleColor     = "color"
	RuleMaterial  = "material"
	RuleFastening = "fastening"
	RuleHeel      = "heel_type"
	RuleSole      = "sole_type"
	RuleHeelUp    = "heel_up_type"
	RuleLacing    = "lacing_type"
	RuleNose      = "nose_type"
	RuleMold      = "mold"
	RuleNoMold    = "no_mold"
	RuleStock     = "stock"
	RulePrice     = "price"
	RuleQuality   = "quality"
)

// Contribution is the effect of one rule on the running total.
type Contribution struct {
	Rule   string
	Detail string
	// Points is the change to the running total caused by this rule.
	Points float64
	// Factor is set for multiplicative rules.
	Factor float64
}

// Breakdown is the ordered list of contributions for one pair.
type Breakdown struct {
	Contributions []Contribution
	Raw           float64 // total before clamping
	Total         float64 // clamped to [0, max_score]
}

// Points returns the summed points of the named rule.
func (b Breakdown) Points(rule string) float64 {
	var sum float64
	for _, c := range b.Contributions {
		if c.Rule == rule {
			sum += c.Points
		}
	}
	return sum
}

// Has reports whether the named rule contributed a line.
func (b Breakdown) Has(rule string) bool {
	for _, c := range b.Contributions {
		if c.Rule == rule {
			return true
		}
	}
	return false
}

// Scorer scores candidate items against a source item. It is immutable and
// safe for concurrent use.
type Scorer struct {
	cfg config.ScoringConfig
}

// New validates cfg and returns a Scorer.
func New(cfg config.ScoringConfig) (*Scorer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns a copy of the scoring config.
func (s *Scorer) Config() config.ScoringConfig {
	return s.cfg
}

// Score returns the clamped similarity score of cand relative to src.
func (s *Scorer) Score(src, cand model.Product, mode Mode) float64 {
	return s.Evaluate(src, cand, mode).Total
}

// Explain returns the line-by-line explanation of the score of cand relative to src.
func (s *Scorer) Explain(src, cand model.Product, mode Mode) string {
	return s.Evaluate(src, cand, mode).String()
}

// Evaluate applies every rule for mode in fixed order and returns the breakdown.
func (s *Scorer) Evaluate(src, cand model.Product, mode Mode) Breakdown {
	var b tally
	sr, cr := src.Base(), cand.Base()
	full := mode == ModeFull

	b.add(RuleBase, line{"base score", s.cfg.BaseScore})
	b.add(RuleSize, s.scoreSize(src, cand))
	b.add(RuleSeason, s.scoreSeason(sr.Season, cr.Season))
	b.add(RuleColor, s.matchBonus(sr.Color, cr.Color, s.cfg.ColorMatchBonus))
	if full {
		b.add(RuleMaterial, s.matchBonus(sr.Material, cr.Material, s.cfg.MaterialMatchBonus))
	}
	b.add(RuleFastening, s.matchBonus(sr.Fastening, cr.Fastening, s.cfg.FasteningMatchBonus))

	srcExt, srcOK := src.(model.Extended)
	candExt, candOK := cand.(model.Extended)
	both := srcOK && candOK

	if full && both {
		sc, cc := srcExt.Construction(), candExt.Construction()
		b.add(RuleHeel, s.matchBonus(sc.HeelType, cc.HeelType, s.cfg.HeelTypeBonus))
		b.add(RuleSole, s.matchBonus(sc.SoleType, cc.SoleType, s.cfg.SoleTypeBonus))
		b.add(RuleHeelUp, s.matchBonus(sc.HeelUpType, cc.HeelUpType, s.cfg.HeelUpTypeBonus))
		b.add(RuleLacing, s.matchBonus(sc.LacingType, cc.LacingType, s.cfg.LacingTypeBonus))
		b.add(RuleNose, s.matchBonus(sc.NoseType, cc.NoseType, s.cfg.NoseTypeBonus))
	}

	if full {
		mold := s.scoreMold(sr.Molds, cr.Molds)
		b.add(RuleMold, mold)
		if mold.points == 0 {
			b.multiply(RuleNoMold, "no mold match", s.cfg.NoLastPenalty)
		}
	}

	b.add(RuleStock, s.scoreStock(cr.Stock))

	if both && s.cfg.PriceEnabled {
		b.add(RulePrice, s.scorePrice(srcExt, candExt))
	}

	if full && candOK {
		b.add(RuleQuality, s.scoreQuality(cand))
	}

	return Breakdown{
		Contributions: b.items,
		Raw:           b.total,
		Total:         clamp(b.total, 0, s.cfg.MaxScore),
	}
}

func (s *Scorer) scoreSize(src, cand model.Product) line {
	a, aok := src.SingleSize()
	c, cok := cand.SingleSize()
	if aok && cok {
		if a == c {
			return line{fmt.Sprintf("%s = %s (exact)", a, c), s.cfg.ExactSizeWeight}
		}
		av, an := a.Numeric()
		cv, cn := c.Numeric()
		if an && cn && math.Abs(av-cv) <= 1 {
			return line{fmt.Sprintf("%s ~ %s (close)", a, c), s.cfg.CloseSizeWeight}
		}
		return line{fmt.Sprintf("%s vs %s (mismatch)", a, c), s.cfg.SizeMismatchPenalty}
	}

	as, cs := src.Sizes(), cand.Sizes()
	if len(as) == 0 || len(cs) == 0 {
		return line{"missing size data", s.cfg.SizeMismatchPenalty}
	}
	overlap := model.Overlap(as, cs)
	switch {
	case overlap >= 0.8:
		return line{fmt.Sprintf("overlap %.2f (exact)", overlap), s.cfg.ExactSizeWeight}
	case overlap >= 0.4:
		return line{fmt.Sprintf("overlap %.2f (close)", overlap), s.cfg.CloseSizeWeight}
	case overlap > 0:
		return line{fmt.Sprintf("overlap %.2f (partial)", overlap), math.Trunc(s.cfg.CloseSizeWeight * overlap * 2)}
	}
	return line{"no shared sizes", s.cfg.SizeMismatchPenalty}
}

func (s *Scorer) scoreSeason(a, b string) line {
	if a == "" || b == "" {
		return line{"no data", 0}
	}
	if model.EqualFold(a, b) {
		return line{a, s.cfg.SeasonMatchBonus}
	}
	return line{fmt.Sprintf("%s vs %s", a, b), s.cfg.SeasonMismatchPenalty}
}

func (s *Scorer) matchBonus(a, b string, bonus float64) line {
	if a == "" || b == "" {
		return line{"no data", 0}
	}
	if model.EqualFold(a, b) {
		return line{a, bonus}
	}
	return line{fmt.Sprintf("%s vs %s", a, b), 0}
}

// scoreMold awards only the highest matching tier.
func (s *Scorer) scoreMold(a, b [model.NumMolds]string) line {
	bonuses := [model.NumMolds]float64{s.cfg.PrimaryMoldBonus, s.cfg.SecondaryMoldBonus, s.cfg.TertiaryMoldBonus}
	tiers := [model.NumMolds]string{"primary", "secondary", "tertiary"}
	for i := range model.NumMolds {
		if model.EqualFold(a[i], b[i]) {
			return line{fmt.Sprintf("%s %s", tiers[i], a[i]), bonuses[i]}
		}
	}
	return line{"no match", 0}
}

func (s *Scorer) scoreStock(stock int) line {
	switch {
	case stock >= s.cfg.StockHighThreshold:
		return line{fmt.Sprintf("%d (high)", stock), s.cfg.StockHighBonus}
	case stock >= s.cfg.StockMediumThreshold:
		return line{fmt.Sprintf("%d (medium)", stock), s.cfg.StockMediumBonus}
	case stock > 0:
		return line{fmt.Sprintf("%d (low)", stock), s.cfg.StockLowBonus}
	}
	return line{"out of stock", 0}
}

func (s *Scorer) scorePrice(src, cand model.Extended) line {
	a, aok := src.Price()
	b, bok := cand.Price()
	if !aok || !bok || a <= 0 || b <= 0 {
		return line{"no data", 0}
	}
	diff := math.Abs(a-b) / math.Max(a, b)
	if diff <= s.cfg.PriceTolerance {
		return line{fmt.Sprintf("%.2f vs %.2f (%.0f%%)", a, b, diff*100), s.cfg.PriceBonus}
	}
	return line{fmt.Sprintf("%.2f vs %.2f (%.0f%%)", a, b, diff*100), 0}
}

func (s *Scorer) scoreQuality(cand model.Product) line {
	q := model.EnrichmentQuality(cand)
	if q >= s.cfg.QualityThreshold {
		return line{fmt.Sprintf("%.2f", q), s.cfg.QualityBonus}
	}
	return line{fmt.Sprintf("%.2f", q), 0}
}

// line is one rule's detail text and points.
type line struct {
	detail string
	points float64
}

// tally accumulates contributions in order.
type tally struct {
	items []Contribution
	total float64
}

func (t *tally) add(rule string, l line) {
	t.items = append(t.items, Contribution{Rule: rule, Detail: l.detail, Points: l.points})
	t.total += l.points
}

func (t *tally) multiply(rule, detail string, factor float64) {
	next := t.total * factor
	t.items = append(t.items, Contribution{Rule: rule, Detail: detail, Points: next - t.total, Factor: factor})
	t.total = next
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// String renders the breakdown as one line per rule followed by the total.
func (b Breakdown) String() string {
	var sb strings.Builder
	for _, c := range b.Contributions {
		if c.Factor != 0 {
			fmt.Fprintf(&sb, "%-13s %s x%.2f: %+.2f\n", c.Rule, c.Detail, c.Factor, c.Points)
			continue
		}
		fmt.Fprintf(&sb, "%-13s %s: %+.2f\n", c.Rule, c.Detail, c.Points)
	}
	fmt.Fprintf(&sb, "%-13s %.2f", "total", b.Total)
	return sb.String()
}
