// Package scorer implements rule-based similarity scoring between catalog items.
package scorer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/similar-cli/internal/config"
)

// PresetBalanced is the default preset name.
const PresetBalanced = "balanced"

// DefaultConfig returns a config.ScoringConfig with the balanced defaults.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		BaseScore: 30,
		MaxScore:  100,

		ExactSizeWeight:     15,
		CloseSizeWeight:     8,
		SizeMismatchPenalty: -10,

		SeasonMatchBonus:      10,
		SeasonMismatchPenalty: -5,

		ColorMatchBonus:     5,
		MaterialMatchBonus:  8,
		FasteningMatchBonus: 5,

		HeelTypeBonus:   4,
		SoleTypeBonus:   4,
		HeelUpTypeBonus: 3,
		LacingTypeBonus: 3,
		NoseTypeBonus:   3,

		PrimaryMoldBonus:   25,
		SecondaryMoldBonus: 15,
		TertiaryMoldBonus:  8,
		NoLastPenalty:      0.7,

		StockHighThreshold:   10,
		StockMediumThreshold: 3,
		StockHighBonus:       5,
		StockMediumBonus:     3,
		StockLowBonus:        1,

		PriceEnabled:   true,
		PriceTolerance: 0.2,
		PriceBonus:     5,

		QualityThreshold: 0.6,
		QualityBonus:     3,

		MinRecommendations: 5,
		MaxRecommendations: 20,
		MinScoreThreshold:  50,
		FallbackFloor:      20,
		FallbackStep:       20,
	}
}

// builtinPresets holds the overrides each named preset applies on top of DefaultConfig.
var builtinPresets = map[string]map[string]float64{
	PresetBalanced: {},
	"size-focused": {
		"exact_size_weight":     25,
		"close_size_weight":     12,
		"size_mismatch_penalty": -20,
	},
	"seasonal": {
		"season_match_bonus":      20,
		"season_mismatch_penalty": -10,
	},
	"conservative": {
		"min_score_threshold": 65,
		"min_recommendations": 3,
		"max_recommendations": 10,
		"no_last_penalty":     0.6,
	},
	"lenient": {
		"min_score_threshold": 35,
		"max_recommendations": 30,
		"no_last_penalty":     0.85,
	},
}

// Presets returns a copy of the built-in presets.
func Presets() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(builtinPresets))
	for name, overrides := range builtinPresets {
		out[name] = copyOverrides(overrides)
	}
	return out
}

// PresetNames returns the sorted names of the built-in presets plus any extras.
func PresetNames(extra map[string]map[string]float64) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range []map[string]map[string]float64{builtinPresets, extra} {
		for name := range m {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// ApplyPreset returns DefaultConfig with the named preset applied. Presets in
// extra take precedence over built-ins of the same name.
func ApplyPreset(name string, extra map[string]map[string]float64) (config.ScoringConfig, error) {
	cfg := DefaultConfig()
	if name == "" {
		name = PresetBalanced
	}
	overrides, ok := extra[name]
	if !ok {
		overrides, ok = builtinPresets[name]
	}
	if !ok {
		return cfg, eris.Errorf("scorer: unknown preset %q (available: %s)",
			name, strings.Join(PresetNames(extra), ", "))
	}
	if err := ApplyOverrides(&cfg, overrides); err != nil {
		return cfg, eris.Wrapf(err, "scorer: preset %q", name)
	}
	return cfg, nil
}

// Resolve builds the effective scoring config: preset (optionally from a presets
// file), then per-key overrides, then validation.
func Resolve(preset, presetsFile string, overrides map[string]float64) (config.ScoringConfig, error) {
	var extra map[string]map[string]float64
	if presetsFile != "" {
		var err error
		extra, err = LoadPresets(presetsFile)
		if err != nil {
			return config.ScoringConfig{}, err
		}
	}

	cfg, err := ApplyPreset(preset, extra)
	if err != nil {
		return cfg, err
	}
	if err := ApplyOverrides(&cfg, overrides); err != nil {
		return cfg, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyOverrides sets each named field on cfg. Keys are the yaml names of
// config.ScoringConfig; unknown keys are an error. Integer fields are truncated
// and price_enabled is true for any non-zero value.
func ApplyOverrides(cfg *config.ScoringConfig, overrides map[string]float64) error {
	floats := floatFields(cfg)
	ints := intFields(cfg)

	var unknown []string
	for key, v := range overrides {
		k := strings.ToLower(strings.TrimSpace(key))
		switch {
		case floats[k] != nil:
			*floats[k] = v
		case ints[k] != nil:
			*ints[k] = int(v)
		case k == "price_enabled":
			cfg.PriceEnabled = v != 0
		default:
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return eris.Errorf("scorer: unknown scoring keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// OverrideKeys returns every key accepted by ApplyOverrides, sorted.
func OverrideKeys() []string {
	var cfg config.ScoringConfig
	keys := []string{"price_enabled"}
	for k := range floatFields(&cfg) {
		keys = append(keys, k)
	}
	for k := range intFields(&cfg) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsOverrides flattens cfg into the key/value form accepted by ApplyOverrides.
func AsOverrides(cfg config.ScoringConfig) map[string]float64 {
	out := make(map[string]float64)
	for k, p := range floatFields(&cfg) {
		out[k] = *p
	}
	for k, p := range intFields(&cfg) {
		out[k] = float64(*p)
	}
	out["price_enabled"] = 0
	if cfg.PriceEnabled {
		out["price_enabled"] = 1
	}
	return out
}

func floatFields(c *config.ScoringConfig) map[string]*float64 {
	return map[string]*float64{
		"base_score":              &c.BaseScore,
		"max_score":               &c.MaxScore,
		"exact_size_weight":       &c.ExactSizeWeight,
		"close_size_weight":       &c.CloseSizeWeight,
		"size_mismatch_penalty":   &c.SizeMismatchPenalty,
		"season_match_bonus":      &c.SeasonMatchBonus,
		"season_mismatch_penalty": &c.SeasonMismatchPenalty,
		"color_match_bonus":       &c.ColorMatchBonus,
		"material_match_bonus":    &c.MaterialMatchBonus,
		"fastening_match_bonus":   &c.FasteningMatchBonus,
		"heel_type_bonus":         &c.HeelTypeBonus,
		"sole_type_bonus":         &c.SoleTypeBonus,
		"heel_up_type_bonus":      &c.HeelUpTypeBonus,
		"lacing_type_bonus":       &c.LacingTypeBonus,
		"nose_type_bonus":         &c.NoseTypeBonus,
		"primary_mold_bonus":      &c.PrimaryMoldBonus,
		"secondary_mold_bonus":    &c.SecondaryMoldBonus,
		"tertiary_mold_bonus":     &c.TertiaryMoldBonus,
		"no_last_penalty":         &c.NoLastPenalty,
		"stock_high_bonus":        &c.StockHighBonus,
		"stock_medium_bonus":      &c.StockMediumBonus,
		"stock_low_bonus":         &c.StockLowBonus,
		"price_tolerance":         &c.PriceTolerance,
		"price_bonus":             &c.PriceBonus,
		"quality_threshold":       &c.QualityThreshold,
		"quality_bonus":           &c.QualityBonus,
		"min_score_threshold":     &c.MinScoreThreshold,
		"fallback_floor":          &c.FallbackFloor,
		"fallback_step":           &c.FallbackStep,
	}
}

func intFields(c *config.ScoringConfig) map[string]*int {
	return map[string]*int{
		"stock_high_threshold":   &c.StockHighThreshold,
		"stock_medium_threshold": &c.StockMediumThreshold,
		"min_recommendations":    &c.MinRecommendations,
		"max_recommendations":    &c.MaxRecommendations,
	}
}

// presetFile is the on-disk layout of a user presets file.
type presetFile struct {
	Presets map[string]map[string]any `yaml:"presets"`
}

// LoadPresets reads user-defined presets from a YAML file of the form
//
//	presets:
//	  weekend:
//	    min_score_threshold: 40
//	    price_enabled: false
//
// Every preset is checked against the known keys.
func LoadPresets(path string) (map[string]map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read presets file %s", path)
	}

	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrapf(err, "scorer: parse presets file %s", path)
	}

	out := make(map[string]map[string]float64, len(pf.Presets))
	for name, raw := range pf.Presets {
		overrides := make(map[string]float64, len(raw))
		for key, v := range raw {
			f, err := toFloat(v)
			if err != nil {
				return nil, eris.Wrapf(err, "scorer: preset %q key %q", name, key)
			}
			overrides[key] = f
		}
		probe := DefaultConfig()
		if err := ApplyOverrides(&probe, overrides); err != nil {
			return nil, eris.Wrapf(err, "scorer: preset %q", name)
		}
		out[name] = overrides
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, eris.Errorf("unsupported value %v (%T)", v, v)
}

func copyOverrides(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	// Score range.
	if c.BaseScore < 0 {
		errs = append(errs, "base_score must be >= 0")
	}
	if c.MaxScore <= 0 {
		errs = append(errs, "max_score must be > 0")
	}
	if c.BaseScore > c.MaxScore {
		errs = append(errs, "base_score must be <= max_score")
	}

	// Recommendation bounds.
	if c.MinRecommendations <= 0 {
		errs = append(errs, "min_recommendations must be > 0")
	}
	if c.MaxRecommendations <= 0 {
		errs = append(errs, "max_recommendations must be > 0")
	}
	if c.MinRecommendations > c.MaxRecommendations {
		errs = append(errs, "min_recommendations must be <= max_recommendations")
	}

	// Penalties are negative contributions; bonuses are non-negative.
	for name, v := range map[string]float64{
		"size_mismatch_penalty":   c.SizeMismatchPenalty,
		"season_mismatch_penalty": c.SeasonMismatchPenalty,
	} {
		if v > 0 {
			errs = append(errs, fmt.Sprintf("%s must be <= 0", name))
		}
	}
	for name, v := range map[string]float64{
		"exact_size_weight":     c.ExactSizeWeight,
		"close_size_weight":     c.CloseSizeWeight,
		"season_match_bonus":    c.SeasonMatchBonus,
		"color_match_bonus":     c.ColorMatchBonus,
		"material_match_bonus":  c.MaterialMatchBonus,
		"fastening_match_bonus": c.FasteningMatchBonus,
		"heel_type_bonus":       c.HeelTypeBonus,
		"sole_type_bonus":       c.SoleTypeBonus,
		"heel_up_type_bonus":    c.HeelUpTypeBonus,
		"lacing_type_bonus":     c.LacingTypeBonus,
		"nose_type_bonus":       c.NoseTypeBonus,
		"primary_mold_bonus":    c.PrimaryMoldBonus,
		"secondary_mold_bonus":  c.SecondaryMoldBonus,
		"tertiary_mold_bonus":   c.TertiaryMoldBonus,
		"stock_high_bonus":      c.StockHighBonus,
		"stock_medium_bonus":    c.StockMediumBonus,
		"stock_low_bonus":       c.StockLowBonus,
		"price_bonus":           c.PriceBonus,
		"quality_bonus":         c.QualityBonus,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	// Mold tiers.
	if c.PrimaryMoldBonus < c.SecondaryMoldBonus || c.SecondaryMoldBonus < c.TertiaryMoldBonus {
		errs = append(errs, "mold bonuses must be ordered primary >= secondary >= tertiary")
	}
	if c.NoLastPenalty <= 0 || c.NoLastPenalty > 1 {
		errs = append(errs, "no_last_penalty must be in (0, 1]")
	}

	// Stock tiers.
	if c.StockMediumThreshold <= 0 {
		errs = append(errs, "stock_medium_threshold must be > 0")
	}
	if c.StockHighThreshold < c.StockMediumThreshold {
		errs = append(errs, "stock_high_threshold must be >= stock_medium_threshold")
	}

	// Ratios.
	if c.PriceTolerance < 0 || c.PriceTolerance > 1 {
		errs = append(errs, "price_tolerance must be between 0 and 1")
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		errs = append(errs, "quality_threshold must be between 0 and 1")
	}

	// Thresholds.
	if c.MinScoreThreshold < 0 || c.MinScoreThreshold > c.MaxScore {
		errs = append(errs, "min_score_threshold must be between 0 and max_score")
	}
	if c.FallbackFloor < 0 {
		errs = append(errs, "fallback_floor must be >= 0")
	}
	if c.FallbackStep < 0 {
		errs = append(errs, "fallback_step must be >= 0")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ConfigHash returns a short stable hash of cfg, stored with persisted results
// so runs scored under different weights can be told apart.
func ConfigHash(cfg config.ScoringConfig) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
