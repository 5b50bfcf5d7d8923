package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Preset  PresetConfig  `yaml:"preset" mapstructure:"preset"`
	// Scoring holds per-key overrides applied on top of the selected preset,
	// keyed by the ScoringConfig yaml names (e.g. "min_score_threshold").
	Scoring map[string]float64 `yaml:"scoring" mapstructure:"scoring"`
	Batch   BatchConfig        `yaml:"batch" mapstructure:"batch"`
	Linker  LinkerConfig       `yaml:"linker" mapstructure:"linker"`
	Retry   RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Cache   CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Server  ServerConfig       `yaml:"server" mapstructure:"server"`
	Monitor MonitoringConfig   `yaml:"monitoring" mapstructure:"monitoring"`
	Log     LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the catalog store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres, sqlite, duckdb
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CatalogConfig names the tables the engine reads from (and the one it writes results to).
type CatalogConfig struct {
	PrimaryTable   string `yaml:"primary_table" mapstructure:"primary_table"`
	SecondaryTable string `yaml:"secondary_table" mapstructure:"secondary_table"`
	ReferenceTable string `yaml:"reference_table" mapstructure:"reference_table"`
	BarcodeTable   string `yaml:"barcode_table" mapstructure:"barcode_table"`
	ResultsTable   string `yaml:"results_table" mapstructure:"results_table"`
}

// ScoringConfig holds every weight, penalty and threshold used by the
// similarity scorer and the recommendation engine.
type ScoringConfig struct {
	BaseScore float64 `yaml:"base_score" mapstructure:"base_score" json:"base_score"`
	MaxScore  float64 `yaml:"max_score" mapstructure:"max_score" json:"max_score"`

	// Size.
	ExactSizeWeight     float64 `yaml:"exact_size_weight" mapstructure:"exact_size_weight" json:"exact_size_weight"`
	CloseSizeWeight     float64 `yaml:"close_size_weight" mapstructure:"close_size_weight" json:"close_size_weight"`
	SizeMismatchPenalty float64 `yaml:"size_mismatch_penalty" mapstructure:"size_mismatch_penalty" json:"size_mismatch_penalty"`

	// Season.
	SeasonMatchBonus      float64 `yaml:"season_match_bonus" mapstructure:"season_match_bonus" json:"season_match_bonus"`
	SeasonMismatchPenalty float64 `yaml:"season_mismatch_penalty" mapstructure:"season_mismatch_penalty" json:"season_mismatch_penalty"`

	// Flat attribute bonuses.
	ColorMatchBonus     float64 `yaml:"color_match_bonus" mapstructure:"color_match_bonus" json:"color_match_bonus"`
	MaterialMatchBonus  float64 `yaml:"material_match_bonus" mapstructure:"material_match_bonus" json:"material_match_bonus"`
	FasteningMatchBonus float64 `yaml:"fastening_match_bonus" mapstructure:"fastening_match_bonus" json:"fastening_match_bonus"`

	// Construction attributes (secondary catalog only).
	HeelTypeBonus   float64 `yaml:"heel_type_bonus" mapstructure:"heel_type_bonus" json:"heel_type_bonus"`
	SoleTypeBonus   float64 `yaml:"sole_type_bonus" mapstructure:"sole_type_bonus" json:"sole_type_bonus"`
	HeelUpTypeBonus float64 `yaml:"heel_up_type_bonus" mapstructure:"heel_up_type_bonus" json:"heel_up_type_bonus"`
	LacingTypeBonus float64 `yaml:"lacing_type_bonus" mapstructure:"lacing_type_bonus" json:"lacing_type_bonus"`
	NoseTypeBonus   float64 `yaml:"nose_type_bonus" mapstructure:"nose_type_bonus" json:"nose_type_bonus"`

	// Mold/last cascade.
	PrimaryMoldBonus   float64 `yaml:"primary_mold_bonus" mapstructure:"primary_mold_bonus" json:"primary_mold_bonus"`
	SecondaryMoldBonus float64 `yaml:"secondary_mold_bonus" mapstructure:"secondary_mold_bonus" json:"secondary_mold_bonus"`
	TertiaryMoldBonus  float64 `yaml:"tertiary_mold_bonus" mapstructure:"tertiary_mold_bonus" json:"tertiary_mold_bonus"`
	NoLastPenalty      float64 `yaml:"no_last_penalty" mapstructure:"no_last_penalty" json:"no_last_penalty"`

	// Stock tiers.
	StockHighThreshold   int     `yaml:"stock_high_threshold" mapstructure:"stock_high_threshold" json:"stock_high_threshold"`
	StockMediumThreshold int     `yaml:"stock_medium_threshold" mapstructure:"stock_medium_threshold" json:"stock_medium_threshold"`
	StockHighBonus       float64 `yaml:"stock_high_bonus" mapstructure:"stock_high_bonus" json:"stock_high_bonus"`
	StockMediumBonus     float64 `yaml:"stock_medium_bonus" mapstructure:"stock_medium_bonus" json:"stock_medium_bonus"`
	StockLowBonus        float64 `yaml:"stock_low_bonus" mapstructure:"stock_low_bonus" json:"stock_low_bonus"`

	// Price similarity (secondary catalog only).
	PriceEnabled   bool    `yaml:"price_enabled" mapstructure:"price_enabled" json:"price_enabled"`
	PriceTolerance float64 `yaml:"price_tolerance" mapstructure:"price_tolerance" json:"price_tolerance"`
	PriceBonus     float64 `yaml:"price_bonus" mapstructure:"price_bonus" json:"price_bonus"`

	// Enrichment quality (secondary catalog only).
	QualityThreshold float64 `yaml:"quality_threshold" mapstructure:"quality_threshold" json:"quality_threshold"`
	QualityBonus     float64 `yaml:"quality_bonus" mapstructure:"quality_bonus" json:"quality_bonus"`

	// Result shaping.
	MinRecommendations int     `yaml:"min_recommendations" mapstructure:"min_recommendations" json:"min_recommendations"`
	MaxRecommendations int     `yaml:"max_recommendations" mapstructure:"max_recommendations" json:"max_recommendations"`
	MinScoreThreshold  float64 `yaml:"min_score_threshold" mapstructure:"min_score_threshold" json:"min_score_threshold"`
	FallbackFloor      float64 `yaml:"fallback_floor" mapstructure:"fallback_floor" json:"fallback_floor"`
	FallbackStep       float64 `yaml:"fallback_step" mapstructure:"fallback_step" json:"fallback_step"`
}

// PresetConfig selects a named scoring preset and an optional file of extra presets.
type PresetConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	File string `yaml:"file" mapstructure:"file"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentGroups int  `yaml:"max_concurrent_groups" mapstructure:"max_concurrent_groups"`
	ExpandPool          bool `yaml:"expand_pool" mapstructure:"expand_pool"`
}

// LinkerConfig configures barcode link resolution.
type LinkerConfig struct {
	ChunkSize        int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // chunk queries per second
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// RetryConfig configures retries of transient store errors.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CacheConfig configures the single-item enrichment cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	LookupTimeoutSecs  int      `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs"`
	MaxBatchSize       int      `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	RequestsPerMinute  int      `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeoutSec int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// MonitoringConfig configures batch health alerts. A zero threshold disables
// that alert.
type MonitoringConfig struct {
	WebhookURL          string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	ErrorRateThreshold  float64 `yaml:"error_rate_threshold" mapstructure:"error_rate_threshold"`
	NoDataRateThreshold float64 `yaml:"no_data_rate_threshold" mapstructure:"no_data_rate_threshold"`
	MinSuccessRate      float64 `yaml:"min_success_rate" mapstructure:"min_success_rate"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SIMILAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("catalog.primary_table", "catalog_primary")
	v.SetDefault("catalog.secondary_table", "catalog_secondary")
	v.SetDefault("catalog.reference_table", "construction_reference")
	v.SetDefault("catalog.barcode_table", "item_barcodes")
	v.SetDefault("catalog.results_table", "similarity_results")
	v.SetDefault("preset.name", "balanced")
	v.SetDefault("batch.max_concurrent_groups", 4)
	v.SetDefault("batch.expand_pool", false)
	v.SetDefault("linker.chunk_size", 500)
	v.SetDefault("linker.rate_limit", 20)
	v.SetDefault("linker.failure_threshold", 5)
	v.SetDefault("linker.reset_timeout_secs", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 200)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.lookup_timeout_secs", 10)
	v.SetDefault("server.max_batch_size", 1000)
	v.SetDefault("server.requests_per_minute", 120)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("monitoring.error_rate_threshold", 0.05)
	v.SetDefault("monitoring.no_data_rate_threshold", 0.5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
