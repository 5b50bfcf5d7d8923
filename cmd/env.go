package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/catalog"
	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/enrich"
	"github.com/sells-group/similar-cli/internal/linker"
	"github.com/sells-group/similar-cli/internal/recommend"
	"github.com/sells-group/similar-cli/internal/resilience"
	"github.com/sells-group/similar-cli/internal/scorer"
)

// env holds the wired engine components for one command invocation.
type env struct {
	Store    *catalog.Guarded
	Linker   *linker.Batched
	Pipeline *enrich.Pipeline
	Scorer   *scorer.Scorer
	Engine   *recommend.Engine
	Batch    *recommend.Orchestrator
	Pool     *pgxpool.Pool // nil unless store.driver is postgres
	Scoring  config.ScoringConfig

	ping    func(ctx context.Context) error
	closers []func()
}

// Close releases the store connection.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// Ping reports whether the catalog database is reachable.
func (e *env) Ping(ctx context.Context) error {
	if e.ping == nil {
		return nil
	}
	return e.ping(ctx)
}

// scoringFlags are the per-command overrides of the scoring config.
type scoringFlags struct {
	preset   string
	minScore float64
	max      int
}

func (f *scoringFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.preset, "preset", "", "scoring preset (default from config)")
	cmd.Flags().Float64Var(&f.minScore, "min-score", 0, "override min_score_threshold")
	cmd.Flags().IntVar(&f.max, "max", 0, "override max_recommendations")
}

// resolveScoring layers preset, config overrides, and flags into the effective
// scoring config.
func resolveScoring(c *config.Config, f scoringFlags) (config.ScoringConfig, error) {
	preset := c.Preset.Name
	if f.preset != "" {
		preset = f.preset
	}

	var extra map[string]map[string]float64
	if c.Preset.File != "" {
		var err error
		if extra, err = scorer.LoadPresets(c.Preset.File); err != nil {
			return config.ScoringConfig{}, err
		}
	}

	sc, err := scorer.ApplyPreset(preset, extra)
	if err != nil {
		return sc, err
	}
	if err := scorer.ApplyOverrides(&sc, c.Scoring); err != nil {
		return sc, err
	}
	if f.minScore > 0 {
		sc.MinScoreThreshold = f.minScore
	}
	if f.max > 0 {
		sc.MaxRecommendations = f.max
		sc.MinRecommendations = min(sc.MinRecommendations, f.max)
	}
	if err := scorer.ValidateConfig(sc); err != nil {
		return sc, err
	}
	return sc, nil
}

// openBackend connects to the configured catalog database.
func openBackend(ctx context.Context, c *config.Config) (catalog.Backend, *pgxpool.Pool, func(ctx context.Context) error, func(), error) {
	switch c.Store.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.Store.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, eris.Wrap(err, "connect to postgres")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, nil, eris.Wrap(err, "ping postgres")
		}
		return catalog.NewPostgresStore(pool, c.Catalog), pool, pool.Ping, pool.Close, nil
	case "sqlite", "duckdb":
		st, err := catalog.OpenSQL(c.Store.Driver, c.Store.DatabaseURL, c.Catalog)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		closeFn := func() {
			if err := st.Close(); err != nil {
				zap.L().Warn("close catalog store", zap.Error(err))
			}
		}
		return st, nil, st.DB().PingContext, closeFn, nil
	default:
		return nil, nil, nil, nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// initEnv validates config for mode and wires the store, linker, enrichment
// pipeline, scorer, engine, and batch orchestrator.
func initEnv(ctx context.Context, mode string, scoring config.ScoringConfig) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	backend, pool, ping, closeFn, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	e := &env{Pool: pool, Scoring: scoring, ping: ping, closers: []func(){closeFn}}

	retry := resilience.FromRetryConfig(cfg.Retry)
	e.Store = catalog.NewGuarded(backend, retry, resilience.DefaultCircuitBreakerConfig())
	e.Linker = linker.New(backend, cfg.Linker, retry)

	var cache *enrich.Cache
	if cfg.Cache.Enabled {
		cache = enrich.NewCache()
	}
	e.Pipeline = enrich.New(e.Store, e.Linker, cache)

	e.Scorer, err = scorer.New(scoring)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Engine = recommend.NewEngine(e.Store, e.Pipeline, e.Scorer)
	e.Batch = recommend.NewOrchestrator(e.Store, e.Pipeline, e.Scorer, cfg.Batch)

	zap.L().Debug("environment ready",
		zap.String("driver", cfg.Store.Driver),
		zap.String("config_hash", scorer.ConfigHash(scoring)),
		zap.Bool("cache", cfg.Cache.Enabled),
	)
	return e, nil
}
