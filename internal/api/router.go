// Package api serves recommendations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/recommend"
)

// Recommender runs single-item lookups.
type Recommender interface {
	Recommend(ctx context.Context, cat model.Catalog, id string) *model.ProcessingResult
}

// BatchRunner runs batch lookups.
type BatchRunner interface {
	Run(ctx context.Context, cat model.Catalog, ids []string, fn recommend.ProgressFunc) *model.BatchResult
}

// Options configures the router.
type Options struct {
	LookupTimeout     time.Duration
	MaxBatchSize      int
	RequestsPerMinute int // 0 disables rate limiting
	CORSOrigins       []string
	// Health reports whether the catalog store is reachable. Nil means always healthy.
	Health func(ctx context.Context) error
}

// Handler holds the HTTP handlers.
type Handler struct {
	engine   Recommender
	batch    BatchRunner
	opts     Options
	validate *validator.Validate
}

// NewHandler creates a Handler with defaults applied to opts.
func NewHandler(engine Recommender, batch BatchRunner, opts Options) *Handler {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 10 * time.Second
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 1000
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Handler{
		engine:   engine,
		batch:    batch,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Router returns the chi router with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/{catalog}", func(r chi.Router) {
		if h.opts.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(h.opts.RequestsPerMinute, time.Minute))
		}
		r.Get("/items/{id}/recommendations", h.Recommendations)
		r.Post("/batch", h.Batch)
	})

	return r
}
