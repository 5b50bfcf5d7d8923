package catalog

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sells-group/similar-cli/internal/metrics"
	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/resilience"
)

// Guarded wraps a Backend with retries of transient errors, a shared circuit
// breaker, and query timing metrics.
type Guarded struct {
	inner Backend
	retry resilience.RetryConfig
	cb    *gobreaker.CircuitBreaker[any]
}

// NewGuarded wraps inner.
func NewGuarded(inner Backend, retry resilience.RetryConfig, breaker resilience.CircuitBreakerConfig) *Guarded {
	return &Guarded{
		inner: inner,
		retry: retry,
		cb:    resilience.NewBreaker[any]("catalog", breaker),
	}
}

func guard[T any](ctx context.Context, g *Guarded, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	retry := g.retry
	retry.OnRetry = resilience.RetryLogger("catalog", op)

	v, err := resilience.Call(ctx, g.cb, retry, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		metrics.RecordStoreQuery(op, time.Since(start), resilience.ClassifyError(err))
		var zero T
		return zero, eris.Wrapf(err, "catalog: %s", op)
	}
	metrics.RecordStoreQuery(op, time.Since(start), "")

	out, _ := v.(T)
	return out, nil
}

func (g *Guarded) GetProduct(ctx context.Context, cat model.Catalog, id string) (model.Product, error) {
	return guard(ctx, g, "get_product", func(ctx context.Context) (model.Product, error) {
		return g.inner.GetProduct(ctx, cat, id)
	})
}

func (g *Guarded) GetProducts(ctx context.Context, cat model.Catalog, ids []string) (map[string]model.Product, error) {
	return guard(ctx, g, "get_products", func(ctx context.Context) (map[string]model.Product, error) {
		return g.inner.GetProducts(ctx, cat, ids)
	})
}

func (g *Guarded) FindCandidates(ctx context.Context, cat model.Catalog, key model.GroupKey, excludeID string) ([]model.Product, error) {
	return guard(ctx, g, "find_candidates", func(ctx context.Context) ([]model.Product, error) {
		return g.inner.FindCandidates(ctx, cat, key, excludeID)
	})
}

func (g *Guarded) FindGroupMembers(ctx context.Context, cat model.Catalog, keys []model.GroupKey) ([]model.Product, error) {
	return guard(ctx, g, "find_group_members", func(ctx context.Context) ([]model.Product, error) {
		return g.inner.FindGroupMembers(ctx, cat, keys)
	})
}

func (g *Guarded) GetReferenceAttrs(ctx context.Context, ids []string) (map[string]model.ReferenceAttrs, error) {
	return guard(ctx, g, "get_reference_attrs", func(ctx context.Context) (map[string]model.ReferenceAttrs, error) {
		return g.inner.GetReferenceAttrs(ctx, ids)
	})
}

func (g *Guarded) ResolveLinks(ctx context.Context, cat model.Catalog, ids []string) (map[string][]string, error) {
	return guard(ctx, g, "resolve_links", func(ctx context.Context) (map[string][]string, error) {
		return g.inner.ResolveLinks(ctx, cat, ids)
	})
}

// State reports the circuit breaker state.
func (g *Guarded) State() string {
	return g.cb.State().String()
}
