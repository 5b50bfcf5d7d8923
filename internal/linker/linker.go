// Package linker resolves barcode links between catalogs in throttled,
// retried chunks.
package linker

import (
	"context"

	"github.com/rotisserie/eris"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/similar-cli/internal/catalog"
	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/model"
	"github.com/sells-group/similar-cli/internal/resilience"
)

// DefaultChunkSize is the number of ids per link query.
const DefaultChunkSize = 500

var _ catalog.Linker = (*Batched)(nil)

// Batched wraps a Linker. Id lists are split into chunks of ChunkSize, each
// chunk waits on a rate limiter, transient failures are retried, and a
// circuit breaker opens after repeated failures.
type Batched struct {
	inner     catalog.Linker
	chunkSize int
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	cb        *gobreaker.CircuitBreaker[map[string][]string]
}

// New creates a Batched linker. A zero rate limit disables throttling.
func New(inner catalog.Linker, cfg config.LinkerConfig, retry resilience.RetryConfig) *Batched {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	retry.OnRetry = resilience.RetryLogger("linker", "resolve links")

	return &Batched{
		inner:     inner,
		chunkSize: chunkSize,
		limiter:   rate.NewLimiter(limit, 1),
		retry:     retry,
		cb:        resilience.NewBreaker[map[string][]string]("linker", resilience.FromLinkerConfig(cfg)),
	}
}

// ResolveLinks resolves links for ids chunk by chunk and merges the results.
// When a chunk fails, the links resolved so far are returned with the error.
func (b *Batched) ResolveLinks(ctx context.Context, cat model.Catalog, ids []string) (map[string][]string, error) {
	chunks := chunk(unique(ids), b.chunkSize)
	out := make(map[string][]string)

	for i, ch := range chunks {
		if err := b.limiter.Wait(ctx); err != nil {
			return out, eris.Wrap(err, "linker: wait for rate limiter")
		}

		links, err := resilience.Call(ctx, b.cb, b.retry, func(ctx context.Context) (map[string][]string, error) {
			return b.inner.ResolveLinks(ctx, cat, ch)
		})
		if err != nil {
			return out, eris.Wrapf(err, "linker: resolve chunk %d/%d", i+1, len(chunks))
		}
		for id, linked := range links {
			out[id] = merge(out[id], linked)
		}
	}

	if len(chunks) > 1 {
		zap.L().Debug("linker: resolved links",
			zap.String("catalog", string(cat)),
			zap.Int("ids", len(ids)),
			zap.Int("chunks", len(chunks)),
			zap.Int("linked", len(out)),
		)
	}
	return out, nil
}

// State reports the circuit breaker state.
func (b *Batched) State() string {
	return b.cb.State().String()
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		out = append(out, ids[start:min(start+size, len(ids))])
	}
	return out
}

// merge appends the values of add missing from dst, keeping order.
func merge(dst, add []string) []string {
	for _, v := range add {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
