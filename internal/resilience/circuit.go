// Package resilience provides retry and circuit breaker helpers for store and
// linker calls.
package resilience

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive transient failures before
	// opening the circuit. Default: 5.
	FailureThreshold uint32

	// ResetTimeout is how long the circuit stays open before transitioning
	// to half-open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMaxProbes is the number of requests allowed through while
	// half-open. Default: 1.
	HalfOpenMaxProbes uint32
}

// DefaultCircuitBreakerConfig returns the default breaker settings.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:  5,
		ResetTimeout:      30 * time.Second,
		HalfOpenMaxProbes: 1,
	}
}

// NewBreaker builds a gobreaker circuit breaker. Only transient errors count
// as failures, so missing rows or bad input never open the circuit.
func NewBreaker[T any](name string, cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	def := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMaxProbes == 0 {
		cfg.HalfOpenMaxProbes = def.HalfOpenMaxProbes
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxProbes,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("resilience: circuit state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Call runs fn through the breaker with retries. Each retry attempt passes
// through the breaker, and an open circuit stops retrying immediately.
func Call[T any](ctx context.Context, cb *gobreaker.CircuitBreaker[T], retry RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	return DoVal(ctx, retry, func(ctx context.Context) (T, error) {
		return cb.Execute(func() (T, error) {
			return fn(ctx)
		})
	})
}
