// Package metrics exposes Prometheus collectors for lookups, batches, store
// queries, and the enrichment cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResultsTotal counts lookup outcomes by catalog and status.
	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similar_results_total",
			Help: "Total number of recommendation lookups by outcome",
		},
		[]string{"catalog", "status"},
	)

	// LookupDuration tracks per-item lookup latency. Mode is "single" or "batch".
	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "similar_lookup_duration_seconds",
			Help:    "Duration of a single recommendation lookup in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"catalog", "mode"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "similar_batch_duration_seconds",
			Help:    "Duration of a batch run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"catalog"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "similar_store_query_duration_seconds",
			Help:    "Duration of catalog store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similar_store_query_errors_total",
			Help: "Total number of failed catalog store queries",
		},
		[]string{"op", "error_type"},
	)

	// EnrichCache counts enrichment cache lookups; result is "hit" or "miss".
	EnrichCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similar_enrich_cache_total",
			Help: "Enrichment cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordResult records the outcome and latency of one lookup.
func RecordResult(catalog, mode, status string, duration time.Duration) {
	ResultsTotal.WithLabelValues(catalog, status).Inc()
	LookupDuration.WithLabelValues(catalog, mode).Observe(duration.Seconds())
}

// RecordStoreQuery records a store query. errorType is empty on success.
func RecordStoreQuery(op string, duration time.Duration, errorType string) {
	StoreQueryDuration.WithLabelValues(op).Observe(duration.Seconds())
	if errorType != "" {
		StoreQueryErrors.WithLabelValues(op, errorType).Inc()
	}
}

// RecordCache records enrichment cache hits and misses.
func RecordCache(hits, misses int) {
	if hits > 0 {
		EnrichCache.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		EnrichCache.WithLabelValues("miss").Add(float64(misses))
	}
}
