// Package metrics provides Prometheus metrics for the Pokémon collector backend.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokedex_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// External catalog API Metrics
	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_catalog_requests_total",
			Help: "Total requests to external card catalog APIs",
		},
		[]string{"service", "result"}, // service: "tcgdex" or "pokemontcg", result: "ok", "not_found", "timeout", "error"
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokedex_catalog_request_duration_seconds",
			Help:    "External card catalog API latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	CatalogRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_catalog_retries_total",
			Help: "Retried external catalog requests",
		},
		[]string{"service"},
	)

	// Seeder Metrics
	SeedCardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_seed_cards_total",
			Help: "Cards processed by the catalog seeder",
		},
		[]string{"language", "result"}, // result: "added", "updated", "skipped", "duplicate_removed", "error"
	)

	SeedSetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_seed_sets_total",
			Help: "Sets processed by the catalog seeder",
		},
		[]string{"language", "result"},
	)

	SeedRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokedex_seed_run_duration_seconds",
			Help:    "Time taken by an admin seed run",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"job"},
	)

	// Card count cache Metrics
	CardCountCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_card_count_cache_hits_total",
			Help: "Card count cache hit count",
		},
	)

	CardCountCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_card_count_cache_misses_total",
			Help: "Card count cache miss count",
		},
	)

	CardCountCacheStaleServes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_card_count_cache_stale_total",
			Help: "Times stale card counts were served after a failed refresh",
		},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokedex_store_operation_duration_seconds",
			Help:    "Document store operation latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend", "operation"},
	)

	// Reconcile worker Metrics
	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_reconcile_runs_total",
			Help: "Counter reconciliation runs",
		},
		[]string{"result"},
	)

	MasterSetsReconciled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokedex_master_sets_reconciled",
			Help: "Master sets recomputed during the last reconcile run",
		},
	)

	// Image upload Metrics
	ImageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_image_uploads_total",
			Help: "Blog image uploads by backend and result",
		},
		[]string{"backend", "result"},
	)
)
