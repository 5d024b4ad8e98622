package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation pipeline metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyquant_recommendations_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"status"}, // ok, no_anchor, insufficient_data, error
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polyquant_recommendation_duration_seconds",
			Help:    "End-to-end duration of recommendation requests",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// Discovery metrics
	DiscoveryRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polyquant_discovery_rounds",
			Help:    "Number of expansion rounds per discovery request",
			Buckets: []float64{1, 2, 3, 4},
		},
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polyquant_candidates_scored_total",
			Help: "Total number of markets scored for relevance",
		},
	)

	CandidatesAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polyquant_candidates_accepted_total",
			Help: "Total number of candidates clearing the relevance threshold",
		},
	)

	// Price history metrics
	PriceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyquant_price_fetches_total",
			Help: "Total number of price history fetches",
		},
		[]string{"status"}, // success, unavailable, timeout, error
	)

	PriceFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polyquant_price_fetch_duration_seconds",
			Help:    "Duration of price history fetches",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	PriceCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyquant_price_cache_lookups_total",
			Help: "Price history cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// Signal metrics
	SignalsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyquant_signals_computed_total",
			Help: "Correlation signals computed per candidate",
		},
		[]string{"status"}, // ok, insufficient_overlap
	)

	// AI provider metrics
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyquant_provider_calls_total",
			Help: "Total number of AI provider calls",
		},
		[]string{"provider", "op", "status"}, // mock/openai/gemini, keywords/proxy/alignment, success/error
	)

	ProviderFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polyquant_provider_fallbacks_total",
			Help: "Total number of falls back to the mock provider",
		},
	)

	// Catalog metrics
	CatalogSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyquant_catalog_syncs_total",
			Help: "Total number of catalog sync runs",
		},
		[]string{"status"},
	)

	CatalogMarketsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polyquant_catalog_markets_upserted_total",
			Help: "Total number of markets upserted during sync",
		},
	)

	CatalogSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polyquant_catalog_sync_duration_seconds",
			Help:    "Duration of catalog sync runs",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Database metrics
	DatabaseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyquant_database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyquant_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"},
	)
)

// RecordRecommendation records the outcome of a recommendation request
func RecordRecommendation(duration time.Duration, status string) {
	RecommendationsTotal.WithLabelValues(status).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordPriceFetch records a price history fetch
func RecordPriceFetch(duration time.Duration, status string) {
	PriceFetches.WithLabelValues(status).Inc()
	PriceFetchDuration.Observe(duration.Seconds())
}

// RecordProviderCall records an AI provider call
func RecordProviderCall(provider, op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ProviderCalls.WithLabelValues(provider, op, status).Inc()
}

// RecordCatalogSync records a catalog sync run
func RecordCatalogSync(duration time.Duration, upserted int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	CatalogSyncs.WithLabelValues(status).Inc()
	CatalogMarketsUpserted.Add(float64(upserted))
	CatalogSyncDuration.Observe(duration.Seconds())
}

// RecordDatabaseQuery records a database query
func RecordDatabaseQuery(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueries.WithLabelValues(operation, status).Inc()
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
