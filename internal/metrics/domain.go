package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain Prometheus metrics.
var (
	QueryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recalld",
			Name:      "query_requests_total",
			Help:      "Total retrieval queries by outcome",
		},
		[]string{"outcome"}, // "full" / "partial" / "failed"
	)

	TierSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recalld",
			Name:      "tier_search_duration_seconds",
			Help:      "Per-tier search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"tier", "status"},
	)

	PromotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recalld",
			Name:      "promotions_total",
			Help:      "Total committed promotions by trigger",
		},
		[]string{"trigger"}, // "score" / "human"
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recalld",
			Name:      "feedback_total",
			Help:      "Total recorded feedback signals",
		},
		[]string{"direction"}, // "positive" / "negative"
	)

	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recalld",
			Name:      "evictions_total",
			Help:      "Total eviction outcomes per sweep",
		},
		[]string{"result"}, // "evicted" / "skipped" / "failed"
	)

	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recalld",
			Name:      "ingest_documents_total",
			Help:      "Total documents written by ingestion",
		},
		[]string{"tier"},
	)

	EnrichmentDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recalld",
			Name:      "enrichment_degraded_total",
			Help:      "Total operations that proceeded without term extraction",
		},
	)
)

var domainMetricsRegistered bool

// RegisterDomainMetrics registers domain Prometheus metrics. Must be called once from main.
func RegisterDomainMetrics() {
	if domainMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueryRequestsTotal)
	prometheus.MustRegister(TierSearchDuration)
	prometheus.MustRegister(PromotionsTotal)
	prometheus.MustRegister(FeedbackTotal)
	prometheus.MustRegister(EvictionsTotal)
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(EnrichmentDegradedTotal)
	domainMetricsRegistered = true
}
