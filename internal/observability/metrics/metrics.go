package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memedata_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memedata_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	tokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memedata_tokens_issued_total",
		Help: "Count of issued bearer tokens by type",
	}, []string{"type"})

	tokenRevocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memedata_token_revocations_total",
		Help: "Count of revoked bearer tokens by type",
	}, []string{"type"})

	authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memedata_auth_failures_total",
		Help: "Count of rejected credentials and tokens by reason",
	}, []string{"reason"})

	revocationCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memedata_revocation_cache_lookups_total",
		Help: "Revocation cache lookups by result (hit, miss, error, skipped)",
	}, []string{"result"})

	tagsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memedata_tags_created_total",
		Help: "Count of tags created by lazy resolution",
	})

	textQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memedata_text_query_duration_seconds",
		Help:    "Duration of text list queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveTokenIssued counts a minted token of the given type.
func ObserveTokenIssued(tokenType string) {
	tokensIssued.WithLabelValues(tokenType).Inc()
}

// ObserveRevocation counts a revoked token of the given type.
func ObserveRevocation(tokenType string) {
	tokenRevocations.WithLabelValues(tokenType).Inc()
}

// ObserveAuthFailure counts a rejected login or token.
func ObserveAuthFailure(reason string) {
	authFailures.WithLabelValues(reason).Inc()
}

// ObserveRevocationCache counts a revocation cache lookup outcome.
func ObserveRevocationCache(result string) {
	revocationCacheLookups.WithLabelValues(result).Inc()
}

// ObserveTagsCreated adds n newly created tags.
func ObserveTagsCreated(n int) {
	if n > 0 {
		tagsCreated.Add(float64(n))
	}
}

// ObserveTextQuery records a list query; result is "ok", "empty" or "error".
func ObserveTextQuery(result string, duration time.Duration) {
	textQueryDuration.WithLabelValues(result).Observe(duration.Seconds())
}
