// Package metrics exposes Prometheus collectors for the menu crawler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	keywordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menucrawler_keywords_total",
			Help: "Total number of keywords searched, labeled by status.",
		},
		[]string{"status"},
	)

	entriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menucrawler_entries_total",
			Help: "Total number of result entries evaluated, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	menuTierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menucrawler_menu_tier_total",
			Help: "Total number of menu extractions, labeled by the tier that produced lines.",
		},
		[]string{"tier"},
	)

	recordsPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menucrawler_records_persisted_total",
			Help: "Total number of records written, labeled by sink.",
		},
		[]string{"sink"},
	)

	geocodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menucrawler_geocode_requests_total",
			Help: "Total number of geocoding lookups, labeled by result.",
		},
		[]string{"result"},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "menucrawler_rate_limit_delay_seconds",
			Help:    "Histogram of rate limit wait durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"limiter"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menucrawler_http_requests_total",
			Help: "Total number of HTTP requests served, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "menucrawler_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveKeyword records the final status of one keyword search.
func ObserveKeyword(status string) {
	keywordsTotal.WithLabelValues(status).Inc()
}

// ObserveEntry records how a result entry was resolved.
func ObserveEntry(outcome string) {
	entriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveMenuTier records which menu tier produced lines ("none" if no tier did).
func ObserveMenuTier(tier string) {
	menuTierTotal.WithLabelValues(tier).Inc()
}

// ObserveRecordsPersisted adds n records written by sink.
func ObserveRecordsPersisted(sink string, n int) {
	if n <= 0 {
		return
	}
	recordsPersistedTotal.WithLabelValues(sink).Add(float64(n))
}

// ObserveGeocode records one geocoding lookup result.
func ObserveGeocode(result string) {
	geocodeRequestsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(limiter string, duration time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(limiter).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		ObserveHTTPRequest(r.Method, route, rec.statusCode, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}
