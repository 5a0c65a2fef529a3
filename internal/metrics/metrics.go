// Package metrics exposes Prometheus collectors for the aggregator service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sourceFetchesTotal         *prometheus.CounterVec
	sourceFetchDurationSeconds *prometheus.HistogramVec
	sourceEntriesTotal         *prometheus.CounterVec
	breakerState               *prometheus.GaugeVec
	cycleDurationSeconds       prometheus.Histogram
	pipelineItemsTotal         *prometheus.CounterVec
	notificationsTotal         *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times. Observe helpers are no-ops
// until Init has run.
func Init() {
	once.Do(func() {
		sourceFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_source_fetches_total",
				Help: "Source fetch attempts, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		sourceFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insight_source_fetch_duration_seconds",
				Help:    "Histogram of source fetch latencies, labeled by kind.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 6, 10},
			},
			[]string{"kind"},
		)

		sourceEntriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_source_entries_total",
				Help: "Raw entries extracted, labeled by source.",
			},
			[]string{"source"},
		)

		breakerState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "insight_breaker_state",
				Help: "Circuit breaker state per source (0 closed, 1 half-open, 2 open).",
			},
			[]string{"source"},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "insight_cycle_duration_seconds",
				Help:    "Histogram of full fetch-and-aggregate cycle durations.",
				Buckets: []float64{0.5, 1, 2, 5, 8, 10, 15},
			},
		)

		pipelineItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_pipeline_items_total",
				Help: "Entries seen by the aggregation pipeline, labeled by result.",
			},
			[]string{"result"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_notifications_total",
				Help: "Telegram messages pushed to subscribers, labeled by status.",
			},
			[]string{"status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insight_rate_limit_delays_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"domain"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSourceFetch records one source attempt. source is the same label
// SetBreakerState uses.
func ObserveSourceFetch(source, kind, outcome string, entries int, duration time.Duration) {
	if sourceFetchesTotal == nil {
		return
	}
	sourceFetchesTotal.WithLabelValues(source, outcome).Inc()
	if duration > 0 {
		sourceFetchDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
	}
	if entries > 0 {
		sourceEntriesTotal.WithLabelValues(source).Add(float64(entries))
	}
}

// SetBreakerState publishes a breaker's state for a source.
func SetBreakerState(source, state string) {
	if breakerState == nil {
		return
	}
	var v float64
	switch state {
	case "HALF_OPEN":
		v = 1
	case "OPEN":
		v = 2
	}
	breakerState.WithLabelValues(source).Set(v)
}

// ObserveCycle records the duration of one fetch-and-aggregate cycle.
func ObserveCycle(duration time.Duration) {
	if cycleDurationSeconds == nil {
		return
	}
	cycleDurationSeconds.Observe(duration.Seconds())
}

// ObservePipeline counts pipeline results (kept or the reason for dropping).
func ObservePipeline(result string, n int) {
	if pipelineItemsTotal == nil || n <= 0 {
		return
	}
	pipelineItemsTotal.WithLabelValues(result).Add(float64(n))
}

// ObserveNotification counts a subscriber message attempt.
func ObserveNotification(status string) {
	if notificationsTotal == nil {
		return
	}
	notificationsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	if rateLimitDelaysSeconds == nil {
		return
	}
	rateLimitDelaysSeconds.WithLabelValues(SanitizeSite(domain)).Observe(duration.Seconds())
}
