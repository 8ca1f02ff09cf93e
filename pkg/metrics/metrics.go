// Package metrics provides the inbound HTTP metrics of the dashboard API and
// the catalogue of every metric it exports. Upstream, cache and rate-limit
// metrics are defined in their respective packages (upstream, cache,
// ratelimit) to maintain modularity and avoid circular dependencies.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the dashboard.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Inbound HTTP metrics.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "Total inbound HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "Inbound HTTP request duration in seconds by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_http_requests_in_flight",
		Help: "Inbound HTTP requests currently being served",
	})

	viewSourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_view_source_failures_total",
		Help: "Dashboard view sources that failed to load by view and source",
	}, []string{"view", "source"})

	nftFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_nft_fallback_total",
		Help: "NFT fallback activations by outcome",
	}, []string{"outcome"})
)

// RequestStarted marks a request in flight and returns the function that
// records its completion.
func RequestStarted() func(route, method string, status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(route, method string, status int) {
		httpInFlight.Dec()
		ObserveRequest(route, method, status, time.Since(start))
	}
}

// ObserveRequest records one finished inbound request. Unmatched routes
// should be passed as "unmatched" to keep label cardinality bounded.
func ObserveRequest(route, method string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ViewSourceFailed counts a failed source of a dashboard view.
func ViewSourceFailed(view, source string) {
	viewSourceFailures.WithLabelValues(view, source).Inc()
}

// NFTFallback counts an NFT fallback activation; outcome is "ok" or "error".
func NFTFallback(outcome string) {
	nftFallbacksTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// HTTP Metrics (pkg/metrics):
//   - dashboard_http_requests_total{route, method, status} (Counter): Inbound requests
//   - dashboard_http_request_duration_seconds{route} (Histogram): Inbound latency
//   - dashboard_http_requests_in_flight (Gauge): Requests being served
//   - dashboard_view_source_failures_total{view, source} (Counter): Failed view sources
//   - dashboard_nft_fallback_total{outcome} (Counter): NFT fallback activations
//
// Cache Metrics (pkg/cache):
//   - dashboard_cache_hits_total{store} (Counter): Fresh entries served
//   - dashboard_cache_misses_total{store} (Counter): Absent or expired entries
//   - dashboard_cache_fetch_errors_total (Counter): Failed fetches (never stored)
//   - dashboard_cache_coalesced_total (Counter): Callers that shared another caller's fetch
//   - dashboard_cache_store_errors_total{operation} (Counter): Store load/save errors
//   - dashboard_cache_payload_bytes (Histogram): Size of stored payloads
//
// Upstream Metrics (pkg/upstream):
//   - dashboard_upstream_requests_total{upstream, status} (Counter): Upstream calls by status
//   - dashboard_upstream_request_duration_seconds{upstream} (Histogram): Upstream latency
//   - dashboard_upstream_errors_total{upstream, class} (Counter): Failures by error class
//   - dashboard_upstream_retries_total{upstream, error_class} (Counter): Retry attempts
//   - dashboard_upstream_retry_wait_seconds{error_class} (Histogram): Waits before a retry
//   - dashboard_upstream_retry_give_ups_total{upstream, error_class} (Counter): Requests failed after retrying
//
// Rate Limit Metrics (pkg/ratelimit):
//   - dashboard_upstream_cooldown_seconds{upstream} (Gauge): Remaining 429 cooldown
//   - dashboard_rate_limit_blocks_total{upstream} (Counter): Calls refused during cooldown
//   - dashboard_rate_limit_throttles_total{upstream} (Counter): 429 responses received
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(dashboard_cache_hits_total[5m])) /
//   (sum(rate(dashboard_cache_hits_total[5m])) + sum(rate(dashboard_cache_misses_total[5m])))
//
//   # Upstream Error Rate by Class
//   sum by (class) (rate(dashboard_upstream_errors_total[5m]))
//
//   # P95 Inbound Latency
//   histogram_quantile(0.95, sum by (le, route) (rate(dashboard_http_request_duration_seconds_bucket[5m])))
//
//   # Upstreams Cooling Down
//   dashboard_upstream_cooldown_seconds > 0
