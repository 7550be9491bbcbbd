// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campussafe_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	BuddyRequestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campussafe_buddy_request_transitions_total",
			Help: "Buddy request state transitions",
		},
		[]string{"transition"}, // created, accepted, rejected, canceled
	)

	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campussafe_alerts_created_total",
			Help: "Alerts persisted, by kind and location source",
		},
		[]string{"kind", "location_source"}, // kind: manual, instant
	)

	SMSDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campussafe_sms_dispatched_total",
			Help: "Outbound SMS attempts by result",
		},
		[]string{"result"}, // success, failure
	)

	GeocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campussafe_geocode_requests_total",
			Help: "Reverse geocoding lookups by outcome",
		},
		[]string{"outcome"}, // ok, missing_api_key, upstream_error, no_results, circuit_open
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campussafe_rate_limit_rejections_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)

	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "campussafe_db_pool_connections",
			Help: "Postgres pool connections by state",
		},
		[]string{"state"}, // total, idle, acquired, max
	)

	RedisPool = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "campussafe_redis_pool",
			Help: "Redis client pool connections and cumulative hit, miss and timeout counts",
		},
		[]string{"stat"}, // total, idle, stale, hits, misses, timeouts
	)
)

// ObserveHTTPRequest records one completed request.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// SetPoolStats publishes database pool gauges.
func SetPoolStats(total, idle, acquired, maxConns int32) {
	DBPoolConnections.WithLabelValues("total").Set(float64(total))
	DBPoolConnections.WithLabelValues("idle").Set(float64(idle))
	DBPoolConnections.WithLabelValues("acquired").Set(float64(acquired))
	DBPoolConnections.WithLabelValues("max").Set(float64(maxConns))
}

// SetRedisPoolStats publishes redis client pool gauges.
func SetRedisPoolStats(total, idle, stale, hits, misses, timeouts uint32) {
	RedisPool.WithLabelValues("total").Set(float64(total))
	RedisPool.WithLabelValues("idle").Set(float64(idle))
	RedisPool.WithLabelValues("stale").Set(float64(stale))
	RedisPool.WithLabelValues("hits").Set(float64(hits))
	RedisPool.WithLabelValues("misses").Set(float64(misses))
	RedisPool.WithLabelValues("timeouts").Set(float64(timeouts))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
