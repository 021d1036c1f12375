package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate on the gateway surface. Watch for: sudden drops
	// (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// OpenWeather call rate per endpoint. Watch for: error vs success ratio.
	UpstreamRequestsTotal *prometheus.CounterVec

	// Upstream latency per attempt. Watch for: p95 > 2s (upstream degradation).
	UpstreamRequestDuration *prometheus.HistogramVec

	// Retry attempts against the upstream. High retries = unstable upstream.
	UpstreamRetriesTotal prometheus.Counter

	// Cache hits per endpoint. Misses = upstreamRequestsTotal success count.
	CacheHitsTotal *prometheus.CounterVec

	// Cache read/write failures. Swallowed by design, visible here.
	CacheErrorsTotal *prometheus.CounterVec

	// Scheduler ticks since start.
	SchedulerTicksTotal prometheus.Counter

	// Users evaluated per tick.
	SchedulerUsersChecked prometheus.Counter

	// Notifications by trigger reason (rain_tomorrow, temp_shift, first_contact).
	NotificationsSentTotal *prometheus.CounterVec

	// Delivery failures, discarded per the error policy.
	NotificationSendErrorsTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamRequestsTotal",
			Help: "Total OpenWeather API requests",
		},
		[]string{"endpoint", "status"},
	)
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamRequestDurationSeconds",
			Help:    "OpenWeather API request latency in seconds (per attempt)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	UpstreamRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upstreamRetriesTotal",
			Help: "Total retry attempts against the OpenWeather API",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total cache hits",
		},
		[]string{"endpoint"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Total cache operation failures",
		},
		[]string{"operation"},
	)
	SchedulerTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedulerTicksTotal",
			Help: "Total notification scheduler ticks",
		},
	)
	SchedulerUsersChecked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedulerUsersCheckedTotal",
			Help: "Total users evaluated by the notification scheduler",
		},
	)
	NotificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notificationsSentTotal",
			Help: "Total notifications sent, by trigger reason",
		},
		[]string{"reason"},
	)
	NotificationSendErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notificationSendErrorsTotal",
			Help: "Total notification delivery failures (discarded)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		UpstreamRetriesTotal,
		CacheHitsTotal,
		CacheErrorsTotal,
		SchedulerTicksTotal,
		SchedulerUsersChecked,
		NotificationsSentTotal,
		NotificationSendErrorsTotal,
	)
}

// MetricsHandler returns the /metrics endpoint handler bound to the
// service-local registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
