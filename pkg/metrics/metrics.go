package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jobportal_web",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobportal_web",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobportal_web",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobportal_web",
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Calls to the jobs API and identity provider.",
		},
		[]string{"service", "operation", "outcome"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobportal_web",
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Duration of upstream calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"service", "operation"},
	)

	sessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobportal_web",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions applied from identity provider events.",
		},
		[]string{"state"},
	)

	guardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobportal_web",
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Route guard outcomes.",
		},
		[]string{"decision"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		upstreamCalls,
		upstreamDuration,
		sessionTransitions,
		guardDecisions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TrackRequest marks a request in flight; call the returned func when done.
func TrackRequest() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveRequest records one finished HTTP request. route is the matched
// route pattern, never the raw path.
func ObserveRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveUpstream records one call to an external service.
func ObserveUpstream(service, operation string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	upstreamCalls.WithLabelValues(service, operation, outcome).Inc()
	upstreamDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func RecordSessionTransition(state string) {
	sessionTransitions.WithLabelValues(state).Inc()
}

func RecordGuardDecision(decision string) {
	guardDecisions.WithLabelValues(decision).Inc()
}
