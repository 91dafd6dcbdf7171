package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	ChatRequestsTotal   *prometheus.CounterVec
	ChatRequestDuration prometheus.Histogram
	RequestsInFlight    prometheus.Gauge

	// Remote call metrics
	RemoteCallsTotal   *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec

	// Retry metrics
	FailureClassificationsTotal *prometheus.CounterVec
	RetriesTotal                *prometheus.CounterVec

	// Session and credential metrics
	SessionsCreatedTotal     prometheus.Counter
	CredentialRefreshesTotal *prometheus.CounterVec
	FallbackAnswersTotal     prometheus.Counter
	RateLimitedRequestsTotal prometheus.Counter
	SchemaRejectionsTotal    prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ChatRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_requests_total",
				Help: "Total number of inbound chat requests",
			},
			[]string{"status"},
		),
		ChatRequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chat_request_duration_seconds",
				Help:    "Duration of inbound chat requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_requests_in_flight",
				Help: "Number of chat requests currently being handled",
			},
		),

		RemoteCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_calls_total",
				Help: "Total number of outbound agent runtime calls",
			},
			[]string{"operation", "outcome"},
		),
		RemoteCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "remote_call_duration_seconds",
				Help:    "Duration of outbound agent runtime calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		FailureClassificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "failure_classifications_total",
				Help: "Total number of classified remote failures",
			},
			[]string{"kind"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_retries_total",
				Help: "Total number of chat retries by recovery path",
			},
			[]string{"path"},
		),

		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_created_total",
				Help: "Total number of remote sessions created",
			},
		),
		CredentialRefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credential_refreshes_total",
				Help: "Total number of credential re-acquisitions",
			},
			[]string{"outcome"},
		),
		FallbackAnswersTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fallback_answers_total",
				Help: "Total number of responses substituted with the fallback answer",
			},
		),
		RateLimitedRequestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
		SchemaRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "schema_rejections_total",
				Help: "Total number of request bodies rejected by schema validation",
			},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.ChatRequestsTotal)
	m.registry.MustRegister(m.ChatRequestDuration)
	m.registry.MustRegister(m.RequestsInFlight)

	m.registry.MustRegister(m.RemoteCallsTotal)
	m.registry.MustRegister(m.RemoteCallDuration)

	m.registry.MustRegister(m.FailureClassificationsTotal)
	m.registry.MustRegister(m.RetriesTotal)

	m.registry.MustRegister(m.SessionsCreatedTotal)
	m.registry.MustRegister(m.CredentialRefreshesTotal)
	m.registry.MustRegister(m.FallbackAnswersTotal)
	m.registry.MustRegister(m.RateLimitedRequestsTotal)
	m.registry.MustRegister(m.SchemaRejectionsTotal)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
