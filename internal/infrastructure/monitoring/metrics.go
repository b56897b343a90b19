package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	TokenAcquisitions   *prometheus.CounterVec
	ClientCacheEvents   *prometheus.CounterVec
	SubscriptionActions *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	DispatchLatency     *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the Prometheus metrics and registers them with reg.
// Registration is explicit so tests can use a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TokenAcquisitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbind_token_acquisitions_total",
				Help: "Total number of token acquisitions by identity mode and result.",
			},
			[]string{"mode", "result"},
		),
		ClientCacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbind_client_cache_events_total",
				Help: "Client cache hits, misses and refreshes.",
			},
			[]string{"event"},
		),
		SubscriptionActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbind_subscription_actions_total",
				Help: "Subscription lifecycle actions by action and result.",
			},
			[]string{"action", "result"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbind_notifications_total",
				Help: "Inbound notification entries by outcome.",
			},
			[]string{"outcome"},
		),
		DispatchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphbind_dispatch_latency_seconds",
				Help:    "Latency of notification dispatch to triggers.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource_type"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphbind_http_requests_total",
				Help: "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphbind_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(
		m.TokenAcquisitions,
		m.ClientCacheEvents,
		m.SubscriptionActions,
		m.Notifications,
		m.DispatchLatency,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// RecordTokenAcquisition records a token acquisition outcome.
func (m *Metrics) RecordTokenAcquisition(mode, result string) {
	m.TokenAcquisitions.WithLabelValues(mode, result).Inc()
}

// RecordCacheEvent records a client cache hit, miss or refresh.
func (m *Metrics) RecordCacheEvent(event string) {
	m.ClientCacheEvents.WithLabelValues(event).Inc()
}

// RecordSubscriptionAction records a subscription lifecycle outcome.
func (m *Metrics) RecordSubscriptionAction(action, result string) {
	m.SubscriptionActions.WithLabelValues(action, result).Inc()
}

// RecordNotification records an inbound notification entry outcome.
func (m *Metrics) RecordNotification(outcome string) {
	m.Notifications.WithLabelValues(outcome).Inc()
}

// RecordDispatch records dispatch latency for a resource type.
func (m *Metrics) RecordDispatch(resourceType string, duration time.Duration) {
	m.DispatchLatency.WithLabelValues(resourceType).Observe(duration.Seconds())
}
