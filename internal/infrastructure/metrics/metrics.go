package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsPublished      *prometheus.CounterVec
	PublishFailures      prometheus.Counter
	EventsConsumed       prometheus.Counter
	EventsPersisted      prometheus.Counter
	EventsDiscarded      prometheus.Counter
	EventsRequeued       prometheus.Counter
	EventsDeadLettered   prometheus.Counter
	ConsumerReconnects   prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audixa_audit_events_published_total",
			Help: "Total number of audit events sent to the broker",
		}, []string{"resource_type", "action"}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audixa_audit_publish_failures_total",
			Help: "Total number of audit events dropped because the broker send failed",
		}),
		EventsConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audixa_audit_events_consumed_total",
			Help: "Total number of deliveries received from the audit queue",
		}),
		EventsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audixa_audit_events_persisted_total",
			Help: "Total number of audit log records written and acknowledged",
		}),
		EventsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audixa_audit_events_discarded_total",
			Help: "Total number of malformed deliveries rejected without requeue",
		}),
		EventsRequeued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audixa_audit_events_requeued_total",
			Help: "Total number of deliveries requeued after a transient store failure",
		}),
		EventsDeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audixa_audit_events_dead_lettered_total",
			Help: "Total number of deliveries routed to the dead-letter queue after exhausting redelivery attempts",
		}),
		ConsumerReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audixa_consumer_reconnects_total",
			Help: "Total number of consumer connect-subscribe cycles after a failure",
		}),
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audixa_http_requests_total",
			Help: "Total number of HTTP requests served by the audit API",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audixa_http_request_duration_seconds",
			Help:    "HTTP request latency of the audit API",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}
