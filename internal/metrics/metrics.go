// Package metrics provides Prometheus metrics for the conversation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "skill_dashboard"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	SubmissionsTotal  *prometheus.CounterVec
	StatusChecksTotal *prometheus.CounterVec
	ProviderLatency   *prometheus.HistogramVec
	ProviderErrors    *prometheus.CounterVec
	HistoryWrites     *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	QueueDropped      prometheus.Counter
	PollSessions      *prometheus.CounterVec
	BlobWrites        *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Conversation submissions by result",
		}, []string{"result"}),
		StatusChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_checks_total",
			Help:      "Transcript status checks by provider status",
		}, []string{"status"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of speech-to-text provider calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Failed speech-to-text provider calls",
		}, []string{"operation"}),
		HistoryWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_writes_total",
			Help:      "History store writes by kind and result",
		}, []string{"kind", "result"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Completion events by result",
		}, []string{"result"}),
		QueueDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_queue_dropped_total",
			Help:      "Background jobs dropped because the queue was full or stopped",
		}),
		PollSessions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_sessions_total",
			Help:      "Finished polling sessions by final state",
		}, []string{"state"}),
		BlobWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_writes_total",
			Help:      "Raw upload writes to blob storage by result",
		}, []string{"result"}),
	}
}

// ObserveProvider records the latency and outcome of one provider call.
func (m *Metrics) ObserveProvider(operation string, seconds float64, err error) {
	m.ProviderLatency.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		m.ProviderErrors.WithLabelValues(operation).Inc()
	}
}

// Result returns the label value for an operation outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
