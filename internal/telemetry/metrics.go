package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec
	StorageBytes    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "integrations_requests_total",
				Help: "Total number of requests by operation, provider, and status",
			},
			[]string{"operation", "provider", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "integrations_request_duration_seconds",
				Help:    "Request duration in seconds by operation and provider",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "provider"},
		),
		ProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "integrations_provider_errors_total",
				Help: "Total failed calls by provider and error kind",
			},
			[]string{"provider", "kind"},
		),
		StorageBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "integrations_storage_uploaded_bytes_total",
				Help: "Total bytes written to object storage",
			},
		),
	}
}

// RecordRequest records one handled request.
func (m *Metrics) RecordRequest(operation, provider, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, provider, status).Inc()
	m.RequestDuration.WithLabelValues(operation, provider).Observe(duration)
}

// RecordError records a failed call by error kind.
func (m *Metrics) RecordError(provider, kind string) {
	m.ProviderErrors.WithLabelValues(provider, kind).Inc()
}

// RecordUpload adds n uploaded bytes.
func (m *Metrics) RecordUpload(n int) {
	m.StorageBytes.Add(float64(n))
}
