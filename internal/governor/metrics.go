package governor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for quota enforcement.
type Metrics struct {
	AdmissionsTotal *prometheus.CounterVec
	EvictionsTotal  prometheus.Counter
	TrackedTenants  prometheus.Gauge
}

// NewMetrics creates and registers governor metrics. sync.Once guards
// against duplicate registration when multiple governors are constructed
// in one process (tests).
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			AdmissionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "mediad",
					Subsystem: "governor",
					Name:      "admissions_total",
					Help:      "Total admission checks by resource and result",
				},
				[]string{"resource", "result"},
			),
			EvictionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "mediad",
					Subsystem: "governor",
					Name:      "bucket_evictions_total",
					Help:      "Tenant bucket sets evicted under tenant-count pressure",
				},
			),
			TrackedTenants: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "mediad",
					Subsystem: "governor",
					Name:      "tracked_tenants",
					Help:      "Number of tenants with live bucket state",
				},
			),
		}
	})
	return globalMetrics
}

// RecordAdmission records an admission check outcome.
func (m *Metrics) RecordAdmission(res Resource, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.AdmissionsTotal.WithLabelValues(string(res), result).Inc()
}

// RecordEviction records a pressure eviction of tenant bucket state.
func (m *Metrics) RecordEviction() {
	m.EvictionsTotal.Inc()
}

// SetTrackedTenants updates the tracked tenant gauge.
func (m *Metrics) SetTrackedTenants(n int) {
	m.TrackedTenants.Set(float64(n))
}
