package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntegrationMetrics exposes counters/histograms for vendor calls and
// extraction runs.
type IntegrationMetrics struct {
	vendorCalls    *prometheus.CounterVec
	vendorLatency  *prometheus.HistogramVec
	extractionRuns *prometheus.CounterVec
}

func NewIntegrationMetrics(reg prometheus.Registerer) *IntegrationMetrics {
	m := &IntegrationMetrics{
		vendorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erpbridge",
			Subsystem: "vendor",
			Name:      "calls_total",
			Help:      "Total outbound vendor calls",
		}, []string{"vendor", "op", "status"}),
		vendorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "erpbridge",
			Subsystem: "vendor",
			Name:      "call_seconds",
			Help:      "Latency of outbound vendor calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"vendor", "op"}),
		extractionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erpbridge",
			Subsystem: "extraction",
			Name:      "runs_total",
			Help:      "Total batch extraction runs by terminal status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.vendorCalls, m.vendorLatency, m.extractionRuns)
	return m
}

func (m *IntegrationMetrics) ObserveVendorCall(vendor, op, status string, seconds float64) {
	if m == nil {
		return
	}
	m.vendorCalls.WithLabelValues(vendor, op, status).Inc()
	m.vendorLatency.WithLabelValues(vendor, op).Observe(seconds)
}

func (m *IntegrationMetrics) ObserveExtractionRun(status string) {
	if m == nil {
		return
	}
	m.extractionRuns.WithLabelValues(status).Inc()
}
