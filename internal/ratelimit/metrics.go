package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records admission-control outcomes on an injected registerer.
// There is no package-level registry: each limiter owns its recorder so
// independent trust boundaries never share counters.
type Metrics struct {
	denials       *prometheus.CounterVec
	violations    prometheus.Counter
	activeEntries prometheus.Gauge
}

// NewMetrics creates and registers the admission-control collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletgate",
			Subsystem: "ratelimit",
			Name:      "denials_total",
			Help:      "Admission denials by reason.",
		}, []string{"reason"}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletgate",
			Subsystem: "ratelimit",
			Name:      "violations_total",
			Help:      "Rate limit violations counted toward escalation.",
		}),
		activeEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "walletgate",
			Subsystem: "ratelimit",
			Name:      "active_entries",
			Help:      "Live rate-limit entries.",
		}),
	}

	reg.MustRegister(m.denials, m.violations, m.activeEntries)

	return m
}

// RecordDenial counts a denial by reason.
func (m *Metrics) RecordDenial(reason string) {
	m.denials.WithLabelValues(reason).Inc()
}

// RecordViolation counts one violation.
func (m *Metrics) RecordViolation() {
	m.violations.Inc()
}

// SetActiveEntries updates the live entry gauge.
func (m *Metrics) SetActiveEntries(n int) {
	m.activeEntries.Set(float64(n))
}
