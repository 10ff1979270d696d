package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts access decisions. Denials are frequent, expected outcomes,
// so they are labeled rather than logged.
type Metrics struct {
	Decisions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "balangay_access_decisions_total",
			Help: "Access decisions by operation, outcome, and reason",
		}, []string{"operation", "outcome", "reason"}),
	}
}

// Decision records one evaluated grant.
func (m *Metrics) Decision(operation string, allowed bool, reason string) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "granted"
	}
	m.Decisions.WithLabelValues(operation, outcome, reason).Inc()
}
