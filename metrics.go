package gridcube

import "github.com/prometheus/client_golang/prometheus"

// PlanMetrics counts read-plan outcomes so operators can see how often loads
// take the cheap paste path versus a full warp.
type PlanMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewPlanMetrics builds the counters and registers them with reg when
// non-nil.
func NewPlanMetrics(reg prometheus.Registerer) *PlanMetrics {
	m := &PlanMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridcube",
			Subsystem: "read",
			Name:      "plans_total",
			Help:      "Read plans by outcome (empty, paste, warp).",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes)
	}
	return m
}

func (m *PlanMetrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}
