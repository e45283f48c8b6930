package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker state is exported per outbound target (shipping, payment provider)
// so dashboards can tell which upstream is degraded.
var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vastra",
			Name:      "outbound_breaker_state",
			Help:      "Current breaker state per target: 0=closed,1=open,2=half-open",
		},
		[]string{"target"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vastra",
			Name:      "outbound_breaker_transition_total",
			Help:      "Count of breaker state transitions per target",
		},
		[]string{"target", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vastra",
			Name:      "outbound_breaker_open_total",
			Help:      "Number of times a breaker opened per target",
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
