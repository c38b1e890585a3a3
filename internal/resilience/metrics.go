package resilience

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "madriner"

var (
	// BreakerState is the current state per downstream target, using State's values.
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "circuit_state",
		Help:      "Circuit breaker state per downstream: 0 closed, 1 open, 2 half-open.",
	}, []string{"target"})
	// BreakerTransitions counts every state change.
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "circuit_transitions_total",
		Help:      "Circuit breaker state changes per downstream.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "circuit_opened_total",
		Help:      "Times a downstream circuit opened and lookups started short-circuiting.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
