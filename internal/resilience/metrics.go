package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker collectors, labelled by dependency (email-function, google-calendar).
var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tour",
			Name:      "dependency_breaker_state",
			Help:      "Current breaker state: 0=closed, 1=open, 2=half-open.",
		},
		[]string{"target"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tour",
			Name:      "dependency_breaker_transitions_total",
			Help:      "Count of breaker state transitions.",
		},
		[]string{"target", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tour",
			Name:      "dependency_breaker_opened_total",
			Help:      "Number of times a breaker opened.",
		},
		[]string{"target"},
	)
	DependencyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tour",
			Name:      "dependency_http_attempts_total",
			Help:      "Outbound HTTP attempts by dependency and outcome.",
		},
		[]string{"target", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, DependencyAttempts)
}
