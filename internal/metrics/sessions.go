package metrics

import "github.com/prometheus/client_golang/prometheus"

// Session governor Prometheus metrics.
var (
	SessionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Name:      "session_transitions_total",
			Help:      "Total number of session lifecycle transitions",
		},
		[]string{"to", "reason"}, // reason is empty except for expiry
	)

	SessionsLive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sessiond",
			Name:      "sessions_live",
			Help:      "Number of live sessions by state",
		},
		[]string{"state"},
	)

	ExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Name:      "exchanges_total",
			Help:      "Total number of exchanges by outcome",
		},
		[]string{"outcome"}, // "completed" / "aborted" / "rejected"
	)

	TokensConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Name:      "tokens_consumed_total",
			Help:      "Total tokens settled against session budgets",
		},
		[]string{"direction"}, // "input" / "output"
	)

	ReservationsReleasedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Name:      "reservations_released_total",
			Help:      "Reservations dropped without settling",
		},
		[]string{"cause"}, // "abort" / "stale" / "terminal"
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sessiond",
			Name:      "model_request_duration_seconds",
			Help:      "Model provider request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model", "status"},
	)
)

var sessionMetricsRegistered bool

// RegisterSessionMetrics registers Prometheus session metrics. Must be called once from main.
func RegisterSessionMetrics() {
	if sessionMetricsRegistered {
		return
	}
	prometheus.MustRegister(SessionTransitionsTotal)
	prometheus.MustRegister(SessionsLive)
	prometheus.MustRegister(ExchangesTotal)
	prometheus.MustRegister(TokensConsumedTotal)
	prometheus.MustRegister(ReservationsReleasedTotal)
	prometheus.MustRegister(ModelRequestDuration)
	sessionMetricsRegistered = true
}
