package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Conversation engine metrics
	EngineEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simufolio_engine_events_total",
			Help: "Total conversation events processed",
		},
		[]string{"event", "outcome"}, // outcome: ok|rejected|error
	)

	// Notification sweep metrics
	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simufolio_sweep_runs_total",
			Help: "Total notification sweep executions",
		},
		[]string{"status"}, // status: success|error
	)

	SweepSubscriptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simufolio_sweep_subscriptions_total",
			Help: "Subscriptions seen by the sweep, by result",
		},
		[]string{"result"}, // result: not_due|sent|price_unavailable|send_failed|claim_failed
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simufolio_sweep_duration_seconds",
			Help:    "Notification sweep duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Market data gateway metrics
	GatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simufolio_gateway_requests_total",
			Help: "Total market data gateway requests",
		},
		[]string{"endpoint", "status"},
	)

	// Chat transport metrics
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simufolio_messages_sent_total",
			Help: "Total Telegram messages sent",
		},
		[]string{"kind", "status"}, // kind: reply|notification
	)
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		EngineEvents,
		SweepRuns,
		SweepSubscriptions,
		SweepDuration,
		GatewayRequests,
		MessagesSent,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
