package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type rpcMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// newRPCMetrics registers the RPC collectors on reg. A nil reg leaves them unregistered.
func newRPCMetrics(reg prometheus.Registerer) *rpcMetrics {
	factory := promauto.With(reg)

	return &rpcMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gatekeeper",
				Subsystem: "solana_rpc",
				Name:      "requests_total",
				Help:      "Total number of Solana RPC requests",
			},
			[]string{"method", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gatekeeper",
				Subsystem: "solana_rpc",
				Name:      "request_duration_seconds",
				Help:      "Solana RPC request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gatekeeper",
				Subsystem: "solana_rpc",
				Name:      "in_flight_requests",
				Help:      "Solana RPC requests currently in flight",
			},
		),
	}
}
