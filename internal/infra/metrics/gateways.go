package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayChargeLatencyMs,
		reconcilerSweeps,
	)
}

var (
	gatewayChargeLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_charge_latency_ms",
			Help:    "Provider confirm/finalize latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"gateway", "success"},
	)

	reconcilerSweeps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_reconciler_attempts_total",
			Help: "Stale awaiting-redirect attempts picked up by the reconciler.",
		},
		[]string{"outcome"},
	)
)

func ObserveGatewayCharge(gateway string, success bool, latencyMs int64) {
	gatewayChargeLatencyMs.WithLabelValues(norm(gateway), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncReconciled(outcome string) {
	reconcilerSweeps.WithLabelValues(norm(outcome)).Inc()
}
