package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sessionsTotal,
		revenueTotal,
		couponsApplied,
	)
}

var (
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout sessions reaching a terminal status (succeeded/failed).",
		},
		[]string{"status"},
	)

	revenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_revenue_cents_total",
			Help: "Settled revenue of succeeded checkouts in minor units, by currency.",
		},
		[]string{"currency"},
	)

	couponsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_coupons_applied_total",
			Help: "Coupons successfully applied to a session, by discount type.",
		},
		[]string{"type"},
	)
)

func IncSession(status string) {
	sessionsTotal.WithLabelValues(norm(status)).Inc()
}

func AddRevenue(currency string, cents int64) {
	revenueTotal.WithLabelValues(norm(currency)).Add(float64(cents))
}

func IncCouponApplied(discountType string) {
	couponsApplied.WithLabelValues(norm(discountType)).Inc()
}
