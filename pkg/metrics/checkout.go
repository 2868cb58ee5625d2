package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout confirm result labels.
const (
	ConfirmCreated  = "created"
	ConfirmReplayed = "replayed"
	ConfirmConflict = "conflict"
	ConfirmError    = "error"
)

// CheckoutMetrics tracks order placement outcomes.
type CheckoutMetrics struct {
	confirms       *prometheus.CounterVec
	duration       prometheus.Histogram
	stockConflicts prometheus.Counter
	couponOutcomes *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	confirms := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_confirms_total",
		Help: "Checkout confirmations by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_confirm_duration_seconds",
		Help:    "Duration of checkout confirmations in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_conflicts_total",
		Help: "Confirmations rejected because of insufficient stock.",
	})
	couponOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_redemptions_total",
		Help: "Coupon redemption attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(confirms, duration, stockConflicts, couponOutcomes)
	return &CheckoutMetrics{
		confirms:       confirms,
		duration:       duration,
		stockConflicts: stockConflicts,
		couponOutcomes: couponOutcomes,
	}
}

// IncConfirm counts one confirmation with the given result label.
func (c *CheckoutMetrics) IncConfirm(result string) {
	if c == nil || c.confirms == nil {
		return
	}
	c.confirms.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveConfirmDuration records how long a confirmation took.
func (c *CheckoutMetrics) ObserveConfirmDuration(duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(duration.Seconds())
}

// IncStockConflict counts one stock-shortfall rejection.
func (c *CheckoutMetrics) IncStockConflict() {
	if c == nil || c.stockConflicts == nil {
		return
	}
	c.stockConflicts.Inc()
}

// IncCouponOutcome counts one coupon redemption attempt by outcome
// (e.g. "redeemed", "limit_reached", "released").
func (c *CheckoutMetrics) IncCouponOutcome(outcome string) {
	if c == nil || c.couponOutcomes == nil {
		return
	}
	c.couponOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
