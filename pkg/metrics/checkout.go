package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records the counters wired through the checkout and order
// lifecycle paths. A nil receiver or unregistered instance is a no-op, so
// tests can pass nil freely.
type CheckoutMetrics struct {
	sessionsCreated     *prometheus.CounterVec
	ordersCreated       *prometheus.CounterVec
	oversellRejections  prometheus.Counter
	expiredSessionReads prometheus.Counter
	paymentsVerified    *prometheus.CounterVec
	checkoutDuration    prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessionsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_created",
		Help: "Checkout sessions created, by delivery method.",
	}, []string{"delivery_method"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created",
		Help: "Orders created from completed checkout sessions, by delivery method.",
	}, []string{"delivery_method"})
	oversellRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_oversell_rejections",
		Help: "Checkout completions rejected because inventory ran out.",
	})
	expiredSessionReads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_expired_session_reads",
		Help: "Reads of checkout sessions that had already expired.",
	})
	paymentsVerified := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_verified",
		Help: "Payment verification decisions, by outcome.",
	}, []string{"outcome"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_completion_duration_seconds",
		Help:    "Duration of checkout completion transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(sessionsCreated, ordersCreated, oversellRejections, expiredSessionReads, paymentsVerified, checkoutDuration)
	return &CheckoutMetrics{
		sessionsCreated:     sessionsCreated,
		ordersCreated:       ordersCreated,
		oversellRejections:  oversellRejections,
		expiredSessionReads: expiredSessionReads,
		paymentsVerified:    paymentsVerified,
		checkoutDuration:    checkoutDuration,
	}
}

// IncSessionCreated increments the session counter for the delivery method.
func (c *CheckoutMetrics) IncSessionCreated(method string) {
	if c == nil || c.sessionsCreated == nil {
		return
	}
	c.sessionsCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncOrderCreated increments the order counter for the delivery method.
func (c *CheckoutMetrics) IncOrderCreated(method string) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncOversellRejection counts a completion turned away on inventory.
func (c *CheckoutMetrics) IncOversellRejection() {
	if c == nil || c.oversellRejections == nil {
		return
	}
	c.oversellRejections.Inc()
}

// IncExpiredSessionRead counts a lookup that found an expired session.
func (c *CheckoutMetrics) IncExpiredSessionRead() {
	if c == nil || c.expiredSessionReads == nil {
		return
	}
	c.expiredSessionReads.Inc()
}

// IncPaymentVerified counts a verification decision by outcome.
func (c *CheckoutMetrics) IncPaymentVerified(outcome string) {
	if c == nil || c.paymentsVerified == nil {
		return
	}
	c.paymentsVerified.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveCheckoutDuration records how long a completion transaction took.
func (c *CheckoutMetrics) ObserveCheckoutDuration(d time.Duration) {
	if c == nil || c.checkoutDuration == nil {
		return
	}
	c.checkoutDuration.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
