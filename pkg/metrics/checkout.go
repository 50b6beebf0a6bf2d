package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order admission outcomes.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	created  prometheus.Counter
	rejected *prometheus.CounterVec
	margin   prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of order checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders committed by checkout.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Checkout attempts rejected before commit.",
	}, []string{"reason"})
	margin := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_net_margin_percent",
		Help:    "Net margin percent of committed orders.",
		Buckets: []float64{0, 10, 15, 20, 25, 30, 35, 40, 50, 60},
	})
	reg.MustRegister(duration, created, rejected, margin)
	return &CheckoutMetrics{
		duration: duration,
		created:  created,
		rejected: rejected,
		margin:   margin,
	}
}

// ObserveDuration records how long an attempt took, labelled by outcome.
func (c *CheckoutMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncCreated counts a committed order and records its net margin.
func (c *CheckoutMetrics) IncCreated(netMarginPercent float64) {
	if c == nil || c.created == nil {
		return
	}
	c.created.Inc()
	c.margin.Observe(netMarginPercent)
}

// IncRejected counts a rejected attempt by reason code.
func (c *CheckoutMetrics) IncRejected(reason string) {
	if c == nil || c.rejected == nil {
		return
	}
	c.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
