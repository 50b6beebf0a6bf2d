package metrics

import "github.com/prometheus/client_golang/prometheus"

// DeliveryMetrics counts asynchronous deliveries (outbox publishes, emails).
type DeliveryMetrics struct {
	success *prometheus.CounterVec
	failure *prometheus.CounterVec
}

// NewDeliveryMetrics registers delivery counters under the given subsystem.
func NewDeliveryMetrics(reg prometheus.Registerer, subsystem string) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "delivered_total",
		Help:      "Successful deliveries by kind.",
	}, []string{"kind"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "failed_total",
		Help:      "Failed deliveries by kind.",
	}, []string{"kind"})
	reg.MustRegister(success, failure)
	return &DeliveryMetrics{success: success, failure: failure}
}

func (d *DeliveryMetrics) IncSuccess(kind string) {
	if d == nil || d.success == nil {
		return
	}
	d.success.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (d *DeliveryMetrics) IncFailure(kind string) {
	if d == nil || d.failure == nil {
		return
	}
	d.failure.WithLabelValues(normalizeLabel(kind)).Inc()
}
