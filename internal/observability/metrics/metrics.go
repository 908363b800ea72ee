package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics exposes counters/histograms for the booking-to-payment flow.
type PaymentMetrics struct {
	checkoutTotal    *prometheus.CounterVec
	webhookTotal     *prometheus.CounterVec
	webhookLatency   *prometheus.HistogramVec
	reconcileRetries prometheus.Counter
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		checkoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "payments",
			Name:      "checkout_total",
			Help:      "Total checkout session creation attempts",
		}, []string{"status"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "payments",
			Name:      "webhook_total",
			Help:      "Total payment webhook deliveries",
		}, []string{"event_type", "outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carebook",
			Subsystem: "payments",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of payment webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		reconcileRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "payments",
			Name:      "reconcile_retries_total",
			Help:      "Total retried confirm writes for paid appointments",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checkoutTotal, m.webhookTotal, m.webhookLatency, m.reconcileRetries)
	return m
}

func (m *PaymentMetrics) ObserveCheckout(status string) {
	if m == nil {
		return
	}
	m.checkoutTotal.WithLabelValues(status).Inc()
}

func (m *PaymentMetrics) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *PaymentMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}

func (m *PaymentMetrics) ObserveReconcileRetry() {
	if m == nil {
		return
	}
	m.reconcileRetries.Inc()
}
