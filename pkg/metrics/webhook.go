package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts inbound gateway callbacks by event and outcome.
type WebhookMetrics struct {
	received *prometheus.CounterVec
	failed   *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_received_total",
		Help: "Inbound gateway webhooks recorded, by event.",
	}, []string{"event"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_failed_total",
		Help: "Webhooks whose processing failed, by event.",
	}, []string{"event"})
	reg.MustRegister(received, failed)
	return &WebhookMetrics{received: received, failed: failed}
}

// IncReceived counts one recorded webhook delivery.
func (w *WebhookMetrics) IncReceived(event string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncFailed counts one delivery whose processing errored.
func (w *WebhookMetrics) IncFailed(event string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(event)).Inc()
}
