// Package metrics счётчики Prometheus для платежей и подписок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics счётчики процесса сверки подписок.
type Metrics struct {
	paymentsCreated *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	activations     *prometheus.CounterVec
	verifyResults   *prometheus.CounterVec
}

// New регистрирует счётчики в reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		paymentsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "festiva_payments_created_total",
				Help: "The total number of created provider billings",
			},
			[]string{"plan"},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "festiva_webhook_events_total",
				Help: "The total number of received provider webhooks by normalized kind",
			},
			[]string{"kind"},
		),
		activations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "festiva_subscription_activations_total",
				Help: "The total number of paid subscription activations",
			},
			[]string{"source"},
		),
		verifyResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "festiva_verify_results_total",
				Help: "The total number of verification polls by reported status",
			},
			[]string{"status"},
		),
	}
}

// IncPaymentCreated увеличивает счётчик созданных платежей.
func (m *Metrics) IncPaymentCreated(plan string) {
	m.paymentsCreated.WithLabelValues(plan).Inc()
}

// IncWebhookEvent увеличивает счётчик вебхуков.
func (m *Metrics) IncWebhookEvent(kind string) {
	m.webhookEvents.WithLabelValues(kind).Inc()
}

// IncActivation увеличивает счётчик активаций; source это webhook или verify.
func (m *Metrics) IncActivation(source string) {
	m.activations.WithLabelValues(source).Inc()
}

// IncVerifyResult увеличивает счётчик результатов проверки.
func (m *Metrics) IncVerifyResult(status string) {
	m.verifyResults.WithLabelValues(status).Inc()
}
