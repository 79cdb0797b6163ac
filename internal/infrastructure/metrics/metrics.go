package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/vaultledger/internal/domain"
)

// Metrics holds the ledger's Prometheus metrics.
type Metrics struct {
	// Ledger metrics
	BalanceMutations *prometheus.CounterVec
	LockFailures     *prometheus.CounterVec

	// Provider metrics
	ProviderDuration *prometheus.HistogramVec

	// Webhook metrics
	WebhookRejections *prometheus.CounterVec

	// Reconciliation metrics
	ProviderBalance  prometheus.Gauge
	TrackedBalance   prometheus.Gauge
	FundingShortfall prometheus.Gauge
	Discrepancies    prometheus.Gauge

	// Outbox metrics
	OutboxPublished *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BalanceMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultledger_balance_mutations_total",
				Help: "Ledger transactions by type and terminal status",
			},
			[]string{"type", "status"},
		),
		LockFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultledger_lock_acquisition_failures_total",
				Help: "Account lock acquisitions that exhausted their retries",
			},
			[]string{"operation"},
		),

		ProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultledger_provider_request_duration_seconds",
				Help:    "Duration of provider API calls",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
			},
			[]string{"endpoint", "outcome"},
		),

		WebhookRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultledger_webhook_rejections_total",
				Help: "Funding webhooks rejected before reaching the ledger",
			},
			[]string{"reason"},
		),

		ProviderBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vaultledger_provider_balance_minor",
			Help: "Last provider wallet balance in minor units",
		}),
		TrackedBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vaultledger_tracked_balance_minor",
			Help: "Sum of ledger account balances in minor units",
		}),
		FundingShortfall: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vaultledger_funding_shortfall_minor",
			Help: "Top-up needed for the provider wallet to cover tracked balances",
		}),
		Discrepancies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vaultledger_reconciliation_discrepancies",
			Help: "Accounts whose balance does not match their transaction history",
		}),

		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultledger_outbox_events_total",
				Help: "Outbox events handed to the broker",
			},
			[]string{"status"},
		),
	}
}

// ObserveMutation implements usecase.MutationObserver.
func (m *Metrics) ObserveMutation(txType domain.TransactionType, status domain.TransactionStatus) {
	m.BalanceMutations.WithLabelValues(string(txType), string(status)).Inc()
}

// ObserveLockFailure implements usecase.MutationObserver.
func (m *Metrics) ObserveLockFailure(operation string) {
	m.LockFailures.WithLabelValues(operation).Inc()
}

// ObserveProviderCall records one provider round trip.
func (m *Metrics) ObserveProviderCall(endpoint, outcome string, d time.Duration) {
	m.ProviderDuration.WithLabelValues(endpoint, outcome).Observe(d.Seconds())
}

// ObserveWebhookRejection counts a rejected webhook.
func (m *Metrics) ObserveWebhookRejection(reason string) {
	m.WebhookRejections.WithLabelValues(reason).Inc()
}

// ObserveFundingPosition implements usecase.ReconciliationObserver.
func (m *Metrics) ObserveFundingPosition(providerBalance, trackedBalance int64) {
	m.ProviderBalance.Set(float64(providerBalance))
	m.TrackedBalance.Set(float64(trackedBalance))

	shortfall := trackedBalance - providerBalance
	if shortfall < 0 {
		shortfall = 0
	}
	m.FundingShortfall.Set(float64(shortfall))
}

// ObserveDiscrepancies implements usecase.ReconciliationObserver.
func (m *Metrics) ObserveDiscrepancies(count int) {
	m.Discrepancies.Set(float64(count))
}

// ObserveOutboxPublish counts a publish attempt.
func (m *Metrics) ObserveOutboxPublish(ok bool) {
	status := "published"
	if !ok {
		status = "failed"
	}
	m.OutboxPublished.WithLabelValues(status).Inc()
}
