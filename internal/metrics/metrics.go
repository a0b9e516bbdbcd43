// Package metrics exposes Prometheus collectors for placement and settlement.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	wagersPlaced      prometheus.Counter
	placementRejected *prometheus.CounterVec
	wagersSettled     *prometheus.CounterVec
	settlementFailed  *prometheus.CounterVec
	creditedCents     *prometheus.CounterVec
	settlementRun     prometheus.Histogram
	consumerMessages  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		wagersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tyche_wagers_placed_total",
			Help: "Wagers committed by the placement service.",
		}),
		placementRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tyche_placement_rejected_total",
			Help: "Placement batches rejected, by reason.",
		}, []string{"reason"}),
		wagersSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tyche_wagers_settled_total",
			Help: "Wagers moved to a terminal state, by outcome.",
		}, []string{"outcome"}),
		settlementFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tyche_settlement_failures_total",
			Help: "Per-wager settlement failures, by stage.",
		}, []string{"stage"}),
		creditedCents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tyche_credited_cents_total",
			Help: "Minor units credited to wallets, by source.",
		}, []string{"source"}),
		settlementRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tyche_settlement_run_seconds",
			Help:    "Duration of a settlement pass.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		consumerMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tyche_payment_messages_total",
			Help: "Payment confirmation messages consumed, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.wagersPlaced, m.placementRejected, m.wagersSettled, m.settlementFailed,
		m.creditedCents, m.settlementRun, m.consumerMessages)
	return m
}

func (m *Metrics) WagersPlaced(n int) {
	if m == nil {
		return
	}
	m.wagersPlaced.Add(float64(n))
}

func (m *Metrics) PlacementRejected(reason string) {
	if m == nil {
		return
	}
	m.placementRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) WagerSettled(outcome string) {
	if m == nil {
		return
	}
	m.wagersSettled.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SettlementFailed(stage string) {
	if m == nil {
		return
	}
	m.settlementFailed.WithLabelValues(stage).Inc()
}

func (m *Metrics) Credited(source string, cents int64) {
	if m == nil || cents <= 0 {
		return
	}
	m.creditedCents.WithLabelValues(source).Add(float64(cents))
}

func (m *Metrics) ObserveSettlementRun(d time.Duration) {
	if m == nil {
		return
	}
	m.settlementRun.Observe(d.Seconds())
}

func (m *Metrics) PaymentMessage(result string) {
	if m == nil {
		return
	}
	m.consumerMessages.WithLabelValues(result).Inc()
}
