package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// BankingMetrics exposes ledger health signals: clamped negative balances,
// recorder outcomes, payout outcomes and integrity drift. All methods are
// nil-safe so services can run without a registry.
type BankingMetrics struct {
	negativeBalances *prometheus.CounterVec
	ledgerEntries    *prometheus.CounterVec
	payouts          *prometheus.CounterVec
	withdrawalErrors prometheus.Counter
	integrityDrift   prometheus.Gauge
	integrityMissing prometheus.Gauge
	integrityHealthy prometheus.Gauge
}

func NewBankingMetrics(reg prometheus.Registerer) *BankingMetrics {
	if reg == nil {
		return nil
	}
	m := &BankingMetrics{
		negativeBalances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negative_balance_detected_total",
			Help:      "Balance folds whose raw sum was negative and clamped to zero.",
		}, []string{"currency"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Recorder outcomes by transaction type (inserted or duplicate).",
		}, []string{"transaction_type", "result"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Payout attempts by rail and outcome.",
		}, []string{"method", "outcome"}),
		withdrawalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_withdrawal_record_failures_total",
			Help:      "Withdrawal ledger writes that failed after the rail accepted a payout.",
		}),
		integrityDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "integrity_drift_usd",
			Help:      "Completed payouts total minus recorded withdrawals total, in USD.",
		}),
		integrityMissing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "integrity_missing_withdrawals",
			Help:      "Completed payouts without a matching withdrawal entry.",
		}),
		integrityHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "integrity_healthy",
			Help:      "1 when the last integrity check passed, 0 otherwise.",
		}),
	}
	reg.MustRegister(
		m.negativeBalances,
		m.ledgerEntries,
		m.payouts,
		m.withdrawalErrors,
		m.integrityDrift,
		m.integrityMissing,
		m.integrityHealthy,
	)
	return m
}

func (m *BankingMetrics) IncNegativeBalance(currency string) {
	if m == nil {
		return
	}
	m.negativeBalances.WithLabelValues(normalizeLabel(currency)).Inc()
}

func (m *BankingMetrics) IncLedgerEntry(transactionType string, duplicate bool) {
	if m == nil {
		return
	}
	result := "inserted"
	if duplicate {
		result = "duplicate"
	}
	m.ledgerEntries.WithLabelValues(normalizeLabel(transactionType), result).Inc()
}

func (m *BankingMetrics) IncPayout(method, outcome string) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

func (m *BankingMetrics) IncWithdrawalRecordFailure() {
	if m == nil {
		return
	}
	m.withdrawalErrors.Inc()
}

func (m *BankingMetrics) SetIntegrity(drift decimal.Decimal, missing int, healthy bool) {
	if m == nil {
		return
	}
	m.integrityDrift.Set(drift.InexactFloat64())
	m.integrityMissing.Set(float64(missing))
	if healthy {
		m.integrityHealthy.Set(1)
	} else {
		m.integrityHealthy.Set(0)
	}
}
