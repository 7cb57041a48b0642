// Package banking is the read-mostly facade used by the admin console and the
// scheduled integrity check.
package banking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/internal/balances"
	"github.com/angelmondragon/artvault-backend/internal/ledger"
	"github.com/angelmondragon/artvault-backend/internal/payouts"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	"github.com/angelmondragon/artvault-backend/pkg/db"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/metrics"
	"github.com/angelmondragon/artvault-backend/pkg/outbox"
	"github.com/angelmondragon/artvault-backend/pkg/outbox/payloads"
)

// driftTolerance is the largest drift still reported as healthy.
var driftTolerance = decimal.RequireFromString("0.01")

type Service interface {
	GetBalance(ctx context.Context, identifier string) (*balances.UnifiedBalance, error)
	GetAllVendorBalances(ctx context.Context) ([]VendorBalance, error)
	RecordAdjustment(ctx context.Context, input transactions.AdjustmentInput) (*transactions.AdjustmentResult, error)
	RecordRefundDeduction(ctx context.Context, input transactions.RefundDeductionInput) (*transactions.RefundResult, error)
	VerifyPlatformIntegrity(ctx context.Context) (*IntegrityReport, error)
	AlertNegativeBalances(ctx context.Context) (int, error)
}

// VendorBalance is one row of the admin payout console.
type VendorBalance struct {
	VendorID             uuid.UUID           `json:"vendorId"`
	VendorName           string              `json:"vendorName"`
	CollectorIdentifier  string              `json:"collectorIdentifier"`
	DefaultPaymentMethod enums.PaymentMethod `json:"defaultPaymentMethod"`
	USDBalance           decimal.Decimal     `json:"usdBalance"`
	TotalUSDEarned       decimal.Decimal     `json:"totalUsdEarned"`
	NegativeDetected     bool                `json:"negativeDetected"`
	LastPayout           *LastPayout         `json:"lastPayout,omitempty"`
}

// LastPayout summarizes the vendor's most recent completed payout.
type LastPayout struct {
	PayoutID    uuid.UUID       `json:"payoutId"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"paymentMethod"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// IntegrityReport compares completed payouts against withdrawal entries.
type IntegrityReport struct {
	PayoutsTotal              decimal.Decimal `json:"payoutsTotal"`
	WithdrawalsTotal          decimal.Decimal `json:"withdrawalsTotal"`
	Drift                     decimal.Decimal `json:"drift"`
	MissingPayoutIDs          []uuid.UUID     `json:"missingPayoutIds"`
	MissingCount              int             `json:"missingCount"`
	OrphanWithdrawalPayoutIDs []uuid.UUID     `json:"orphanWithdrawalPayoutIds"`
	CheckedAt                 time.Time       `json:"checkedAt"`
	IsHealthy                 bool            `json:"isHealthy"`
}

// ServiceParams groups the collaborators of the banking facade.
type ServiceParams struct {
	Tx           db.TxRunner
	Ledger       ledger.Service
	Balances     balances.Service
	Transactions transactions.Service
	Vendors      vendors.Service
	Payouts      payouts.Repository
	Outbox       outbox.Emitter
	Logger       *logger.Logger
	Metrics      *metrics.BankingMetrics
	Now          func() time.Time
}

type service struct {
	tx           db.TxRunner
	ledger       ledger.Service
	balances     balances.Service
	transactions transactions.Service
	vendors      vendors.Service
	payouts      payouts.Repository
	outbox       outbox.Emitter
	logg         *logger.Logger
	metrics      *metrics.BankingMetrics
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Balances == nil:
		return nil, fmt.Errorf("balances service required")
	case params.Transactions == nil:
		return nil, fmt.Errorf("transactions service required")
	case params.Vendors == nil:
		return nil, fmt.Errorf("vendors service required")
	case params.Payouts == nil:
		return nil, fmt.Errorf("payout repository required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:           params.Tx,
		ledger:       params.Ledger,
		balances:     params.Balances,
		transactions: params.Transactions,
		vendors:      params.Vendors,
		payouts:      params.Payouts,
		outbox:       params.Outbox,
		logg:         params.Logger,
		metrics:      params.Metrics,
		now:          now,
	}, nil
}

func (s *service) GetBalance(ctx context.Context, identifier string) (*balances.UnifiedBalance, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	return s.balances.CalculateUnifiedBalance(ctx, identifier)
}

// GetAllVendorBalances joins the vendor directory with derived USD balances
// and the last completed payout, highest withdrawable balance first.
func (s *service) GetAllVendorBalances(ctx context.Context) ([]VendorBalance, error) {
	list, err := s.vendors.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.payouts.LastCompletedByVendor(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last payouts")
	}

	out := make([]VendorBalance, 0, len(list))
	for _, vendor := range list {
		totals, err := s.balances.CalculateTotals(ctx, vendor.CollectorIdentifier, enums.CurrencyUSD)
		if err != nil {
			return nil, err
		}
		row := VendorBalance{
			VendorID:             vendor.ID,
			VendorName:           vendor.Name,
			CollectorIdentifier:  vendor.CollectorIdentifier,
			DefaultPaymentMethod: vendor.DefaultPaymentMethod,
			USDBalance:           totals.Clamped(),
			TotalUSDEarned:       totals.Earned,
			NegativeDetected:     totals.Negative(),
		}
		if last, ok := latest[vendor.ID]; ok {
			row.LastPayout = &LastPayout{
				PayoutID:    last.ID,
				Amount:      last.Amount,
				Method:      string(last.PaymentMethod),
				CompletedAt: last.CompletedAt,
			}
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if cmp := out[i].USDBalance.Cmp(out[j].USDBalance); cmp != 0 {
			return cmp > 0
		}
		return out[i].VendorName < out[j].VendorName
	})
	return out, nil
}

func (s *service) RecordAdjustment(ctx context.Context, input transactions.AdjustmentInput) (*transactions.AdjustmentResult, error) {
	return s.transactions.RecordManualAdjustment(ctx, input)
}

func (s *service) RecordRefundDeduction(ctx context.Context, input transactions.RefundDeductionInput) (*transactions.RefundResult, error) {
	return s.transactions.RecordRefundDeduction(ctx, input)
}

// VerifyPlatformIntegrity is read-only. Drift is completed payouts minus the
// net recorded withdrawals, where a reversal booked for a failed payout
// cancels its withdrawal. Net withdrawals of payouts that are not completed
// yet show up as orphans and explain a negative drift.
func (s *service) VerifyPlatformIntegrity(ctx context.Context) (*IntegrityReport, error) {
	completed, err := s.payouts.ListCompleted(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed payouts")
	}
	withdrawals, err := s.ledger.ListByType(ctx, enums.TransactionPayoutWithdrawal, enums.CurrencyUSD)
	if err != nil {
		return nil, err
	}
	adjustments, err := s.ledger.ListByType(ctx, enums.TransactionManualAdjustment, enums.CurrencyUSD)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{
		PayoutsTotal:              decimal.Zero,
		WithdrawalsTotal:          decimal.Zero,
		MissingPayoutIDs:          []uuid.UUID{},
		OrphanWithdrawalPayoutIDs: []uuid.UUID{},
		CheckedAt:                 s.now().UTC(),
	}

	net := make(map[uuid.UUID]decimal.Decimal, len(withdrawals))
	for _, entry := range withdrawals {
		report.WithdrawalsTotal = report.WithdrawalsTotal.Add(entry.Amount.Abs())
		if entry.PayoutID != nil {
			net[*entry.PayoutID] = net[*entry.PayoutID].Add(entry.Amount)
		}
	}
	for _, entry := range adjustments {
		if !transactions.IsWithdrawalReversal(entry) {
			continue
		}
		report.WithdrawalsTotal = report.WithdrawalsTotal.Sub(entry.Amount)
		net[*entry.PayoutID] = net[*entry.PayoutID].Add(entry.Amount)
	}
	debited := func(id uuid.UUID) bool {
		amount, ok := net[id]
		return ok && amount.IsNegative()
	}

	completedIDs := make(map[uuid.UUID]struct{}, len(completed))
	for _, payout := range completed {
		completedIDs[payout.ID] = struct{}{}
		report.PayoutsTotal = report.PayoutsTotal.Add(payout.Amount)
		if !debited(payout.ID) {
			report.MissingPayoutIDs = append(report.MissingPayoutIDs, payout.ID)
		}
	}
	seen := make(map[uuid.UUID]struct{}, len(net))
	for _, entry := range withdrawals {
		if entry.PayoutID == nil {
			continue
		}
		id := *entry.PayoutID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := completedIDs[id]; !ok && debited(id) {
			report.OrphanWithdrawalPayoutIDs = append(report.OrphanWithdrawalPayoutIDs, id)
		}
	}

	report.MissingCount = len(report.MissingPayoutIDs)
	report.Drift = report.PayoutsTotal.Sub(report.WithdrawalsTotal)
	report.IsHealthy = report.Drift.Abs().LessThan(driftTolerance) && report.MissingCount == 0
	s.metrics.SetIntegrity(report.Drift, report.MissingCount, report.IsHealthy)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payouts_total":     report.PayoutsTotal.StringFixed(2),
		"withdrawals_total": report.WithdrawalsTotal.StringFixed(2),
		"drift":             report.Drift.StringFixed(2),
		"missing_count":     report.MissingCount,
		"orphan_count":      len(report.OrphanWithdrawalPayoutIDs),
	})
	if report.IsHealthy {
		s.logg.Info(logCtx, "platform integrity verified")
	} else {
		s.logg.Warn(logCtx, "platform integrity drift detected")
	}
	return report, nil
}

// AlertNegativeBalances queues one alert per account and currency whose raw
// ledger sum is below zero. Display balances stay clamped.
func (s *service) AlertNegativeBalances(ctx context.Context) (int, error) {
	rows, err := s.ledger.ListNegativeBalances(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	detectedAt := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventNegativeBalanceAlert,
				AggregateType: enums.AggregateCollectorAccount,
				AggregateID:   row.AccountID,
				OccurredAt:    detectedAt,
				Data: payloads.NegativeBalanceEvent{
					AccountID:           row.AccountID,
					CollectorIdentifier: row.CollectorIdentifier,
					Currency:            string(row.Currency),
					RawBalance:          row.RawBalance.StringFixed(2),
					DetectedAt:          detectedAt,
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue negative balance alerts")
	}
	for _, row := range rows {
		s.metrics.IncNegativeBalance(string(row.Currency))
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"collector_identifier": row.CollectorIdentifier,
			"currency":             string(row.Currency),
			"raw_balance":          row.RawBalance.StringFixed(2),
		}), "negative ledger balance")
	}
	return len(rows), nil
}
