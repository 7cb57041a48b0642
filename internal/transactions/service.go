package transactions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/internal/accounts"
	"github.com/angelmondragon/artvault-backend/internal/balances"
	"github.com/angelmondragon/artvault-backend/internal/ledger"
	"github.com/angelmondragon/artvault-backend/internal/subscriptions"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	"github.com/angelmondragon/artvault-backend/pkg/db"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/metrics"
)

// Service records every balance-changing event. Each call runs in one
// database transaction: ensure the account, append the entry, then fold the
// post-write balance from the same transaction.
type Service interface {
	DepositPurchaseCredits(ctx context.Context, input PurchaseCreditInput) (*DepositResult, error)
	DepositSubscriptionCredits(ctx context.Context, subscriptionID uuid.UUID) (*DepositResult, error)
	SpendCredits(ctx context.Context, input SpendInput) (*SpendResult, error)
	RecordNFCScanReward(ctx context.Context, input NFCRewardInput) (*DepositResult, error)
	RecordSeriesCompletionReward(ctx context.Context, input SeriesRewardInput) (*DepositResult, error)
	RecordPayoutEarning(ctx context.Context, input PayoutEarningInput) (*PayoutEarningResult, error)
	RecordPayoutWithdrawal(ctx context.Context, input WithdrawalInput) (*WithdrawalResult, error)
	ReversePayoutWithdrawal(ctx context.Context, tx *gorm.DB, input ReversalInput) (*ReversalResult, error)
	RecordRefundDeduction(ctx context.Context, input RefundDeductionInput) (*RefundResult, error)
	RecordManualAdjustment(ctx context.Context, input AdjustmentInput) (*AdjustmentResult, error)
}

// Rewards holds the fixed credit grants.
type Rewards struct {
	NFCScan          int64
	SeriesCompletion int64
}

// ServiceParams groups the collaborators of the recorder service.
type ServiceParams struct {
	Tx            db.TxRunner
	Accounts      accounts.Service
	Ledger        ledger.Service
	Balances      balances.Service
	Vendors       vendors.Service
	Subscriptions subscriptions.Service
	Rewards       Rewards
	Logger        *logger.Logger
	Metrics       *metrics.BankingMetrics
	Now           func() time.Time
}

type service struct {
	tx       db.TxRunner
	accounts accounts.Service
	ledger   ledger.Service
	balances balances.Service
	vendors  vendors.Service
	subs     subscriptions.Service
	rewards  Rewards
	logg     *logger.Logger
	metrics  *metrics.BankingMetrics
	now      func() time.Time
}

// NewService validates and wires the recorders.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balances service required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendors service required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rewards.NFCScan <= 0 || params.Rewards.SeriesCompletion <= 0 {
		return nil, fmt.Errorf("reward amounts must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:       params.Tx,
		accounts: params.Accounts,
		ledger:   params.Ledger,
		balances: params.Balances,
		vendors:  params.Vendors,
		subs:     params.Subscriptions,
		rewards:  params.Rewards,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// entryOutcome is what a single-entry write reports back to its caller.
type entryOutcome struct {
	entry     *ledger.AppendResult
	totals    balances.Totals
	duplicate bool
}

// appendAndFold writes one entry for an already ensured account and folds
// the entry's currency using the same transaction.
func (s *service) appendAndFold(ctx context.Context, tx *gorm.DB, input ledger.RecordEntryInput) (*entryOutcome, error) {
	res, err := s.ledger.WithTx(tx).RecordEntry(ctx, input)
	if err != nil {
		return nil, err
	}
	totals, err := s.balances.WithTx(tx).CalculateTotals(ctx, input.CollectorIdentifier, input.Currency)
	if err != nil {
		return nil, err
	}
	return &entryOutcome{entry: res, totals: totals, duplicate: !res.Inserted}, nil
}

func (s *service) observe(ctx context.Context, txType enums.TransactionType, identifier string, amount decimal.Decimal, duplicate bool) {
	s.metrics.IncLedgerEntry(string(txType), duplicate)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"collector_identifier": identifier,
		"transaction_type":     string(txType),
		"amount":               amount.String(),
	})
	if duplicate {
		s.logg.Debug(ctx, "duplicate ledger event ignored")
		return
	}
	s.logg.Info(ctx, "ledger entry recorded")
}

func requireIdentifier(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	return identifier, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func depositResult(identifier string, out *entryOutcome) *DepositResult {
	id := out.entry.Entry.ID
	res := &DepositResult{
		CollectorIdentifier: identifier,
		CreditsDeposited:    out.entry.Entry.Amount,
		Balance:             out.totals.Clamped(),
		Duplicate:           out.duplicate,
		EntryID:             &id,
	}
	if out.duplicate {
		res.CreditsDeposited = decimal.Zero
	}
	return res
}

// DepositPurchaseCredits grants CreditsPerDollar credits per USD of the line
// total. A line worth less than one credit writes nothing.
func (s *service) DepositPurchaseCredits(ctx context.Context, input PurchaseCreditInput) (*DepositResult, error) {
	identifier, err := requireIdentifier(input.CollectorIdentifier)
	if err != nil {
		return nil, err
	}
	lineItem := strings.TrimSpace(input.LineItemID)
	if lineItem == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	usd, err := s.vendors.NormalizeToUSD(input.Price, input.Currency)
	if err != nil {
		return nil, err
	}
	credits := usd.Mul(decimal.NewFromInt(CreditsPerDollar)).Round(0)

	var out *entryOutcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.accounts.WithTx(tx).EnsureAccount(ctx, identifier, enums.AccountTypeCustomer, nil); err != nil {
			return err
		}
		if credits.IsZero() {
			totals, err := s.balances.WithTx(tx).CalculateTotals(ctx, identifier, enums.CurrencyCredits)
			if err != nil {
				return err
			}
			out = &entryOutcome{totals: totals}
			return nil
		}
		out, err = s.appendAndFold(ctx, tx, ledger.RecordEntryInput{
			CollectorIdentifier: identifier,
			TransactionType:     enums.TransactionCreditEarned,
			Amount:              credits,
			Currency:            enums.CurrencyCredits,
			OrderID:             optional(input.OrderID),
			LineItemID:          &lineItem,
			Description:         "Credits earned on purchase",
			Metadata: map[string]any{
				"productId": input.ProductID,
				"price":     input.Price.String(),
				"currency":  strings.ToUpper(strings.TrimSpace(input.Currency)),
				"usdValue":  usd.String(),
			},
			DedupKey:  ledger.DedupKey(identifier, enums.TransactionCreditEarned, lineItem),
			CreatedBy: "system",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.entry == nil {
		return &DepositResult{CollectorIdentifier: identifier, CreditsDeposited: decimal.Zero, Balance: out.totals.Clamped()}, nil
	}
	s.observe(ctx, enums.TransactionCreditEarned, identifier, credits, out.duplicate)
	return depositResult(identifier, out), nil
}

// DepositSubscriptionCredits grants one cycle of credits and advances the
// subscription in the same transaction. The dedup key is scoped to the UTC
// day so a retried cron run cannot double credit.
func (s *service) DepositSubscriptionCredits(ctx context.Context, subscriptionID uuid.UUID) (*DepositResult, error) {
	if subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}
	now := s.now().UTC()

	var (
		out        *entryOutcome
		identifier string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		subs := s.subs.WithTx(tx)
		sub, err := subs.Get(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != enums.SubscriptionStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not active")
		}
		if sub.CreditsPerCycle <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription has no credits per cycle")
		}
		identifier = sub.CollectorIdentifier
		if _, err := s.accounts.WithTx(tx).EnsureAccount(ctx, identifier, enums.AccountTypeCustomer, nil); err != nil {
			return err
		}
		subID := sub.ID
		out, err = s.appendAndFold(ctx, tx, ledger.RecordEntryInput{
			CollectorIdentifier: identifier,
			TransactionType:     enums.TransactionSubscriptionCredit,
			Amount:              decimal.NewFromInt(sub.CreditsPerCycle),
			Currency:            enums.CurrencyCredits,
			SubscriptionID:      &subID,
			Description:         "Subscription credits",
			DedupKey:            ledger.DedupKey(identifier, enums.TransactionSubscriptionCredit, subID.String(), ledger.DayKey(now)),
			CreatedBy:           "system",
			OccurredAt:          now,
		})
		if err != nil {
			return err
		}
		if out.duplicate {
			return nil
		}
		_, err = subs.AdvanceBilling(ctx, sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observe(ctx, enums.TransactionSubscriptionCredit, identifier, out.entry.Entry.Amount, out.duplicate)
	return depositResult(identifier, out), nil
}

// SpendCredits debits credits after re-reading the balance under the
// account row lock. The check and the write share one transaction.
func (s *service) SpendCredits(ctx context.Context, input SpendInput) (*SpendResult, error) {
	identifier, err := requireIdentifier(input.CollectorIdentifier)
	if err != nil {
		return nil, err
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spend amount must be positive")
	}

	var out *entryOutcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		accts := s.accounts.WithTx(tx)
		if _, err := accts.EnsureAccount(ctx, identifier, enums.AccountTypeCustomer, nil); err != nil {
			return err
		}
		if _, err := accts.LockAccount(ctx, identifier); err != nil {
			return err
		}
		totals, err := s.balances.WithTx(tx).CalculateTotals(ctx, identifier, enums.CurrencyCredits)
		if err != nil {
			return err
		}
		available := totals.Clamped()
		if available.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient credit balance").WithDetails(map[string]any{
				"balance":   available.String(),
				"requested": amount.String(),
			})
		}
		description := strings.TrimSpace(input.Description)
		if description == "" {
			description = "Credits spent"
		}
		out, err = s.appendAndFold(ctx, tx, ledger.RecordEntryInput{
			CollectorIdentifier: identifier,
			TransactionType:     enums.TransactionCreditSpent,
			Amount:              amount.Neg(),
			Currency:            enums.CurrencyCredits,
			OrderID:             optional(input.OrderID),
			PurchaseID:          optional(input.PurchaseID),
			Description:         description,
			CreatedBy:           "system",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observe(ctx, enums.TransactionCreditSpent, identifier, amount.Neg(), false)
	return &SpendResult{
		CollectorIdentifier: identifier,
		CreditsSpent:        amount,
		Balance:             out.totals.Clamped(),
		EntryID:             out.entry.Entry.ID,
	}, nil
}

// RecordNFCScanReward grants the fixed scan reward once per line item.
func (s *service) RecordNFCScanReward(ctx context.Context, input NFCRewardInput) (*DepositResult, error) {
	identifier, err := requireIdentifier(input.CollectorIdentifier)
	if err != nil {
		return nil, err
	}
	lineItem := strings.TrimSpace(input.LineItemID)
	if lineItem == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	return s.grantReward(ctx, identifier, ledger.RecordEntryInput{
		CollectorIdentifier: identifier,
		TransactionType:     enums.TransactionNFCScanReward,
		Amount:              decimal.NewFromInt(s.rewards.NFCScan),
		Currency:            enums.CurrencyCredits,
		OrderID:             optional(input.OrderID),
		LineItemID:          &lineItem,
		Description:         "NFC scan reward",
		Metadata:            map[string]any{"productId": input.ProductID},
		DedupKey:            ledger.DedupKey(identifier, enums.TransactionNFCScanReward, lineItem),
		CreatedBy:           "system",
	})
}

// RecordSeriesCompletionReward grants the fixed series bonus once per series.
func (s *service) RecordSeriesCompletionReward(ctx context.Context, input SeriesRewardInput) (*DepositResult, error) {
	identifier, err := requireIdentifier(input.CollectorIdentifier)
	if err != nil {
		return nil, err
	}
	series := strings.TrimSpace(input.SeriesID)
	if series == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "series id is required")
	}
	return s.grantReward(ctx, identifier, ledger.RecordEntryInput{
		CollectorIdentifier: identifier,
		TransactionType:     enums.TransactionSeriesCompletionReward,
		Amount:              decimal.NewFromInt(s.rewards.SeriesCompletion),
		Currency:            enums.CurrencyCredits,
		Description:         "Series completion reward",
		Metadata:            map[string]any{"seriesId": series},
		DedupKey:            ledger.DedupKey(identifier, enums.TransactionSeriesCompletionReward, series),
		CreatedBy:           "system",
	})
}

func (s *service) grantReward(ctx context.Context, identifier string, input ledger.RecordEntryInput) (*DepositResult, error) {
	var out *entryOutcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.accounts.WithTx(tx).EnsureAccount(ctx, identifier, enums.AccountTypeCustomer, nil); err != nil {
			return err
		}
		var err error
		out, err = s.appendAndFold(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observe(ctx, input.TransactionType, identifier, input.Amount, out.duplicate)
	return depositResult(identifier, out), nil
}
