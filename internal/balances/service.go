package balances

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/internal/ledger"
	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/metrics"
)

// CreditBalance is the CREDITS view of a collector.
type CreditBalance struct {
	Balance          decimal.Decimal `json:"balance"`
	CreditsEarned    decimal.Decimal `json:"creditsEarned"`
	CreditsSpent     decimal.Decimal `json:"creditsSpent"`
	RawBalance       decimal.Decimal `json:"rawBalance"`
	NegativeDetected bool            `json:"negativeDetected"`
}

// UnifiedBalance spans both currencies.
type UnifiedBalance struct {
	CreditsBalance     decimal.Decimal `json:"creditsBalance"`
	USDBalance         decimal.Decimal `json:"usdBalance"`
	TotalCreditsEarned decimal.Decimal `json:"totalCreditsEarned"`
	TotalUSDEarned     decimal.Decimal `json:"totalUsdEarned"`
	RawCreditsBalance  decimal.Decimal `json:"rawCreditsBalance"`
	RawUSDBalance      decimal.Decimal `json:"rawUsdBalance"`
	NegativeDetected   bool            `json:"negativeDetected"`
}

// Service derives balances from the ledger. It holds no state and takes no locks.
type Service interface {
	WithTx(tx *gorm.DB) Service
	CalculateBalance(ctx context.Context, identifier string) (*CreditBalance, error)
	CalculateUnifiedBalance(ctx context.Context, identifier string) (*UnifiedBalance, error)
	CalculateTotals(ctx context.Context, identifier string, currency enums.Currency) (Totals, error)
	GetTotalCreditsEarned(ctx context.Context, identifier string) (decimal.Decimal, error)
}

type service struct {
	repo    ledger.Repository
	logg    *logger.Logger
	metrics *metrics.BankingMetrics
}

// NewService builds the calculator. metrics may be nil.
func NewService(repo ledger.Repository, logg *logger.Logger, m *metrics.BankingMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, metrics: m}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), logg: s.logg, metrics: s.metrics}
}

func (s *service) CalculateBalance(ctx context.Context, identifier string) (*CreditBalance, error) {
	totals, err := s.CalculateTotals(ctx, identifier, enums.CurrencyCredits)
	if err != nil {
		return nil, err
	}
	return &CreditBalance{
		Balance:          totals.Clamped(),
		CreditsEarned:    totals.Earned,
		CreditsSpent:     totals.Spent,
		RawBalance:       totals.Raw,
		NegativeDetected: totals.Negative(),
	}, nil
}

func (s *service) CalculateUnifiedBalance(ctx context.Context, identifier string) (*UnifiedBalance, error) {
	entries, err := s.load(ctx, identifier, nil)
	if err != nil {
		return nil, err
	}
	credits := Fold(entries, enums.CurrencyCredits)
	usd := Fold(entries, enums.CurrencyUSD)
	s.reportNegative(ctx, identifier, enums.CurrencyCredits, credits)
	s.reportNegative(ctx, identifier, enums.CurrencyUSD, usd)

	return &UnifiedBalance{
		CreditsBalance:     credits.Clamped(),
		USDBalance:         usd.Clamped(),
		TotalCreditsEarned: credits.Earned,
		TotalUSDEarned:     usd.Earned,
		RawCreditsBalance:  credits.Raw,
		RawUSDBalance:      usd.Raw,
		NegativeDetected:   credits.Negative() || usd.Negative(),
	}, nil
}

// CalculateTotals folds a single currency. Recorders call it on a tx-bound
// service to read their own writes.
func (s *service) CalculateTotals(ctx context.Context, identifier string, currency enums.Currency) (Totals, error) {
	entries, err := s.load(ctx, identifier, &currency)
	if err != nil {
		return Totals{}, err
	}
	totals := Fold(entries, currency)
	s.reportNegative(ctx, identifier, currency, totals)
	return totals, nil
}

// GetTotalCreditsEarned returns lifetime credit earnings, ignoring spends.
// Perk eligibility is measured against this, not the current balance.
func (s *service) GetTotalCreditsEarned(ctx context.Context, identifier string) (decimal.Decimal, error) {
	currency := enums.CurrencyCredits
	entries, err := s.load(ctx, identifier, &currency)
	if err != nil {
		return decimal.Zero, err
	}
	return Fold(entries, currency).Earned, nil
}

func (s *service) load(ctx context.Context, identifier string, currency *enums.Currency) ([]models.LedgerEntry, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	entries, err := s.repo.ListByCollector(ctx, identifier, currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("load ledger for %s", identifier))
	}
	return entries, nil
}

func (s *service) reportNegative(ctx context.Context, identifier string, currency enums.Currency, totals Totals) {
	if !totals.Negative() {
		return
	}
	s.metrics.IncNegativeBalance(string(currency))
	ctx = s.logg.WithCollectorID(ctx, identifier)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"currency":    string(currency),
		"raw_balance": totals.Raw.StringFixed(2),
	})
	s.logg.Warn(ctx, "negative ledger balance clamped to zero")
}
