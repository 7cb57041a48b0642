// Package platform assembles the banking services shared by the API and the
// cron worker.
package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/internal/accounts"
	"github.com/angelmondragon/artvault-backend/internal/balances"
	"github.com/angelmondragon/artvault-backend/internal/banking"
	"github.com/angelmondragon/artvault-backend/internal/fulfillment"
	"github.com/angelmondragon/artvault-backend/internal/ledger"
	"github.com/angelmondragon/artvault-backend/internal/payouts"
	"github.com/angelmondragon/artvault-backend/internal/perks"
	"github.com/angelmondragon/artvault-backend/internal/subscriptions"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	"github.com/angelmondragon/artvault-backend/pkg/config"
	"github.com/angelmondragon/artvault-backend/pkg/db"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/metrics"
	"github.com/angelmondragon/artvault-backend/pkg/outbox"
	"github.com/angelmondragon/artvault-backend/pkg/paypal"
	"github.com/angelmondragon/artvault-backend/pkg/stripe"
)

type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Tx       db.TxRunner
	DB       *gorm.DB
	Registry prometheus.Registerer
	Now      func() time.Time
}

// Services is the wired banking core.
type Services struct {
	Ledger        ledger.Service
	Balances      balances.Service
	Vendors       vendors.Service
	Subscriptions subscriptions.Service
	Transactions  transactions.Service
	Payouts       payouts.Service
	Banking       banking.Service
	Perks         perks.Service
	Fulfillment   fulfillment.Service
	Outbox        *outbox.Repository
	Rails         []enums.PaymentMethod
}

// NewServices builds every service in dependency order. The manual rail is
// always available; PayPal and Stripe join only when credentialed.
func NewServices(ctx context.Context, params Params) (*Services, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tx == nil || params.DB == nil {
		return nil, fmt.Errorf("database required")
	}
	cfg := params.Config
	logg := params.Logger
	now := params.Now
	if now == nil {
		now = time.Now
	}

	var bankingMetrics *metrics.BankingMetrics
	if params.Registry != nil {
		bankingMetrics = metrics.NewBankingMetrics(params.Registry)
	}

	defaultPct, err := cfg.Banking.DefaultPercentage()
	if err != nil {
		return nil, err
	}
	rates, err := cfg.Banking.Rates()
	if err != nil {
		return nil, err
	}

	ledgerRepo := ledger.NewRepository(params.DB)
	outboxRepo := outbox.NewRepository(params.DB)
	emitter := outbox.NewService(outboxRepo, logg)

	// Constructors only validate their inputs, so errors are collected and
	// reported together.
	var errs error
	collect := func(err error) { errs = multierr.Append(errs, err) }

	ledgerSvc, err := ledger.NewService(ledgerRepo)
	collect(err)
	accountSvc, err := accounts.NewService(accounts.NewRepository(params.DB))
	collect(err)
	balanceSvc, err := balances.NewService(ledgerRepo, logg, bankingMetrics)
	collect(err)
	vendorSvc, err := vendors.NewService(vendors.NewRepository(params.DB), vendors.NewConverter(rates), defaultPct)
	collect(err)
	subSvc, err := subscriptions.NewService(subscriptions.NewRepository(params.DB), now)
	collect(err)
	if errs != nil {
		return nil, errs
	}

	txSvc, err := transactions.NewService(transactions.ServiceParams{
		Tx:            params.Tx,
		Accounts:      accountSvc,
		Ledger:        ledgerSvc,
		Balances:      balanceSvc,
		Vendors:       vendorSvc,
		Subscriptions: subSvc,
		Rewards: transactions.Rewards{
			NFCScan:          int64(cfg.Banking.NFCScanReward),
			SeriesCompletion: int64(cfg.Banking.SeriesCompletionReward),
		},
		Logger:  logg,
		Metrics: bankingMetrics,
		Now:     now,
	})
	if err != nil {
		return nil, err
	}

	rails, err := buildRails(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}

	payoutRepo := payouts.NewRepository(params.DB)
	payoutSvc, err := payouts.NewService(payouts.ServiceParams{
		Tx:           params.Tx,
		Repo:         payoutRepo,
		Accounts:     accountSvc,
		Vendors:      vendorSvc,
		Balances:     balanceSvc,
		Transactions: txSvc,
		Outbox:       emitter,
		Rails:        rails,
		Logger:       logg,
		Metrics:      bankingMetrics,
		RailTimeout:  cfg.Payouts.RailTimeout,
		Now:          now,
	})
	collect(err)
	bankingSvc, err := banking.NewService(banking.ServiceParams{
		Tx:           params.Tx,
		Ledger:       ledgerSvc,
		Balances:     balanceSvc,
		Transactions: txSvc,
		Vendors:      vendorSvc,
		Payouts:      payoutRepo,
		Outbox:       emitter,
		Logger:       logg,
		Metrics:      bankingMetrics,
		Now:          now,
	})
	collect(err)
	perkSvc, err := perks.NewService(perks.ServiceParams{
		Tx:       params.Tx,
		Repo:     perks.NewRepository(params.DB),
		Balances: balanceSvc,
		Outbox:   emitter,
		Logger:   logg,
		Now:      now,
	})
	collect(err)
	fulfillmentSvc, err := fulfillment.NewService(txSvc, vendorSvc, logg)
	collect(err)
	if errs != nil {
		return nil, errs
	}

	return &Services{
		Ledger:        ledgerSvc,
		Balances:      balanceSvc,
		Vendors:       vendorSvc,
		Subscriptions: subSvc,
		Transactions:  txSvc,
		Payouts:       payoutSvc,
		Banking:       bankingSvc,
		Perks:         perkSvc,
		Fulfillment:   fulfillmentSvc,
		Outbox:        outboxRepo,
		Rails:         railMethods(rails),
	}, nil
}

func buildRails(ctx context.Context, cfg *config.Config, logg *logger.Logger) ([]payouts.Rail, error) {
	rails := []payouts.Rail{payouts.ManualRail{}}

	if cfg.PayPal.Enabled() {
		client, err := paypal.NewClient(ctx, cfg.PayPal, cfg.Payouts.EmailSubject)
		if err != nil {
			return nil, fmt.Errorf("paypal rail: %w", err)
		}
		rails = append(rails, payouts.NewPayPalRail(client))
	}
	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		client, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return nil, fmt.Errorf("stripe rail: %w", err)
		}
		rails = append(rails, payouts.NewStripeRail(client))
	}
	return rails, nil
}

func railMethods(rails []payouts.Rail) []enums.PaymentMethod {
	methods := make([]enums.PaymentMethod, 0, len(rails))
	for _, rail := range rails {
		methods = append(methods, rail.Method())
	}
	return methods
}
