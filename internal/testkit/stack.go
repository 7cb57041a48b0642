// Package testkit assembles the ledger core on an isolated SQLite database
// for package tests that need real recorders behind them.
package testkit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/internal/accounts"
	"github.com/angelmondragon/artvault-backend/internal/balances"
	"github.com/angelmondragon/artvault-backend/internal/ledger"
	"github.com/angelmondragon/artvault-backend/internal/subscriptions"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	"github.com/angelmondragon/artvault-backend/pkg/db"
	"github.com/angelmondragon/artvault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

// Clock is a settable time source.
type Clock struct {
	Current time.Time
}

func (c *Clock) Now() time.Time { return c.Current }

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }

// Stack is the wired ledger core.
type Stack struct {
	Conn          *gorm.DB
	Client        *db.Client
	Logger        *logger.Logger
	Clock         *Clock
	LedgerRepo    ledger.Repository
	Ledger        ledger.Service
	Accounts      accounts.Service
	Balances      balances.Service
	Vendors       vendors.Service
	Subscriptions subscriptions.Service
	Transactions  transactions.Service
}

// Rates used by the stack's converter.
var Rates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("1.10"),
}

// NewStack builds the core with a 70% default payout share, 50 credit scan
// rewards and 500 credit series rewards.
func NewStack(t testing.TB) *Stack {
	t.Helper()

	client, conn := dbtest.NewClient(t)
	logg := logger.Nop()
	clock := &Clock{Current: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}

	ledgerRepo := ledger.NewRepository(conn)
	ledgerSvc, err := ledger.NewService(ledgerRepo)
	require.NoError(t, err)
	accountSvc, err := accounts.NewService(accounts.NewRepository(conn))
	require.NoError(t, err)
	balanceSvc, err := balances.NewService(ledgerRepo, logg, nil)
	require.NoError(t, err)
	vendorSvc, err := vendors.NewService(vendors.NewRepository(conn), vendors.NewConverter(Rates), decimal.NewFromInt(70))
	require.NoError(t, err)
	subSvc, err := subscriptions.NewService(subscriptions.NewRepository(conn), clock.Now)
	require.NoError(t, err)

	txSvc, err := transactions.NewService(transactions.ServiceParams{
		Tx:            client,
		Accounts:      accountSvc,
		Ledger:        ledgerSvc,
		Balances:      balanceSvc,
		Vendors:       vendorSvc,
		Subscriptions: subSvc,
		Rewards:       transactions.Rewards{NFCScan: 50, SeriesCompletion: 500},
		Logger:        logg,
		Now:           clock.Now,
	})
	require.NoError(t, err)

	return &Stack{
		Conn:          conn,
		Client:        client,
		Logger:        logg,
		Clock:         clock,
		LedgerRepo:    ledgerRepo,
		Ledger:        ledgerSvc,
		Accounts:      accountSvc,
		Balances:      balanceSvc,
		Vendors:       vendorSvc,
		Subscriptions: subSvc,
		Transactions:  txSvc,
	}
}
