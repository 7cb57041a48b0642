package payouts_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/internal/payouts"
	"github.com/angelmondragon/artvault-backend/internal/testkit"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/outbox"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type fakeRail struct {
	method enums.PaymentMethod
	send   func(ctx context.Context, in payouts.Instruction) (*payouts.RailResult, error)
	poll   func(ctx context.Context, payout models.VendorPayout) (*payouts.RailResult, error)
	calls  atomic.Int32
	last   payouts.Instruction
}

func (f *fakeRail) Method() enums.PaymentMethod { return f.method }

func (f *fakeRail) Send(ctx context.Context, in payouts.Instruction) (*payouts.RailResult, error) {
	f.calls.Add(1)
	f.last = in
	return f.send(ctx, in)
}

type pollingRail struct {
	*fakeRail
}

func (p pollingRail) Poll(ctx context.Context, payout models.VendorPayout) (*payouts.RailResult, error) {
	return p.poll(ctx, payout)
}

// flakyRecorder fails withdrawals while broken is set.
type flakyRecorder struct {
	transactions.Service
	broken atomic.Bool
}

func (f *flakyRecorder) RecordPayoutWithdrawal(ctx context.Context, in transactions.WithdrawalInput) (*transactions.WithdrawalResult, error) {
	if f.broken.Load() {
		return nil, errors.New("ledger unavailable")
	}
	return f.Service.RecordPayoutWithdrawal(ctx, in)
}

type harness struct {
	stack    *testkit.Stack
	service  payouts.Service
	repo     payouts.Repository
	recorder *flakyRecorder
}

func newHarness(t *testing.T, timeout time.Duration, rails ...payouts.Rail) *harness {
	t.Helper()
	stack := testkit.NewStack(t)
	repo := payouts.NewRepository(stack.Conn)
	recorder := &flakyRecorder{Service: stack.Transactions}
	svc, err := payouts.NewService(payouts.ServiceParams{
		Tx:           stack.Client,
		Repo:         repo,
		Accounts:     stack.Accounts,
		Vendors:      stack.Vendors,
		Balances:     stack.Balances,
		Transactions: recorder,
		Outbox:       outbox.NewService(outbox.NewRepository(stack.Conn), stack.Logger),
		Rails:        rails,
		Logger:       stack.Logger,
		RailTimeout:  timeout,
		Now:          stack.Clock.Now,
	})
	require.NoError(t, err)
	return &harness{stack: stack, service: svc, repo: repo, recorder: recorder}
}

// fundVendor registers a vendor taking 100% of sales and books one sale.
func (h *harness) fundVendor(t *testing.T, name string, earned string, mutate func(*vendors.RegisterVendorInput)) {
	t.Helper()
	ctx := context.Background()
	full := d("100")
	input := vendors.RegisterVendorInput{
		Name:                name,
		CollectorIdentifier: "vendor:" + name,
		PayoutPercentage:    &full,
	}
	if mutate != nil {
		mutate(&input)
	}
	_, err := h.stack.Vendors.RegisterVendor(ctx, input)
	require.NoError(t, err)
	_, err = h.stack.Transactions.RecordPayoutEarning(ctx, transactions.PayoutEarningInput{
		VendorName: name,
		OrderID:    "order-" + name,
		LineItemID: "li-" + name,
		UnitPrice:  d(earned),
		Currency:   "USD",
		Quantity:   1,
	})
	require.NoError(t, err)
}

func (h *harness) usdBalance(t *testing.T, name string) decimal.Decimal {
	t.Helper()
	unified, err := h.stack.Balances.CalculateUnifiedBalance(context.Background(), "vendor:"+name)
	require.NoError(t, err)
	return unified.USDBalance
}

func (h *harness) events(t *testing.T, eventType enums.OutboxEventType) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, h.stack.Conn.Where("event_type = ?", eventType).Find(&rows).Error)
	return rows
}

func (h *harness) withdrawals(t *testing.T, name string) []models.LedgerEntry {
	t.Helper()
	var rows []models.LedgerEntry
	require.NoError(t, h.stack.Conn.
		Where("collector_identifier = ? AND transaction_type = ?", "vendor:"+name, enums.TransactionPayoutWithdrawal).
		Find(&rows).Error)
	return rows
}

func TestNewServiceRequiresRails(t *testing.T) {
	_, err := payouts.NewService(payouts.ServiceParams{})
	assert.Error(t, err)
}

func TestManualBatchCompletesAndRecordsWithdrawal(t *testing.T) {
	h := newHarness(t, time.Second, payouts.ManualRail{})
	h.fundVendor(t, "studio", "103.00", nil)
	ctx := context.Background()

	results, err := h.service.ProcessBatch(ctx, payouts.BatchRequest{
		Candidates:       []payouts.Candidate{{VendorName: "studio", Amount: d("103.00")}},
		PaymentMethod:    enums.PaymentMethodManual,
		GenerateInvoices: true,
		CreatedBy:        "admin@artvault.test",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	res := results[0]
	assert.True(t, res.Success, res.Error)
	assert.True(t, res.WithdrawalRecorded)
	assert.Equal(t, enums.PayoutStatusCompleted, res.Status)
	assert.Regexp(t, `^INV-202603-[0-9A-F]{6}$`, res.InvoiceNumber)
	require.NotNil(t, res.PayoutID)

	payout, err := h.service.GetPayout(ctx, *res.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusCompleted, payout.Status)
	assert.NotNil(t, payout.CompletedAt)

	rows := h.withdrawals(t, "studio")
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Amount.Equal(d("-103.00")), rows[0].Amount.String())
	assert.True(t, h.usdBalance(t, "studio").IsZero())
	assert.Len(t, h.events(t, enums.EventPayoutCompleted), 1)

	again, err := h.service.RetryWithdrawal(ctx, *res.PayoutID)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.True(t, again.USDWithdrawn.IsZero())
	assert.Len(t, h.withdrawals(t, "studio"), 1)
}

func TestBatchRejectsAmountAboveBalance(t *testing.T) {
	h := newHarness(t, time.Second, payouts.ManualRail{})
	h.fundVendor(t, "small", "20.00", nil)

	results, err := h.service.ProcessBatch(context.Background(), payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "small", Amount: d("25")}, {VendorName: "ghost", Amount: d("5")}},
		PaymentMethod: enums.PaymentMethodManual,
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Nil(t, results[0].PayoutID)
	assert.Contains(t, results[0].Error, "withdrawable")
	assert.False(t, results[1].Success)

	var count int64
	require.NoError(t, h.stack.Conn.Model(&models.VendorPayout{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBatchValidation(t *testing.T) {
	h := newHarness(t, time.Second, payouts.ManualRail{})
	ctx := context.Background()

	_, err := h.service.ProcessBatch(ctx, payouts.BatchRequest{PaymentMethod: enums.PaymentMethodManual, CreatedBy: "a"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.service.ProcessBatch(ctx, payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "x", Amount: d("1")}},
		PaymentMethod: enums.PaymentMethodStripe,
		CreatedBy:     "a",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "stripe rail not configured")
}

func TestRailFailureMarksPayoutFailedAndBatchContinues(t *testing.T) {
	rail := &fakeRail{method: enums.PaymentMethodStripe}
	rail.send = func(_ context.Context, in payouts.Instruction) (*payouts.RailResult, error) {
		if in.PayeeAddress == "acct_bad" {
			return nil, errors.New("account closed")
		}
		return &payouts.RailResult{Status: payouts.RailCompleted, TransferID: "tr_1", Reference: "tr_1"}, nil
	}
	h := newHarness(t, time.Second, rail)
	h.fundVendor(t, "bad", "50", func(in *vendors.RegisterVendorInput) { acct := "acct_bad"; in.StripeAccountID = &acct })
	h.fundVendor(t, "good", "50", func(in *vendors.RegisterVendorInput) { acct := "acct_good"; in.StripeAccountID = &acct })

	results, err := h.service.ProcessBatch(context.Background(), payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "bad", Amount: d("50")}, {VendorName: "good", Amount: d("30")}},
		PaymentMethod: enums.PaymentMethodStripe,
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Success)
	assert.Equal(t, enums.PayoutStatusFailed, results[0].Status)
	assert.Equal(t, "account closed", results[0].Error)
	failed, err := h.service.GetPayout(context.Background(), *results[0].PayoutID)
	require.NoError(t, err)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "account closed", *failed.FailureReason)
	assert.Empty(t, h.withdrawals(t, "bad"))
	assert.True(t, h.usdBalance(t, "bad").Equal(d("50")))
	assert.Len(t, h.events(t, enums.EventPayoutFailed), 1)

	assert.True(t, results[1].Success)
	assert.Equal(t, "tr_1", results[1].Reference)
	assert.True(t, h.usdBalance(t, "good").Equal(d("20")))
	assert.Equal(t, "acct_good", rail.last.PayeeAddress)
}

func TestRailTimeoutFailsPayout(t *testing.T) {
	rail := &fakeRail{method: enums.PaymentMethodStripe}
	rail.send = func(ctx context.Context, _ payouts.Instruction) (*payouts.RailResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	h := newHarness(t, 20*time.Millisecond, rail)
	h.fundVendor(t, "slow", "10", func(in *vendors.RegisterVendorInput) { acct := "acct_slow"; in.StripeAccountID = &acct })

	results, err := h.service.ProcessBatch(context.Background(), payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "slow", Amount: d("10")}},
		PaymentMethod: enums.PaymentMethodStripe,
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "timed out")
	assert.Empty(t, h.withdrawals(t, "slow"))
}

func TestInvalidPayeeFailsWithoutCallingRail(t *testing.T) {
	rail := &fakeRail{method: enums.PaymentMethodPayPal}
	rail.send = func(context.Context, payouts.Instruction) (*payouts.RailResult, error) {
		return &payouts.RailResult{Status: payouts.RailProcessing}, nil
	}
	h := newHarness(t, time.Second, rail)
	h.fundVendor(t, "noemail", "10", func(in *vendors.RegisterVendorInput) { bad := "not-an-email"; in.PayPalEmail = &bad })

	results, err := h.service.ProcessBatch(context.Background(), payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "noemail", Amount: d("10")}},
		PaymentMethod: enums.PaymentMethodPayPal,
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "paypal email")
	assert.Zero(t, rail.calls.Load())
}

func TestAsyncPayPalPayoutIsPolledToCompletion(t *testing.T) {
	base := &fakeRail{method: enums.PaymentMethodPayPal}
	base.send = func(_ context.Context, in payouts.Instruction) (*payouts.RailResult, error) {
		return &payouts.RailResult{Status: payouts.RailProcessing, BatchID: "BATCH-" + in.ClientReferenceID[:8], Reference: "BATCH"}, nil
	}
	var settled atomic.Bool
	base.poll = func(_ context.Context, payout models.VendorPayout) (*payouts.RailResult, error) {
		if !settled.Load() {
			return &payouts.RailResult{Status: payouts.RailProcessing}, nil
		}
		return &payouts.RailResult{Status: payouts.RailCompleted, TransferID: "ITEM-1"}, nil
	}
	h := newHarness(t, time.Second, pollingRail{base})
	h.fundVendor(t, "async", "80", func(in *vendors.RegisterVendorInput) { email := "async@example.com"; in.PayPalEmail = &email })
	ctx := context.Background()

	results, err := h.service.ProcessBatch(ctx, payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "async", Amount: d("80")}},
		PaymentMethod: enums.PaymentMethodPayPal,
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	res := results[0]
	assert.True(t, res.Success)
	assert.Equal(t, enums.PayoutStatusProcessing, res.Status)
	assert.True(t, res.WithdrawalRecorded)
	assert.True(t, h.usdBalance(t, "async").IsZero())

	summary, err := h.service.PollProcessing(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pending)

	settled.Store(true)
	summary, err = h.service.PollProcessing(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed)

	payout, err := h.service.GetPayout(ctx, *res.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusCompleted, payout.Status)
	require.NotNil(t, payout.RailTransferID)
	assert.Equal(t, "ITEM-1", *payout.RailTransferID)
	assert.Len(t, h.events(t, enums.EventPayoutCompleted), 1)
	assert.Len(t, h.withdrawals(t, "async"), 1)
}

func TestAsyncPayoutFailedAfterAcceptanceRestoresBalance(t *testing.T) {
	var attempts atomic.Int32
	base := &fakeRail{method: enums.PaymentMethodPayPal}
	base.send = func(context.Context, payouts.Instruction) (*payouts.RailResult, error) {
		attempts.Add(1)
		return &payouts.RailResult{Status: payouts.RailProcessing, BatchID: "BATCH", Reference: "BATCH"}, nil
	}
	base.poll = func(context.Context, models.VendorPayout) (*payouts.RailResult, error) {
		if attempts.Load() == 1 {
			return &payouts.RailResult{Status: payouts.RailFailed, FailureReason: "RECEIVER_UNREGISTERED"}, nil
		}
		return &payouts.RailResult{Status: payouts.RailCompleted, TransferID: "ITEM-2"}, nil
	}
	h := newHarness(t, time.Second, pollingRail{base})
	h.fundVendor(t, "bounce", "80", func(in *vendors.RegisterVendorInput) { email := "bounce@example.com"; in.PayPalEmail = &email })
	ctx := context.Background()

	results, err := h.service.ProcessBatch(ctx, payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "bounce", Amount: d("80")}},
		PaymentMethod: enums.PaymentMethodPayPal,
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	payoutID := *results[0].PayoutID
	assert.True(t, results[0].WithdrawalRecorded)
	assert.True(t, h.usdBalance(t, "bounce").IsZero())

	summary, err := h.service.PollProcessing(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Reversed)

	payout, err := h.service.GetPayout(ctx, payoutID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, payout.Status)
	assert.True(t, h.usdBalance(t, "bounce").Equal(d("80")), h.usdBalance(t, "bounce").String())

	summary, err = h.service.PollProcessing(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, summary.Checked)

	res, err := h.service.ProcessPayout(ctx, payoutID, "ops")
	require.NoError(t, err)
	assert.True(t, res.Success, res.Error)
	assert.True(t, res.WithdrawalRecorded)
	assert.True(t, h.usdBalance(t, "bounce").IsZero())
	assert.Len(t, h.withdrawals(t, "bounce"), 2)

	summary, err = h.service.PollProcessing(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed)
	assert.Zero(t, summary.Reversed)
	assert.True(t, h.usdBalance(t, "bounce").IsZero())
}

func TestUnsettledPayoutsReserveBalance(t *testing.T) {
	rail := &fakeRail{method: enums.PaymentMethodStripe}
	rail.send = func(context.Context, payouts.Instruction) (*payouts.RailResult, error) {
		return nil, errors.New("rail unavailable")
	}
	h := newHarness(t, time.Second, rail)
	h.fundVendor(t, "reserve", "100", func(in *vendors.RegisterVendorInput) { acct := "acct_reserve"; in.StripeAccountID = &acct })
	ctx := context.Background()
	vendor, err := h.stack.Vendors.GetByName(ctx, "reserve")
	require.NoError(t, err)

	queued := &models.VendorPayout{
		VendorID:            vendor.ID,
		VendorName:          vendor.Name,
		CollectorIdentifier: vendor.CollectorIdentifier,
		Amount:              d("70"),
		PaymentMethod:       enums.PaymentMethodStripe,
		CreatedBy:           "admin",
	}
	require.NoError(t, h.repo.Create(ctx, queued))

	reserved, err := h.repo.SumUnsettled(ctx, vendor.ID, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, reserved.Equal(d("70")), reserved.String())

	results, err := h.service.ProcessBatch(ctx, payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "reserve", Amount: d("40")}},
		PaymentMethod: enums.PaymentMethodStripe,
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	assert.False(t, results[0].Success)
	assert.Nil(t, results[0].PayoutID)
	assert.Contains(t, results[0].Error, "withdrawable")

	res, err := h.service.ProcessPayout(ctx, queued.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, res.Status)

	reserved, err = h.repo.SumUnsettled(ctx, vendor.ID, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, reserved.IsZero())
}

func TestProcessPayoutRetriesFailedPayout(t *testing.T) {
	var healthy atomic.Bool
	rail := &fakeRail{method: enums.PaymentMethodStripe}
	rail.send = func(context.Context, payouts.Instruction) (*payouts.RailResult, error) {
		if !healthy.Load() {
			return nil, errors.New("rail unavailable")
		}
		return &payouts.RailResult{Status: payouts.RailCompleted, TransferID: "tr_retry", Reference: "tr_retry"}, nil
	}
	h := newHarness(t, time.Second, rail)
	h.fundVendor(t, "retry", "40", func(in *vendors.RegisterVendorInput) { acct := "acct_retry"; in.StripeAccountID = &acct })
	ctx := context.Background()

	results, err := h.service.ProcessBatch(ctx, payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "retry", Amount: d("40")}},
		PaymentMethod: enums.PaymentMethodStripe,
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	require.Equal(t, enums.PayoutStatusFailed, results[0].Status)

	healthy.Store(true)
	res, err := h.service.ProcessPayout(ctx, *results[0].PayoutID, "ops")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, enums.PayoutStatusCompleted, res.Status)
	assert.Equal(t, *results[0].PayoutID, *res.PayoutID)
	assert.True(t, h.usdBalance(t, "retry").IsZero())

	_, err = h.service.ProcessPayout(ctx, *res.PayoutID, "ops")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestWithdrawalFailureKeepsCompletedStatus(t *testing.T) {
	h := newHarness(t, time.Second, payouts.ManualRail{})
	h.fundVendor(t, "gap", "60", nil)
	h.recorder.broken.Store(true)
	ctx := context.Background()

	results, err := h.service.ProcessBatch(ctx, payouts.BatchRequest{
		Candidates:    []payouts.Candidate{{VendorName: "gap", Amount: d("60")}},
		PaymentMethod: enums.PaymentMethodManual,
		CreatedBy:     "admin",
	})
	require.NoError(t, err)
	res := results[0]
	assert.True(t, res.Success)
	assert.False(t, res.WithdrawalRecorded)
	assert.Equal(t, enums.PayoutStatusCompleted, res.Status)
	assert.Empty(t, h.withdrawals(t, "gap"))

	h.recorder.broken.Store(false)
	repaired, err := h.service.RetryWithdrawal(ctx, *res.PayoutID)
	require.NoError(t, err)
	assert.False(t, repaired.Duplicate)
	assert.True(t, repaired.USDWithdrawn.Equal(d("60")))
	assert.Len(t, h.withdrawals(t, "gap"), 1)
}

func TestRetryWithdrawalRequiresCompletedPayout(t *testing.T) {
	h := newHarness(t, time.Second, payouts.ManualRail{})
	ctx := context.Background()

	_, err := h.service.RetryWithdrawal(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	h.fundVendor(t, "pending", "10", nil)
	vendor, err := h.stack.Vendors.GetByName(ctx, "pending")
	require.NoError(t, err)
	payout := &models.VendorPayout{
		VendorID:            vendor.ID,
		VendorName:          vendor.Name,
		CollectorIdentifier: vendor.CollectorIdentifier,
		Amount:              d("10"),
		PaymentMethod:       enums.PaymentMethodManual,
		CreatedBy:           "admin",
	}
	require.NoError(t, h.repo.Create(ctx, payout))

	_, err = h.service.RetryWithdrawal(ctx, payout.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	pending := enums.PayoutStatusPending
	list, err := h.service.ListPayouts(ctx, payouts.ListFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, payout.ID, list[0].ID)
}

func TestTransitionIsCompareAndSet(t *testing.T) {
	h := newHarness(t, time.Second, payouts.ManualRail{})
	ctx := context.Background()
	payout := &models.VendorPayout{
		VendorID:            uuid.New(),
		VendorName:          "cas",
		CollectorIdentifier: "vendor:cas",
		Amount:              d("1"),
		PaymentMethod:       enums.PaymentMethodManual,
		CreatedBy:           "admin",
	}
	require.NoError(t, h.repo.Create(ctx, payout))

	from := []enums.PayoutStatus{enums.PayoutStatusPending}
	ok, err := h.repo.Transition(ctx, payout.ID, from, enums.PayoutStatusProcessing, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.repo.Transition(ctx, payout.ID, from, enums.PayoutStatusProcessing, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.repo.Transition(ctx, payout.ID, []enums.PayoutStatus{enums.PayoutStatusCompleted}, enums.PayoutStatusFailed, nil)
	assert.ErrorContains(t, err, "cannot move from completed to failed")
}

func TestInvoiceNumber(t *testing.T) {
	id := uuid.MustParse("abcdef12-0000-0000-0000-000000000000")
	got := payouts.InvoiceNumber(time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC), id)
	assert.Equal(t, "INV-202601-ABCDEF", got)
}
