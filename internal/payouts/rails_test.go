package payouts

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/paypal"
	"github.com/angelmondragon/artvault-backend/pkg/stripe"
)

type stubPayPal struct {
	created paypal.PayoutRequest
	batch   *paypal.Batch
	err     error
}

func (s *stubPayPal) CreatePayout(_ context.Context, req paypal.PayoutRequest) (*paypal.Batch, error) {
	s.created = req
	return s.batch, s.err
}

func (s *stubPayPal) GetPayoutBatch(_ context.Context, batchID string) (*paypal.Batch, error) {
	return s.batch, s.err
}

type stubStripe struct {
	req stripe.TransferRequest
	res *stripe.TransferResult
	err error
}

func (s *stubStripe) Transfer(_ context.Context, req stripe.TransferRequest) (*stripe.TransferResult, error) {
	s.req = req
	return s.res, s.err
}

func strPtr(v string) *string { return &v }

func TestPayPalRailMapsBatchStatus(t *testing.T) {
	api := &stubPayPal{batch: &paypal.Batch{BatchID: "B-1", ItemStatus: paypal.ItemPending}}
	rail := NewPayPalRail(api)

	res, err := rail.Send(context.Background(), Instruction{
		PayeeAddress:      "v@example.com",
		Amount:            decimal.NewFromInt(103),
		Currency:          "USD",
		ClientReferenceID: "payout-1",
	})
	require.NoError(t, err)
	assert.Equal(t, RailProcessing, res.Status)
	assert.Equal(t, "B-1", res.BatchID)
	assert.Equal(t, "payout-1", api.created.SenderBatchID)

	api.batch = &paypal.Batch{BatchID: "B-1", ItemID: "I-1", ItemStatus: paypal.ItemFailed, FailureText: "returned"}
	polled, err := rail.Poll(context.Background(), models.VendorPayout{RailBatchID: strPtr("B-1")})
	require.NoError(t, err)
	assert.Equal(t, RailFailed, polled.Status)
	assert.Equal(t, "returned", polled.FailureReason)

	_, err = rail.Poll(context.Background(), models.VendorPayout{})
	assert.Error(t, err)
}

func TestStripeRail(t *testing.T) {
	api := &stubStripe{res: &stripe.TransferResult{TransferID: "tr_9"}}
	rail := NewStripeRail(api)

	res, err := rail.Send(context.Background(), Instruction{PayeeAddress: "acct_1", Amount: decimal.NewFromInt(5), ClientReferenceID: "p-9"})
	require.NoError(t, err)
	assert.Equal(t, RailCompleted, res.Status)
	assert.Equal(t, "tr_9", res.Reference)
	assert.Equal(t, "payout-p-9", api.req.IdempotencyKey)

	api.res = &stripe.TransferResult{TransferID: "tr_10", Reversed: true}
	_, err = rail.Send(context.Background(), Instruction{PayeeAddress: "acct_1", Amount: decimal.NewFromInt(5)})
	assert.Error(t, err)

	api.err = errors.New("boom")
	_, err = rail.Send(context.Background(), Instruction{PayeeAddress: "acct_1", Amount: decimal.NewFromInt(5)})
	assert.Error(t, err)
}

func TestResolvePayee(t *testing.T) {
	vendor := &models.Vendor{PayPalEmail: strPtr(" pay@example.com "), StripeAccountID: strPtr("acct_123")}

	email, err := ResolvePayee(vendor, enums.PaymentMethodPayPal)
	require.NoError(t, err)
	assert.Equal(t, "pay@example.com", email)

	account, err := ResolvePayee(vendor, enums.PaymentMethodStripe)
	require.NoError(t, err)
	assert.Equal(t, "acct_123", account)

	manual, err := ResolvePayee(&models.Vendor{}, enums.PaymentMethodManual)
	require.NoError(t, err)
	assert.Empty(t, manual)

	_, err = ResolvePayee(&models.Vendor{StripeAccountID: strPtr("ba_123")}, enums.PaymentMethodStripe)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ResolvePayee(&models.Vendor{}, enums.PaymentMethodPayPal)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
