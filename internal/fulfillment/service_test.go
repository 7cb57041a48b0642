package fulfillment_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/internal/fulfillment"
	"github.com/angelmondragon/artvault-backend/internal/testkit"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newService(t *testing.T) (fulfillment.Service, *testkit.Stack) {
	t.Helper()
	stack := testkit.NewStack(t)
	_, err := stack.Vendors.RegisterVendor(context.Background(), vendors.RegisterVendorInput{
		Name:                "Studio North",
		CollectorIdentifier: "vendor:studio-north",
	})
	require.NoError(t, err)
	svc, err := fulfillment.NewService(stack.Transactions, stack.Vendors, stack.Logger)
	require.NoError(t, err)
	return svc, stack
}

func order() fulfillment.FulfillmentEvent {
	return fulfillment.FulfillmentEvent{
		OrderID:            "1001",
		CustomerIdentifier: "collector@example.com",
		LineItems: []fulfillment.LineItem{
			{LineItemID: "li-1", ProductID: "print-1", VendorName: "Studio North", Price: d("25"), Currency: "USD", Quantity: 2, NFCTagged: true},
			{LineItemID: "li-2", ProductID: "zine-1", Price: d("10"), Currency: "USD", Quantity: 1},
		},
	}
}

func TestHandleFulfillmentAppliesEveryLine(t *testing.T) {
	svc, stack := newService(t)
	ctx := context.Background()

	summary, err := svc.HandleFulfillment(ctx, order())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.LinesProcessed)
	assert.Equal(t, "600.00", summary.CreditsDeposited.StringFixed(2))
	assert.Equal(t, "50.00", summary.RewardCredits.StringFixed(2))
	assert.Equal(t, "35.00", summary.VendorUSDEarned.StringFixed(2))

	collector, err := stack.Balances.CalculateBalance(ctx, "collector@example.com")
	require.NoError(t, err)
	assert.Equal(t, "650.00", collector.Balance.StringFixed(2))

	vendor, err := stack.Balances.CalculateUnifiedBalance(ctx, "vendor:studio-north")
	require.NoError(t, err)
	assert.Equal(t, "35.00", vendor.USDBalance.StringFixed(2))
}

func TestHandleFulfillmentReplayIsNoop(t *testing.T) {
	svc, stack := newService(t)
	ctx := context.Background()

	_, err := svc.HandleFulfillment(ctx, order())
	require.NoError(t, err)
	again, err := svc.HandleFulfillment(ctx, order())
	require.NoError(t, err)
	assert.True(t, again.CreditsDeposited.IsZero())
	assert.True(t, again.RewardCredits.IsZero())
	assert.True(t, again.VendorUSDEarned.IsZero())

	collector, err := stack.Balances.CalculateBalance(ctx, "collector@example.com")
	require.NoError(t, err)
	assert.Equal(t, "650.00", collector.Balance.StringFixed(2))
}

func TestHandleFulfillmentReportsFailedLinesAndContinues(t *testing.T) {
	svc, stack := newService(t)
	ctx := context.Background()

	event := order()
	event.LineItems[0].VendorName = "Unknown Vendor"

	summary, err := svc.HandleFulfillment(ctx, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "li-1")
	assert.Equal(t, 1, summary.LinesFailed)
	assert.Equal(t, 1, summary.LinesProcessed)

	// Credits for the failed line still landed; a retry only fills the gap.
	collector, err := stack.Balances.CalculateBalance(ctx, "collector@example.com")
	require.NoError(t, err)
	assert.Equal(t, "650.00", collector.Balance.StringFixed(2))
}

func TestHandleFulfillmentValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.HandleFulfillment(context.Background(), fulfillment.FulfillmentEvent{OrderID: "1"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.HandleFulfillment(context.Background(), fulfillment.FulfillmentEvent{OrderID: "1", CustomerIdentifier: "c"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHandleRefundDeductsVendorShare(t *testing.T) {
	svc, stack := newService(t)
	ctx := context.Background()

	_, err := svc.HandleFulfillment(ctx, order())
	require.NoError(t, err)

	refund := fulfillment.RefundEvent{
		OrderID:  "1001",
		RefundID: "r-1",
		LineItems: []fulfillment.RefundLine{
			{LineItemID: "li-1", ProductID: "print-1", VendorName: "Studio North", Price: d("25"), Currency: "USD", Quantity: 1},
		},
	}
	summary, err := svc.HandleRefund(ctx, refund)
	require.NoError(t, err)
	assert.Equal(t, "17.50", summary.USDDeducted.StringFixed(2))

	again, err := svc.HandleRefund(ctx, refund)
	require.NoError(t, err)
	assert.True(t, again.USDDeducted.IsZero())

	vendor, err := stack.Balances.CalculateUnifiedBalance(ctx, "vendor:studio-north")
	require.NoError(t, err)
	assert.Equal(t, "17.50", vendor.USDBalance.StringFixed(2))
}

func TestShopifySignature(t *testing.T) {
	body := []byte(`{"orderId":"1001"}`)
	sig := fulfillment.SignShopifyPayload(body, "shh")

	assert.True(t, fulfillment.VerifyShopifySignature(body, "shh", sig))
	assert.False(t, fulfillment.VerifyShopifySignature(body, "other", sig))
	assert.False(t, fulfillment.VerifyShopifySignature([]byte(`{}`), "shh", sig))
	assert.False(t, fulfillment.VerifyShopifySignature(body, "shh", ""))
	assert.False(t, fulfillment.VerifyShopifySignature(body, "shh", "%%%"))
}
