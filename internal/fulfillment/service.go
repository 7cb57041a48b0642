// Package fulfillment turns storefront order events into ledger recorder
// calls. Every recorder it calls is idempotent, so a redelivered event is
// safe to replay in full.
package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

// LineItem is one fulfilled line. Price is the unit price in Currency.
type LineItem struct {
	LineItemID string          `json:"lineItemId" validate:"required"`
	ProductID  string          `json:"productId"`
	VendorName string          `json:"vendorName"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Quantity   int64           `json:"quantity"`
	NFCTagged  bool            `json:"nfcTagged"`
}

type FulfillmentEvent struct {
	OrderID            string     `json:"orderId" validate:"required"`
	CustomerIdentifier string     `json:"customerIdentifier" validate:"required"`
	LineItems          []LineItem `json:"lineItems" validate:"required,min=1,dive"`
}

// RefundLine is one refunded line. Price is the refunded unit price.
type RefundLine struct {
	LineItemID string          `json:"lineItemId" validate:"required"`
	ProductID  string          `json:"productId"`
	VendorName string          `json:"vendorName" validate:"required"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Quantity   int64           `json:"quantity"`
}

type RefundEvent struct {
	OrderID   string       `json:"orderId" validate:"required"`
	RefundID  string       `json:"refundId"`
	Reason    string       `json:"reason"`
	LineItems []RefundLine `json:"lineItems" validate:"required,min=1,dive"`
}

// FulfillmentSummary totals what an event changed. Duplicates count zero.
type FulfillmentSummary struct {
	OrderID          string          `json:"orderId"`
	CreditsDeposited decimal.Decimal `json:"creditsDeposited"`
	RewardCredits    decimal.Decimal `json:"rewardCredits"`
	VendorUSDEarned  decimal.Decimal `json:"vendorUsdEarned"`
	LinesProcessed   int             `json:"linesProcessed"`
	LinesFailed      int             `json:"linesFailed"`
}

type RefundSummary struct {
	OrderID        string          `json:"orderId"`
	USDDeducted    decimal.Decimal `json:"usdDeducted"`
	LinesProcessed int             `json:"linesProcessed"`
	LinesFailed    int             `json:"linesFailed"`
}

type Service interface {
	HandleFulfillment(ctx context.Context, event FulfillmentEvent) (*FulfillmentSummary, error)
	HandleRefund(ctx context.Context, event RefundEvent) (*RefundSummary, error)
}

type service struct {
	recorders transactions.Service
	vendors   vendors.Service
	logg      *logger.Logger
}

func NewService(recorders transactions.Service, vendorSvc vendors.Service, logg *logger.Logger) (Service, error) {
	if recorders == nil {
		return nil, fmt.Errorf("transactions service required")
	}
	if vendorSvc == nil {
		return nil, fmt.Errorf("vendors service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{recorders: recorders, vendors: vendorSvc, logg: logg}, nil
}

// HandleFulfillment credits the collector, pays the vendor and grants the NFC
// reward for each line. Lines are independent; the returned error lists every
// failed line so the sender retries the whole event.
func (s *service) HandleFulfillment(ctx context.Context, event FulfillmentEvent) (*FulfillmentSummary, error) {
	orderID := strings.TrimSpace(event.OrderID)
	customer := strings.TrimSpace(event.CustomerIdentifier)
	if orderID == "" || customer == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and customer identifier are required")
	}
	if len(event.LineItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"order_id": orderID, "collector_identifier": customer})

	summary := &FulfillmentSummary{
		OrderID:          orderID,
		CreditsDeposited: decimal.Zero,
		RewardCredits:    decimal.Zero,
		VendorUSDEarned:  decimal.Zero,
	}
	var errs error
	for _, line := range event.LineItems {
		if err := s.fulfillLine(ctx, orderID, customer, line, summary); err != nil {
			summary.LinesFailed++
			errs = multierr.Append(errs, fmt.Errorf("line %s: %w", line.LineItemID, err))
			continue
		}
		summary.LinesProcessed++
	}
	if errs != nil {
		s.logg.Error(ctx, "fulfillment partially applied", errs)
		return summary, errs
	}
	s.logg.Info(ctx, "fulfillment applied")
	return summary, nil
}

func (s *service) fulfillLine(ctx context.Context, orderID, customer string, line LineItem, summary *FulfillmentSummary) error {
	quantity := line.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	total := line.Price.Mul(decimal.NewFromInt(quantity))

	var errs error
	deposit, err := s.recorders.DepositPurchaseCredits(ctx, transactions.PurchaseCreditInput{
		CollectorIdentifier: customer,
		OrderID:             orderID,
		LineItemID:          line.LineItemID,
		ProductID:           line.ProductID,
		Price:               total,
		Currency:            line.Currency,
	})
	if err != nil {
		errs = multierr.Append(errs, err)
	} else {
		summary.CreditsDeposited = summary.CreditsDeposited.Add(deposit.CreditsDeposited)
	}

	if strings.TrimSpace(line.VendorName) != "" {
		earning, err := s.recorders.RecordPayoutEarning(ctx, transactions.PayoutEarningInput{
			VendorName: line.VendorName,
			OrderID:    orderID,
			LineItemID: line.LineItemID,
			ProductID:  line.ProductID,
			UnitPrice:  line.Price,
			Currency:   line.Currency,
			Quantity:   quantity,
		})
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			summary.VendorUSDEarned = summary.VendorUSDEarned.Add(earning.USDEarned)
		}
	}

	if line.NFCTagged {
		reward, err := s.recorders.RecordNFCScanReward(ctx, transactions.NFCRewardInput{
			CollectorIdentifier: customer,
			LineItemID:          line.LineItemID,
			OrderID:             orderID,
			ProductID:           line.ProductID,
		})
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			summary.RewardCredits = summary.RewardCredits.Add(reward.CreditsDeposited)
		}
	}
	return errs
}

// HandleRefund deducts the vendor share of each refunded line, computed with
// the same rule that produced the earning.
func (s *service) HandleRefund(ctx context.Context, event RefundEvent) (*RefundSummary, error) {
	orderID := strings.TrimSpace(event.OrderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if len(event.LineItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"order_id": orderID, "refund_id": event.RefundID})

	summary := &RefundSummary{OrderID: orderID, USDDeducted: decimal.Zero}
	var errs error
	for _, line := range event.LineItems {
		deducted, err := s.refundLine(ctx, orderID, event, line)
		if err != nil {
			summary.LinesFailed++
			errs = multierr.Append(errs, fmt.Errorf("line %s: %w", line.LineItemID, err))
			continue
		}
		summary.LinesProcessed++
		summary.USDDeducted = summary.USDDeducted.Add(deducted)
	}
	if errs != nil {
		s.logg.Error(ctx, "refund partially applied", errs)
		return summary, errs
	}
	s.logg.Info(ctx, "refund applied")
	return summary, nil
}

func (s *service) refundLine(ctx context.Context, orderID string, event RefundEvent, line RefundLine) (decimal.Decimal, error) {
	vendor, err := s.vendors.GetByName(ctx, line.VendorName)
	if err != nil {
		return decimal.Zero, err
	}
	unitUSD, err := s.vendors.NormalizeToUSD(line.Price, line.Currency)
	if err != nil {
		return decimal.Zero, err
	}
	rule, err := s.vendors.ResolvePayoutRule(ctx, line.ProductID, vendor)
	if err != nil {
		return decimal.Zero, err
	}
	amount := rule.Amount(unitUSD, line.Quantity)
	if amount.IsZero() {
		return decimal.Zero, nil
	}
	reason := strings.TrimSpace(event.Reason)
	if reason == "" {
		reason = "Storefront refund"
	}
	res, err := s.recorders.RecordRefundDeduction(ctx, transactions.RefundDeductionInput{
		CollectorIdentifier: vendor.CollectorIdentifier,
		OrderID:             orderID,
		LineItemID:          line.LineItemID,
		RefundID:            event.RefundID,
		Amount:              amount,
		Reason:              reason,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return res.USDDeducted, nil
}
