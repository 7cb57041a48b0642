package transactions

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditsPerDollar converts purchase value into reward credits.
const CreditsPerDollar = 10

// PurchaseCreditInput describes one fulfilled line item. Price is the line
// total in Currency (blank means USD).
type PurchaseCreditInput struct {
	CollectorIdentifier string          `json:"collectorIdentifier" validate:"required"`
	OrderID             string          `json:"orderId"`
	LineItemID          string          `json:"lineItemId" validate:"required"`
	ProductID           string          `json:"productId"`
	Price               decimal.Decimal `json:"price"`
	Currency            string          `json:"currency"`
}

type SpendInput struct {
	CollectorIdentifier string          `json:"collectorIdentifier" validate:"required"`
	Amount              decimal.Decimal `json:"amount"`
	PurchaseID          string          `json:"purchaseId"`
	OrderID             string          `json:"orderId"`
	Description         string          `json:"description"`
}

type NFCRewardInput struct {
	CollectorIdentifier string `json:"collectorIdentifier" validate:"required"`
	LineItemID          string `json:"lineItemId" validate:"required"`
	OrderID             string `json:"orderId"`
	ProductID           string `json:"productId"`
}

type SeriesRewardInput struct {
	CollectorIdentifier string `json:"collectorIdentifier" validate:"required"`
	SeriesID            string `json:"seriesId" validate:"required"`
}

// PayoutEarningInput credits a vendor's USD balance for one sold line item.
// UnitPrice is in Currency and normalized to USD before the rule applies.
type PayoutEarningInput struct {
	VendorName string          `json:"vendorName" validate:"required"`
	OrderID    string          `json:"orderId"`
	LineItemID string          `json:"lineItemId" validate:"required"`
	ProductID  string          `json:"productId"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Currency   string          `json:"currency"`
	Quantity   int64           `json:"quantity"`
}

// WithdrawalInput mirrors a rail-accepted payout into the ledger.
type WithdrawalInput struct {
	CollectorIdentifier string
	VendorID            uuid.UUID
	PayoutID            uuid.UUID
	Amount              decimal.Decimal
	Reference           string
	CreatedBy           string
}

// ReversalInput restores a withdrawal whose payout the rail later failed.
type ReversalInput struct {
	CollectorIdentifier string
	PayoutID            uuid.UUID
	Reason              string
}

// RefundDeductionInput reverses vendor earnings for a refunded order. Amount
// is the positive USD magnitude to deduct.
type RefundDeductionInput struct {
	CollectorIdentifier string          `json:"collectorIdentifier" validate:"required"`
	OrderID             string          `json:"orderId" validate:"required"`
	LineItemID          string          `json:"lineItemId"`
	RefundID            string          `json:"refundId"`
	Amount              decimal.Decimal `json:"amount"`
	Reason              string          `json:"reason"`
	CreatedBy           string          `json:"-"`
}

// AdjustmentInput is an operator correction. Amount is signed.
type AdjustmentInput struct {
	CollectorIdentifier string          `json:"collectorIdentifier" validate:"required"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency" validate:"required"`
	Reason              string          `json:"reason" validate:"required"`
	ReferenceEntryID    *uuid.UUID      `json:"referenceEntryId"`
	CreatedBy           string          `json:"-"`
}

// DepositResult is returned by every credit-granting recorder. A duplicate
// call reports zero deposited and the current balance.
type DepositResult struct {
	CollectorIdentifier string          `json:"collectorIdentifier"`
	CreditsDeposited    decimal.Decimal `json:"creditsDeposited"`
	Balance             decimal.Decimal `json:"balance"`
	Duplicate           bool            `json:"duplicate"`
	EntryID             *uuid.UUID      `json:"entryId,omitempty"`
}

type SpendResult struct {
	CollectorIdentifier string          `json:"collectorIdentifier"`
	CreditsSpent        decimal.Decimal `json:"creditsSpent"`
	Balance             decimal.Decimal `json:"balance"`
	EntryID             uuid.UUID       `json:"entryId"`
}

type PayoutEarningResult struct {
	VendorName          string          `json:"vendorName"`
	CollectorIdentifier string          `json:"collectorIdentifier"`
	USDEarned           decimal.Decimal `json:"usdEarned"`
	USDBalance          decimal.Decimal `json:"usdBalance"`
	RuleSource          string          `json:"ruleSource"`
	Duplicate           bool            `json:"duplicate"`
	EntryID             *uuid.UUID      `json:"entryId,omitempty"`
}

type WithdrawalResult struct {
	CollectorIdentifier string          `json:"collectorIdentifier"`
	USDWithdrawn        decimal.Decimal `json:"usdWithdrawn"`
	USDBalance          decimal.Decimal `json:"usdBalance"`
	Duplicate           bool            `json:"duplicate"`
	EntryID             uuid.UUID       `json:"entryId"`
}

// ReversalResult reports what a withdrawal reversal restored. Restored is
// zero when there was nothing left to reverse.
type ReversalResult struct {
	CollectorIdentifier string          `json:"collectorIdentifier"`
	USDRestored         decimal.Decimal `json:"usdRestored"`
	EntryIDs            []uuid.UUID     `json:"entryIds"`
}

type RefundResult struct {
	CollectorIdentifier string          `json:"collectorIdentifier"`
	USDDeducted         decimal.Decimal `json:"usdDeducted"`
	USDBalance          decimal.Decimal `json:"usdBalance"`
	Duplicate           bool            `json:"duplicate"`
	EntryID             uuid.UUID       `json:"entryId"`
}

type AdjustmentResult struct {
	CollectorIdentifier string          `json:"collectorIdentifier"`
	Currency            string          `json:"currency"`
	Amount              decimal.Decimal `json:"amount"`
	Balance             decimal.Decimal `json:"balance"`
	EntryID             uuid.UUID       `json:"entryId"`
}
