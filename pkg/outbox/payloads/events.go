package payloads

import (
	"time"

	"github.com/google/uuid"
)

// PayoutCompletedEvent is emitted when the rail confirms a vendor payout.
// The notification consumer turns it into an invoice.
type PayoutCompletedEvent struct {
	PayoutID            uuid.UUID `json:"payoutId"`
	VendorID            uuid.UUID `json:"vendorId"`
	VendorName          string    `json:"vendorName"`
	CollectorIdentifier string    `json:"collectorIdentifier"`
	Amount              string    `json:"amount"`
	Currency            string    `json:"currency"`
	PaymentMethod       string    `json:"paymentMethod"`
	Reference           string    `json:"reference,omitempty"`
	InvoiceNumber       string    `json:"invoiceNumber"`
	TaxID               string    `json:"taxId,omitempty"`
	LegalName           string    `json:"legalName,omitempty"`
	TaxCountry          string    `json:"taxCountry,omitempty"`
	CompletedAt         time.Time `json:"completedAt"`
}

// PayoutFailedEvent reports a payout the rail rejected.
type PayoutFailedEvent struct {
	PayoutID      uuid.UUID `json:"payoutId"`
	VendorID      uuid.UUID `json:"vendorId"`
	VendorName    string    `json:"vendorName"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"paymentMethod"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failedAt"`
}

// PerkRedeemedEvent is emitted once per pending redemption.
type PerkRedeemedEvent struct {
	RedemptionID          uuid.UUID `json:"redemptionId"`
	CollectorIdentifier   string    `json:"collectorIdentifier"`
	PerkType              string    `json:"perkType"`
	ProductKey            string    `json:"productKey,omitempty"`
	CreditsEarnedAtUnlock string    `json:"creditsEarnedAtUnlock"`
	RedeemedAt            time.Time `json:"redeemedAt"`
}

// NegativeBalanceEvent flags an account whose raw ledger sum went below zero.
type NegativeBalanceEvent struct {
	AccountID           uuid.UUID `json:"accountId"`
	CollectorIdentifier string    `json:"collectorIdentifier"`
	Currency            string    `json:"currency"`
	RawBalance          string    `json:"rawBalance"`
	DetectedAt          time.Time `json:"detectedAt"`
}
