package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// LedgerEntry is one immutable, signed monetary fact. Balances are always
// derived by folding entries; nothing caches a running total.
type LedgerEntry struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CollectorIdentifier string                `gorm:"column:collector_identifier;not null;index" json:"collectorIdentifier"`
	TransactionType     enums.TransactionType `gorm:"column:transaction_type;not null" json:"transactionType"`
	Amount              decimal.Decimal       `gorm:"column:amount;type:numeric(18,2);not null" json:"amount"`
	Currency            enums.Currency        `gorm:"column:currency;not null" json:"currency"`
	OrderID             *string               `gorm:"column:order_id" json:"orderId,omitempty"`
	LineItemID          *string               `gorm:"column:line_item_id" json:"lineItemId,omitempty"`
	SubscriptionID      *uuid.UUID            `gorm:"column:subscription_id;type:uuid" json:"subscriptionId,omitempty"`
	PurchaseID          *string               `gorm:"column:purchase_id" json:"purchaseId,omitempty"`
	PayoutID            *uuid.UUID            `gorm:"column:payout_id;type:uuid" json:"payoutId,omitempty"`
	Description         string                `gorm:"column:description;not null" json:"description"`
	Metadata            json.RawMessage       `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	TaxYear             int                   `gorm:"column:tax_year;not null" json:"taxYear"`
	DedupKey            *string               `gorm:"column:dedup_key;uniqueIndex" json:"-"`
	CreatedBy           string                `gorm:"column:created_by;not null" json:"createdBy"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

func (e *LedgerEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.TaxYear == 0 {
		e.TaxYear = e.CreatedAt.Year()
	}
	if e.CreatedBy == "" {
		e.CreatedBy = "system"
	}
	return nil
}
