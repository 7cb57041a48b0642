package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// VendorPayout is one real-money transfer to a vendor through an external rail.
type VendorPayout struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VendorID            uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index" json:"vendorId"`
	VendorName          string              `gorm:"column:vendor_name;not null" json:"vendorName"`
	CollectorIdentifier string              `gorm:"column:collector_identifier;not null" json:"collectorIdentifier"`
	Amount              decimal.Decimal     `gorm:"column:amount;type:numeric(18,2);not null" json:"amount"`
	Currency            enums.Currency      `gorm:"column:currency;not null" json:"currency"`
	Status              enums.PayoutStatus  `gorm:"column:status;not null;index" json:"status"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;not null" json:"paymentMethod"`
	PayeeAddress        *string             `gorm:"column:payee_address" json:"payeeAddress,omitempty"`
	Reference           *string             `gorm:"column:reference" json:"reference,omitempty"`
	InvoiceNumber       *string             `gorm:"column:invoice_number" json:"invoiceNumber,omitempty"`
	Notes               *string             `gorm:"column:notes" json:"notes,omitempty"`
	RailBatchID         *string             `gorm:"column:rail_batch_id" json:"railBatchId,omitempty"`
	RailTransferID      *string             `gorm:"column:rail_transfer_id" json:"railTransferId,omitempty"`
	FailureReason       *string             `gorm:"column:failure_reason" json:"failureReason,omitempty"`
	CreatedBy           string              `gorm:"column:created_by;not null" json:"createdBy"`
	ProcessedAt         *time.Time          `gorm:"column:processed_at" json:"processedAt,omitempty"`
	CompletedAt         *time.Time          `gorm:"column:completed_at" json:"completedAt,omitempty"`
	FailedAt            *time.Time          `gorm:"column:failed_at" json:"failedAt,omitempty"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (VendorPayout) TableName() string { return "vendor_payouts" }

func (p *VendorPayout) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Status == "" {
		p.Status = enums.PayoutStatusPending
	}
	if p.Currency == "" {
		p.Currency = enums.CurrencyUSD
	}
	return nil
}
