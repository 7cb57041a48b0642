package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// Vendor is the directory row tying a storefront vendor name to its ledger
// identity and payout preferences.
type Vendor struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name                 string              `gorm:"column:name;not null;uniqueIndex" json:"name"`
	CollectorIdentifier  string              `gorm:"column:collector_identifier;not null;uniqueIndex" json:"collectorIdentifier"`
	PayPalEmail          *string             `gorm:"column:paypal_email" json:"paypalEmail,omitempty"`
	StripeAccountID      *string             `gorm:"column:stripe_account_id" json:"stripeAccountId,omitempty"`
	DefaultPaymentMethod enums.PaymentMethod `gorm:"column:default_payment_method;not null" json:"defaultPaymentMethod"`
	PayoutPercentage     decimal.NullDecimal `gorm:"column:payout_percentage;type:numeric(5,2)" json:"payoutPercentage"`
	PayoutFlatRate       decimal.NullDecimal `gorm:"column:payout_flat_rate;type:numeric(18,2)" json:"payoutFlatRate"`
	TaxID                *string             `gorm:"column:tax_id" json:"taxId,omitempty"`
	LegalName            *string             `gorm:"column:legal_name" json:"legalName,omitempty"`
	TaxCountry           *string             `gorm:"column:tax_country" json:"taxCountry,omitempty"`
	Active               bool                `gorm:"column:active;not null" json:"active"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Vendor) TableName() string { return "vendors" }

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	if v.DefaultPaymentMethod == "" {
		v.DefaultPaymentMethod = enums.PaymentMethodManual
	}
	return nil
}

// ProductPayoutRule overrides the vendor payout rule for a single product.
type ProductPayoutRule struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID        string              `gorm:"column:product_id;not null;uniqueIndex" json:"productId"`
	PayoutPercentage decimal.NullDecimal `gorm:"column:payout_percentage;type:numeric(5,2)" json:"payoutPercentage"`
	PayoutFlatRate   decimal.NullDecimal `gorm:"column:payout_flat_rate;type:numeric(18,2)" json:"payoutFlatRate"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (ProductPayoutRule) TableName() string { return "product_payout_rules" }

func (r *ProductPayoutRule) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
