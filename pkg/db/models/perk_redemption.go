package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// PerkRedemption records a collector claiming a perk. At most one pending
// redemption exists per (collector, perk, product).
type PerkRedemption struct {
	ID                    uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CollectorIdentifier   string                 `gorm:"column:collector_identifier;not null;index" json:"collectorIdentifier"`
	PerkType              enums.PerkType         `gorm:"column:perk_type;not null" json:"perkType"`
	ProductKey            string                 `gorm:"column:product_key;not null" json:"productKey"`
	UnlockedAt            time.Time              `gorm:"column:unlocked_at;not null" json:"unlockedAt"`
	CreditsEarnedAtUnlock decimal.Decimal        `gorm:"column:credits_earned_at_unlock;not null" json:"creditsEarnedAtUnlock"`
	RedemptionStatus      enums.RedemptionStatus `gorm:"column:redemption_status;not null" json:"redemptionStatus"`
	FulfilledAt           *time.Time             `gorm:"column:fulfilled_at" json:"fulfilledAt,omitempty"`
	CancelledAt           *time.Time             `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt             time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (PerkRedemption) TableName() string { return "perk_redemptions" }

func (r *PerkRedemption) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	if r.RedemptionStatus == "" {
		r.RedemptionStatus = enums.RedemptionStatusPending
	}
	return nil
}
