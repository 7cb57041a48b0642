package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// CreditSubscription grants CreditsPerCycle credits every 30 days while active.
type CreditSubscription struct {
	ID                  uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	CollectorIdentifier string                   `gorm:"column:collector_identifier;not null;index"`
	CreditsPerCycle     int64                    `gorm:"column:credits_per_cycle;not null"`
	Status              enums.SubscriptionStatus `gorm:"column:status;not null"`
	NextBillingAt       time.Time                `gorm:"column:next_billing_at;not null"`
	CancelledAt         *time.Time               `gorm:"column:cancelled_at"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (CreditSubscription) TableName() string { return "credit_subscriptions" }

func (s *CreditSubscription) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	if s.Status == "" {
		s.Status = enums.SubscriptionStatusActive
	}
	return nil
}
