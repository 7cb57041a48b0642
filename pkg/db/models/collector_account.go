package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// CollectorAccount is the registry row for any party holding a ledger balance.
// Rows are created on the first financial event and only ever deactivated.
type CollectorAccount struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CollectorIdentifier string              `gorm:"column:collector_identifier;not null;uniqueIndex"`
	AccountType         enums.AccountType   `gorm:"column:account_type;not null"`
	VendorID            *uuid.UUID          `gorm:"column:vendor_id;type:uuid"`
	AccountStatus       enums.AccountStatus `gorm:"column:account_status;not null"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (CollectorAccount) TableName() string { return "collector_accounts" }

func (a *CollectorAccount) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	if a.AccountStatus == "" {
		a.AccountStatus = enums.AccountStatusActive
	}
	return nil
}
