package perks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, redemption *models.PerkRedemption) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PerkRedemption, error)
	FindPending(ctx context.Context, identifier string, perkType enums.PerkType, productKey string) (*models.PerkRedemption, error)
	ListByCollector(ctx context.Context, identifier string) ([]models.PerkRedemption, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.RedemptionStatus, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, redemption *models.PerkRedemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PerkRedemption, error) {
	var row models.PerkRedemption
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindPending returns nil, nil when no pending redemption exists.
func (r *repository) FindPending(ctx context.Context, identifier string, perkType enums.PerkType, productKey string) (*models.PerkRedemption, error) {
	var row models.PerkRedemption
	err := r.db.WithContext(ctx).
		Where("collector_identifier = ? AND perk_type = ? AND product_key = ? AND redemption_status = ?",
			identifier, perkType, productKey, enums.RedemptionStatusPending).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByCollector(ctx context.Context, identifier string) ([]models.PerkRedemption, error) {
	var rows []models.PerkRedemption
	if err := r.db.WithContext(ctx).
		Where("collector_identifier = ?", identifier).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.RedemptionStatus, at time.Time) (bool, error) {
	updates := map[string]any{"redemption_status": to}
	switch to {
	case enums.RedemptionStatusFulfilled:
		updates["fulfilled_at"] = at
	case enums.RedemptionStatusCancelled:
		updates["cancelled_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.PerkRedemption{}).
		Where("id = ? AND redemption_status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
