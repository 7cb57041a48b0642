package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// Repository persists credit subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.CreditSubscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CreditSubscription, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.CreditSubscription, error)
	ListByCollector(ctx context.Context, identifier string) ([]models.CreditSubscription, error)
	AdvanceNextBilling(ctx context.Context, id uuid.UUID, from, next time.Time) (int64, error)
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.CreditSubscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CreditSubscription, error) {
	var sub models.CreditSubscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.CreditSubscription, error) {
	var subs []models.CreditSubscription
	query := r.db.WithContext(ctx).
		Where("status = ? AND next_billing_at <= ?", enums.SubscriptionStatusActive, now.UTC()).
		Order("next_billing_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) ListByCollector(ctx context.Context, identifier string) ([]models.CreditSubscription, error) {
	var subs []models.CreditSubscription
	if err := r.db.WithContext(ctx).
		Where("collector_identifier = ?", identifier).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// AdvanceNextBilling moves next_billing_at only if it still equals from, so
// two workers crediting the same cycle cannot advance it twice.
func (r *repository) AdvanceNextBilling(ctx context.Context, id uuid.UUID, from, next time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CreditSubscription{}).
		Where("id = ? AND next_billing_at = ?", id, from.UTC()).
		Update("next_billing_at", next.UTC())
	return res.RowsAffected, res.Error
}

func (r *repository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CreditSubscription{}).
		Where("id = ? AND status = ?", id, enums.SubscriptionStatusActive).
		Updates(map[string]any{
			"status":       enums.SubscriptionStatusCancelled,
			"cancelled_at": at.UTC(),
		})
	return res.RowsAffected, res.Error
}
