package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
)

// Repository persists the vendor directory and per-product payout rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByName(ctx context.Context, name string) (*models.Vendor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	ListActive(ctx context.Context) ([]models.Vendor, error)
	Upsert(ctx context.Context, vendor *models.Vendor) error
	FindProductRule(ctx context.Context, productID string) (*models.ProductPayoutRule, error)
	UpsertProductRule(ctx context.Context, rule *models.ProductPayoutRule) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vendor repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

// Upsert inserts the vendor or updates its mutable fields by name.
func (r *repository) Upsert(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"paypal_email",
				"stripe_account_id",
				"default_payment_method",
				"payout_percentage",
				"payout_flat_rate",
				"tax_id",
				"legal_name",
				"tax_country",
				"active",
				"updated_at",
			}),
		}).
		Create(vendor).Error
}

func (r *repository) FindProductRule(ctx context.Context, productID string) (*models.ProductPayoutRule, error) {
	var rule models.ProductPayoutRule
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) UpsertProductRule(ctx context.Context, rule *models.ProductPayoutRule) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payout_percentage", "payout_flat_rate", "updated_at"}),
		}).
		Create(rule).Error
}
