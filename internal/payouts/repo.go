package payouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// Repository persists vendor payouts. Status changes go through Transition,
// a compare-and-set on the current status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.VendorPayout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error)
	Transition(ctx context.Context, id uuid.UUID, from []enums.PayoutStatus, to enums.PayoutStatus, updates map[string]any) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListByStatus(ctx context.Context, status enums.PayoutStatus, method *enums.PaymentMethod, limit int) ([]models.VendorPayout, error)
	ListCompleted(ctx context.Context) ([]models.VendorPayout, error)
	LastCompletedByVendor(ctx context.Context) (map[uuid.UUID]models.VendorPayout, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.VendorPayout, error)
	SumUnsettled(ctx context.Context, vendorID uuid.UUID, exclude uuid.UUID) (decimal.Decimal, error)
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

func (r *repository) Create(ctx context.Context, payout *models.VendorPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorPayout, error) {
	var payout models.VendorPayout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

// Transition moves the payout to `to` only while its status is one of
// `from`. It reports false when another writer got there first and errors
// when a source status may not move to `to` at all.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from []enums.PayoutStatus, to enums.PayoutStatus, updates map[string]any) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("at least one source status required")
	}
	for _, status := range from {
		if !status.CanTransitionTo(to) {
			return false, fmt.Errorf("payout cannot move from %s to %s", status, to)
		}
	}
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.VendorPayout{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.VendorPayout{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.PayoutStatus, method *enums.PaymentMethod, limit int) ([]models.VendorPayout, error) {
	var payouts []models.VendorPayout
	query := r.db.WithContext(ctx).Where("status = ?", status)
	if method != nil {
		query = query.Where("payment_method = ?", *method)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("created_at ASC").Order("id ASC").Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) ListCompleted(ctx context.Context) ([]models.VendorPayout, error) {
	return r.ListByStatus(ctx, enums.PayoutStatusCompleted, nil, 0)
}

// LastCompletedByVendor returns the most recent completed payout per vendor.
func (r *repository) LastCompletedByVendor(ctx context.Context) (map[uuid.UUID]models.VendorPayout, error) {
	var payouts []models.VendorPayout
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.PayoutStatusCompleted).
		Order("completed_at DESC").
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	latest := make(map[uuid.UUID]models.VendorPayout, len(payouts))
	for _, payout := range payouts {
		if _, seen := latest[payout.VendorID]; !seen {
			latest[payout.VendorID] = payout
		}
	}
	return latest, nil
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.VendorPayout, error) {
	var payouts []models.VendorPayout
	query := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

// SumUnsettled totals the vendor's pending and processing payouts whose
// withdrawal is not on the ledger yet. Those amounts are promised to a rail
// but not yet subtracted from the balance.
func (r *repository) SumUnsettled(ctx context.Context, vendorID uuid.UUID, exclude uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal `gorm:"column:total"`
	}
	err := r.db.WithContext(ctx).
		Table("vendor_payouts AS p").
		Select("SUM(p.amount) AS total").
		Where("p.vendor_id = ? AND p.id <> ?", vendorID, exclude).
		Where("p.status IN ?", []enums.PayoutStatus{enums.PayoutStatusPending, enums.PayoutStatusProcessing}).
		Where("COALESCE((SELECT SUM(l.amount) FROM ledger_entries AS l WHERE l.payout_id = p.id), 0) >= 0").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}
