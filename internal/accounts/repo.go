package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/artvault-backend/pkg/db"
	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// Repository persists collector accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, account *models.CollectorAccount) error
	FindByIdentifier(ctx context.Context, identifier string) (*models.CollectorAccount, error)
	LockByIdentifier(ctx context.Context, identifier string) (*models.CollectorAccount, error)
	SetVendorID(ctx context.Context, id uuid.UUID, vendorID uuid.UUID) error
	UpdateStatus(ctx context.Context, identifier string, status enums.AccountStatus) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertIfAbsent(ctx context.Context, account *models.CollectorAccount) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collector_identifier"}},
			DoNothing: true,
		}).
		Create(account).Error
}

func (r *repository) FindByIdentifier(ctx context.Context, identifier string) (*models.CollectorAccount, error) {
	var account models.CollectorAccount
	if err := r.db.WithContext(ctx).
		Where("collector_identifier = ?", identifier).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// LockByIdentifier reads the account row with FOR UPDATE on Postgres so
// balance checks that follow are serialized per collector. SQLite has a
// single writer and needs no row lock.
func (r *repository) LockByIdentifier(ctx context.Context, identifier string) (*models.CollectorAccount, error) {
	query := r.db.WithContext(ctx)
	if db.IsPostgres(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var account models.CollectorAccount
	if err := query.
		Where("collector_identifier = ?", identifier).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) SetVendorID(ctx context.Context, id uuid.UUID, vendorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CollectorAccount{}).
		Where("id = ? AND vendor_id IS NULL", id).
		Update("vendor_id", vendorID).Error
}

func (r *repository) UpdateStatus(ctx context.Context, identifier string, status enums.AccountStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CollectorAccount{}).
		Where("collector_identifier = ?", identifier).
		Update("account_status", status)
	return res.RowsAffected, res.Error
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
