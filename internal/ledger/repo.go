package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// Repository manages persistence for ledger entries. Entries are insert-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.LedgerEntry) (bool, error)
	FindByDedupKey(ctx context.Context, key string) (*models.LedgerEntry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	ListByCollector(ctx context.Context, identifier string, currency *enums.Currency) ([]models.LedgerEntry, error)
	ListPage(ctx context.Context, identifier string, cursor *PageCursor, limit int) ([]models.LedgerEntry, error)
	ListByType(ctx context.Context, txType enums.TransactionType, currency enums.Currency) ([]models.LedgerEntry, error)
	ListByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.LedgerEntry, error)
	ListNegativeBalances(ctx context.Context) ([]NegativeBalance, error)
}

// NegativeBalance is an account whose raw sum in one currency is below zero.
type NegativeBalance struct {
	AccountID           uuid.UUID       `gorm:"column:account_id"`
	CollectorIdentifier string          `gorm:"column:collector_identifier"`
	Currency            enums.Currency  `gorm:"column:currency"`
	RawBalance          decimal.Decimal `gorm:"column:raw_balance"`
}

// PageCursor positions a newest-first statement page.
type PageCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Append inserts the entry unless its dedup key already exists. It reports
// whether a row was written; a false result with a nil error is a duplicate.
func (r *repository) Append(ctx context.Context, entry *models.LedgerEntry) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindByDedupKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("dedup_key = ?", key).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByCollector(ctx context.Context, identifier string, currency *enums.Currency) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := r.db.WithContext(ctx).Where("collector_identifier = ?", identifier)
	if currency != nil {
		query = query.Where("currency = ?", *currency)
	}
	if err := query.Order("created_at ASC").Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListPage(ctx context.Context, identifier string, cursor *PageCursor, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := r.db.WithContext(ctx).Where("collector_identifier = ?", identifier)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByType(ctx context.Context, txType enums.TransactionType, currency enums.Currency) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("transaction_type = ? AND currency = ?", txType, currency).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByPayout returns every entry correlated with the payout, oldest first.
func (r *repository) ListByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListNegativeBalances aggregates raw sums per account and currency and
// keeps only the negative ones.
func (r *repository) ListNegativeBalances(ctx context.Context) ([]NegativeBalance, error) {
	var rows []NegativeBalance
	err := r.db.WithContext(ctx).
		Table("ledger_entries AS l").
		Select("a.id AS account_id, l.collector_identifier, l.currency, SUM(l.amount) AS raw_balance").
		Joins("JOIN collector_accounts AS a ON a.collector_identifier = l.collector_identifier").
		Group("a.id, l.collector_identifier, l.currency").
		Having("SUM(l.amount) < 0").
		Order("l.collector_identifier").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IsNotFound reports whether err means no matching entry exists.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
