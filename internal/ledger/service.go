package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/pagination"
)

// Service is the append-only ledger store.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordEntry(ctx context.Context, input RecordEntryInput) (*AppendResult, error)
	FindEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, identifier string, currency *enums.Currency) ([]models.LedgerEntry, error)
	ListStatement(ctx context.Context, identifier string, params pagination.Params) (*StatementPage, error)
	ListByType(ctx context.Context, txType enums.TransactionType, currency enums.Currency) ([]models.LedgerEntry, error)
	ListByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.LedgerEntry, error)
	ListNegativeBalances(ctx context.Context) ([]NegativeBalance, error)
}

// RecordEntryInput captures the immutable data a ledger entry requires.
type RecordEntryInput struct {
	CollectorIdentifier string
	TransactionType     enums.TransactionType
	Amount              decimal.Decimal
	Currency            enums.Currency
	OrderID             *string
	LineItemID          *string
	SubscriptionID      *uuid.UUID
	PurchaseID          *string
	PayoutID            *uuid.UUID
	Description         string
	Metadata            map[string]any
	DedupKey            string
	CreatedBy           string
	OccurredAt          time.Time
}

// AppendResult reports the stored entry and whether this call wrote it.
type AppendResult struct {
	Entry    *models.LedgerEntry
	Inserted bool
}

// StatementPage is a newest-first page of a collector's entries.
type StatementPage struct {
	Entries    []models.LedgerEntry `json:"entries"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// RecordEntry validates and appends one entry. When the entry carries a
// dedup key that already exists, the stored entry is returned with
// Inserted=false instead of an error.
func (s *service) RecordEntry(ctx context.Context, input RecordEntryInput) (*AppendResult, error) {
	entry, err := buildEntry(input)
	if err != nil {
		return nil, err
	}

	inserted, err := s.repo.Append(ctx, entry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("append %s entry for %s", entry.TransactionType, entry.CollectorIdentifier))
	}
	if inserted {
		return &AppendResult{Entry: entry, Inserted: true}, nil
	}
	if entry.DedupKey == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger insert affected no rows")
	}

	existing, err := s.repo.FindByDedupKey(ctx, *entry.DedupKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing ledger entry")
	}
	return &AppendResult{Entry: existing, Inserted: false}, nil
}

func buildEntry(input RecordEntryInput) (*models.LedgerEntry, error) {
	identifier := strings.TrimSpace(input.CollectorIdentifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	if !input.TransactionType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.TransactionType))
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}

	amount := input.Amount.Round(2)
	if amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}
	switch input.TransactionType.Sign() {
	case enums.SignPositive:
		if amount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s amount must be positive", input.TransactionType))
		}
	case enums.SignNegative:
		if amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s amount must be negative", input.TransactionType))
		}
	}

	var metadata json.RawMessage
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata must be a json object")
		}
		metadata = raw
	}

	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	occurred = occurred.UTC()

	entry := &models.LedgerEntry{
		CollectorIdentifier: identifier,
		TransactionType:     input.TransactionType,
		Amount:              amount,
		Currency:            input.Currency,
		OrderID:             input.OrderID,
		LineItemID:          input.LineItemID,
		SubscriptionID:      input.SubscriptionID,
		PurchaseID:          input.PurchaseID,
		PayoutID:            input.PayoutID,
		Description:         input.Description,
		Metadata:            metadata,
		TaxYear:             occurred.Year(),
		CreatedBy:           strings.TrimSpace(input.CreatedBy),
		CreatedAt:           occurred,
	}
	if key := strings.TrimSpace(input.DedupKey); key != "" {
		entry.DedupKey = &key
	}
	return entry, nil
}

func (s *service) FindEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	return entry, nil
}

func (s *service) ListEntries(ctx context.Context, identifier string, currency *enums.Currency) ([]models.LedgerEntry, error) {
	entries, err := s.repo.ListByCollector(ctx, identifier, currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("list ledger entries for %s", identifier))
	}
	return entries, nil
}

func (s *service) ListStatement(ctx context.Context, identifier string, params pagination.Params) (*StatementPage, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var pageCursor *PageCursor
	if cursor != nil {
		pageCursor = &PageCursor{CreatedAt: cursor.CreatedAt, ID: cursor.ID}
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListPage(ctx, identifier, pageCursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger statement")
	}

	page := &StatementPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (s *service) ListByType(ctx context.Context, txType enums.TransactionType, currency enums.Currency) ([]models.LedgerEntry, error) {
	entries, err := s.repo.ListByType(ctx, txType, currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("list %s entries", txType))
	}
	return entries, nil
}

func (s *service) ListByPayout(ctx context.Context, payoutID uuid.UUID) ([]models.LedgerEntry, error) {
	entries, err := s.repo.ListByPayout(ctx, payoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout entries")
	}
	return entries, nil
}

func (s *service) ListNegativeBalances(ctx context.Context) ([]NegativeBalance, error) {
	rows, err := s.repo.ListNegativeBalances(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate negative balances")
	}
	return rows, nil
}

// ParseAmount converts external input into a decimal amount, rejecting
// anything that is not a plain finite number.
func ParseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount is required")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("amount %q is not a number", raw))
	}
	return amount, nil
}
