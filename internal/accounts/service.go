package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
)

// Service is the account registry: one row per collector identifier.
type Service interface {
	WithTx(tx *gorm.DB) Service
	EnsureAccount(ctx context.Context, identifier string, accountType enums.AccountType, vendorID *uuid.UUID) (*models.CollectorAccount, error)
	GetAccount(ctx context.Context, identifier string) (*models.CollectorAccount, error)
	LockAccount(ctx context.Context, identifier string) (*models.CollectorAccount, error)
	Deactivate(ctx context.Context, identifier string) error
}

type service struct {
	repo Repository
}

// NewService wires the registry with its repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// EnsureAccount is an idempotent upsert keyed by identifier. An existing row
// keeps its type; a missing vendor link is backfilled.
func (s *service) EnsureAccount(ctx context.Context, identifier string, accountType enums.AccountType, vendorID *uuid.UUID) (*models.CollectorAccount, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	if !accountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid account type %q", accountType))
	}

	candidate := &models.CollectorAccount{
		CollectorIdentifier: identifier,
		AccountType:         accountType,
		VendorID:            vendorID,
		AccountStatus:       enums.AccountStatusActive,
	}
	if err := s.repo.InsertIfAbsent(ctx, candidate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("ensure account %s", identifier))
	}

	account, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("load account %s", identifier))
	}

	if vendorID != nil && account.VendorID == nil {
		if err := s.repo.SetVendorID(ctx, account.ID, *vendorID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("link vendor to account %s", identifier))
		}
		account.VendorID = vendorID
	}
	return account, nil
}

func (s *service) GetAccount(ctx context.Context, identifier string) (*models.CollectorAccount, error) {
	account, err := s.repo.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

// LockAccount must run inside a transaction; see Repository.LockByIdentifier.
func (s *service) LockAccount(ctx context.Context, identifier string) (*models.CollectorAccount, error) {
	account, err := s.repo.LockByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock account")
	}
	return account, nil
}

// Deactivate flags the account inactive. Accounts are never deleted so the
// ledger keeps a registry row for every identifier it references.
func (s *service) Deactivate(ctx context.Context, identifier string) error {
	affected, err := s.repo.UpdateStatus(ctx, strings.TrimSpace(identifier), enums.AccountStatusInactive)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate account")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return nil
}
