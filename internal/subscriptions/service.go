package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
)

// BillingCycle is the fixed interval between subscription credit grants.
const BillingCycle = 30 * 24 * time.Hour

// Service manages recurring credit subscriptions. Crediting itself lives in
// the transaction recorders so the ledger write and the billing advance
// share one transaction.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Create(ctx context.Context, input CreateInput) (*models.CreditSubscription, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CreditSubscription, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.CreditSubscription, error)
	ListForCollector(ctx context.Context, identifier string) ([]models.CreditSubscription, error)
	AdvanceBilling(ctx context.Context, sub *models.CreditSubscription) (time.Time, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// CreateInput starts a subscription; the first grant is due at FirstBillingAt
// (defaults to now).
type CreateInput struct {
	CollectorIdentifier string     `json:"collectorIdentifier" validate:"required"`
	CreditsPerCycle     int64      `json:"creditsPerCycle" validate:"required,gt=0"`
	FirstBillingAt      *time.Time `json:"firstBillingAt"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the subscription service.
func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), now: s.now}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.CreditSubscription, error) {
	identifier := strings.TrimSpace(input.CollectorIdentifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	if input.CreditsPerCycle <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credits per cycle must be positive")
	}
	first := s.now().UTC()
	if input.FirstBillingAt != nil {
		first = input.FirstBillingAt.UTC()
	}
	sub := &models.CreditSubscription{
		CollectorIdentifier: identifier,
		CreditsPerCycle:     input.CreditsPerCycle,
		Status:              enums.SubscriptionStatusActive,
		NextBillingAt:       first,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}
	return sub, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.CreditSubscription, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	return sub, nil
}

func (s *service) ListDue(ctx context.Context, now time.Time, limit int) ([]models.CreditSubscription, error) {
	subs, err := s.repo.ListDue(ctx, now, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due subscriptions")
	}
	return subs, nil
}

func (s *service) ListForCollector(ctx context.Context, identifier string) ([]models.CreditSubscription, error) {
	subs, err := s.repo.ListByCollector(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return subs, nil
}

// AdvanceBilling pushes next_billing_at forward by one cycle. A concurrent
// advance surfaces as a state conflict so the caller's transaction rolls back.
func (s *service) AdvanceBilling(ctx context.Context, sub *models.CreditSubscription) (time.Time, error) {
	if sub == nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}
	next := sub.NextBillingAt.UTC().Add(BillingCycle)
	affected, err := s.repo.AdvanceNextBilling(ctx, sub.ID, sub.NextBillingAt, next)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance subscription billing")
	}
	if affected == 0 {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription billing already advanced")
	}
	sub.NextBillingAt = next
	return next, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Cancel(ctx, id, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not active")
	}
	return nil
}
