// Package perks unlocks physical perks from lifetime credit earnings. A perk
// costs nothing once unlocked, so redemption never writes to the ledger.
package perks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/internal/balances"
	"github.com/angelmondragon/artvault-backend/pkg/db"
	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/outbox"
	"github.com/angelmondragon/artvault-backend/pkg/outbox/payloads"
)

type Service interface {
	RedeemPerk(ctx context.Context, input RedeemInput) (*models.PerkRedemption, error)
	CheckPerkUnlockStatus(ctx context.Context, identifier string) (*UnlockStatus, error)
	UpdateRedemptionStatus(ctx context.Context, redemptionID uuid.UUID, status enums.RedemptionStatus) (*models.PerkRedemption, error)
	ListRedemptions(ctx context.Context, identifier string) ([]models.PerkRedemption, error)
}

type RedeemInput struct {
	CollectorIdentifier string         `json:"-"`
	PerkType            enums.PerkType `json:"perkType" validate:"required,oneof=lamp proof_print"`
	ProductKey          string         `json:"productKey"`
}

// Progress is the unlock state of one perk.
type Progress struct {
	PerkType           enums.PerkType  `json:"perkType"`
	Unlocked           bool            `json:"unlocked"`
	Threshold          int64           `json:"threshold"`
	CreditsEarned      decimal.Decimal `json:"creditsEarned"`
	CreditsRemaining   decimal.Decimal `json:"creditsRemaining"`
	Percentage         decimal.Decimal `json:"percentage"`
	PendingRedemptions int             `json:"pendingRedemptions"`
	TotalRedemptions   int             `json:"totalRedemptions"`
}

type UnlockStatus struct {
	CollectorIdentifier string          `json:"collectorIdentifier"`
	TotalCreditsEarned  decimal.Decimal `json:"totalCreditsEarned"`
	Lamp                Progress        `json:"lamp"`
	ProofPrint          Progress        `json:"proofPrint"`
}

type ServiceParams struct {
	Tx       db.TxRunner
	Repo     Repository
	Balances balances.Service
	Outbox   outbox.Emitter
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	tx       db.TxRunner
	repo     Repository
	balances balances.Service
	outbox   outbox.Emitter
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("perk repository required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balances service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		balances: params.Balances,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// RedeemPerk creates a pending redemption once lifetime earnings reach the
// perk threshold. Spending credits never revokes eligibility.
func (s *service) RedeemPerk(ctx context.Context, input RedeemInput) (*models.PerkRedemption, error) {
	identifier := strings.TrimSpace(input.CollectorIdentifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	if !input.PerkType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid perk type %q", input.PerkType))
	}
	productKey := strings.TrimSpace(input.ProductKey)

	earned, err := s.balances.GetTotalCreditsEarned(ctx, identifier)
	if err != nil {
		return nil, err
	}
	threshold := decimal.NewFromInt(input.PerkType.Threshold())
	if earned.LessThan(threshold) {
		return nil, pkgerrors.New(pkgerrors.CodeNotUnlocked, fmt.Sprintf("%s is not unlocked", input.PerkType)).
			WithDetails(map[string]any{
				"required": threshold.String(),
				"earned":   earned.String(),
			})
	}

	now := s.now().UTC()
	redemption := &models.PerkRedemption{
		CollectorIdentifier:   identifier,
		PerkType:              input.PerkType,
		ProductKey:            productKey,
		UnlockedAt:            now,
		CreditsEarnedAtUnlock: earned,
		RedemptionStatus:      enums.RedemptionStatusPending,
	}
	alreadyRedeemed := pkgerrors.New(pkgerrors.CodeAlreadyRedeemed, fmt.Sprintf("%s already has a pending redemption", input.PerkType))

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindPending(ctx, identifier, input.PerkType, productKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending redemption")
		}
		if existing != nil {
			return alreadyRedeemed
		}
		if err := repo.Create(ctx, redemption); err != nil {
			if db.IsUniqueViolation(err, "") {
				return alreadyRedeemed
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create perk redemption")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPerkRedeemed,
			AggregateType: enums.AggregatePerkRedemption,
			AggregateID:   redemption.ID,
			Actor:         &outbox.ActorRef{Identifier: identifier, Role: "collector"},
			OccurredAt:    now,
			Data: payloads.PerkRedeemedEvent{
				RedemptionID:          redemption.ID,
				CollectorIdentifier:   identifier,
				PerkType:              string(input.PerkType),
				ProductKey:            productKey,
				CreditsEarnedAtUnlock: earned.String(),
				RedeemedAt:            now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"collector_identifier": identifier,
		"perk_type":            string(input.PerkType),
		"redemption_id":        redemption.ID.String(),
	}), "perk redeemed")
	return redemption, nil
}

func (s *service) CheckPerkUnlockStatus(ctx context.Context, identifier string) (*UnlockStatus, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	earned, err := s.balances.GetTotalCreditsEarned(ctx, identifier)
	if err != nil {
		return nil, err
	}
	redemptions, err := s.repo.ListByCollector(ctx, identifier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list perk redemptions")
	}
	return &UnlockStatus{
		CollectorIdentifier: identifier,
		TotalCreditsEarned:  earned,
		Lamp:                progressFor(enums.PerkTypeLamp, earned, redemptions),
		ProofPrint:          progressFor(enums.PerkTypeProofPrint, earned, redemptions),
	}, nil
}

func progressFor(perkType enums.PerkType, earned decimal.Decimal, redemptions []models.PerkRedemption) Progress {
	threshold := decimal.NewFromInt(perkType.Threshold())
	hundred := decimal.NewFromInt(100)
	pct := earned.Div(threshold).Mul(hundred).Round(2)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	remaining := threshold.Sub(earned)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	p := Progress{
		PerkType:         perkType,
		Unlocked:         !earned.LessThan(threshold),
		Threshold:        perkType.Threshold(),
		CreditsEarned:    earned,
		CreditsRemaining: remaining,
		Percentage:       pct,
	}
	for _, r := range redemptions {
		if r.PerkType != perkType {
			continue
		}
		if r.RedemptionStatus != enums.RedemptionStatusCancelled {
			p.TotalRedemptions++
		}
		if r.RedemptionStatus == enums.RedemptionStatusPending {
			p.PendingRedemptions++
		}
	}
	return p
}

// UpdateRedemptionStatus settles a pending redemption.
func (s *service) UpdateRedemptionStatus(ctx context.Context, redemptionID uuid.UUID, status enums.RedemptionStatus) (*models.PerkRedemption, error) {
	if status != enums.RedemptionStatusFulfilled && status != enums.RedemptionStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be fulfilled or cancelled")
	}
	current, err := s.repo.FindByID(ctx, redemptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "redemption not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load redemption")
	}
	if current.RedemptionStatus != enums.RedemptionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("redemption is already %s", current.RedemptionStatus))
	}
	ok, err := s.repo.UpdateStatus(ctx, redemptionID, enums.RedemptionStatusPending, status, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update redemption")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "redemption changed concurrently")
	}
	return s.repo.FindByID(ctx, redemptionID)
}

func (s *service) ListRedemptions(ctx context.Context, identifier string) ([]models.PerkRedemption, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required")
	}
	rows, err := s.repo.ListByCollector(ctx, identifier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list perk redemptions")
	}
	return rows, nil
}
