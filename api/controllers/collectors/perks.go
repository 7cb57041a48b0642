package collectors

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/api/validators"
	"github.com/angelmondragon/artvault-backend/internal/perks"
	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

type perkService interface {
	RedeemPerk(ctx context.Context, input perks.RedeemInput) (*models.PerkRedemption, error)
	CheckPerkUnlockStatus(ctx context.Context, identifier string) (*perks.UnlockStatus, error)
	ListRedemptions(ctx context.Context, identifier string) ([]models.PerkRedemption, error)
}

type redeemRequest struct {
	PerkType   string `json:"perkType" validate:"required,oneof=lamp proof_print"`
	ProductKey string `json:"productKey" validate:"max=128"`
}

// PerkStatus reports unlock progress for every perk.
func PerkStatus(svc perkService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "perk service unavailable"))
			return
		}
		status, err := svc.CheckPerkUnlockStatus(r.Context(), identifierFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func PerkRedemptions(svc perkService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "perk service unavailable"))
			return
		}
		items, err := svc.ListRedemptions(r.Context(), identifierFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// RedeemPerk opens a pending redemption once the perk is unlocked.
func RedeemPerk(svc perkService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "perk service unavailable"))
			return
		}
		var req redeemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		perkType, err := enums.ParsePerkType(req.PerkType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid perk type"))
			return
		}
		redemption, err := svc.RedeemPerk(r.Context(), perks.RedeemInput{
			CollectorIdentifier: identifierFrom(r),
			PerkType:            perkType,
			ProductKey:          strings.TrimSpace(req.ProductKey),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, redemption)
	}
}
