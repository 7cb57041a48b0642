package admin

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/api/validators"
	"github.com/angelmondragon/artvault-backend/internal/perks"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

type redemptionUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=fulfilled cancelled"`
}

// PerkRedemptionUpdate moves a pending redemption to fulfilled or cancelled.
func PerkRedemptionUpdate(svc perks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "perk service unavailable"))
			return
		}
		id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "redemptionId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid redemption id"))
			return
		}
		var req redemptionUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseRedemptionStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		redemption, err := svc.UpdateRedemptionStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, redemption)
	}
}
