// Package admin serves the operator console under /api/admin/v1.
package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/artvault-backend/api/middleware"
	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/api/validators"
	"github.com/angelmondragon/artvault-backend/internal/payouts"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

func payoutIDFrom(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "payoutId")))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout id")
	}
	return id, nil
}

// actorFrom names the operator for audit columns.
func actorFrom(ctx context.Context) string {
	if actor := middleware.CollectorIdentifierFromContext(ctx); actor != "" {
		return actor
	}
	return "admin"
}

// PayoutBatch runs one payout per candidate. The response is 200 even when
// individual vendors fail; each result carries its own outcome.
func PayoutBatch(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		var req payouts.BatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req.Notes = validators.SanitizeString(req.Notes, 500)
		req.CreatedBy = actorFrom(r.Context())

		results, err := svc.ProcessBatch(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		succeeded := 0
		for _, res := range results {
			if res.Success {
				succeeded++
			}
		}
		responses.WriteSuccess(w, map[string]any{
			"results":   results,
			"total":     len(results),
			"succeeded": succeeded,
			"failed":    len(results) - succeeded,
		})
	}
}

// PayoutList filters payouts by status, method and vendor.
func PayoutList(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		query := r.URL.Query()
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := payouts.ListFilter{
			VendorName: strings.TrimSpace(query.Get("vendor")),
			Limit:      limit,
		}
		if filter.Status, err = validators.ParseQueryEnum(r, "status", enums.ParsePayoutStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Method, err = validators.ParseQueryEnum(r, "method", enums.ParsePaymentMethod); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListPayouts(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func PayoutDetail(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		id, err := payoutIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.GetPayout(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// PayoutProcess sends a pending or failed payout through its rail again.
func PayoutProcess(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		id, err := payoutIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ProcessPayout(r.Context(), id, actorFrom(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PayoutWithdrawal records the missing withdrawal for a completed payout.
// Safe to call repeatedly; a second call reports zero withdrawn.
func PayoutWithdrawal(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		id, err := payoutIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RetryWithdrawal(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
