package admin

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/api/validators"
	"github.com/angelmondragon/artvault-backend/internal/banking"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

type adjustmentRequest struct {
	CollectorIdentifier string          `json:"collectorIdentifier" validate:"required"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency" validate:"required"`
	Reason              string          `json:"reason" validate:"required,max=500"`
	ReferenceEntryID    *uuid.UUID      `json:"referenceEntryId"`
}

type refundDeductionRequest struct {
	CollectorIdentifier string          `json:"collectorIdentifier" validate:"required"`
	OrderID             string          `json:"orderId" validate:"required"`
	LineItemID          string          `json:"lineItemId"`
	RefundID            string          `json:"refundId"`
	Amount              decimal.Decimal `json:"amount"`
	Reason              string          `json:"reason" validate:"max=500"`
}

func VendorBalances(svc banking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banking service unavailable"))
			return
		}
		items, err := svc.GetAllVendorBalances(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// Integrity reconciles completed payouts against withdrawal entries.
func Integrity(svc banking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banking service unavailable"))
			return
		}
		report, err := svc.VerifyPlatformIntegrity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func Adjustment(svc banking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banking service unavailable"))
			return
		}
		var req adjustmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RecordAdjustment(r.Context(), transactions.AdjustmentInput{
			CollectorIdentifier: req.CollectorIdentifier,
			Amount:              req.Amount,
			Currency:            req.Currency,
			Reason:              validators.SanitizeString(req.Reason, 500),
			ReferenceEntryID:    req.ReferenceEntryID,
			CreatedBy:           actorFrom(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func RefundDeduction(svc banking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banking service unavailable"))
			return
		}
		var req refundDeductionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RecordRefundDeduction(r.Context(), transactions.RefundDeductionInput{
			CollectorIdentifier: req.CollectorIdentifier,
			OrderID:             req.OrderID,
			LineItemID:          req.LineItemID,
			RefundID:            req.RefundID,
			Amount:              req.Amount,
			Reason:              validators.SanitizeString(req.Reason, 500),
			CreatedBy:           actorFrom(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
