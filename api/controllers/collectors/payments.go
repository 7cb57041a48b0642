package collectors

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/api/validators"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

type creditSpender interface {
	SpendCredits(ctx context.Context, input transactions.SpendInput) (*transactions.SpendResult, error)
}

type paymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PurchaseID  string          `json:"purchaseId" validate:"max=128"`
	OrderID     string          `json:"orderId" validate:"max=128"`
	Description string          `json:"description" validate:"max=255"`
}

// CreditPayment spends credits toward a purchase. Overdrafts fail with
// INSUFFICIENT_BALANCE and write nothing.
func CreditPayment(svc creditSpender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}
		var req paymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SpendCredits(r.Context(), transactions.SpendInput{
			CollectorIdentifier: identifierFrom(r),
			Amount:              req.Amount,
			PurchaseID:          validators.SanitizeString(req.PurchaseID, 128),
			OrderID:             validators.SanitizeString(req.OrderID, 128),
			Description:         validators.SanitizeString(req.Description, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
