package admin

import (
	"net/http"

	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/api/validators"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

// SeriesCompletionReward grants the series bonus once per collector and
// series. A replay answers 200 with a zero deposit.
func SeriesCompletionReward(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transactions service unavailable"))
			return
		}
		var req transactions.SeriesRewardInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RecordSeriesCompletionReward(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
