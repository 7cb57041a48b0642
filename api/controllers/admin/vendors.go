package admin

import (
	"net/http"

	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/api/validators"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

// VendorRegister creates or updates a vendor directory entry by name.
func VendorRegister(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendor service unavailable"))
			return
		}
		var req vendors.RegisterVendorInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendor, err := svc.RegisterVendor(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

// ProductRule sets a per-product payout override.
func ProductRule(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendor service unavailable"))
			return
		}
		var req vendors.ProductRuleInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.SetProductRule(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}
