package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

// CollectorScope restricts /collectors/{param} routes to the token's own
// identifier. Admins may read any collector.
func CollectorScope(param string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			target := strings.TrimSpace(chi.URLParam(r, param))
			if target == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "collector identifier is required"))
				return
			}
			if RoleFromContext(ctx) != enums.ActorRoleAdmin &&
				!strings.EqualFold(target, CollectorIdentifierFromContext(ctx)) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "collector mismatch"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
