// Package collectors serves the collector-facing ledger endpoints under
// /api/v1/collectors/{identifier}.
package collectors

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/api/validators"
	"github.com/angelmondragon/artvault-backend/internal/balances"
	"github.com/angelmondragon/artvault-backend/internal/ledger"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/pagination"
)

// IdentifierParam is the chi URL parameter naming the collector.
const IdentifierParam = "identifier"

type creditBalanceReader interface {
	CalculateBalance(ctx context.Context, identifier string) (*balances.CreditBalance, error)
}

type unifiedBalanceReader interface {
	GetBalance(ctx context.Context, identifier string) (*balances.UnifiedBalance, error)
}

type statementReader interface {
	ListStatement(ctx context.Context, identifier string, params pagination.Params) (*ledger.StatementPage, error)
}

func identifierFrom(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, IdentifierParam))
}

// Balance returns the collector's credit balance.
func Balance(svc creditBalanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "balance service unavailable"))
			return
		}
		balance, err := svc.CalculateBalance(r.Context(), identifierFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// UnifiedBalance returns credits and USD side by side.
func UnifiedBalance(svc unifiedBalanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banking service unavailable"))
			return
		}
		balance, err := svc.GetBalance(r.Context(), identifierFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// Entries pages through the collector's ledger, newest first.
func Entries(svc statementReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListStatement(r.Context(), identifierFrom(r), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
