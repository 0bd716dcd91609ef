package controllers

import (
	"net/http"

	"github.com/packcredits/backend/api/middleware"
	"github.com/packcredits/backend/api/responses"
	"github.com/packcredits/backend/internal/ledger"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/logger"
)

// CreditsBalance returns the account's current credit balance.
func CreditsBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		accountID := middleware.AccountIDFromContext(ctx)
		balance, err := svc.Balance(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"account_id": accountID,
			"balance":    balance,
		})
	}
}

// CreditsHistory returns the account's ledger entries, newest first.
func CreditsHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		history, err := svc.History(ctx, middleware.AccountIDFromContext(ctx), params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}
