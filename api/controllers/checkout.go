package controllers

import (
	"net/http"

	"github.com/packcredits/backend/api/middleware"
	"github.com/packcredits/backend/api/responses"
	"github.com/packcredits/backend/internal/checkout"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/logger"
)

// Checkout converts the account's cart into a pending order.
func Checkout(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		result, err := svc.Checkout(ctx, middleware.AccountIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
