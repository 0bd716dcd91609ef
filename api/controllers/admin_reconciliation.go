package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/packcredits/backend/api/responses"
	"github.com/packcredits/backend/internal/reconcile"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/logger"
)

// AdminAuditUncredited lists paid orders whose credits never landed.
func AdminAuditUncredited(svc *reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		limit := 0
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = value
		}

		uncredited, err := svc.AuditUncredited(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, uncredited)
	}
}

// AdminRepairOrder re-runs the ledger append for one uncredited paid order.
func AdminRepairOrder(svc *reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		repaired, err := svc.RepairOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_id": orderID,
			"repaired": repaired,
		})
	}
}

// AdminRepairAll sweeps and repairs the whole uncredited window.
func AdminRepairAll(svc *reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		report, err := svc.RepairAll(ctx, 0)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "audit sweep finished with failures", err)
			}
			// Partial failures still return the report; the failed order ids
			// are listed so operators can retry them individually.
		}
		responses.WriteSuccess(w, report)
	}
}
