package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/packcredits/backend/internal/ledger"
	"github.com/packcredits/backend/pkg/enums"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
)

const defaultAuditLimit = 100

// UncreditedOrder is one paid order with no purchase ledger entry: the
// inconsistency window between the paid transition and the ledger append.
type UncreditedOrder struct {
	OrderID   uuid.UUID  `json:"order_id"`
	AccountID uuid.UUID  `json:"account_id"`
	Credits   int64      `json:"credits"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// RepairReport summarizes one audit sweep pass.
type RepairReport struct {
	Scanned  int         `json:"scanned"`
	Repaired []uuid.UUID `json:"repaired"`
	Failed   []uuid.UUID `json:"failed,omitempty"`
}

// AuditUncredited lists paid orders whose credits never landed.
func (s *Service) AuditUncredited(ctx context.Context, limit int) ([]UncreditedOrder, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	orders, err := s.orders.ListUncreditedPaid(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "audit uncredited orders")
	}
	out := make([]UncreditedOrder, 0, len(orders))
	for _, order := range orders {
		out = append(out, UncreditedOrder{
			OrderID:   order.ID,
			AccountID: order.AccountID,
			Credits:   order.TotalCredits(),
			PaidAt:    order.PaidAt,
		})
	}
	return out, nil
}

// RepairOrder re-runs the ledger append for one paid-but-uncredited order.
// Safe to call on an already-credited order: the existing purchase entry
// makes it a no-op.
func (s *Service) RepairOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.Status != enums.OrderStatusPaid {
		return false, pkgerrors.New(pkgerrors.CodeConflict, "only paid orders can be repaired").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	existing, err := s.ledger.PurchaseEntry(ctx, order.ID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		s.metrics.IncRepair("noop")
		return false, nil
	}

	credits := order.TotalCredits()
	entry, err := s.ledger.Append(ctx, ledger.AppendInput{
		AccountID:   order.AccountID,
		Delta:       credits,
		Type:        enums.LedgerEntryTypePurchase,
		Description: fmt.Sprintf("Purchase of %d credits (order %s, repaired)", credits, order.ID),
		OrderID:     &order.ID,
	})
	if err != nil {
		s.metrics.IncRepair("failed")
		return false, err
	}
	s.metrics.IncRepair("repaired")

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"credits":  credits,
		})
		s.logg.Info(logCtx, "repaired uncredited paid order")
	}

	s.notify(ctx, order, credits, entry.BalanceAfter)
	return true, nil
}

// RepairAll sweeps the uncredited window and repairs every order it finds.
// One bad order does not stop the sweep; failures are collected and returned
// alongside the report.
func (s *Service) RepairAll(ctx context.Context, limit int) (*RepairReport, error) {
	uncredited, err := s.AuditUncredited(ctx, limit)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{Scanned: len(uncredited)}
	var errs error
	for _, order := range uncredited {
		repaired, err := s.RepairOrder(ctx, order.OrderID)
		if err != nil {
			report.Failed = append(report.Failed, order.OrderID)
			errs = multierr.Append(errs, fmt.Errorf("repair order %s: %w", order.OrderID, err))
			continue
		}
		if repaired {
			report.Repaired = append(report.Repaired, order.OrderID)
		}
	}
	return report, errs
}
