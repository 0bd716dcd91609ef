package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/packcredits/backend/internal/ledger"
	"github.com/packcredits/backend/internal/notifications"
	"github.com/packcredits/backend/pkg/db"
	"github.com/packcredits/backend/pkg/db/models"
	"github.com/packcredits/backend/pkg/enums"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/logger"
	"github.com/packcredits/backend/pkg/metrics"
)

// orderStore is the slice of the order repository the reconciler touches.
type orderStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef, gateway string, at time.Time) (bool, error)
	ListUncreditedPaid(ctx context.Context, limit int) ([]models.Order, error)
}

// ledgerAppender is the slice of the ledger service the reconciler touches.
type ledgerAppender interface {
	Append(ctx context.Context, input ledger.AppendInput) (*models.LedgerEntry, error)
	PurchaseEntry(ctx context.Context, orderID uuid.UUID) (*models.LedgerEntry, error)
}

// Service turns verified gateway events into order transitions and ledger
// credits. Orders and the ledger are written in separate statements; the
// conditional paid transition plus the audit sweep in audit.go cover the gap
// between them.
type Service struct {
	orders   orderStore
	ledger   ledgerAppender
	notifier notifications.Notifier
	metrics  *metrics.ReconcileMetrics
	logg     *logger.Logger
	gateway  string
	now      func() time.Time
}

// NewService wires a reconciler. A nil notifier disables confirmations.
func NewService(orders orderStore, ledgerSvc ledgerAppender, notifier notifications.Notifier, m *metrics.ReconcileMetrics, logg *logger.Logger, gateway string) (*Service, error) {
	if orders == nil || ledgerSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler requires order and ledger stores")
	}
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	return &Service{
		orders:   orders,
		ledger:   ledgerSvc,
		notifier: notifier,
		metrics:  m,
		logg:     logg,
		gateway:  gateway,
		now:      time.Now,
	}, nil
}

// ProcessEvent applies one verified payment event. Duplicate deliveries are
// safe: an order already paid, or a lost race on the paid transition, both
// return OutcomeAlreadyProcessed without touching the ledger.
func (s *Service) ProcessEvent(ctx context.Context, event PaymentEvent) (*Result, error) {
	started := s.now()
	result, err := s.process(ctx, event)
	s.metrics.ObserveDuration(s.gateway, s.now().Sub(started))
	if err != nil {
		s.metrics.IncEvent(s.gateway, "error")
		return nil, err
	}
	s.metrics.IncEvent(s.gateway, string(result.Outcome))
	return result, nil
}

func (s *Service) process(ctx context.Context, event PaymentEvent) (*Result, error) {
	if strings.TrimSpace(event.OrderID) == "" ||
		strings.TrimSpace(event.PaymentID) == "" ||
		strings.TrimSpace(event.Status) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id, payment_id and status are required")
	}

	if !event.IsSuccessful() {
		return &Result{Outcome: OutcomeIgnored, OrderID: event.OrderID}, nil
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id must be a uuid")
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusPaid {
		return &Result{Outcome: OutcomeAlreadyProcessed, OrderID: event.OrderID}, nil
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is not payable").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	if err := s.checkAmount(event, order); err != nil {
		return nil, err
	}

	claimed, err := s.orders.MarkPaid(ctx, order.ID, event.PaymentID, s.gateway, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	if !claimed {
		// A concurrent delivery won the conditional update. Its ledger append
		// either already happened or is about to; appending here would
		// double-credit.
		return &Result{Outcome: OutcomeAlreadyProcessed, OrderID: event.OrderID}, nil
	}

	credits := order.TotalCredits()
	entry, err := s.ledger.Append(ctx, ledger.AppendInput{
		AccountID:   order.AccountID,
		Delta:       credits,
		Type:        enums.LedgerEntryTypePurchase,
		Description: fmt.Sprintf("Purchase of %d credits (order %s)", credits, order.ID),
		OrderID:     &order.ID,
	})
	if err != nil {
		// The order is paid but the credits never landed. The audit sweep
		// finds this window; redelivery must not retry the append because the
		// paid guard above would skip it.
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Error(logCtx, "ledger append failed after paid transition", err)
		}
		return nil, err
	}

	s.notify(ctx, order, credits, entry.BalanceAfter)

	return &Result{
		Outcome: OutcomeCredited,
		OrderID: event.OrderID,
		Credits: credits,
		Balance: entry.BalanceAfter,
	}, nil
}

// findOrder loads an order, translating raw store errors into the typed codes
// the HTTP layer maps to status codes. An unknown order must surface as
// NotFound: the gateway treats 404 as terminal and stops redelivering.
func (s *Service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// checkAmount rejects events whose amount or currency disagree with the
// order. The gateway reports decimal major units; orders store integer cents.
func (s *Service) checkAmount(event PaymentEvent, order *models.Order) error {
	if event.Currency != "" && !strings.EqualFold(event.Currency, order.Currency.String()) {
		return pkgerrors.New(pkgerrors.CodeAmountMismatch, "event currency does not match order").
			WithDetails(map[string]any{"event": event.Currency, "order": order.Currency.String()})
	}
	if event.Amount == nil {
		return nil
	}

	eventMinor := event.Amount.Shift(order.Currency.MinorUnits())
	if !eventMinor.IsInteger() || !eventMinor.Equal(decimal.NewFromInt(order.TotalCents)) {
		return pkgerrors.New(pkgerrors.CodeAmountMismatch, "event amount does not match order total").
			WithDetails(map[string]any{
				"event_amount": event.Amount.String(),
				"order_cents":  order.TotalCents,
			})
	}
	return nil
}

// notify sends the purchase confirmation. Reconciliation already succeeded by
// the time this runs, so every failure is swallowed after logging.
func (s *Service) notify(ctx context.Context, order *models.Order, credits, balance int64) {
	err := s.notifier.NotifyPurchase(ctx, notifications.PurchaseConfirmation{
		AccountID: order.AccountID,
		OrderID:   order.ID,
		Credits:   credits,
		Balance:   balance,
	})
	if err != nil && s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Warn(logCtx, "purchase confirmation failed: "+err.Error())
	}
}
