package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/packcredits/backend/internal/ledger"
	"github.com/packcredits/backend/internal/notifications"
	"github.com/packcredits/backend/pkg/db/models"
	"github.com/packcredits/backend/pkg/enums"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
)

type fakeOrderStore struct {
	orders map[uuid.UUID]*models.Order

	findErr        error
	markPaidErr    error
	markPaid       int
	forceUnclaimed bool
	listErr        error
	uncredited     []*models.Order
}

func newFakeOrderStore(orders ...*models.Order) *fakeOrderStore {
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range orders {
		store.orders[order.ID] = order
	}
	return store
}

func (f *fakeOrderStore) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	order, ok := f.orders[id]
	if !ok {
		// the real repository surfaces the raw driver sentinel
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) MarkPaid(_ context.Context, id uuid.UUID, paymentRef, gateway string, at time.Time) (bool, error) {
	if f.markPaidErr != nil {
		return false, f.markPaidErr
	}
	if f.forceUnclaimed {
		return false, nil
	}
	order, ok := f.orders[id]
	if !ok || order.Status != enums.OrderStatusPending {
		return false, nil
	}
	f.markPaid++
	order.Status = enums.OrderStatusPaid
	order.PaymentRef = &paymentRef
	order.Gateway = &gateway
	order.PaidAt = &at
	return true, nil
}

func (f *fakeOrderStore) ListUncreditedPaid(_ context.Context, limit int) ([]models.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Order, 0, len(f.uncredited))
	for _, order := range f.uncredited {
		if len(out) == limit {
			break
		}
		out = append(out, *order)
	}
	return out, nil
}

type fakeLedger struct {
	entries   []models.LedgerEntry
	appendErr error
}

func (f *fakeLedger) Append(_ context.Context, input ledger.AppendInput) (*models.LedgerEntry, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	var balance int64
	var seq int64
	for _, entry := range f.entries {
		if entry.AccountID == input.AccountID {
			balance = entry.BalanceAfter
			seq = entry.Seq
		}
	}
	entry := models.LedgerEntry{
		ID:           uuid.New(),
		AccountID:    input.AccountID,
		Seq:          seq + 1,
		Delta:        input.Delta,
		BalanceAfter: balance + input.Delta,
		Type:         input.Type,
		Description:  input.Description,
		OrderID:      input.OrderID,
	}
	f.entries = append(f.entries, entry)
	return &entry, nil
}

func (f *fakeLedger) PurchaseEntry(_ context.Context, orderID uuid.UUID) (*models.LedgerEntry, error) {
	for i := range f.entries {
		entry := f.entries[i]
		if entry.OrderID != nil && *entry.OrderID == orderID && entry.Type == enums.LedgerEntryTypePurchase {
			return &entry, nil
		}
	}
	return nil, nil
}

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) NotifyPurchase(_ context.Context, _ notifications.PurchaseConfirmation) error {
	f.calls++
	return f.err
}

func pendingOrder(totalCents, creditsPerUnit int64, qty int) *models.Order {
	orderID := uuid.New()
	return &models.Order{
		ID:         orderID,
		AccountID:  uuid.New(),
		Status:     enums.OrderStatusPending,
		Currency:   enums.CurrencyUSD,
		TotalCents: totalCents,
		Items: []models.OrderLineItem{
			{
				ID:             uuid.New(),
				OrderID:        orderID,
				Name:           "Pack",
				Qty:            qty,
				UnitPriceCents: totalCents / int64(qty),
				CreditsPerUnit: creditsPerUnit,
				TotalCents:     totalCents,
			},
		},
	}
}

func newTestService(t *testing.T, orders *fakeOrderStore, ledgerSvc *fakeLedger, notifier notifications.Notifier) *Service {
	t.Helper()
	svc, err := NewService(orders, ledgerSvc, notifier, nil, nil, "paygate")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func paidEvent(orderID uuid.UUID, amount string) PaymentEvent {
	event := PaymentEvent{
		OrderID:   orderID.String(),
		PaymentID: "pay_123",
		Status:    "paid",
	}
	if amount != "" {
		parsed := decimal.RequireFromString(amount)
		event.Amount = &parsed
	}
	return event
}

func TestProcessEventCreditsOrder(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	store := newFakeOrderStore(order)
	ledgerSvc := &fakeLedger{}
	notifier := &fakeNotifier{}
	svc := newTestService(t, store, ledgerSvc, notifier)

	result, err := svc.ProcessEvent(context.Background(), paidEvent(order.ID, "29.99"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if result.Outcome != OutcomeCredited {
		t.Fatalf("expected credited, got %s", result.Outcome)
	}
	if result.Credits != 500 || result.Balance != 500 {
		t.Fatalf("unexpected result %+v", result)
	}
	if store.orders[order.ID].Status != enums.OrderStatusPaid {
		t.Fatal("expected order marked paid")
	}
	if got := *store.orders[order.ID].PaymentRef; got != "pay_123" {
		t.Fatalf("expected payment ref recorded, got %q", got)
	}
	if len(ledgerSvc.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(ledgerSvc.entries))
	}
	entry := ledgerSvc.entries[0]
	if entry.Delta != 500 || entry.BalanceAfter != 500 || *entry.OrderID != order.ID {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected 1 notification, got %d", notifier.calls)
	}
}

func TestProcessEventDuplicateDeliveryIsIdempotent(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	store := newFakeOrderStore(order)
	ledgerSvc := &fakeLedger{}
	svc := newTestService(t, store, ledgerSvc, nil)

	event := paidEvent(order.ID, "29.99")
	if _, err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	result, err := svc.ProcessEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if result.Outcome != OutcomeAlreadyProcessed {
		t.Fatalf("expected already_processed, got %s", result.Outcome)
	}
	if store.markPaid != 1 {
		t.Fatalf("expected exactly one paid transition, got %d", store.markPaid)
	}
	if len(ledgerSvc.entries) != 1 {
		t.Fatalf("expected entry count to stay 1, got %d", len(ledgerSvc.entries))
	}
}

func TestProcessEventLostRaceReturnsAlreadyProcessed(t *testing.T) {
	// The read sees pending but the conditional update claims zero rows:
	// another delivery transitioned the order in between.
	order := pendingOrder(2999, 500, 1)
	store := newFakeOrderStore(order)
	store.forceUnclaimed = true
	ledgerSvc := &fakeLedger{}
	svc := newTestService(t, store, ledgerSvc, nil)

	result, err := svc.ProcessEvent(context.Background(), paidEvent(order.ID, ""))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Outcome != OutcomeAlreadyProcessed {
		t.Fatalf("expected already_processed, got %s", result.Outcome)
	}
	if len(ledgerSvc.entries) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(ledgerSvc.entries))
	}
}

func TestProcessEventAmountMismatchRejectsWithoutMutation(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	store := newFakeOrderStore(order)
	ledgerSvc := &fakeLedger{}
	svc := newTestService(t, store, ledgerSvc, nil)

	_, err := svc.ProcessEvent(context.Background(), paidEvent(order.ID, "30.00"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	if store.orders[order.ID].Status != enums.OrderStatusPending {
		t.Fatal("order must stay pending on amount mismatch")
	}
	if len(ledgerSvc.entries) != 0 {
		t.Fatal("no ledger entry may exist on amount mismatch")
	}
}

func TestProcessEventCurrencyMismatchRejects(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	svc := newTestService(t, newFakeOrderStore(order), &fakeLedger{}, nil)

	event := paidEvent(order.ID, "29.99")
	event.Currency = "EUR"
	_, err := svc.ProcessEvent(context.Background(), event)
	if !pkgerrors.IsCode(err, pkgerrors.CodeAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
}

func TestProcessEventIrrelevantStatusIsIgnored(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	store := newFakeOrderStore(order)
	ledgerSvc := &fakeLedger{}
	svc := newTestService(t, store, ledgerSvc, nil)

	for _, status := range []string{"failed", "pending", "refunded"} {
		event := paidEvent(order.ID, "")
		event.Status = status
		result, err := svc.ProcessEvent(context.Background(), event)
		if err != nil {
			t.Fatalf("status %q: %v", status, err)
		}
		if result.Outcome != OutcomeIgnored {
			t.Fatalf("status %q: expected ignored, got %s", status, result.Outcome)
		}
	}
	if store.markPaid != 0 || len(ledgerSvc.entries) != 0 {
		t.Fatal("irrelevant events must not mutate state")
	}
}

func TestProcessEventValidation(t *testing.T) {
	svc := newTestService(t, newFakeOrderStore(), &fakeLedger{}, nil)

	tests := []struct {
		name  string
		event PaymentEvent
	}{
		{"missing order id", PaymentEvent{PaymentID: "pay_1", Status: "paid"}},
		{"missing payment id", PaymentEvent{OrderID: uuid.NewString(), Status: "paid"}},
		{"missing status", PaymentEvent{OrderID: uuid.NewString(), PaymentID: "pay_1"}},
		{"malformed order id", PaymentEvent{OrderID: "not-a-uuid", PaymentID: "pay_1", Status: "paid"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ProcessEvent(context.Background(), tc.event)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestProcessEventUnknownOrder(t *testing.T) {
	svc := newTestService(t, newFakeOrderStore(), &fakeLedger{}, nil)

	// The store answers with the raw gorm sentinel; the service must translate
	// it so the HTTP layer responds 404 and the gateway stops redelivering.
	_, err := svc.ProcessEvent(context.Background(), paidEvent(uuid.New(), ""))
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessEventFindFailureIsDependency(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	store := newFakeOrderStore(order)
	store.findErr = errors.New("connection reset")
	svc := newTestService(t, store, &fakeLedger{}, nil)

	_, err := svc.ProcessEvent(context.Background(), paidEvent(order.ID, ""))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error for store failure, got %v", err)
	}
}

func TestProcessEventPartialFailureLeavesDetectableWindow(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	store := newFakeOrderStore(order)
	ledgerSvc := &fakeLedger{appendErr: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	svc := newTestService(t, store, ledgerSvc, nil)

	_, err := svc.ProcessEvent(context.Background(), paidEvent(order.ID, "29.99"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	// The documented window: paid order, no ledger entry. The audit sweep is
	// responsible for finding and repairing it.
	if store.orders[order.ID].Status != enums.OrderStatusPaid {
		t.Fatal("order must remain paid after append failure")
	}
	if len(ledgerSvc.entries) != 0 {
		t.Fatal("no ledger entry may exist after append failure")
	}
}

func TestProcessEventMarkPaidFailureSkipsAppend(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	store := newFakeOrderStore(order)
	store.markPaidErr = errors.New("db down")
	ledgerSvc := &fakeLedger{}
	svc := newTestService(t, store, ledgerSvc, nil)

	_, err := svc.ProcessEvent(context.Background(), paidEvent(order.ID, ""))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(ledgerSvc.entries) != 0 {
		t.Fatal("credits must never land when the paid transition failed")
	}
}

func TestProcessEventNotifierFailureDoesNotAffectOutcome(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	store := newFakeOrderStore(order)
	notifier := &fakeNotifier{err: errors.New("relay down")}
	svc := newTestService(t, store, &fakeLedger{}, notifier)

	result, err := svc.ProcessEvent(context.Background(), paidEvent(order.ID, "29.99"))
	if err != nil {
		t.Fatalf("notifier failure leaked into reconciliation: %v", err)
	}
	if result.Outcome != OutcomeCredited {
		t.Fatalf("expected credited, got %s", result.Outcome)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected notifier invoked once, got %d", notifier.calls)
	}
}

func TestProcessEventBalanceAccumulatesAcrossOrders(t *testing.T) {
	first := pendingOrder(499, 100, 1)
	second := pendingOrder(1999, 500, 1)
	second.AccountID = first.AccountID
	store := newFakeOrderStore(first, second)
	ledgerSvc := &fakeLedger{}
	svc := newTestService(t, store, ledgerSvc, nil)

	if _, err := svc.ProcessEvent(context.Background(), paidEvent(first.ID, "4.99")); err != nil {
		t.Fatalf("first order: %v", err)
	}
	result, err := svc.ProcessEvent(context.Background(), paidEvent(second.ID, "19.99"))
	if err != nil {
		t.Fatalf("second order: %v", err)
	}
	if result.Balance != 600 {
		t.Fatalf("expected balance 600, got %d", result.Balance)
	}
}

func TestProcessEventCompletedStatusCounts(t *testing.T) {
	order := pendingOrder(2999, 500, 1)
	svc := newTestService(t, newFakeOrderStore(order), &fakeLedger{}, nil)

	event := paidEvent(order.ID, "")
	event.Status = "COMPLETED"
	result, err := svc.ProcessEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Outcome != OutcomeCredited {
		t.Fatalf("expected credited for completed status, got %s", result.Outcome)
	}
}
