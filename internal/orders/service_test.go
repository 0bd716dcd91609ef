package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/packcredits/backend/pkg/db/models"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/enums"
	"github.com/packcredits/backend/pkg/pagination"
)

type fakeRepository struct {
	orders  map[uuid.UUID]*models.Order
	byAcct  []models.Order
	listErr error
	limit   int
}

func (f *fakeRepository) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (f *fakeRepository) CreateLineItems(context.Context, []models.OrderLineItem) error {
	return nil
}

func (f *fakeRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeRepository) MarkPaid(context.Context, uuid.UUID, string, string, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeRepository) ListByAccount(_ context.Context, accountID uuid.UUID, limit int, _ *pagination.Cursor) ([]models.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.limit = limit
	var rows []models.Order
	for _, order := range f.byAcct {
		if order.AccountID != accountID {
			continue
		}
		rows = append(rows, order)
		if len(rows) == limit {
			break
		}
	}
	return rows, nil
}

func (f *fakeRepository) ListUncreditedPaid(context.Context, int) ([]models.Order, error) {
	return nil, nil
}

func sampleOrder(accountID uuid.UUID) *models.Order {
	return &models.Order{
		ID:         uuid.New(),
		AccountID:  accountID,
		Status:     enums.OrderStatusPaid,
		Currency:   enums.CurrencyUSD,
		TotalCents: 2997,
		Items: []models.OrderLineItem{
			{Name: "Starter Pack", Qty: 3, UnitPriceCents: 999, CreditsPerUnit: 100, TotalCents: 2997},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestGetReturnsSummary(t *testing.T) {
	accountID := uuid.New()
	order := sampleOrder(accountID)
	repo := &fakeRepository{orders: map[uuid.UUID]*models.Order{order.ID: order}}

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	summary, err := svc.Get(context.Background(), accountID, order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if summary.TotalCents != 2997 {
		t.Fatalf("expected total 2997, got %d", summary.TotalCents)
	}
	if summary.TotalCredits != 300 {
		t.Fatalf("expected 300 credits, got %d", summary.TotalCredits)
	}
	if len(summary.Items) != 1 || summary.Items[0].Name != "Starter Pack" {
		t.Fatalf("unexpected items: %+v", summary.Items)
	}
}

func TestGetHidesOtherAccountsOrders(t *testing.T) {
	owner := uuid.New()
	order := sampleOrder(owner)
	repo := &fakeRepository{orders: map[uuid.UUID]*models.Order{order.ID: order}}

	svc, _ := NewService(repo)

	_, err := svc.Get(context.Background(), uuid.New(), order.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
}

func TestGetUnknownOrder(t *testing.T) {
	repo := &fakeRepository{orders: map[uuid.UUID]*models.Order{}}
	svc, _ := NewService(repo)

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListScopedToAccount(t *testing.T) {
	accountID := uuid.New()
	mine := sampleOrder(accountID)
	theirs := sampleOrder(uuid.New())
	repo := &fakeRepository{byAcct: []models.Order{*mine, *theirs}}

	svc, _ := NewService(repo)

	list, err := svc.List(context.Background(), accountID, pagination.Params{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Orders) != 1 || list.Orders[0].ID != mine.ID {
		t.Fatalf("expected only the caller's order, got %+v", list.Orders)
	}
	if repo.limit != pagination.DefaultLimit+1 {
		t.Fatalf("expected page buffer of one row, asked for %d", repo.limit)
	}
	if list.NextCursor != "" {
		t.Fatalf("expected no next cursor for a single page, got %q", list.NextCursor)
	}
}

func TestListSetsNextCursorOnFullPage(t *testing.T) {
	accountID := uuid.New()
	var rows []models.Order
	for i := 0; i < 3; i++ {
		rows = append(rows, *sampleOrder(accountID))
	}
	repo := &fakeRepository{byAcct: rows}

	svc, _ := NewService(repo)

	list, err := svc.List(context.Background(), accountID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(list.Orders))
	}
	if list.NextCursor == "" {
		t.Fatal("expected next cursor on a full page")
	}

	cursor, err := pagination.ParseCursor(list.NextCursor)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if cursor.ID != rows[1].ID {
		t.Fatalf("cursor should point at the last returned row, got %s", cursor.ID)
	}
}

func TestListRejectsBadCursor(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})

	_, err := svc.List(context.Background(), uuid.New(), pagination.Params{Cursor: "not-base64!!"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListDependencyFailure(t *testing.T) {
	svc, _ := NewService(&fakeRepository{listErr: errors.New("connection reset")})

	_, err := svc.List(context.Background(), uuid.New(), pagination.Params{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
