package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/packcredits/backend/pkg/db"
	"github.com/packcredits/backend/pkg/db/models"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/pagination"
)

// Service exposes dashboard reads over an account's orders.
type Service interface {
	Get(ctx context.Context, accountID, orderID uuid.UUID) (*OrderSummary, error)
	List(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo Repository
}

// NewService wires an orders service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, accountID, orderID uuid.UUID) (*OrderSummary, error) {
	if accountID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id and order id are required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.AccountID != accountID {
		// do not leak other accounts' order ids
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	summary := toSummary(*order)
	return &summary, nil
}

func (s *service) List(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByAccount(ctx, accountID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	for i, row := range rows {
		if i == limit {
			last := rows[limit-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			break
		}
		list.Orders = append(list.Orders, toSummary(row))
	}
	return list, nil
}

func toSummary(order models.Order) OrderSummary {
	items := make([]LineItemSummary, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemSummary{
			PackID:         item.PackID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			CreditsPerUnit: item.CreditsPerUnit,
			TotalCents:     item.TotalCents,
		})
	}
	return OrderSummary{
		ID:           order.ID,
		Status:       order.Status,
		Currency:     order.Currency,
		TotalCents:   order.TotalCents,
		TotalCredits: order.TotalCredits(),
		PaymentRef:   order.PaymentRef,
		Gateway:      order.Gateway,
		PaidAt:       order.PaidAt,
		Items:        items,
		CreatedAt:    order.CreatedAt,
	}
}
