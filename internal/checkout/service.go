package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/packcredits/backend/internal/cart"
	"github.com/packcredits/backend/pkg/db/models"
	"github.com/packcredits/backend/pkg/enums"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/logger"
)

// CartReader is the slice of the cart service checkout consumes.
type CartReader interface {
	Get(ctx context.Context, accountID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, accountID uuid.UUID) error
}

// CatalogReader resolves the packs referenced by a cart.
type CatalogReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CreditPack, error)
}

// OrderWriter is the slice of the order repository checkout needs.
type OrderWriter interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
}

// Result is what the storefront needs to hand the buyer to the gateway.
type Result struct {
	OrderID    uuid.UUID `json:"order_id"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	Credits    int64     `json:"credits"`
}

// Service converts a cart into a pending order with pricing and credits
// snapshotted onto the line items. Payment happens elsewhere; the order stays
// pending until the reconciler sees the gateway event.
type Service struct {
	carts   CartReader
	catalog CatalogReader
	orders  OrderWriter
	logg    *logger.Logger
}

// NewService wires a checkout service.
func NewService(carts CartReader, catalog CatalogReader, orderRepo OrderWriter, logg *logger.Logger) *Service {
	return &Service{carts: carts, catalog: catalog, orders: orderRepo, logg: logg}
}

// Checkout snapshots the account's cart into a pending order and clears the
// cart. The order and its line items are written in separate statements; an
// order without items is unpayable and harmless, so a failure between the two
// leaves nothing a buyer can be charged for.
func (s *Service) Checkout(ctx context.Context, accountID uuid.UUID) (*Result, error) {
	current, err := s.carts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(current.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(current.Items))
	for _, item := range current.Items {
		ids = append(ids, item.PackID)
	}
	catalog, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.CreditPack, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	var currency enums.Currency
	var totalCents, totalCredits int64
	lineItems := make([]models.OrderLineItem, 0, len(current.Items))
	for _, item := range current.Items {
		pack, ok := byID[item.PackID]
		if !ok || !pack.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart references an unavailable pack").
				WithDetails(map[string]any{"pack_id": item.PackID.String()})
		}
		if currency != "" && currency != pack.Currency {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart mixes currencies")
		}
		currency = pack.Currency
		lineTotal := int64(item.Qty) * pack.PriceCents
		totalCents += lineTotal
		totalCredits += int64(item.Qty) * pack.Credits
		packID := pack.ID
		lineItems = append(lineItems, models.OrderLineItem{
			ID:             uuid.New(),
			PackID:         &packID,
			Name:           pack.Name,
			Qty:            item.Qty,
			UnitPriceCents: pack.PriceCents,
			CreditsPerUnit: pack.Credits,
			TotalCents:     lineTotal,
		})
	}

	order := &models.Order{
		ID:         uuid.New(),
		AccountID:  accountID,
		Status:     enums.OrderStatusPending,
		Currency:   currency,
		TotalCents: totalCents,
	}
	if _, err := s.orders.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	for i := range lineItems {
		lineItems[i].OrderID = order.ID
	}
	if err := s.orders.CreateLineItems(ctx, lineItems); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
	}

	if err := s.carts.Clear(ctx, accountID); err != nil {
		// The order exists either way; a stale cart is a nuisance, not a
		// correctness problem.
		if s.logg != nil {
			s.logg.Warn(ctx, "failed to clear cart after checkout")
		}
	}

	return &Result{
		OrderID:    order.ID,
		TotalCents: totalCents,
		Currency:   currency.String(),
		Credits:    totalCredits,
	}, nil
}
