package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/packcredits/backend/pkg/enums"
)

// LineItemSummary exposes line item fields returned in order views.
type LineItemSummary struct {
	PackID         *uuid.UUID `json:"pack_id,omitempty"`
	Name           string     `json:"name"`
	Qty            int        `json:"qty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	CreditsPerUnit int64      `json:"credits_per_unit"`
	TotalCents     int64      `json:"total_cents"`
}

// OrderSummary is the dashboard view of a single order.
type OrderSummary struct {
	ID           uuid.UUID         `json:"id"`
	Status       enums.OrderStatus `json:"status"`
	Currency     enums.Currency    `json:"currency"`
	TotalCents   int64             `json:"total_cents"`
	TotalCredits int64             `json:"total_credits"`
	PaymentRef   *string           `json:"payment_ref,omitempty"`
	Gateway      *string           `json:"gateway,omitempty"`
	PaidAt       *time.Time        `json:"paid_at,omitempty"`
	Items        []LineItemSummary `json:"items"`
	CreatedAt    time.Time         `json:"created_at"`
}

// OrderList wraps paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
