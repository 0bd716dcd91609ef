package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/packcredits/backend/pkg/enums"
)

// Order is a purchase of one or more credit packs awaiting gateway payment.
// Created at checkout with status pending; only the reconciler marks it paid.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID  uuid.UUID         `gorm:"column:account_id;type:uuid;not null"`
	Status     enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency   enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	TotalCents int64             `gorm:"column:total_cents;not null"`
	PaymentRef *string           `gorm:"column:payment_ref"`
	Gateway    *string           `gorm:"column:gateway"`
	PaidAt     *time.Time        `gorm:"column:paid_at"`
	Items      []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalCredits sums the credits this order grants across its line items.
func (o Order) TotalCredits() int64 {
	var total int64
	for _, item := range o.Items {
		total += int64(item.Qty) * item.CreditsPerUnit
	}
	return total
}
