package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem snapshots a purchased pack at checkout time. Credits per unit
// is denormalized so reconciliation never joins back to the catalog.
type OrderLineItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	PackID         *uuid.UUID `gorm:"column:pack_id;type:uuid"`
	Name           string     `gorm:"column:name;not null"`
	Qty            int        `gorm:"column:qty;not null"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	CreditsPerUnit int64      `gorm:"column:credits_per_unit;not null"`
	TotalCents     int64      `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}
