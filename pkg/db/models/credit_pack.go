package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/packcredits/backend/pkg/enums"
)

// CreditPack is a purchasable bundle of credits shown in the storefront.
type CreditPack struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	Credits     int64          `gorm:"column:credits;not null"`
	PriceCents  int64          `gorm:"column:price_cents;not null"`
	Currency    enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	Active      bool           `gorm:"column:active;not null;default:true"`
	SortOrder   int            `gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
