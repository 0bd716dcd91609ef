package models

import (
	"time"

	"github.com/google/uuid"
)

// Account mirrors the identity system's record for a storefront customer.
// Rows are provisioned by the external auth service; this backend only reads
// them to resolve contact details and to anchor ledger history.
type Account struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email       string    `gorm:"column:email;not null"`
	DisplayName string    `gorm:"column:display_name;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
