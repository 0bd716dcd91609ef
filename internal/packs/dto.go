package packs

import (
	"time"

	"github.com/google/uuid"

	"github.com/packcredits/backend/pkg/db/models"
)

// PackSummary is the storefront representation of a credit pack.
type PackSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Credits     int64     `json:"credits"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreatePackInput is the admin payload for adding a pack to the catalog.
type CreatePackInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Credits     int64   `json:"credits" validate:"required,gt=0"`
	PriceCents  int64   `json:"price_cents" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required,oneof=USD EUR GBP"`
	SortOrder   int     `json:"sort_order" validate:"gte=0"`
}

// UpdatePackInput is the admin payload for editing a pack. Nil fields are
// left untouched.
type UpdatePackInput struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Credits     *int64  `json:"credits" validate:"omitempty,gt=0"`
	PriceCents  *int64  `json:"price_cents" validate:"omitempty,gt=0"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,gte=0"`
	Active      *bool   `json:"active"`
}

func toSummary(pack *models.CreditPack) PackSummary {
	return PackSummary{
		ID:          pack.ID,
		Name:        pack.Name,
		Description: pack.Description,
		Credits:     pack.Credits,
		PriceCents:  pack.PriceCents,
		Currency:    pack.Currency.String(),
		Active:      pack.Active,
		CreatedAt:   pack.CreatedAt,
	}
}
