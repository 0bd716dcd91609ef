package packs

import (
	"context"

	"github.com/google/uuid"

	"github.com/packcredits/backend/pkg/db/models"
	"github.com/packcredits/backend/pkg/enums"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
)

// Service exposes the catalog to the storefront and the admin surface.
type Service struct {
	repo Repository
}

// NewService builds a pack service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListActive returns the packs currently for sale, in storefront order.
func (s *Service) ListActive(ctx context.Context) ([]PackSummary, error) {
	packs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PackSummary, 0, len(packs))
	for i := range packs {
		out = append(out, toSummary(&packs[i]))
	}
	return out, nil
}

// Get returns a single pack. Inactive packs resolve only through the admin
// surface; the storefront handler treats them as absent.
func (s *Service) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*PackSummary, error) {
	pack, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pack.Active && !includeInactive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "credit pack not found")
	}
	out := toSummary(pack)
	return &out, nil
}

// ListAll returns the full catalog, inactive packs included.
func (s *Service) ListAll(ctx context.Context) ([]PackSummary, error) {
	packs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PackSummary, 0, len(packs))
	for i := range packs {
		out = append(out, toSummary(&packs[i]))
	}
	return out, nil
}

// Create adds a pack to the catalog.
func (s *Service) Create(ctx context.Context, input CreatePackInput) (*PackSummary, error) {
	currency, err := enums.ParseCurrency(input.Currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}

	pack := &models.CreditPack{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Credits:     input.Credits,
		PriceCents:  input.PriceCents,
		Currency:    currency,
		Active:      true,
		SortOrder:   input.SortOrder,
	}
	if err := s.repo.Create(ctx, pack); err != nil {
		return nil, err
	}

	out := toSummary(pack)
	return &out, nil
}

// Update applies a partial edit to a pack.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdatePackInput) (*PackSummary, error) {
	pack, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		pack.Name = *input.Name
	}
	if input.Description != nil {
		pack.Description = input.Description
	}
	if input.Credits != nil {
		pack.Credits = *input.Credits
	}
	if input.PriceCents != nil {
		pack.PriceCents = *input.PriceCents
	}
	if input.SortOrder != nil {
		pack.SortOrder = *input.SortOrder
	}
	if input.Active != nil {
		pack.Active = *input.Active
	}

	if err := s.repo.Update(ctx, pack); err != nil {
		return nil, err
	}

	out := toSummary(pack)
	return &out, nil
}

// Deactivate pulls a pack from the storefront without deleting it. Orders
// that already reference it keep their denormalized pricing.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	pack, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !pack.Active {
		return nil
	}
	pack.Active = false
	return s.repo.Update(ctx, pack)
}
