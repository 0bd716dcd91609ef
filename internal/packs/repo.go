package packs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/packcredits/backend/pkg/db"
	"github.com/packcredits/backend/pkg/db/models"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
)

// Repository is the persistence surface for the credit pack catalog.
type Repository interface {
	Create(ctx context.Context, pack *models.CreditPack) error
	Update(ctx context.Context, pack *models.CreditPack) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CreditPack, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CreditPack, error)
	ListActive(ctx context.Context) ([]models.CreditPack, error)
	ListAll(ctx context.Context) ([]models.CreditPack, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pack repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) Create(ctx context.Context, pack *models.CreditPack) error {
	if err := r.db.WithContext(ctx).Create(pack).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create credit pack")
	}
	return nil
}

func (r *repository) Update(ctx context.Context, pack *models.CreditPack) error {
	if err := r.db.WithContext(ctx).Save(pack).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update credit pack")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CreditPack, error) {
	var pack models.CreditPack
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pack).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "credit pack not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find credit pack")
	}
	return &pack, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CreditPack, error) {
	var packs []models.CreditPack
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&packs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find credit packs")
	}
	return packs, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.CreditPack, error) {
	var packs []models.CreditPack
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, price_cents ASC").
		Find(&packs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active credit packs")
	}
	return packs, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.CreditPack, error) {
	var packs []models.CreditPack
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&packs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credit packs")
	}
	return packs, nil
}
