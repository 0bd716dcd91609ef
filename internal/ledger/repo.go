package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/packcredits/backend/pkg/db/models"
	"github.com/packcredits/backend/pkg/enums"
)

// Repository manages persistence for ledger entries. Entries are append-only:
// there is deliberately no update or delete surface here.
type Repository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	Latest(ctx context.Context, accountID uuid.UUID) (*models.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int, beforeSeq int64) ([]models.LedgerEntry, error)
	FindByOrderAndType(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Latest(ctx context.Context, accountID uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("seq DESC").
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByAccount pages newest-first. The cursor filters on seq, not created_at:
// seq is strictly monotonic per account, so entries sharing a timestamp can
// never be skipped across page boundaries.
func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int, beforeSeq int64) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("seq DESC").
		Limit(limit)
	if beforeSeq > 0 {
		query = query.Where("seq < ?", beforeSeq)
	}

	var entries []models.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindByOrderAndType(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND type = ?", orderID, entryType).
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
