package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/packcredits/backend/pkg/db"
	"github.com/packcredits/backend/pkg/db/models"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
)

// Contact is the slice of an account the notifier needs.
type Contact struct {
	AccountID   uuid.UUID
	Email       string
	DisplayName string
}

// Directory resolves account ids to contact details. It fronts the identity
// system's account table; this backend never writes to it.
type Directory interface {
	Resolve(ctx context.Context, accountID uuid.UUID) (*Contact, error)
}

type directory struct {
	db *gorm.DB
}

// NewDirectory builds an account directory bound to the provided DB.
func NewDirectory(conn *gorm.DB) Directory {
	return &directory{db: conn}
}

func (d *directory) Resolve(ctx context.Context, accountID uuid.UUID) (*Contact, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	var account models.Account
	err := d.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve account")
	}

	return &Contact{
		AccountID:   account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	}, nil
}
