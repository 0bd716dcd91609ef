package notifications

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"

	"github.com/packcredits/backend/internal/accounts"
	"github.com/packcredits/backend/pkg/logger"
)

// PurchaseConfirmation carries everything the purchase email needs; it is
// assembled by the reconciler after credits have landed.
type PurchaseConfirmation struct {
	AccountID uuid.UUID
	OrderID   uuid.UUID
	Credits   int64
	Balance   int64
}

// Notifier delivers customer-facing notifications. Delivery is best effort:
// callers must never let a notifier error affect their own outcome.
type Notifier interface {
	NotifyPurchase(ctx context.Context, confirmation PurchaseConfirmation) error
}

// Noop is a Notifier that drops everything. Used when no relay is configured.
type Noop struct{}

func (Noop) NotifyPurchase(context.Context, PurchaseConfirmation) error { return nil }

// Service resolves the buyer's contact details and sends the purchase
// confirmation through the mail relay.
type Service struct {
	directory   accounts.Directory
	mailer      Mailer
	fromAddress string
	logg        *logger.Logger
}

// NewService wires a notification service.
func NewService(directory accounts.Directory, mailer Mailer, fromAddress string, logg *logger.Logger) *Service {
	return &Service{directory: directory, mailer: mailer, fromAddress: fromAddress, logg: logg}
}

// NotifyPurchase emails the buyer that their credits have landed.
func (s *Service) NotifyPurchase(ctx context.Context, confirmation PurchaseConfirmation) error {
	contact, err := s.directory.Resolve(ctx, confirmation.AccountID)
	if err != nil {
		return err
	}

	name := contact.DisplayName
	if name == "" {
		name = "there"
	}

	email := Email{
		To:      contact.Email,
		From:    s.fromAddress,
		Subject: fmt.Sprintf("Your %d credits have arrived", confirmation.Credits),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour order %s is confirmed and %d credits were added to your account. Your balance is now %d credits.\n\nThanks for your purchase!",
			name, confirmation.OrderID, confirmation.Credits, confirmation.Balance,
		),
		HTMLBody: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your order <strong>%s</strong> is confirmed and <strong>%d credits</strong> were added to your account. Your balance is now <strong>%d credits</strong>.</p><p>Thanks for your purchase!</p>",
			html.EscapeString(name), confirmation.OrderID, confirmation.Credits, confirmation.Balance,
		),
	}

	if err := s.mailer.Send(ctx, email); err != nil {
		return err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   confirmation.OrderID.String(),
			"account_id": confirmation.AccountID.String(),
		})
		s.logg.Info(logCtx, "purchase confirmation sent")
	}
	return nil
}
