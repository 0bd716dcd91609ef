package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/packcredits/backend/pkg/db"
	"github.com/packcredits/backend/pkg/db/models"
	"github.com/packcredits/backend/pkg/enums"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/pagination"
)

// Service exposes the append-only credit ledger and the balance derived from it.
type Service interface {
	Append(ctx context.Context, input AppendInput) (*models.LedgerEntry, error)
	Balance(ctx context.Context, accountID uuid.UUID) (int64, error)
	History(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*History, error)
	PurchaseEntry(ctx context.Context, orderID uuid.UUID) (*models.LedgerEntry, error)
}

// AppendInput captures the immutable data a ledger entry requires.
type AppendInput struct {
	AccountID   uuid.UUID
	Delta       int64
	Type        enums.LedgerEntryType
	Description string
	OrderID     *uuid.UUID
}

// History wraps a page of ledger entries plus the cursor for the next page.
type History struct {
	Entries    []models.LedgerEntry `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

const (
	appendMaxAttempts = 5
	appendBaseBackoff = 10 * time.Millisecond
)

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	return &service{repo: repo}, nil
}

// Append assigns the next per-account sequence and the resulting balance
// snapshot, then inserts the entry. Two concurrent appends for the same
// account compute the same sequence; the unique (account_id, seq) index makes
// the loser fail, and the bounded retry recomputes from the fresh tail. The
// snapshot therefore always equals the prefix sum of deltas in sequence order.
func (s *service) Append(ctx context.Context, input AppendInput) (*models.LedgerEntry, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid ledger entry type")
	}

	var entry *models.LedgerEntry
	backoff := retry.WithMaxRetries(appendMaxAttempts, retry.NewExponential(appendBaseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		latest, err := s.repo.Latest(ctx, input.AccountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read ledger tail")
		}

		var seq, balance int64
		if latest != nil {
			seq = latest.Seq
			balance = latest.BalanceAfter
		}

		candidate := &models.LedgerEntry{
			AccountID:    input.AccountID,
			Seq:          seq + 1,
			Delta:        input.Delta,
			BalanceAfter: balance + input.Delta,
			Type:         input.Type,
			Description:  input.Description,
			OrderID:      input.OrderID,
		}
		if err := s.repo.Create(ctx, candidate); err != nil {
			if db.IsUniqueViolation(err) {
				// lost the race for this sequence, recompute from the new tail
				return retry.RetryableError(err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}
		entry = candidate
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry after retries")
	}
	return entry, nil
}

// Balance derives the current balance from the latest entry's snapshot, or
// zero when the account has no history. Under the append invariant this is
// provably equal to summing every delta for the account.
func (s *service) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if accountID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	latest, err := s.repo.Latest(ctx, accountID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read ledger tail")
	}
	if latest == nil {
		return 0, nil
	}
	return latest.BalanceAfter, nil
}

func (s *service) History(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*History, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	beforeSeq, err := pagination.ParseSeqCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListByAccount(ctx, accountID, limit+1, beforeSeq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	result := &History{Entries: entries}
	if len(entries) > limit {
		result.Entries = entries[:limit]
		result.NextCursor = pagination.EncodeSeqCursor(result.Entries[limit-1].Seq)
	}
	return result, nil
}

// PurchaseEntry returns the purchase entry referencing the order, or nil when
// the order has not been credited. Used by the idempotent repair path.
func (s *service) PurchaseEntry(ctx context.Context, orderID uuid.UUID) (*models.LedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	entry, err := s.repo.FindByOrderAndType(ctx, orderID, enums.LedgerEntryTypePurchase)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find purchase entry")
	}
	return entry, nil
}
