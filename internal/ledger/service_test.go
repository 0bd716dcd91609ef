package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/packcredits/backend/pkg/db/models"
	"github.com/packcredits/backend/pkg/enums"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/pagination"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.LedgerEntry) error
	latestFn func(ctx context.Context, accountID uuid.UUID) (*models.LedgerEntry, error)
	listFn   func(ctx context.Context, accountID uuid.UUID, limit int, beforeSeq int64) ([]models.LedgerEntry, error)
	findFn   func(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.LedgerEntry, error)
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) Latest(ctx context.Context, accountID uuid.UUID) (*models.LedgerEntry, error) {
	if f.latestFn != nil {
		return f.latestFn(ctx, accountID)
	}
	return nil, nil
}

func (f *fakeRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int, beforeSeq int64) ([]models.LedgerEntry, error) {
	if f.listFn != nil {
		return f.listFn(ctx, accountID, limit, beforeSeq)
	}
	return nil, nil
}

func (f *fakeRepository) FindByOrderAndType(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.LedgerEntry, error) {
	if f.findFn != nil {
		return f.findFn(ctx, orderID, entryType)
	}
	return nil, nil
}

func TestService_AppendFirstEntry(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	var created *models.LedgerEntry
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		created = entry
		return nil
	}

	orderID := uuid.New()
	got, err := svc.Append(context.Background(), AppendInput{
		AccountID:   uuid.New(),
		Delta:       500,
		Type:        enums.LedgerEntryTypePurchase,
		Description: "Purchase of 500 credits",
		OrderID:     &orderID,
	})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if created == nil {
		t.Fatal("expected entry to be created")
	}
	if created.Seq != 1 {
		t.Fatalf("first entry seq = %d, want 1", created.Seq)
	}
	if created.BalanceAfter != 500 {
		t.Fatalf("first entry balance = %d, want 500", created.BalanceAfter)
	}
	if got != created {
		t.Fatal("service should return created entry")
	}
}

func TestService_AppendExtendsTail(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	accountID := uuid.New()
	repo.latestFn = func(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
		return &models.LedgerEntry{AccountID: id, Seq: 7, BalanceAfter: 1200}, nil
	}
	var created *models.LedgerEntry
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		created = entry
		return nil
	}

	if _, err := svc.Append(context.Background(), AppendInput{
		AccountID:   accountID,
		Delta:       -200,
		Type:        enums.LedgerEntryTypeUsage,
		Description: "Used 200 credits",
	}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if created.Seq != 8 {
		t.Fatalf("seq = %d, want 8", created.Seq)
	}
	if created.BalanceAfter != 1000 {
		t.Fatalf("balance = %d, want 1000", created.BalanceAfter)
	}
}

func TestService_AppendRetriesOnSequenceConflict(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	tail := &models.LedgerEntry{Seq: 1, BalanceAfter: 100}
	repo.latestFn = func(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
		return tail, nil
	}

	attempts := 0
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		attempts++
		if attempts == 1 {
			// a concurrent append claimed seq 2 first
			tail = &models.LedgerEntry{Seq: 2, BalanceAfter: 400}
			return errors.New("duplicate key value violates unique constraint \"idx_ledger_account_seq\"")
		}
		return nil
	}

	entry, err := svc.Append(context.Background(), AppendInput{
		AccountID:   uuid.New(),
		Delta:       50,
		Type:        enums.LedgerEntryTypePurchase,
		Description: "Purchase of 50 credits",
	})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if entry.Seq != 3 || entry.BalanceAfter != 450 {
		t.Fatalf("entry recomputed wrong: seq=%d balance=%d", entry.Seq, entry.BalanceAfter)
	}
}

func TestService_AppendSurfacesStorageFailure(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		return errors.New("connection reset by peer")
	}

	_, err := svc.Append(context.Background(), AppendInput{
		AccountID:   uuid.New(),
		Delta:       10,
		Type:        enums.LedgerEntryTypePurchase,
		Description: "Purchase",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_AppendValidation(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})

	tests := []struct {
		name  string
		input AppendInput
	}{
		{"missing account", AppendInput{Delta: 1, Type: enums.LedgerEntryTypePurchase}},
		{"zero delta", AppendInput{AccountID: uuid.New(), Type: enums.LedgerEntryTypePurchase}},
		{"invalid type", AppendInput{AccountID: uuid.New(), Delta: 1, Type: enums.LedgerEntryType("bogus")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Append(context.Background(), tc.input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_BalanceDefaultsToZero(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})

	balance, err := svc.Balance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestService_BalanceReadsLatestSnapshot(t *testing.T) {
	repo := &fakeRepository{
		latestFn: func(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
			return &models.LedgerEntry{Seq: 12, BalanceAfter: 750}, nil
		},
	}
	svc, _ := NewService(repo)

	balance, err := svc.Balance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if balance != 750 {
		t.Fatalf("balance = %d, want 750", balance)
	}
}

func TestService_HistoryPaginates(t *testing.T) {
	entries := make([]models.LedgerEntry, pagination.DefaultLimit+1)
	for i := range entries {
		entries[i] = models.LedgerEntry{ID: uuid.New(), Seq: int64(len(entries) - i)}
	}
	repo := &fakeRepository{
		listFn: func(ctx context.Context, id uuid.UUID, limit int, beforeSeq int64) ([]models.LedgerEntry, error) {
			return entries, nil
		},
	}
	svc, _ := NewService(repo)

	page, err := svc.History(context.Background(), uuid.New(), pagination.Params{})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(page.Entries) != pagination.DefaultLimit {
		t.Fatalf("page size = %d, want %d", len(page.Entries), pagination.DefaultLimit)
	}

	// The cursor carries the seq of the last returned entry so the next page
	// resumes strictly below it, even when timestamps collide.
	seq, err := pagination.ParseSeqCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("ParseSeqCursor: %v", err)
	}
	if want := page.Entries[len(page.Entries)-1].Seq; seq != want {
		t.Fatalf("cursor seq = %d, want %d", seq, want)
	}
}

func TestService_HistorySecondPageFiltersOnSeq(t *testing.T) {
	var gotBefore int64
	repo := &fakeRepository{
		listFn: func(ctx context.Context, id uuid.UUID, limit int, beforeSeq int64) ([]models.LedgerEntry, error) {
			gotBefore = beforeSeq
			return nil, nil
		},
	}
	svc, _ := NewService(repo)

	_, err := svc.History(context.Background(), uuid.New(), pagination.Params{
		Cursor: pagination.EncodeSeqCursor(42),
	})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if gotBefore != 42 {
		t.Fatalf("repo queried with beforeSeq %d, want 42", gotBefore)
	}
}
