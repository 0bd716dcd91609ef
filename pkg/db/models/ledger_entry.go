package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/packcredits/backend/pkg/enums"
)

// LedgerEntry records one immutable balance-changing event for an account.
//
// Seq is assigned per account at append time; the unique (account_id, seq)
// index is what turns concurrent read-then-append races into retryable
// conflicts. BalanceAfter must always equal the previous entry's BalanceAfter
// plus Delta, which makes the account balance a pure fold over this table.
type LedgerEntry struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID    uuid.UUID             `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_ledger_account_seq,priority:1"`
	Seq          int64                 `gorm:"column:seq;not null;uniqueIndex:idx_ledger_account_seq,priority:2"`
	Delta        int64                 `gorm:"column:delta;not null"`
	BalanceAfter int64                 `gorm:"column:balance_after;not null"`
	Type         enums.LedgerEntryType `gorm:"column:type;type:text;not null"`
	Description  string                `gorm:"column:description;not null"`
	OrderID      *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}
