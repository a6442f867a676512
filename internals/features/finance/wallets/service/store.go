package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"feeledger_backend/internals/features/finance/sequences"
	"feeledger_backend/internals/features/finance/wallets/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
)

// EntryWindow selects entries with from <= created_at < to; nil bounds are open.
type EntryWindow struct {
	From *time.Time
	To   *time.Time
}

// Store keeps wallets and their entries. Entries come back oldest first,
// ordered by (created_at, number).
type Store interface {
	Transaction(ctx context.Context, fn func(Store) error) error

	GetStudent(ctx context.Context, id uuid.UUID) (*schoolModel.Student, error)

	CreateWallet(ctx context.Context, w *model.StudentWallet) error
	GetWallet(ctx context.Context, id uuid.UUID) (*model.StudentWallet, error)
	LockWallet(ctx context.Context, id uuid.UUID) (*model.StudentWallet, error)
	// FindWalletByStudent returns nil when the student has no wallet.
	FindWalletByStudent(ctx context.Context, studentID uuid.UUID) (*model.StudentWallet, error)
	SaveWallet(ctx context.Context, w *model.StudentWallet) error

	NextNumber(ctx context.Context, kind sequences.Kind, day string) (string, error)
	CreateEntry(ctx context.Context, e *model.WalletTransaction) error
	// LastEntry returns the newest entry created before `before` (nil = no bound), or nil.
	LastEntry(ctx context.Context, walletID uuid.UUID, before *time.Time) (*model.WalletTransaction, error)
	ListEntries(ctx context.Context, walletID uuid.UUID, w EntryWindow, limit, offset int) ([]model.WalletTransaction, int64, error)
	// SumEntries adds the amounts of entries of type t created at or after since.
	SumEntries(ctx context.Context, walletID uuid.UUID, t model.WalletTransactionType, since time.Time) (decimal.Decimal, error)
}
