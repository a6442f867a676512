package service

import (
	"context"

	"github.com/google/uuid"

	"feeledger_backend/internals/features/finance/schedules/model"
	"feeledger_backend/internals/features/finance/sequences"
	trxModel "feeledger_backend/internals/features/finance/transactions/model"
)

// Store is what the payment ledger needs: the schedule side (shared with the
// schedule builder) plus the append-only transaction log.
type Store interface {
	Transaction(ctx context.Context, fn func(Store) error) error

	GetSchedule(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error)
	LockSchedule(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error)
	SaveSchedule(ctx context.Context, s *model.PaymentSchedule) error
	ListItems(ctx context.Context, scheduleID uuid.UUID) ([]model.PaymentItem, error)
	LockItems(ctx context.Context, scheduleID uuid.UUID, ids []uuid.UUID) ([]model.PaymentItem, error)
	SaveItems(ctx context.Context, items []model.PaymentItem) error

	// NextNumber hands out the next document number for (kind, day) inside the current transaction.
	NextNumber(ctx context.Context, kind sequences.Kind, day string) (string, error)

	CreateTransaction(ctx context.Context, t *trxModel.Transaction) error
	// FindByIdempotencyKey returns nil when no transaction carries key.
	FindByIdempotencyKey(ctx context.Context, key string) (*trxModel.Transaction, error)
	GetTransactionByNumber(ctx context.Context, number string) (*trxModel.Transaction, error)
	ListTransactions(ctx context.Context, scheduleID uuid.UUID, limit, offset int) ([]trxModel.Transaction, int64, error)
}
