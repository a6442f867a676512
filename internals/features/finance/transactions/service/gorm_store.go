package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	database "feeledger_backend/internals/databases"
	schedService "feeledger_backend/internals/features/finance/schedules/service"
	"feeledger_backend/internals/features/finance/sequences"
	trxModel "feeledger_backend/internals/features/finance/transactions/model"
	"feeledger_backend/internals/helpers/apperror"
)

// GormStore reuses the schedule store for the schedule side.
type GormStore struct {
	*schedService.GormStore
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{GormStore: schedService.NewGormStore(db)}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}

func (s *GormStore) NextNumber(ctx context.Context, kind sequences.Kind, day string) (string, error) {
	return sequences.Next(ctx, s.DB(), kind, day)
}

func (s *GormStore) CreateTransaction(ctx context.Context, t *trxModel.Transaction) error {
	if err := s.DB().WithContext(ctx).Create(t).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperror.Conflict("transaction already recorded (%s)", database.ConstraintName(err))
		}
		return errors.Wrap(err, "create transaction")
	}
	return nil
}

func withAllocations(db *gorm.DB) *gorm.DB {
	return db.Preload("TransactionAllocations", func(db *gorm.DB) *gorm.DB {
		return db.Order("transaction_allocation_position ASC")
	})
}

func (s *GormStore) FindByIdempotencyKey(ctx context.Context, key string) (*trxModel.Transaction, error) {
	var rows []trxModel.Transaction
	err := withAllocations(s.DB().WithContext(ctx)).
		Where("transaction_idempotency_key = ?", key).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "find transaction by idempotency key")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormStore) GetTransactionByNumber(ctx context.Context, number string) (*trxModel.Transaction, error) {
	var m trxModel.Transaction
	if err := withAllocations(s.DB().WithContext(ctx)).First(&m, "transaction_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("transaction %s not found", number)
		}
		return nil, errors.Wrap(err, "get transaction")
	}
	return &m, nil
}

func (s *GormStore) ListTransactions(ctx context.Context, scheduleID uuid.UUID, limit, offset int) ([]trxModel.Transaction, int64, error) {
	q := s.DB().WithContext(ctx).Model(&trxModel.Transaction{}).Where("transaction_schedule_id = ?", scheduleID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count transactions")
	}
	var rows []trxModel.Transaction
	err := withAllocations(q).
		Order("transaction_paid_at DESC, transaction_number DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list transactions")
	}
	return rows, total, nil
}
