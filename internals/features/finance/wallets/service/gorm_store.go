package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	database "feeledger_backend/internals/databases"
	"feeledger_backend/internals/features/finance/sequences"
	"feeledger_backend/internals/features/finance/wallets/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
	"feeledger_backend/internals/helpers/apperror"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) GetStudent(ctx context.Context, id uuid.UUID) (*schoolModel.Student, error) {
	var m schoolModel.Student
	if err := s.db.WithContext(ctx).First(&m, "student_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("student %s not found", id)
		}
		return nil, errors.Wrap(err, "get student")
	}
	return &m, nil
}

func (s *GormStore) CreateWallet(ctx context.Context, w *model.StudentWallet) error {
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperror.Conflict("student %s already has a wallet", w.StudentWalletStudentID)
		}
		return errors.Wrap(err, "create wallet")
	}
	return nil
}

func (s *GormStore) getWallet(ctx context.Context, id uuid.UUID, lock bool) (*model.StudentWallet, error) {
	q := s.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m model.StudentWallet
	if err := q.First(&m, "student_wallet_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("wallet %s not found", id)
		}
		return nil, errors.Wrap(err, "get wallet")
	}
	return &m, nil
}

func (s *GormStore) GetWallet(ctx context.Context, id uuid.UUID) (*model.StudentWallet, error) {
	return s.getWallet(ctx, id, false)
}

func (s *GormStore) LockWallet(ctx context.Context, id uuid.UUID) (*model.StudentWallet, error) {
	return s.getWallet(ctx, id, true)
}

func (s *GormStore) FindWalletByStudent(ctx context.Context, studentID uuid.UUID) (*model.StudentWallet, error) {
	var rows []model.StudentWallet
	if err := s.db.WithContext(ctx).Where("student_wallet_student_id = ?", studentID).Limit(1).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "find wallet by student")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormStore) SaveWallet(ctx context.Context, w *model.StudentWallet) error {
	return errors.Wrap(s.db.WithContext(ctx).Save(w).Error, "save wallet")
}

func (s *GormStore) NextNumber(ctx context.Context, kind sequences.Kind, day string) (string, error) {
	return sequences.Next(ctx, s.db, kind, day)
}

func (s *GormStore) CreateEntry(ctx context.Context, e *model.WalletTransaction) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(e).Error, "create wallet entry")
}

func (s *GormStore) LastEntry(ctx context.Context, walletID uuid.UUID, before *time.Time) (*model.WalletTransaction, error) {
	q := s.db.WithContext(ctx).Where("wallet_transaction_wallet_id = ?", walletID)
	if before != nil {
		q = q.Where("wallet_transaction_created_at < ?", *before)
	}
	var rows []model.WalletTransaction
	err := q.Order("wallet_transaction_created_at DESC, wallet_transaction_number DESC").Limit(1).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "last wallet entry")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormStore) ListEntries(ctx context.Context, walletID uuid.UUID, w EntryWindow, limit, offset int) ([]model.WalletTransaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.WalletTransaction{}).Where("wallet_transaction_wallet_id = ?", walletID)
	if w.From != nil {
		q = q.Where("wallet_transaction_created_at >= ?", *w.From)
	}
	if w.To != nil {
		q = q.Where("wallet_transaction_created_at < ?", *w.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count wallet entries")
	}
	q = q.Order("wallet_transaction_created_at ASC, wallet_transaction_number ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var rows []model.WalletTransaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list wallet entries")
	}
	return rows, total, nil
}

func (s *GormStore) SumEntries(ctx context.Context, walletID uuid.UUID, t model.WalletTransactionType, since time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := s.db.WithContext(ctx).Model(&model.WalletTransaction{}).
		Select("SUM(wallet_transaction_amount)").
		Where("wallet_transaction_wallet_id = ? AND wallet_transaction_type = ? AND wallet_transaction_created_at >= ?", walletID, t, since).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum wallet entries")
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
