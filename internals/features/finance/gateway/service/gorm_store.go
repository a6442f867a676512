package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	database "feeledger_backend/internals/databases"
	"feeledger_backend/internals/features/finance/gateway/model"
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

func (s *GormStore) CreateIntent(ctx context.Context, in *model.PaymentIntent) error {
	if err := s.db.WithContext(ctx).Create(in).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperror.Conflict("order %s already exists", in.PaymentIntentOrderID)
		}
		return errors.Wrap(err, "create payment intent")
	}
	return nil
}

func (s *GormStore) getIntent(ctx context.Context, orderID string, lock bool) (*model.PaymentIntent, error) {
	q := s.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m model.PaymentIntent
	if err := q.First(&m, "payment_intent_order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order %s not found", orderID)
		}
		return nil, errors.Wrap(err, "get payment intent")
	}
	return &m, nil
}

func (s *GormStore) GetIntentByOrderID(ctx context.Context, orderID string) (*model.PaymentIntent, error) {
	return s.getIntent(ctx, orderID, false)
}

func (s *GormStore) LockIntentByOrderID(ctx context.Context, orderID string) (*model.PaymentIntent, error) {
	return s.getIntent(ctx, orderID, true)
}

func (s *GormStore) SaveIntent(ctx context.Context, in *model.PaymentIntent) error {
	return errors.Wrap(s.db.WithContext(ctx).Save(in).Error, "save payment intent")
}

func (s *GormStore) ListIntents(ctx context.Context, scheduleID uuid.UUID) ([]model.PaymentIntent, error) {
	var rows []model.PaymentIntent
	err := s.db.WithContext(ctx).
		Where("payment_intent_schedule_id = ?", scheduleID).
		Order("payment_intent_created_at DESC").
		Find(&rows).Error
	return rows, errors.Wrap(err, "list payment intents")
}
