package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	inmemdb "feeledger_backend/internals/databases/inmem"
	"feeledger_backend/internals/features/finance/gateway/model"
	"feeledger_backend/internals/helpers/apperror"
)

type MemoryStore struct {
	db *inmemdb.DB
	tx *inmemdb.Tables
}

func NewMemoryStore(db *inmemdb.DB) *MemoryStore { return &MemoryStore{db: db} }

func (s *MemoryStore) read(fn func(t *inmemdb.Tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.Read(fn)
}

func (s *MemoryStore) write(fn func(t *inmemdb.Tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.Write(fn)
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s)
	}
	return s.db.Write(func(t *inmemdb.Tables) error {
		return fn(&MemoryStore{db: s.db, tx: t})
	})
}

func (s *MemoryStore) CreateIntent(_ context.Context, in *model.PaymentIntent) error {
	return s.write(func(t *inmemdb.Tables) error {
		for _, other := range t.PaymentIntents {
			if other.PaymentIntentOrderID == in.PaymentIntentOrderID {
				return apperror.Conflict("order %s already exists", in.PaymentIntentOrderID)
			}
		}
		if in.PaymentIntentID == uuid.Nil {
			in.PaymentIntentID = uuid.New()
		}
		now := time.Now()
		in.PaymentIntentCreatedAt, in.PaymentIntentUpdatedAt = now, now
		t.PaymentIntents[in.PaymentIntentID] = *in
		return nil
	})
}

func (s *MemoryStore) GetIntentByOrderID(_ context.Context, orderID string) (*model.PaymentIntent, error) {
	var out *model.PaymentIntent
	err := s.read(func(t *inmemdb.Tables) error {
		for _, m := range t.PaymentIntents {
			if m.PaymentIntentOrderID == orderID {
				out = &m
				return nil
			}
		}
		return apperror.NotFound("order %s not found", orderID)
	})
	return out, err
}

func (s *MemoryStore) LockIntentByOrderID(ctx context.Context, orderID string) (*model.PaymentIntent, error) {
	return s.GetIntentByOrderID(ctx, orderID)
}

func (s *MemoryStore) SaveIntent(_ context.Context, in *model.PaymentIntent) error {
	return s.write(func(t *inmemdb.Tables) error {
		if _, ok := t.PaymentIntents[in.PaymentIntentID]; !ok {
			return apperror.NotFound("payment intent %s not found", in.PaymentIntentID)
		}
		in.PaymentIntentUpdatedAt = time.Now()
		t.PaymentIntents[in.PaymentIntentID] = *in
		return nil
	})
}

func (s *MemoryStore) ListIntents(_ context.Context, scheduleID uuid.UUID) ([]model.PaymentIntent, error) {
	var rows []model.PaymentIntent
	err := s.read(func(t *inmemdb.Tables) error {
		for _, m := range t.PaymentIntents {
			if m.PaymentIntentScheduleID == scheduleID {
				rows = append(rows, m)
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PaymentIntentCreatedAt.After(rows[j].PaymentIntentCreatedAt)
	})
	return rows, err
}
