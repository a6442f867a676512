package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inmemdb "feeledger_backend/internals/databases/inmem"
	"feeledger_backend/internals/features/finance/sequences"
	"feeledger_backend/internals/features/finance/wallets/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
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

func (s *MemoryStore) GetStudent(_ context.Context, id uuid.UUID) (*schoolModel.Student, error) {
	var out *schoolModel.Student
	err := s.read(func(t *inmemdb.Tables) error {
		m, ok := t.Students[id]
		if !ok {
			return apperror.NotFound("student %s not found", id)
		}
		out = &m
		return nil
	})
	return out, err
}

func (s *MemoryStore) CreateWallet(_ context.Context, w *model.StudentWallet) error {
	return s.write(func(t *inmemdb.Tables) error {
		for _, other := range t.Wallets {
			if other.StudentWalletStudentID == w.StudentWalletStudentID {
				return apperror.Conflict("student %s already has a wallet", w.StudentWalletStudentID)
			}
		}
		if w.StudentWalletID == uuid.Nil {
			w.StudentWalletID = uuid.New()
		}
		now := time.Now()
		w.StudentWalletCreatedAt, w.StudentWalletUpdatedAt = now, now
		t.Wallets[w.StudentWalletID] = *w
		return nil
	})
}

func (s *MemoryStore) GetWallet(_ context.Context, id uuid.UUID) (*model.StudentWallet, error) {
	var out *model.StudentWallet
	err := s.read(func(t *inmemdb.Tables) error {
		m, ok := t.Wallets[id]
		if !ok {
			return apperror.NotFound("wallet %s not found", id)
		}
		out = &m
		return nil
	})
	return out, err
}

func (s *MemoryStore) LockWallet(ctx context.Context, id uuid.UUID) (*model.StudentWallet, error) {
	return s.GetWallet(ctx, id)
}

func (s *MemoryStore) FindWalletByStudent(_ context.Context, studentID uuid.UUID) (*model.StudentWallet, error) {
	var out *model.StudentWallet
	err := s.read(func(t *inmemdb.Tables) error {
		for _, m := range t.Wallets {
			if m.StudentWalletStudentID == studentID {
				out = &m
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (s *MemoryStore) SaveWallet(_ context.Context, w *model.StudentWallet) error {
	return s.write(func(t *inmemdb.Tables) error {
		if _, ok := t.Wallets[w.StudentWalletID]; !ok {
			return apperror.NotFound("wallet %s not found", w.StudentWalletID)
		}
		w.StudentWalletUpdatedAt = time.Now()
		t.Wallets[w.StudentWalletID] = *w
		return nil
	})
}

func (s *MemoryStore) NextNumber(_ context.Context, kind sequences.Kind, day string) (string, error) {
	var out string
	err := s.write(func(t *inmemdb.Tables) error {
		out = sequences.Format(kind, day, t.NextSequence(string(kind), day))
		return nil
	})
	return out, err
}

func (s *MemoryStore) CreateEntry(_ context.Context, e *model.WalletTransaction) error {
	return s.write(func(t *inmemdb.Tables) error {
		if e.WalletTransactionID == uuid.Nil {
			e.WalletTransactionID = uuid.New()
		}
		t.WalletTransactions[e.WalletTransactionID] = *e
		return nil
	})
}

// entries returns the wallet's entries oldest first.
func entries(t *inmemdb.Tables, walletID uuid.UUID, keep func(model.WalletTransaction) bool) []model.WalletTransaction {
	var out []model.WalletTransaction
	for _, e := range t.WalletTransactions {
		if e.WalletTransactionWalletID == walletID && keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WalletTransactionCreatedAt.Equal(out[j].WalletTransactionCreatedAt) {
			return out[i].WalletTransactionCreatedAt.Before(out[j].WalletTransactionCreatedAt)
		}
		return out[i].WalletTransactionNumber < out[j].WalletTransactionNumber
	})
	return out
}

func (s *MemoryStore) LastEntry(_ context.Context, walletID uuid.UUID, before *time.Time) (*model.WalletTransaction, error) {
	var out *model.WalletTransaction
	err := s.read(func(t *inmemdb.Tables) error {
		rows := entries(t, walletID, func(e model.WalletTransaction) bool {
			return before == nil || e.WalletTransactionCreatedAt.Before(*before)
		})
		if n := len(rows); n > 0 {
			out = &rows[n-1]
		}
		return nil
	})
	return out, err
}

func (s *MemoryStore) ListEntries(_ context.Context, walletID uuid.UUID, w EntryWindow, limit, offset int) ([]model.WalletTransaction, int64, error) {
	var rows []model.WalletTransaction
	err := s.read(func(t *inmemdb.Tables) error {
		rows = entries(t, walletID, func(e model.WalletTransaction) bool {
			if w.From != nil && e.WalletTransactionCreatedAt.Before(*w.From) {
				return false
			}
			return w.To == nil || e.WalletTransactionCreatedAt.Before(*w.To)
		})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(rows))
	if limit <= 0 {
		return rows, total, nil
	}
	if offset >= len(rows) {
		return []model.WalletTransaction{}, total, nil
	}
	rows = rows[offset:]
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, total, nil
}

func (s *MemoryStore) SumEntries(_ context.Context, walletID uuid.UUID, kind model.WalletTransactionType, since time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := s.read(func(t *inmemdb.Tables) error {
		for _, e := range t.WalletTransactions {
			if e.WalletTransactionWalletID == walletID && e.WalletTransactionType == kind && !e.WalletTransactionCreatedAt.Before(since) {
				sum = sum.Add(e.WalletTransactionAmount)
			}
		}
		return nil
	})
	return sum, err
}
