package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	inmemdb "feeledger_backend/internals/databases/inmem"
	schedService "feeledger_backend/internals/features/finance/schedules/service"
	"feeledger_backend/internals/features/finance/sequences"
	trxModel "feeledger_backend/internals/features/finance/transactions/model"
	"feeledger_backend/internals/helpers/apperror"
)

type MemoryStore struct {
	*schedService.MemoryStore
	db *inmemdb.DB
	tx *inmemdb.Tables
}

func NewMemoryStore(db *inmemdb.DB) *MemoryStore {
	return &MemoryStore{MemoryStore: schedService.NewMemoryStore(db), db: db}
}

func BindMemoryStore(db *inmemdb.DB, tx *inmemdb.Tables) *MemoryStore {
	return &MemoryStore{MemoryStore: schedService.BindMemoryStore(db, tx), db: db, tx: tx}
}

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
		return fn(BindMemoryStore(s.db, t))
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

func (s *MemoryStore) CreateTransaction(_ context.Context, trx *trxModel.Transaction) error {
	return s.write(func(t *inmemdb.Tables) error {
		for _, other := range t.Transactions {
			if other.TransactionNumber == trx.TransactionNumber {
				return apperror.Conflict("transaction number %s already used", trx.TransactionNumber)
			}
			if trx.TransactionIdempotencyKey != nil && other.TransactionIdempotencyKey != nil &&
				*other.TransactionIdempotencyKey == *trx.TransactionIdempotencyKey {
				return apperror.Conflict("idempotency key %q already used", *trx.TransactionIdempotencyKey)
			}
		}
		if trx.TransactionID == uuid.Nil {
			trx.TransactionID = uuid.New()
		}
		trx.TransactionCreatedAt = time.Now()
		for i := range trx.TransactionAllocations {
			trx.TransactionAllocations[i].TransactionAllocationTransactionID = trx.TransactionID
		}
		t.Allocations[trx.TransactionID] = append([]trxModel.TransactionAllocation(nil), trx.TransactionAllocations...)

		row := *trx
		row.TransactionAllocations = nil
		t.Transactions[row.TransactionID] = row
		return nil
	})
}

func attachAllocations(t *inmemdb.Tables, trx trxModel.Transaction) trxModel.Transaction {
	trx.TransactionAllocations = append([]trxModel.TransactionAllocation(nil), t.Allocations[trx.TransactionID]...)
	return trx
}

func (s *MemoryStore) find(match func(trxModel.Transaction) bool) (*trxModel.Transaction, error) {
	var out *trxModel.Transaction
	err := s.read(func(t *inmemdb.Tables) error {
		for _, trx := range t.Transactions {
			if match(trx) {
				full := attachAllocations(t, trx)
				out = &full
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (s *MemoryStore) FindByIdempotencyKey(_ context.Context, key string) (*trxModel.Transaction, error) {
	return s.find(func(trx trxModel.Transaction) bool {
		return trx.TransactionIdempotencyKey != nil && *trx.TransactionIdempotencyKey == key
	})
}

func (s *MemoryStore) GetTransactionByNumber(_ context.Context, number string) (*trxModel.Transaction, error) {
	out, err := s.find(func(trx trxModel.Transaction) bool { return trx.TransactionNumber == number })
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, apperror.NotFound("transaction %s not found", number)
	}
	return out, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, scheduleID uuid.UUID, limit, offset int) ([]trxModel.Transaction, int64, error) {
	var all []trxModel.Transaction
	err := s.read(func(t *inmemdb.Tables) error {
		for _, trx := range t.Transactions {
			if trx.TransactionScheduleID == scheduleID {
				all = append(all, attachAllocations(t, trx))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].TransactionPaidAt.Equal(all[j].TransactionPaidAt) {
			return all[i].TransactionPaidAt.After(all[j].TransactionPaidAt)
		}
		return all[i].TransactionNumber > all[j].TransactionNumber
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []trxModel.Transaction{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}
