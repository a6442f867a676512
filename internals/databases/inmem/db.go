// Package inmemdb keeps every finance table in process memory. It backs the
// DB_DRIVER=memory mode and the service tests; each feature package implements
// its Store on top of it.
package inmemdb

import (
	"maps"
	"sync"

	"github.com/google/uuid"

	feeModel "feeledger_backend/internals/features/finance/fees/model"
	gatewayModel "feeledger_backend/internals/features/finance/gateway/model"
	scheduleModel "feeledger_backend/internals/features/finance/schedules/model"
	trxModel "feeledger_backend/internals/features/finance/transactions/model"
	walletModel "feeledger_backend/internals/features/finance/wallets/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
)

// Tables holds the rows. Values are stored without their association slices
// and are never mutated in place: writers replace the whole value, so a shallow
// copy of the maps is a consistent snapshot.
type Tables struct {
	Students    map[uuid.UUID]schoolModel.Student
	Classes     map[uuid.UUID]schoolModel.Class
	Enrollments map[uuid.UUID]schoolModel.Enrollment

	FeeDefinitions  map[uuid.UUID]feeModel.FeeDefinition
	FeeInstallments map[uuid.UUID][]feeModel.FeeInstallment // by fee definition
	FeeAssignments  map[uuid.UUID]feeModel.FeeAssignment

	Schedules map[uuid.UUID]scheduleModel.PaymentSchedule
	Items     map[uuid.UUID]scheduleModel.PaymentItem

	Transactions map[uuid.UUID]trxModel.Transaction
	Allocations  map[uuid.UUID][]trxModel.TransactionAllocation // by transaction

	Wallets            map[uuid.UUID]walletModel.StudentWallet
	WalletTransactions map[uuid.UUID]walletModel.WalletTransaction

	PaymentIntents map[uuid.UUID]gatewayModel.PaymentIntent

	Sequences map[string]int64
}

type DB struct {
	mu sync.RWMutex
	t  Tables
}

func Open() *DB {
	return &DB{t: Tables{
		Students:           map[uuid.UUID]schoolModel.Student{},
		Classes:            map[uuid.UUID]schoolModel.Class{},
		Enrollments:        map[uuid.UUID]schoolModel.Enrollment{},
		FeeDefinitions:     map[uuid.UUID]feeModel.FeeDefinition{},
		FeeInstallments:    map[uuid.UUID][]feeModel.FeeInstallment{},
		FeeAssignments:     map[uuid.UUID]feeModel.FeeAssignment{},
		Schedules:          map[uuid.UUID]scheduleModel.PaymentSchedule{},
		Items:              map[uuid.UUID]scheduleModel.PaymentItem{},
		Transactions:       map[uuid.UUID]trxModel.Transaction{},
		Allocations:        map[uuid.UUID][]trxModel.TransactionAllocation{},
		Wallets:            map[uuid.UUID]walletModel.StudentWallet{},
		WalletTransactions: map[uuid.UUID]walletModel.WalletTransaction{},
		PaymentIntents:     map[uuid.UUID]gatewayModel.PaymentIntent{},
		Sequences:          map[string]int64{},
	}}
}

// Read runs fn under the shared lock. fn must not write.
func (db *DB) Read(fn func(t *Tables) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(&db.t)
}

// Write runs fn under the exclusive lock. When fn fails every table is put
// back the way it was, so a failed write leaves nothing behind.
func (db *DB) Write(fn func(t *Tables) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	snap := db.t.clone()
	if err := fn(&db.t); err != nil {
		db.t = snap
		return err
	}
	return nil
}

func (t Tables) clone() Tables {
	return Tables{
		Students:           maps.Clone(t.Students),
		Classes:            maps.Clone(t.Classes),
		Enrollments:        maps.Clone(t.Enrollments),
		FeeDefinitions:     maps.Clone(t.FeeDefinitions),
		FeeInstallments:    maps.Clone(t.FeeInstallments),
		FeeAssignments:     maps.Clone(t.FeeAssignments),
		Schedules:          maps.Clone(t.Schedules),
		Items:              maps.Clone(t.Items),
		Transactions:       maps.Clone(t.Transactions),
		Allocations:        maps.Clone(t.Allocations),
		Wallets:            maps.Clone(t.Wallets),
		WalletTransactions: maps.Clone(t.WalletTransactions),
		PaymentIntents:     maps.Clone(t.PaymentIntents),
		Sequences:          maps.Clone(t.Sequences),
	}
}

// NextSequence is the in-memory twin of sequences.Next.
func (t *Tables) NextSequence(kind, day string) int64 {
	key := kind + "/" + day
	t.Sequences[key]++
	return t.Sequences[key]
}
