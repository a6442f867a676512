package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inmemdb "feeledger_backend/internals/databases/inmem"
	feeModel "feeledger_backend/internals/features/finance/fees/model"
	ft "feeledger_backend/internals/features/finance/financetest"
	"feeledger_backend/internals/features/finance/schedules/model"
	schedService "feeledger_backend/internals/features/finance/schedules/service"
	"feeledger_backend/internals/features/finance/transactions/dto"
	trxModel "feeledger_backend/internals/features/finance/transactions/model"
	"feeledger_backend/internals/helpers/apperror"
)

var wib = time.FixedZone("WIB", 7*3600)

type fixture struct {
	db       *inmemdb.DB
	builder  *schedService.Builder
	ledger   *PaymentLedger
	schedule uuid.UUID
	term1    uuid.UUID // 1500, due 2024-08-11
	term2    uuid.UUID // 1500, due 2025-01-10
	uniform  uuid.UUID // 250, no due date
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := inmemdb.Open()
	student := ft.AddStudent(t, db, "Ayu")
	class := ft.AddClass(t, db, "7A")
	enr := ft.Enroll(t, db, student, class, ft.Date(2024, 7, 15))

	tuition := ft.Flat("Tuition", "3000")
	tuition.FeeDefinitionInstallments = []feeModel.FeeInstallment{
		ft.Installment(1, "Term 1", "1500", ft.DatePtr(2024, 8, 11)),
		ft.Installment(2, "Term 2", "1500", ft.DatePtr(2025, 1, 10)),
	}
	def := ft.AddDefinition(t, db, tuition)
	uniform := ft.AddDefinition(t, db, ft.Flat("Uniform", "250"))
	ft.AssignToClass(t, db, def.FeeDefinitionID, class, 1, nil, nil)
	ft.AssignToStudent(t, db, uniform.FeeDefinitionID, student, 2, nil, nil)

	clock := func() time.Time { return time.Date(2024, 8, 11, 18, 0, 0, 0, time.UTC) }
	b := schedService.NewBuilder(schedService.NewMemoryStore(db), schedService.Options{Location: wib, Now: clock})
	s, err := b.BuildSchedule(context.Background(), enr, nil)
	require.NoError(t, err)
	require.Len(t, s.PaymentScheduleItems, 3)

	return &fixture{
		db:       db,
		builder:  b,
		ledger:   NewPaymentLedger(NewMemoryStore(db), Options{Location: wib, Now: clock}),
		schedule: s.PaymentScheduleID,
		term1:    s.PaymentScheduleItems[0].PaymentItemID,
		term2:    s.PaymentScheduleItems[1].PaymentItemID,
		uniform:  s.PaymentScheduleItems[2].PaymentItemID,
	}
}

func (f *fixture) pay(amount string, ids ...uuid.UUID) (*trxModel.Transaction, bool, error) {
	return f.ledger.ProcessPayment(context.Background(), dto.ProcessPayment{
		ScheduleID: f.schedule,
		ProcessPaymentRequest: dto.ProcessPaymentRequest{
			PaymentItemIDs: ids,
			Amount:         ft.D(amount),
			PaymentMethod:  trxModel.PaymentMethodCash,
		},
	})
}

func (f *fixture) snapshot(t *testing.T) *model.PaymentSchedule {
	t.Helper()
	s, err := f.builder.GetSchedule(context.Background(), f.schedule)
	require.NoError(t, err)
	return s
}

func (f *fixture) item(t *testing.T, id uuid.UUID) model.PaymentItem {
	t.Helper()
	for _, it := range f.snapshot(t).PaymentScheduleItems {
		if it.PaymentItemID == id {
			return it
		}
	}
	t.Fatalf("item %s not found", id)
	return model.PaymentItem{}
}

func TestAllocateIsGreedyInRequestOrder(t *testing.T) {
	a := model.PaymentItem{PaymentItemID: uuid.New(), PaymentItemNetAmount: ft.D("100")}
	b := model.PaymentItem{PaymentItemID: uuid.New(), PaymentItemNetAmount: ft.D("50")}

	got := Allocate([]model.PaymentItem{a, b}, ft.D("120"))
	require.Len(t, got, 2)
	assert.True(t, got[0].Amount.Equal(ft.D("100")))
	assert.True(t, got[1].Amount.Equal(ft.D("20")))
	assert.True(t, got[1].DueAfter.Equal(ft.D("30")))

	got = Allocate([]model.PaymentItem{b, a}, ft.D("120"))
	assert.True(t, got[0].Amount.Equal(ft.D("50")))
	assert.True(t, got[1].Amount.Equal(ft.D("70")))

	got = Allocate([]model.PaymentItem{a, b}, ft.D("60"))
	assert.True(t, got[1].Amount.IsZero(), "money ran out before the second item")
	assert.True(t, got[1].DueBefore.Equal(got[1].DueAfter))
}

func TestPartialPaymentAcrossItems(t *testing.T) {
	f := newFixture(t)
	trx, replayed, err := f.pay("2000", f.term1, f.term2)
	require.NoError(t, err)
	assert.False(t, replayed)

	assert.Equal(t, "TRX-20240812-000001", trx.TransactionNumber)
	assert.Equal(t, "RCP-20240812-000001", trx.TransactionReceiptNo)
	assert.Equal(t, "IDR", trx.TransactionCurrency)
	require.Len(t, trx.TransactionAllocations, 2)
	assert.True(t, trx.TransactionAllocations[0].TransactionAllocationAmount.Equal(ft.D("1500")))
	assert.True(t, trx.TransactionAllocations[1].TransactionAllocationAmount.Equal(ft.D("500")))

	assert.Equal(t, model.ItemStatusPaid, f.item(t, f.term1).PaymentItemStatus)
	assert.NotNil(t, f.item(t, f.term1).PaymentItemPaidAt)
	t2 := f.item(t, f.term2)
	assert.Equal(t, model.ItemStatusPartiallyPaid, t2.PaymentItemStatus)
	assert.True(t, t2.Due().Equal(ft.D("1000")))

	s := f.snapshot(t)
	assert.True(t, s.PaymentSchedulePaidAmount.Equal(ft.D("2000")))
	assert.Equal(t, model.ScheduleStatusActive, s.PaymentScheduleStatus, "first payment activates a draft")
	assert.NotNil(t, s.PaymentScheduleActivatedAt)
}

func TestFullPaymentCompletesSchedule(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.pay("1500", f.term1)
	require.NoError(t, err)
	trx, _, err := f.pay("1750", f.uniform, f.term2)
	require.NoError(t, err)
	assert.Equal(t, "TRX-20240812-000002", trx.TransactionNumber)

	s := f.snapshot(t)
	assert.Equal(t, model.ScheduleStatusCompleted, s.PaymentScheduleStatus)
	assert.True(t, s.Outstanding().IsZero())

	_, _, err = f.pay("1", f.term2)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput, "nothing left to pay")
}

func TestOverpaymentWritesNothing(t *testing.T) {
	f := newFixture(t)
	before := f.snapshot(t)

	_, _, err := f.pay("1750.01", f.term1, f.uniform)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	after := f.snapshot(t)
	assert.Equal(t, before.PaymentScheduleStatus, after.PaymentScheduleStatus)
	assert.True(t, after.PaymentSchedulePaidAmount.IsZero())
	for _, it := range after.PaymentScheduleItems {
		assert.True(t, it.PaymentItemPaidAmount.IsZero())
	}
	rows, total, err := f.ledger.ListBySchedule(context.Background(), f.schedule, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)

	trx, _, err := f.pay("10", f.uniform)
	require.NoError(t, err)
	assert.Equal(t, "TRX-20240812-000001", trx.TransactionNumber, "failed payment did not consume a number")
}

func TestPaymentRejectsBadSelection(t *testing.T) {
	f := newFixture(t)
	other := newFixture(t)

	tests := []struct {
		name   string
		amount string
		ids    []uuid.UUID
	}{
		{"no items", "10", nil},
		{"duplicate item", "10", []uuid.UUID{f.term1, f.term1}},
		{"unknown item", "10", []uuid.UUID{f.term1, uuid.New()}},
		{"item of another schedule", "10", []uuid.UUID{other.term1}},
		{"zero amount", "0", []uuid.UUID{f.term1}},
		{"negative amount", "-5", []uuid.UUID{f.term1}},
		{"sub-cent amount", "0.001", []uuid.UUID{f.term1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.pay(tc.amount, tc.ids...)
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
		})
	}
}

func TestPaymentOnSuspendedOrCancelledSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.builder.Activate(ctx, f.schedule)
	require.NoError(t, err)
	_, err = f.builder.Suspend(ctx, f.schedule)
	require.NoError(t, err)

	_, _, err = f.pay("10", f.term1)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = f.builder.Cancel(ctx, f.schedule)
	require.NoError(t, err)
	_, _, err = f.pay("10", f.term1)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, _, err = f.pay("10", uuid.New())
	assert.ErrorIs(t, err, apperror.ErrInvalidState, "schedule state is checked first")
}

func TestPaymentOnWaivedItem(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Write(func(tb *inmemdb.Tables) error {
		it := tb.Items[f.uniform]
		it.PaymentItemStatus = model.ItemStatusWaived
		tb.Items[f.uniform] = it
		return nil
	}))

	_, _, err := f.pay("10", f.term1, f.uniform)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.True(t, f.item(t, f.term1).PaymentItemPaidAmount.IsZero())
}

func TestPaymentOnOverdueItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.builder.Activate(ctx, f.schedule)
	require.NoError(t, err)
	n, err := f.builder.SweepOverdue(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, _, err = f.pay("100", f.term1)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusPartiallyPaid, f.item(t, f.term1).PaymentItemStatus)

	_, _, err = f.pay("10", f.term2, f.uniform)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusPending, f.item(t, f.uniform).PaymentItemStatus, "no money reached it")
}

func TestIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "order-42"
	req := dto.ProcessPayment{
		ScheduleID: f.schedule,
		ProcessPaymentRequest: dto.ProcessPaymentRequest{
			PaymentItemIDs: []uuid.UUID{f.uniform},
			Amount:         ft.D("100"),
			PaymentMethod:  trxModel.PaymentMethodGateway,
			Metadata:       map[string]any{"channel": "qris"},
			IdempotencyKey: &key,
		},
	}

	first, replayed, err := f.ledger.ProcessPayment(ctx, req)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.JSONEq(t, `{"channel":"qris"}`, string(first.TransactionMetadata))

	again, replayed, err := f.ledger.ProcessPayment(ctx, req)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.TransactionID, again.TransactionID)
	assert.True(t, f.item(t, f.uniform).PaymentItemPaidAmount.Equal(ft.D("100")), "applied once")

	req.Amount = ft.D("50")
	_, _, err = f.ledger.ProcessPayment(ctx, req)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestIdempotencyKeyReusedForOtherItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "desk-7"
	req := func(method trxModel.PaymentMethod, ids ...uuid.UUID) dto.ProcessPayment {
		return dto.ProcessPayment{
			ScheduleID: f.schedule,
			ProcessPaymentRequest: dto.ProcessPaymentRequest{
				PaymentItemIDs: ids,
				Amount:         ft.D("100"),
				PaymentMethod:  method,
				IdempotencyKey: &key,
			},
		}
	}

	first, _, err := f.ledger.ProcessPayment(ctx, req(trxModel.PaymentMethodCash, f.term1, f.uniform))
	require.NoError(t, err)

	cases := map[string]dto.ProcessPayment{
		"other item":   req(trxModel.PaymentMethodCash, f.uniform),
		"reordered":    req(trxModel.PaymentMethodCash, f.uniform, f.term1),
		"extra item":   req(trxModel.PaymentMethodCash, f.term1, f.uniform, f.term2),
		"other method": req(trxModel.PaymentMethodGateway, f.term1, f.uniform),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			trx, replayed, err := f.ledger.ProcessPayment(ctx, in)
			assert.ErrorIs(t, err, apperror.ErrConflict)
			assert.False(t, replayed)
			assert.Nil(t, trx)
		})
	}

	again, replayed, err := f.ledger.ProcessPayment(ctx, req(trxModel.PaymentMethodCash, f.term1, f.uniform))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.TransactionID, again.TransactionID)
	assert.True(t, f.item(t, f.term1).PaymentItemPaidAmount.Equal(ft.D("100")))
	assert.True(t, f.item(t, f.uniform).PaymentItemPaidAmount.IsZero(), "money stays where the first call put it")
}

func TestConcurrentPaymentsOnOneSchedule(t *testing.T) {
	f := newFixture(t)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := f.pay("25", f.uniform); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, failed, "only ten payments of 25 fit into 250")
	it := f.item(t, f.uniform)
	assert.True(t, it.PaymentItemPaidAmount.Equal(ft.D("250")))
	assert.Equal(t, model.ItemStatusPaid, it.PaymentItemStatus)

	rows, total, err := f.ledger.ListBySchedule(context.Background(), f.schedule, 50, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 10, total)
	seen := map[string]bool{}
	for _, r := range rows {
		assert.False(t, seen[r.TransactionNumber], "numbers are unique")
		seen[r.TransactionNumber] = true
	}
}

func TestReadTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trx, _, err := f.pay("300", f.uniform, f.term1)
	require.NoError(t, err)

	got, err := f.ledger.GetByNumber(ctx, " trx-20240812-000001 ")
	require.NoError(t, err)
	assert.Equal(t, trx.TransactionID, got.TransactionID)
	require.Len(t, got.TransactionAllocations, 2)
	assert.Equal(t, f.uniform, got.TransactionAllocations[0].TransactionAllocationPaymentItemID)

	_, err = f.ledger.GetByNumber(ctx, "TRX-20240812-000099")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, _, err = f.ledger.ListBySchedule(ctx, uuid.New(), 10, 0)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	q, err := f.ledger.Quote(context.Background(), f.schedule, []uuid.UUID{f.uniform, f.term1})
	require.NoError(t, err)
	assert.True(t, q.TotalDue.Equal(ft.D("1750")))
	assert.Equal(t, f.uniform, q.Items[0].PaymentItemID)

	_, err = f.ledger.Quote(context.Background(), f.schedule, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
