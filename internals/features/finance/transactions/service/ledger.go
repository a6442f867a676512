package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"feeledger_backend/internals/features/finance/money"
	"feeledger_backend/internals/features/finance/schedules/model"
	"feeledger_backend/internals/features/finance/sequences"
	"feeledger_backend/internals/features/finance/transactions/dto"
	trxModel "feeledger_backend/internals/features/finance/transactions/model"
	"feeledger_backend/internals/helpers/apperror"
	"feeledger_backend/internals/logger"
)

type Options struct {
	Location *time.Location
	Now      func() time.Time
}

// PaymentLedger records payments against schedule items.
type PaymentLedger struct {
	store Store
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger
}

func NewPaymentLedger(store Store, opts Options) *PaymentLedger {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PaymentLedger{store: store, loc: opts.Location, now: opts.Now, log: logger.WithComponent("payment_ledger")}
}

// Allocation is the share of a payment that lands on one item.
type Allocation struct {
	Item      model.PaymentItem
	Amount    decimal.Decimal
	DueBefore decimal.Decimal
	DueAfter  decimal.Decimal
}

// Allocate spreads amount over items greedily in the given order: each item is
// paid off before the next one sees any money. Every item gets an entry, with a
// zero amount once the money has run out.
func Allocate(items []model.PaymentItem, amount decimal.Decimal) []Allocation {
	remaining := amount
	out := make([]Allocation, 0, len(items))
	for _, it := range items {
		due := it.Due()
		take := decimal.Min(due, remaining)
		if take.IsNegative() {
			take = decimal.Zero
		}
		remaining = remaining.Sub(take)
		out = append(out, Allocation{Item: it, Amount: take, DueBefore: due, DueAfter: due.Sub(take)})
	}
	return out
}

// Quote is the validated selection a payment would be made against.
type Quote struct {
	Schedule model.PaymentSchedule
	Items    []model.PaymentItem // in request order
	TotalDue decimal.Decimal
}

// Quote checks that ids name payable items of a schedule that accepts payments
// and reports how much is still due on them.
func (l *PaymentLedger) Quote(ctx context.Context, scheduleID uuid.UUID, ids []uuid.UUID) (*Quote, error) {
	if err := validateSelection(ids); err != nil {
		return nil, err
	}
	s, err := l.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, apperror.Internal(err, "get payment schedule")
	}
	all, err := l.store.ListItems(ctx, scheduleID)
	if err != nil {
		return nil, apperror.Internal(err, "load payment items")
	}
	items := lo.Filter(all, func(it model.PaymentItem, _ int) bool { return lo.Contains(ids, it.PaymentItemID) })
	return quote(s, ids, items)
}

func validateSelection(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperror.InvalidInput("at least one payment item is required")
	}
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return apperror.InvalidInput("payment item %s is listed more than once", dup[0])
	}
	return nil
}

func quote(s *model.PaymentSchedule, ids []uuid.UUID, found []model.PaymentItem) (*Quote, error) {
	if !s.AcceptsPayments() {
		return nil, apperror.InvalidState("schedule %s is %s and does not accept payments", s.PaymentScheduleID, s.PaymentScheduleStatus)
	}
	if len(found) < len(ids) {
		return nil, apperror.InvalidInput("some payment items do not exist or do not belong to schedule %s", s.PaymentScheduleID)
	}
	byID := lo.KeyBy(found, func(it model.PaymentItem) uuid.UUID { return it.PaymentItemID })

	q := &Quote{Schedule: *s, Items: make([]model.PaymentItem, 0, len(ids)), TotalDue: decimal.Zero}
	for _, id := range ids {
		it := byID[id]
		if !it.Payable() {
			return nil, apperror.InvalidInput("payment item %s is %s", id, it.PaymentItemStatus)
		}
		q.Items = append(q.Items, it)
		q.TotalDue = q.TotalDue.Add(it.Due())
	}
	return q, nil
}

// ProcessPayment allocates the amount over the requested items and records an
// append-only transaction. With an idempotency key, a replay returns the
// original transaction and replayed=true without writing anything.
func (l *PaymentLedger) ProcessPayment(ctx context.Context, in dto.ProcessPayment) (*trxModel.Transaction, bool, error) {
	if err := validateSelection(in.PaymentItemIDs); err != nil {
		return nil, false, err
	}
	if err := money.RequirePositive("amount", in.Amount); err != nil {
		return nil, false, err
	}
	if in.PaymentMethod == "" {
		return nil, false, apperror.InvalidInput("payment_method is required")
	}
	var key *string
	if in.IdempotencyKey != nil && strings.TrimSpace(*in.IdempotencyKey) != "" {
		k := strings.TrimSpace(*in.IdempotencyKey)
		key = &k
	}
	var meta datatypes.JSON
	if len(in.Metadata) > 0 {
		raw, err := sonic.Marshal(in.Metadata)
		if err != nil {
			return nil, false, apperror.InvalidInput("metadata is not valid JSON")
		}
		meta = datatypes.JSON(raw)
	}

	if key != nil {
		if prev, err := l.replay(ctx, *key, in); prev != nil || err != nil {
			return prev, prev != nil, err
		}
	}

	var out *trxModel.Transaction
	err := l.store.Transaction(ctx, func(st Store) error {
		s, err := st.LockSchedule(ctx, in.ScheduleID)
		if err != nil {
			return err
		}
		found, err := st.LockItems(ctx, in.ScheduleID, in.PaymentItemIDs)
		if err != nil {
			return err
		}
		q, err := quote(s, in.PaymentItemIDs, found)
		if err != nil {
			return err
		}
		if in.Amount.GreaterThan(q.TotalDue) {
			return apperror.InvalidInput("amount %s exceeds the %s still due on the selected items", in.Amount.StringFixed(2), q.TotalDue.StringFixed(2))
		}

		now := l.now()
		allocs := Allocate(q.Items, in.Amount)
		changed := make([]model.PaymentItem, 0, len(allocs))
		rows := make([]trxModel.TransactionAllocation, 0, len(allocs))
		for i, a := range allocs {
			if a.Amount.IsPositive() {
				it := a.Item
				it.Apply(a.Amount, now)
				changed = append(changed, it)
			}
			rows = append(rows, trxModel.TransactionAllocation{
				TransactionAllocationPaymentItemID: a.Item.PaymentItemID,
				TransactionAllocationPosition:      i + 1,
				TransactionAllocationAmount:        a.Amount,
				TransactionAllocationDueBefore:     a.DueBefore,
				TransactionAllocationDueAfter:      a.DueAfter,
			})
		}
		if err := st.SaveItems(ctx, changed); err != nil {
			return err
		}

		all, err := st.ListItems(ctx, in.ScheduleID)
		if err != nil {
			return err
		}
		s.Reconcile(all, now)
		if err := st.SaveSchedule(ctx, s); err != nil {
			return err
		}

		day := sequences.Day(now, l.loc)
		number, err := st.NextNumber(ctx, sequences.KindTransaction, day)
		if err != nil {
			return err
		}
		receipt, err := st.NextNumber(ctx, sequences.KindReceipt, day)
		if err != nil {
			return err
		}

		t := &trxModel.Transaction{
			TransactionNumber:         number,
			TransactionReceiptNo:      receipt,
			TransactionScheduleID:     s.PaymentScheduleID,
			TransactionStudentID:      s.PaymentScheduleStudentID,
			TransactionAmount:         in.Amount,
			TransactionCurrency:       s.PaymentScheduleCurrency,
			TransactionMethod:         in.PaymentMethod,
			TransactionStatus:         trxModel.TransactionStatusCompleted,
			TransactionIdempotencyKey: key,
			TransactionMetadata:       meta,
			TransactionPaidAt:         now,
			TransactionAllocations:    rows,
		}
		if err := st.CreateTransaction(ctx, t); err != nil {
			return err
		}
		out = t

		l.log.Info().
			Str("transaction_number", number).
			Str("payment_schedule_id", s.PaymentScheduleID.String()).
			Str("amount", in.Amount.StringFixed(2)).
			Str("method", string(in.PaymentMethod)).
			Int("items_touched", len(changed)).
			Str("schedule_status", string(s.PaymentScheduleStatus)).
			Msg("payment recorded")
		return nil
	})
	if err != nil {
		// A concurrent request with the same key won the insert.
		if key != nil && errors.Is(err, apperror.ErrConflict) {
			if prev, rerr := l.replay(ctx, *key, in); prev != nil || rerr != nil {
				return prev, prev != nil, rerr
			}
		}
		return nil, false, apperror.Internal(err, "process payment")
	}
	return out, false, nil
}

// replay returns the transaction recorded under key, or nil when there is none.
// A key reused for a different payment is a Conflict.
func (l *PaymentLedger) replay(ctx context.Context, key string, in dto.ProcessPayment) (*trxModel.Transaction, error) {
	prev, err := l.store.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperror.Internal(err, "look up idempotency key")
	}
	if prev == nil {
		return nil, nil
	}
	if !samePayment(prev, in) {
		return nil, apperror.Conflict("idempotency key %q was already used for a different payment", key)
	}
	l.log.Info().Str("transaction_number", prev.TransactionNumber).Str("idempotency_key", key).Msg("payment replayed")
	return prev, nil
}

// samePayment reports whether in asks for exactly what prev recorded: same
// schedule, amount and method, and the same items in the same order.
func samePayment(prev *trxModel.Transaction, in dto.ProcessPayment) bool {
	if prev.TransactionScheduleID != in.ScheduleID ||
		!prev.TransactionAmount.Equal(in.Amount) ||
		prev.TransactionMethod != in.PaymentMethod {
		return false
	}
	allocs := append([]trxModel.TransactionAllocation(nil), prev.TransactionAllocations...)
	slices.SortFunc(allocs, func(a, b trxModel.TransactionAllocation) int {
		return a.TransactionAllocationPosition - b.TransactionAllocationPosition
	})
	got := lo.Map(allocs, func(a trxModel.TransactionAllocation, _ int) uuid.UUID { return a.TransactionAllocationPaymentItemID })
	return slices.Equal(got, in.PaymentItemIDs)
}

func (l *PaymentLedger) ListBySchedule(ctx context.Context, scheduleID uuid.UUID, limit, offset int) ([]trxModel.Transaction, int64, error) {
	if _, err := l.store.GetSchedule(ctx, scheduleID); err != nil {
		return nil, 0, apperror.Internal(err, "get payment schedule")
	}
	rows, total, err := l.store.ListTransactions(ctx, scheduleID, limit, offset)
	if err != nil {
		return nil, 0, apperror.Internal(err, "list transactions")
	}
	return rows, total, nil
}

func (l *PaymentLedger) GetByNumber(ctx context.Context, number string) (*trxModel.Transaction, error) {
	t, err := l.store.GetTransactionByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, apperror.Internal(err, "get transaction")
	}
	return t, nil
}
