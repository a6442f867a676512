package service

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gorm.io/datatypes"

	"feeledger_backend/internals/features/finance/money"
	"feeledger_backend/internals/features/finance/sequences"
	"feeledger_backend/internals/features/finance/wallets/dto"
	"feeledger_backend/internals/features/finance/wallets/model"
	"feeledger_backend/internals/helpers/apperror"
	"feeledger_backend/internals/logger"
)

var errWalletOutOfBalance = errors.New("wallet ledger out of balance")

type Options struct {
	DefaultCurrency string
	Location        *time.Location
	Now             func() time.Time
}

// Ledger keeps student wallet balances. Every balance change is an
// append-only entry; the wallet row only carries the running totals.
type Ledger struct {
	store           Store
	defaultCurrency string
	loc             *time.Location
	now             func() time.Time
	log             zerolog.Logger
}

func NewLedger(store Store, opts Options) *Ledger {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "IDR"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{
		store:           store,
		defaultCurrency: opts.DefaultCurrency,
		loc:             opts.Location,
		now:             opts.Now,
		log:             logger.WithComponent("wallet_ledger"),
	}
}

func (l *Ledger) CreateWallet(ctx context.Context, in dto.CreateWalletRequest) (*model.StudentWallet, error) {
	w := &model.StudentWallet{
		StudentWalletStudentID:        in.StudentID,
		StudentWalletCurrency:         strings.ToUpper(strings.TrimSpace(in.Currency)),
		StudentWalletCurrentBalance:   decimal.Zero,
		StudentWalletTotalDeposits:    decimal.Zero,
		StudentWalletTotalWithdrawals: decimal.Zero,
		StudentWalletStatus:           model.WalletStatusActive,
	}
	if w.StudentWalletCurrency == "" {
		w.StudentWalletCurrency = l.defaultCurrency
	}
	if in.LowBalanceThreshold != nil {
		if err := money.RequireNonNegative("low_balance_threshold", *in.LowBalanceThreshold); err != nil {
			return nil, err
		}
		w.StudentWalletLowBalanceThreshold = *in.LowBalanceThreshold
	}
	if in.DailySpendingLimit != nil {
		if err := money.RequireNonNegative("daily_spending_limit", *in.DailySpendingLimit); err != nil {
			return nil, err
		}
		w.StudentWalletDailySpendingLimit = *in.DailySpendingLimit
	}

	err := l.store.Transaction(ctx, func(st Store) error {
		if _, err := st.GetStudent(ctx, in.StudentID); err != nil {
			return err
		}
		existing, err := st.FindWalletByStudent(ctx, in.StudentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.InvalidState("student %s already has wallet %s", in.StudentID, existing.StudentWalletID)
		}
		return st.CreateWallet(ctx, w)
	})
	if err != nil {
		return nil, apperror.Internal(err, "create wallet")
	}
	l.log.Info().Str("student_wallet_id", w.StudentWalletID.String()).Str("student_id", in.StudentID.String()).Msg("wallet created")
	return w, nil
}

func (l *Ledger) GetWallet(ctx context.Context, id uuid.UUID) (*model.StudentWallet, error) {
	w, err := l.store.GetWallet(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "get wallet")
	}
	return w, nil
}

func (l *Ledger) GetWalletByStudent(ctx context.Context, studentID uuid.UUID) (*model.StudentWallet, error) {
	w, err := l.store.FindWalletByStudent(ctx, studentID)
	if err != nil {
		return nil, apperror.Internal(err, "get wallet")
	}
	if w == nil {
		return nil, apperror.NotFound("student %s has no wallet", studentID)
	}
	return w, nil
}

// SetStatus moves a wallet between active and frozen, or closes it. Closed is
// terminal, and only an empty wallet can be closed.
func (l *Ledger) SetStatus(ctx context.Context, id uuid.UUID, status model.WalletStatus) (*model.StudentWallet, error) {
	switch status {
	case model.WalletStatusActive, model.WalletStatusFrozen, model.WalletStatusClosed:
	default:
		return nil, apperror.InvalidInput("unknown wallet status %q", status)
	}

	var out *model.StudentWallet
	err := l.store.Transaction(ctx, func(st Store) error {
		w, err := st.LockWallet(ctx, id)
		if err != nil {
			return err
		}
		if w.StudentWalletStatus == model.WalletStatusClosed {
			return apperror.InvalidState("wallet %s is closed", id)
		}
		if status == model.WalletStatusClosed && !w.StudentWalletCurrentBalance.IsZero() {
			return apperror.InvalidState("wallet %s still holds %s", id, w.StudentWalletCurrentBalance.StringFixed(2))
		}
		from := w.StudentWalletStatus
		w.StudentWalletStatus = status
		if err := st.SaveWallet(ctx, w); err != nil {
			return err
		}
		l.log.Info().Str("student_wallet_id", id.String()).Str("from", string(from)).Str("to", string(status)).Msg("wallet status changed")
		out = w
		return nil
	})
	if err != nil {
		return nil, apperror.Internal(err, "set wallet status")
	}
	return out, nil
}

// entry describes one balance change to post.
type entry struct {
	kind          model.WalletTransactionType
	amount        decimal.Decimal
	category      *string
	paymentMethod *string
	details       map[string]any
	// check runs under the wallet lock before the balance moves.
	check func(ctx context.Context, st Store, w *model.StudentWallet, now time.Time) error
}

func (l *Ledger) Topup(ctx context.Context, id uuid.UUID, amount decimal.Decimal, paymentMethod string) (*model.WalletTransaction, *model.StudentWallet, error) {
	if err := money.RequirePositive("amount", amount); err != nil {
		return nil, nil, err
	}
	method := strings.TrimSpace(paymentMethod)
	if method == "" {
		return nil, nil, apperror.InvalidInput("payment_method is required")
	}
	return l.post(ctx, id, entry{kind: model.WalletTxDeposit, amount: amount, paymentMethod: &method})
}

func (l *Ledger) Withdraw(ctx context.Context, id uuid.UUID, amount decimal.Decimal, paymentMethod string) (*model.WalletTransaction, *model.StudentWallet, error) {
	if err := money.RequirePositive("amount", amount); err != nil {
		return nil, nil, err
	}
	method := strings.TrimSpace(paymentMethod)
	if method == "" {
		return nil, nil, apperror.InvalidInput("payment_method is required")
	}
	return l.post(ctx, id, entry{kind: model.WalletTxWithdrawal, amount: amount, paymentMethod: &method})
}

// Purchase spends from the wallet. The category is stored normalised so
// "Canteen", " canteen " and "ＣＡＮＴＥＥＮ" group together.
func (l *Ledger) Purchase(ctx context.Context, id uuid.UUID, amount decimal.Decimal, category, description string) (*model.WalletTransaction, *model.StudentWallet, error) {
	if err := money.RequirePositive("amount", amount); err != nil {
		return nil, nil, err
	}
	cat := NormalizeCategory(category)
	desc := strings.TrimSpace(description)
	if cat == "" {
		return nil, nil, apperror.InvalidInput("category is required")
	}
	if desc == "" {
		return nil, nil, apperror.InvalidInput("description is required")
	}
	return l.post(ctx, id, entry{
		kind:     model.WalletTxPurchase,
		amount:   amount,
		category: &cat,
		details:  map[string]any{"category": cat, "description": desc},
		check:    l.checkDailyLimit(amount),
	})
}

func (l *Ledger) checkDailyLimit(amount decimal.Decimal) func(context.Context, Store, *model.StudentWallet, time.Time) error {
	return func(ctx context.Context, st Store, w *model.StudentWallet, now time.Time) error {
		limit := w.StudentWalletDailySpendingLimit
		if !limit.IsPositive() {
			return nil
		}
		local := now.In(l.loc)
		startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, l.loc)
		spent, err := st.SumEntries(ctx, w.StudentWalletID, model.WalletTxPurchase, startOfDay)
		if err != nil {
			return err
		}
		if spent.Add(amount).GreaterThan(limit) {
			return apperror.InvalidInput("purchase of %s exceeds the daily spending limit of %s (%s already spent today)",
				amount.StringFixed(2), limit.StringFixed(2), spent.StringFixed(2))
		}
		return nil
	}
}

// Refund credits money back, e.g. for a reversed purchase.
func (l *Ledger) Refund(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reason string, reference *string) (*model.WalletTransaction, *model.StudentWallet, error) {
	if err := money.RequirePositive("amount", amount); err != nil {
		return nil, nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, apperror.InvalidInput("reason is required")
	}
	details := map[string]any{"reason": reason}
	if reference != nil && strings.TrimSpace(*reference) != "" {
		details["reference"] = strings.TrimSpace(*reference)
	}
	return l.post(ctx, id, entry{kind: model.WalletTxRefund, amount: amount, details: details})
}

func NormalizeCategory(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}

func (l *Ledger) post(ctx context.Context, id uuid.UUID, e entry) (*model.WalletTransaction, *model.StudentWallet, error) {
	var details datatypes.JSON
	if len(e.details) > 0 {
		raw, err := sonic.Marshal(e.details)
		if err != nil {
			return nil, nil, apperror.Internal(err, "encode item details")
		}
		details = datatypes.JSON(raw)
	}

	var (
		outEntry  *model.WalletTransaction
		outWallet *model.StudentWallet
	)
	err := l.store.Transaction(ctx, func(st Store) error {
		w, err := st.LockWallet(ctx, id)
		if err != nil {
			return err
		}
		if w.StudentWalletStatus != model.WalletStatusActive {
			return apperror.InvalidState("wallet %s is %s", id, w.StudentWalletStatus)
		}
		now := l.now()
		if e.check != nil {
			if err := e.check(ctx, st, w, now); err != nil {
				return err
			}
		}

		before := w.StudentWalletCurrentBalance
		if e.kind.Credit() {
			w.StudentWalletTotalDeposits = w.StudentWalletTotalDeposits.Add(e.amount)
			w.StudentWalletCurrentBalance = before.Add(e.amount)
		} else {
			if before.LessThan(e.amount) {
				return apperror.InsufficientFunds("wallet %s holds %s, %s requested", id, before.StringFixed(2), e.amount.StringFixed(2))
			}
			w.StudentWalletTotalWithdrawals = w.StudentWalletTotalWithdrawals.Add(e.amount)
			w.StudentWalletCurrentBalance = before.Sub(e.amount)
		}

		number, err := st.NextNumber(ctx, sequences.KindWalletTransaction, sequences.Day(now, l.loc))
		if err != nil {
			return err
		}
		rec := &model.WalletTransaction{
			WalletTransactionWalletID:      w.StudentWalletID,
			WalletTransactionNumber:        number,
			WalletTransactionType:          e.kind,
			WalletTransactionAmount:        e.amount,
			WalletTransactionBalanceBefore: before,
			WalletTransactionBalanceAfter:  w.StudentWalletCurrentBalance,
			WalletTransactionCategory:      e.category,
			WalletTransactionPaymentMethod: e.paymentMethod,
			WalletTransactionItemDetails:   details,
			WalletTransactionCreatedAt:     now,
		}
		if err := st.CreateEntry(ctx, rec); err != nil {
			return err
		}
		if err := st.SaveWallet(ctx, w); err != nil {
			return err
		}
		if err := verify(ctx, st, w.StudentWalletID); err != nil {
			return err
		}
		outEntry, outWallet = rec, w
		return nil
	})
	if err != nil {
		return nil, nil, apperror.Internal(err, "post wallet "+string(e.kind))
	}

	ev := l.log.Info()
	if outWallet.IsLowBalance() {
		ev = l.log.Warn().Bool("low_balance", true)
	}
	ev.Str("student_wallet_id", id.String()).
		Str("number", outEntry.WalletTransactionNumber).
		Str("type", string(e.kind)).
		Str("amount", e.amount.StringFixed(2)).
		Str("balance", outWallet.StudentWalletCurrentBalance.StringFixed(2)).
		Msg("wallet entry posted")
	return outEntry, outWallet, nil
}

// verify re-reads the wallet after a write: the running totals must agree with
// each other and with the newest entry, otherwise the write is rolled back.
func verify(ctx context.Context, st Store, id uuid.UUID) error {
	w, err := st.GetWallet(ctx, id)
	if err != nil {
		return err
	}
	last, err := st.LastEntry(ctx, id, nil)
	if err != nil {
		return err
	}
	if !w.Reconciles() {
		return apperror.Internal(errWalletOutOfBalance, "wallet totals do not reconcile")
	}
	if last == nil || !last.WalletTransactionBalanceAfter.Equal(w.StudentWalletCurrentBalance) {
		return apperror.Internal(errWalletOutOfBalance, "wallet balance does not match its last entry")
	}
	return nil
}

func (l *Ledger) History(ctx context.Context, id uuid.UUID, limit, offset int) ([]model.WalletTransaction, int64, error) {
	if _, err := l.store.GetWallet(ctx, id); err != nil {
		return nil, 0, apperror.Internal(err, "get wallet")
	}
	rows, total, err := l.store.ListEntries(ctx, id, EntryWindow{}, limit, offset)
	if err != nil {
		return nil, 0, apperror.Internal(err, "list wallet entries")
	}
	return rows, total, nil
}

// Statement covers the calendar days start..end (inclusive) in the business
// timezone. start and end are date values.
func (l *Ledger) Statement(ctx context.Context, id uuid.UUID, start, end *time.Time) (*dto.WalletStatement, error) {
	if start == nil || end == nil {
		return nil, apperror.InvalidInput("start and end are required")
	}
	if start.After(*end) {
		return nil, apperror.InvalidInput("start must not be after end")
	}
	w, err := l.store.GetWallet(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "get wallet")
	}

	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, l.loc)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, l.loc).AddDate(0, 0, 1)

	opening := decimal.Zero
	prev, err := l.store.LastEntry(ctx, id, &from)
	if err != nil {
		return nil, apperror.Internal(err, "load opening balance")
	}
	if prev != nil {
		opening = prev.WalletTransactionBalanceAfter
	}
	entries, _, err := l.store.ListEntries(ctx, id, EntryWindow{From: &from, To: &to}, 0, 0)
	if err != nil {
		return nil, apperror.Internal(err, "list wallet entries")
	}

	st := &dto.WalletStatement{
		WalletID:       id,
		Currency:       w.StudentWalletCurrency,
		PeriodStart:    *start,
		PeriodEnd:      *end,
		OpeningBalance: opening,
		ClosingBalance: opening,
		TotalCredits:   decimal.Zero,
		TotalDebits:    decimal.Zero,
		Entries:        entries,
	}
	if st.Entries == nil {
		st.Entries = []model.WalletTransaction{}
	}
	for _, e := range entries {
		if e.WalletTransactionType.Credit() {
			st.TotalCredits = st.TotalCredits.Add(e.WalletTransactionAmount)
		} else {
			st.TotalDebits = st.TotalDebits.Add(e.WalletTransactionAmount)
		}
	}
	if n := len(entries); n > 0 {
		st.ClosingBalance = entries[n-1].WalletTransactionBalanceAfter
	}
	return st, nil
}
