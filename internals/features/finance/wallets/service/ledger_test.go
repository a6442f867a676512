package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inmemdb "feeledger_backend/internals/databases/inmem"
	ft "feeledger_backend/internals/features/finance/financetest"
	"feeledger_backend/internals/features/finance/wallets/dto"
	"feeledger_backend/internals/features/finance/wallets/model"
	"feeledger_backend/internals/helpers/apperror"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newLedger(t *testing.T) (*Ledger, *inmemdb.DB, *clock, uuid.UUID) {
	t.Helper()
	db := inmemdb.Open()
	c := &clock{t: time.Date(2024, 8, 1, 3, 0, 0, 0, time.UTC)}
	l := NewLedger(NewMemoryStore(db), Options{DefaultCurrency: "IDR", Now: c.now})
	return l, db, c, ft.AddStudent(t, db, "Ayu")
}

func newWallet(t *testing.T, l *Ledger, student uuid.UUID, limit string) *model.StudentWallet {
	t.Helper()
	req := dto.CreateWalletRequest{StudentID: student}
	if limit != "" {
		d := ft.D(limit)
		req.DailySpendingLimit = &d
	}
	w, err := l.CreateWallet(context.Background(), req)
	require.NoError(t, err)
	return w
}

func TestCreateWallet(t *testing.T) {
	l, _, _, student := newLedger(t)
	ctx := context.Background()

	w := newWallet(t, l, student, "")
	assert.Equal(t, "IDR", w.StudentWalletCurrency)
	assert.Equal(t, model.WalletStatusActive, w.StudentWalletStatus)
	assert.True(t, w.StudentWalletCurrentBalance.IsZero())

	_, err := l.CreateWallet(ctx, dto.CreateWalletRequest{StudentID: student})
	assert.ErrorIs(t, err, apperror.ErrInvalidState, "one wallet per student")

	_, err = l.CreateWallet(ctx, dto.CreateWalletRequest{StudentID: uuid.New()})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := l.GetWalletByStudent(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, w.StudentWalletID, got.StudentWalletID)
}

func TestTopupAndPurchase(t *testing.T) {
	l, _, _, student := newLedger(t)
	ctx := context.Background()
	w := newWallet(t, l, student, "")

	e, got, err := l.Topup(ctx, w.StudentWalletID, ft.D("100"), "cash")
	require.NoError(t, err)
	assert.Equal(t, model.WalletTxDeposit, e.WalletTransactionType)
	assert.Equal(t, "WLT-20240801-000001", e.WalletTransactionNumber)
	assert.True(t, e.WalletTransactionBalanceBefore.IsZero())
	assert.True(t, e.WalletTransactionBalanceAfter.Equal(ft.D("100")))
	assert.True(t, got.StudentWalletTotalDeposits.Equal(ft.D("100")))

	e, got, err = l.Purchase(ctx, w.StudentWalletID, ft.D("30.50"), "  Canteen ", "lunch")
	require.NoError(t, err)
	assert.Equal(t, "canteen", *e.WalletTransactionCategory)
	assert.JSONEq(t, `{"category":"canteen","description":"lunch"}`, string(e.WalletTransactionItemDetails))
	assert.True(t, e.WalletTransactionBalanceAfter.Equal(ft.D("69.50")))
	assert.True(t, got.StudentWalletTotalWithdrawals.Equal(ft.D("30.50")))
	assert.True(t, got.Reconciles())
}

func TestPurchaseWithInsufficientFunds(t *testing.T) {
	l, _, _, student := newLedger(t)
	ctx := context.Background()
	w := newWallet(t, l, student, "")
	_, _, err := l.Topup(ctx, w.StudentWalletID, ft.D("100"), "cash")
	require.NoError(t, err)

	_, _, err = l.Purchase(ctx, w.StudentWalletID, ft.D("150"), "books", "atlas")
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)

	got, err := l.GetWallet(ctx, w.StudentWalletID)
	require.NoError(t, err)
	assert.True(t, got.StudentWalletCurrentBalance.Equal(ft.D("100")))
	rows, total, err := l.History(ctx, w.StudentWalletID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, rows, 1)
}

func TestPostingValidation(t *testing.T) {
	l, _, _, student := newLedger(t)
	ctx := context.Background()
	id := newWallet(t, l, student, "").StudentWalletID

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"zero topup", func() error { _, _, err := l.Topup(ctx, id, decimal.Zero, "cash"); return err }, apperror.ErrInvalidInput},
		{"negative topup", func() error { _, _, err := l.Topup(ctx, id, ft.D("-1"), "cash"); return err }, apperror.ErrInvalidInput},
		{"topup without method", func() error { _, _, err := l.Topup(ctx, id, ft.D("1"), " "); return err }, apperror.ErrInvalidInput},
		{"purchase without category", func() error { _, _, err := l.Purchase(ctx, id, ft.D("1"), "", "x"); return err }, apperror.ErrInvalidInput},
		{"purchase without description", func() error { _, _, err := l.Purchase(ctx, id, ft.D("1"), "x", ""); return err }, apperror.ErrInvalidInput},
		{"refund without reason", func() error { _, _, err := l.Refund(ctx, id, ft.D("1"), "", nil); return err }, apperror.ErrInvalidInput},
		{"unknown wallet", func() error { _, _, err := l.Topup(ctx, uuid.New(), ft.D("1"), "cash"); return err }, apperror.ErrNotFound},
		{"withdraw from empty wallet", func() error { _, _, err := l.Withdraw(ctx, id, ft.D("1"), "cash"); return err }, apperror.ErrInsufficientFunds},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.run(), tc.want)
		})
	}
}

func TestFrozenAndClosedWallets(t *testing.T) {
	l, _, _, student := newLedger(t)
	ctx := context.Background()
	id := newWallet(t, l, student, "").StudentWalletID
	_, _, err := l.Topup(ctx, id, ft.D("20"), "cash")
	require.NoError(t, err)

	_, err = l.SetStatus(ctx, id, model.WalletStatusFrozen)
	require.NoError(t, err)
	_, _, err = l.Topup(ctx, id, ft.D("1"), "cash")
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = l.SetStatus(ctx, id, model.WalletStatusClosed)
	assert.ErrorIs(t, err, apperror.ErrInvalidState, "balance must be zero to close")

	_, err = l.SetStatus(ctx, id, model.WalletStatusActive)
	require.NoError(t, err)
	_, _, err = l.Withdraw(ctx, id, ft.D("20"), "cash")
	require.NoError(t, err)
	w, err := l.SetStatus(ctx, id, model.WalletStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, model.WalletStatusClosed, w.StudentWalletStatus)

	_, err = l.SetStatus(ctx, id, model.WalletStatusActive)
	assert.ErrorIs(t, err, apperror.ErrInvalidState, "closed is terminal")
	_, err = l.SetStatus(ctx, id, "deleted")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestDailySpendingLimit(t *testing.T) {
	l, _, c, student := newLedger(t)
	ctx := context.Background()
	id := newWallet(t, l, student, "50").StudentWalletID
	_, _, err := l.Topup(ctx, id, ft.D("200"), "cash")
	require.NoError(t, err)

	_, _, err = l.Purchase(ctx, id, ft.D("40"), "canteen", "lunch")
	require.NoError(t, err)
	_, _, err = l.Purchase(ctx, id, ft.D("10.01"), "canteen", "snack")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, _, err = l.Purchase(ctx, id, ft.D("10"), "canteen", "snack")
	require.NoError(t, err)

	c.advance(24 * time.Hour)
	_, _, err = l.Purchase(ctx, id, ft.D("50"), "canteen", "lunch")
	require.NoError(t, err, "the limit resets the next day")
}

func TestRefundCountsAsDeposit(t *testing.T) {
	l, _, _, student := newLedger(t)
	ctx := context.Background()
	id := newWallet(t, l, student, "").StudentWalletID
	_, _, err := l.Topup(ctx, id, ft.D("100"), "cash")
	require.NoError(t, err)
	_, _, err = l.Purchase(ctx, id, ft.D("60"), "books", "atlas")
	require.NoError(t, err)

	ref := "WLT-20240801-000002"
	e, w, err := l.Refund(ctx, id, ft.D("60"), "returned", &ref)
	require.NoError(t, err)
	assert.Equal(t, model.WalletTxRefund, e.WalletTransactionType)
	assert.True(t, w.StudentWalletCurrentBalance.Equal(ft.D("100")))
	assert.True(t, w.StudentWalletTotalDeposits.Equal(ft.D("160")))
	assert.True(t, w.Reconciles())
}

func TestStatement(t *testing.T) {
	l, _, c, student := newLedger(t)
	ctx := context.Background()
	id := newWallet(t, l, student, "").StudentWalletID

	_, _, err := l.Topup(ctx, id, ft.D("100"), "cash") // Aug 1
	require.NoError(t, err)
	c.advance(48 * time.Hour)
	_, _, err = l.Purchase(ctx, id, ft.D("30"), "canteen", "lunch") // Aug 3
	require.NoError(t, err)
	c.advance(24 * time.Hour)
	_, _, err = l.Topup(ctx, id, ft.D("5"), "cash") // Aug 4
	require.NoError(t, err)
	c.advance(48 * time.Hour)
	_, _, err = l.Purchase(ctx, id, ft.D("1"), "canteen", "water") // Aug 6
	require.NoError(t, err)

	st, err := l.Statement(ctx, id, ft.DatePtr(2024, 8, 2), ft.DatePtr(2024, 8, 4))
	require.NoError(t, err)
	assert.True(t, st.OpeningBalance.Equal(ft.D("100")))
	assert.True(t, st.ClosingBalance.Equal(ft.D("75")))
	assert.True(t, st.TotalCredits.Equal(ft.D("5")))
	assert.True(t, st.TotalDebits.Equal(ft.D("30")))
	assert.Len(t, st.Entries, 2)

	st, err = l.Statement(ctx, id, ft.DatePtr(2024, 7, 1), ft.DatePtr(2024, 7, 31))
	require.NoError(t, err)
	assert.True(t, st.OpeningBalance.IsZero())
	assert.True(t, st.ClosingBalance.IsZero(), "no entries: closing equals opening")
	assert.Empty(t, st.Entries)

	_, err = l.Statement(ctx, id, ft.DatePtr(2024, 8, 5), ft.DatePtr(2024, 8, 4))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = l.Statement(ctx, id, nil, ft.DatePtr(2024, 8, 4))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestCorruptedWalletRollsBack(t *testing.T) {
	l, db, _, student := newLedger(t)
	ctx := context.Background()
	id := newWallet(t, l, student, "").StudentWalletID
	_, _, err := l.Topup(ctx, id, ft.D("100"), "cash")
	require.NoError(t, err)

	require.NoError(t, db.Write(func(tb *inmemdb.Tables) error {
		w := tb.Wallets[id]
		w.StudentWalletTotalDeposits = ft.D("90")
		tb.Wallets[id] = w
		return nil
	}))

	_, _, err = l.Topup(ctx, id, ft.D("10"), "cash")
	assert.ErrorIs(t, err, apperror.ErrInternal)

	_, total, err := l.History(ctx, id, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "the failed entry was rolled back")
}

func TestNormalizeCategory(t *testing.T) {
	for in, want := range map[string]string{
		"Canteen":          "canteen",
		"  School   Trip ": "school trip",
		"ＣＡＮＴＥＥＮ":          "canteen",
		"":                 "",
	} {
		assert.Equal(t, want, NormalizeCategory(in), in)
	}
}
