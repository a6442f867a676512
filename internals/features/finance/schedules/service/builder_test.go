package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inmemdb "feeledger_backend/internals/databases/inmem"
	feeDto "feeledger_backend/internals/features/finance/fees/dto"
	feeModel "feeledger_backend/internals/features/finance/fees/model"
	ft "feeledger_backend/internals/features/finance/financetest"
	"feeledger_backend/internals/features/finance/schedules/dto"
	"feeledger_backend/internals/features/finance/schedules/model"
	"feeledger_backend/internals/helpers/apperror"
)

var wib = time.FixedZone("WIB", 7*3600)

type fixture struct {
	db         *inmemdb.DB
	builder    *Builder
	student    uuid.UUID
	class      uuid.UUID
	enrollment uuid.UUID
	tuition    feeModel.FeeDefinition
	uniform    feeModel.FeeDefinition
}

// newFixture: tuition in two installments for the class, a flat uniform fee
// for the student. The clock reads 2024-08-12 01:00 in WIB.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := inmemdb.Open()
	f := &fixture{db: db}
	f.student = ft.AddStudent(t, db, "Ayu")
	f.class = ft.AddClass(t, db, "7A")
	f.enrollment = ft.Enroll(t, db, f.student, f.class, ft.Date(2024, 7, 15))

	tuition := ft.Flat("Tuition", "3000")
	tuition.FeeDefinitionInstallments = []feeModel.FeeInstallment{
		ft.Installment(1, "Term 1", "1500", ft.DatePtr(2024, 8, 11)),
		ft.Installment(2, "Term 2", "1500", ft.DatePtr(2025, 1, 10)),
	}
	f.tuition = ft.AddDefinition(t, db, tuition)
	f.uniform = ft.AddDefinition(t, db, ft.Flat("Uniform", "250"))
	ft.AssignToClass(t, db, f.tuition.FeeDefinitionID, f.class, 1, nil, nil)
	ft.AssignToStudent(t, db, f.uniform.FeeDefinitionID, f.student, 2, nil, nil)

	clock := time.Date(2024, 8, 11, 18, 0, 0, 0, time.UTC)
	f.builder = NewBuilder(NewMemoryStore(db), Options{
		DefaultCurrency: "IDR",
		Location:        wib,
		Now:             func() time.Time { return clock },
	})
	return f
}

func (f *fixture) build(t *testing.T, discounts ...dto.DiscountInput) *model.PaymentSchedule {
	t.Helper()
	s, err := f.builder.BuildSchedule(context.Background(), f.enrollment, discounts)
	require.NoError(t, err)
	return s
}

func (f *fixture) pay(t *testing.T, itemID uuid.UUID, amount string) {
	t.Helper()
	require.NoError(t, f.db.Write(func(tb *inmemdb.Tables) error {
		it := tb.Items[itemID]
		it.Apply(ft.D(amount), time.Now())
		tb.Items[itemID] = it
		return nil
	}))
}

func intPtr(i int) *int { return &i }

func TestBuildSchedule(t *testing.T) {
	f := newFixture(t)
	s := f.build(t)

	assert.Equal(t, model.ScheduleStatusDraft, s.PaymentScheduleStatus)
	assert.Equal(t, "IDR", s.PaymentScheduleCurrency)
	assert.Equal(t, f.class, s.PaymentScheduleClassID)
	assert.True(t, s.PaymentScheduleTotalAmount.Equal(ft.D("3250")))
	assert.True(t, s.PaymentSchedulePaidAmount.IsZero())

	got, err := f.builder.GetSchedule(context.Background(), s.PaymentScheduleID)
	require.NoError(t, err)
	require.Len(t, got.PaymentScheduleItems, 3)

	titles := []string{}
	for i, it := range got.PaymentScheduleItems {
		assert.Equal(t, i+1, it.PaymentItemPosition)
		assert.Equal(t, model.ItemStatusPending, it.PaymentItemStatus)
		assert.NotEqual(t, uuid.Nil, it.PaymentItemID)
		titles = append(titles, it.PaymentItemTitle)
	}
	assert.Equal(t, []string{"Tuition - Term 1", "Tuition - Term 2", "Uniform"}, titles)
	assert.Equal(t, 1, *got.PaymentScheduleItems[0].PaymentItemInstallmentNo)
	assert.Nil(t, got.PaymentScheduleItems[2].PaymentItemInstallmentNo)
}

func TestBuildScheduleTwiceIsRefused(t *testing.T) {
	f := newFixture(t)
	f.build(t)

	_, err := f.builder.BuildSchedule(context.Background(), f.enrollment, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestBuildScheduleUnknownEnrollment(t *testing.T) {
	f := newFixture(t)
	_, err := f.builder.BuildSchedule(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestBuildScheduleWithoutFeesIsEmpty(t *testing.T) {
	db := inmemdb.Open()
	student := ft.AddStudent(t, db, "Bima")
	class := ft.AddClass(t, db, "8B")
	enr := ft.Enroll(t, db, student, class, ft.Date(2024, 7, 15))
	b := NewBuilder(NewMemoryStore(db), Options{DefaultCurrency: "USD"})

	s, err := b.BuildSchedule(context.Background(), enr, nil)
	require.NoError(t, err)
	assert.Equal(t, "USD", s.PaymentScheduleCurrency)
	assert.True(t, s.PaymentScheduleTotalAmount.IsZero())
	assert.Empty(t, s.PaymentScheduleItems)

	s, err = b.Activate(context.Background(), s.PaymentScheduleID)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleStatusCompleted, s.PaymentScheduleStatus, "nothing to pay")
}

func TestBuildScheduleAppliesDiscounts(t *testing.T) {
	f := newFixture(t)
	s := f.build(t,
		dto.DiscountInput{FeeDefinitionID: f.tuition.FeeDefinitionID, InstallmentIndex: intPtr(2), Amount: ft.D("500")},
		dto.DiscountInput{FeeDefinitionID: f.uniform.FeeDefinitionID, Amount: ft.D("250")},
	)

	assert.True(t, s.PaymentScheduleTotalAmount.Equal(ft.D("2500")))
	items := s.PaymentScheduleItems
	require.Len(t, items, 3)
	assert.True(t, items[0].PaymentItemDiscountAmount.IsZero())
	assert.True(t, items[1].PaymentItemNetAmount.Equal(ft.D("1000")))
	assert.True(t, items[1].PaymentItemAmount.Equal(ft.D("1500")), "gross is kept")
	assert.True(t, items[2].PaymentItemNetAmount.IsZero())
	assert.Equal(t, model.ItemStatusPaid, items[2].PaymentItemStatus, "fully discounted item owes nothing")
}

func TestBuildScheduleRejectsBadDiscounts(t *testing.T) {
	tests := []struct {
		name     string
		discount func(f *fixture) dto.DiscountInput
	}{
		{"unknown fee", func(*fixture) dto.DiscountInput {
			return dto.DiscountInput{FeeDefinitionID: uuid.New(), Amount: ft.D("1")}
		}},
		{"installment that does not exist", func(f *fixture) dto.DiscountInput {
			return dto.DiscountInput{FeeDefinitionID: f.tuition.FeeDefinitionID, InstallmentIndex: intPtr(9), Amount: ft.D("1")}
		}},
		{"flat discount on an installment fee", func(f *fixture) dto.DiscountInput {
			return dto.DiscountInput{FeeDefinitionID: f.tuition.FeeDefinitionID, Amount: ft.D("1")}
		}},
		{"more than the item", func(f *fixture) dto.DiscountInput {
			return dto.DiscountInput{FeeDefinitionID: f.uniform.FeeDefinitionID, Amount: ft.D("250.01")}
		}},
		{"negative", func(f *fixture) dto.DiscountInput {
			return dto.DiscountInput{FeeDefinitionID: f.uniform.FeeDefinitionID, Amount: ft.D("-5")}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.builder.BuildSchedule(context.Background(), f.enrollment, []dto.DiscountInput{tc.discount(f)})
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)

			existing, err := NewMemoryStore(f.db).FindScheduleByEnrollment(context.Background(), f.enrollment)
			require.NoError(t, err)
			assert.Nil(t, existing, "nothing persisted")
		})
	}
}

func TestComposeItemsRejectsDuplicateDiscounts(t *testing.T) {
	def := uuid.New()
	lines := []feeDto.LineItem{{FeeDefinitionID: def, FeeName: "Books", Amount: ft.D("100")}}
	_, _, err := ComposeItems(lines, []dto.DiscountInput{
		{FeeDefinitionID: def, Amount: ft.D("10")},
		{FeeDefinitionID: def, Amount: ft.D("20")},
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestDiscountOnFeeAssignedTwice(t *testing.T) {
	f := newFixture(t)
	viaClass := ft.AssignToClass(t, f.db, f.uniform.FeeDefinitionID, f.class, 3, nil, nil)
	ctx := context.Background()

	_, err := f.builder.BuildSchedule(ctx, f.enrollment, []dto.DiscountInput{
		{FeeDefinitionID: f.uniform.FeeDefinitionID, Amount: ft.D("100")},
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput, "an unscoped discount may not land on both items")

	s := f.build(t, dto.DiscountInput{FeeDefinitionID: f.uniform.FeeDefinitionID, FeeAssignmentID: &viaClass, Amount: ft.D("100")})
	require.Len(t, s.PaymentScheduleItems, 4)
	assert.True(t, s.PaymentScheduleTotalAmount.Equal(ft.D("3400")), "3000 + 250 + 150")

	discounted := 0
	for _, it := range s.PaymentScheduleItems {
		if it.PaymentItemFeeDefinitionID != f.uniform.FeeDefinitionID {
			continue
		}
		if it.PaymentItemFeeAssignmentID == viaClass {
			discounted++
			assert.True(t, it.PaymentItemNetAmount.Equal(ft.D("150")))
		} else {
			assert.True(t, it.PaymentItemDiscountAmount.IsZero())
		}
	}
	assert.Equal(t, 1, discounted)
}

func TestBuildScheduleMixedCurrencies(t *testing.T) {
	f := newFixture(t)
	usd := ft.Flat("Exam", "20")
	usd.FeeDefinitionCurrency = "USD"
	def := ft.AddDefinition(t, f.db, usd)
	ft.AssignToClass(t, f.db, def.FeeDefinitionID, f.class, 5, nil, nil)

	_, err := f.builder.BuildSchedule(context.Background(), f.enrollment, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	s, err := f.builder.PreviewSchedule(context.Background(), f.enrollment, nil)
	require.NoError(t, err)
	assert.True(t, s.PaymentScheduleTotalAmount.Equal(ft.D("3250")))

	_, total, err := f.builder.ListSchedules(context.Background(), ScheduleFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.build(t).PaymentScheduleID

	_, err := f.builder.Suspend(ctx, id)
	assert.ErrorIs(t, err, apperror.ErrInvalidState, "draft cannot be suspended")

	s, err := f.builder.Activate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleStatusActive, s.PaymentScheduleStatus)
	assert.NotNil(t, s.PaymentScheduleActivatedAt)

	_, err = f.builder.Activate(ctx, id)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	s, err = f.builder.Suspend(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleStatusSuspended, s.PaymentScheduleStatus)

	s, err = f.builder.Resume(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleStatusActive, s.PaymentScheduleStatus)

	_, err = f.builder.Resume(ctx, id)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestCancelLeavesPaidItemsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.build(t)
	_, err := f.builder.Activate(ctx, s.PaymentScheduleID)
	require.NoError(t, err)
	f.pay(t, s.PaymentScheduleItems[0].PaymentItemID, "500")

	got, err := f.builder.Cancel(ctx, s.PaymentScheduleID)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleStatusCancelled, got.PaymentScheduleStatus)
	assert.Equal(t, model.ItemStatusPartiallyPaid, got.PaymentScheduleItems[0].PaymentItemStatus)
	assert.Equal(t, model.ItemStatusCancelled, got.PaymentScheduleItems[1].PaymentItemStatus)
	assert.Equal(t, model.ItemStatusCancelled, got.PaymentScheduleItems[2].PaymentItemStatus)

	_, err = f.builder.Cancel(ctx, s.PaymentScheduleID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	_, err = f.builder.RegenerateSchedule(ctx, s.PaymentScheduleID, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestRegeneratePicksUpNewAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.build(t)
	oldItem := s.PaymentScheduleItems[0].PaymentItemID

	books := ft.AddDefinition(t, f.db, ft.Flat("Books", "400"))
	ft.AssignToStudent(t, f.db, books.FeeDefinitionID, f.student, 3, nil, nil)

	got, err := f.builder.RegenerateSchedule(ctx, s.PaymentScheduleID, nil)
	require.NoError(t, err)
	assert.Equal(t, s.PaymentScheduleID, got.PaymentScheduleID)
	assert.Equal(t, model.ScheduleStatusDraft, got.PaymentScheduleStatus)
	assert.True(t, got.PaymentScheduleTotalAmount.Equal(ft.D("3650")))
	require.Len(t, got.PaymentScheduleItems, 4)
	assert.Equal(t, "Books", got.PaymentScheduleItems[3].PaymentItemTitle)

	for _, it := range got.PaymentScheduleItems {
		assert.NotEqual(t, oldItem, it.PaymentItemID, "items are replaced")
	}
}

func TestRegenerateRefusedAfterPayment(t *testing.T) {
	f := newFixture(t)
	s := f.build(t)
	f.pay(t, s.PaymentScheduleItems[2].PaymentItemID, "10")

	_, err := f.builder.RegenerateSchedule(context.Background(), s.PaymentScheduleID, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestDeleteSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.build(t)

	f.pay(t, s.PaymentScheduleItems[0].PaymentItemID, "1")
	assert.ErrorIs(t, f.builder.DeleteSchedule(ctx, s.PaymentScheduleID), apperror.ErrInvalidState)

	require.NoError(t, f.db.Write(func(tb *inmemdb.Tables) error {
		it := tb.Items[s.PaymentScheduleItems[0].PaymentItemID]
		it.PaymentItemPaidAmount = ft.D("0")
		tb.Items[it.PaymentItemID] = it
		return nil
	}))
	require.NoError(t, f.builder.DeleteSchedule(ctx, s.PaymentScheduleID))

	_, err := f.builder.GetSchedule(ctx, s.PaymentScheduleID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	items, err := NewMemoryStore(f.db).ListItems(ctx, s.PaymentScheduleID)
	require.NoError(t, err)
	assert.Empty(t, items)

	f.build(t) // the enrollment is free again
}

func TestSweepOverdueUsesBusinessDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.build(t)

	n, err := f.builder.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "draft schedules are left alone")

	_, err = f.builder.Activate(ctx, s.PaymentScheduleID)
	require.NoError(t, err)

	// 18:00 UTC on the 11th is already the 12th in WIB, so Term 1 (due the 11th) is late.
	assert.Equal(t, ft.Date(2024, 8, 12), f.builder.Today())
	n, err = f.builder.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := f.builder.GetSchedule(ctx, s.PaymentScheduleID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusOverdue, got.PaymentScheduleItems[0].PaymentItemStatus)
	assert.Equal(t, model.ItemStatusPending, got.PaymentScheduleItems[1].PaymentItemStatus)
	assert.Equal(t, model.ItemStatusPending, got.PaymentScheduleItems[2].PaymentItemStatus, "no due date")

	n, err = f.builder.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "already overdue")
}

func TestListSchedulesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.build(t)

	active := model.ScheduleStatusActive
	_, total, err := f.builder.ListSchedules(ctx, ScheduleFilter{Status: &active}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	rows, total, err := f.builder.ListSchedules(ctx, ScheduleFilter{StudentID: &f.student}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, f.enrollment, rows[0].PaymentScheduleEnrollmentID)
}
