package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	feeDto "feeledger_backend/internals/features/finance/fees/dto"
	feeService "feeledger_backend/internals/features/finance/fees/service"
	"feeledger_backend/internals/features/finance/money"
	"feeledger_backend/internals/features/finance/schedules/dto"
	"feeledger_backend/internals/features/finance/schedules/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
	"feeledger_backend/internals/helpers/apperror"
	"feeledger_backend/internals/logger"
)

type Options struct {
	DefaultCurrency string
	Location        *time.Location
	Now             func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = "IDR"
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Builder materialises payment schedules from the applicable fee assignments
// and drives the schedule lifecycle.
type Builder struct {
	store Store
	opts  Options
	log   zerolog.Logger
}

func NewBuilder(store Store, opts Options) *Builder {
	return &Builder{store: store, opts: opts.withDefaults(), log: logger.WithComponent("schedule_builder")}
}

// Today is the current business day as a date value (midnight UTC).
func (b *Builder) Today() time.Time {
	n := b.opts.Now().In(b.opts.Location)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// BuildSchedule persists a draft schedule for an enrollment that has none yet.
func (b *Builder) BuildSchedule(ctx context.Context, enrollmentID uuid.UUID, discounts []dto.DiscountInput) (*model.PaymentSchedule, error) {
	var out *model.PaymentSchedule
	err := b.store.Transaction(ctx, func(st Store) error {
		enr, err := st.GetEnrollment(ctx, enrollmentID)
		if err != nil {
			return err
		}
		existing, err := st.FindScheduleByEnrollment(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.InvalidState("enrollment %s already has schedule %s; regenerate it instead", enrollmentID, existing.PaymentScheduleID)
		}

		sched, err := b.compute(ctx, st, enr, discounts)
		if err != nil {
			return err
		}
		if err := st.CreateSchedule(ctx, sched); err != nil {
			return err
		}
		out = sched
		return nil
	})
	if err != nil {
		return nil, apperror.Internal(err, "build payment schedule")
	}
	b.log.Info().
		Str("payment_schedule_id", out.PaymentScheduleID.String()).
		Str("enrollment_id", enrollmentID.String()).
		Int("items", len(out.PaymentScheduleItems)).
		Str("total", out.PaymentScheduleTotalAmount.StringFixed(2)).
		Msg("payment schedule built")
	return out, nil
}

// PreviewSchedule runs the same computation as BuildSchedule without writing.
func (b *Builder) PreviewSchedule(ctx context.Context, enrollmentID uuid.UUID, discounts []dto.DiscountInput) (*model.PaymentSchedule, error) {
	enr, err := b.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, apperror.Internal(err, "load enrollment")
	}
	sched, err := b.compute(ctx, b.store, enr, discounts)
	if err != nil {
		return nil, apperror.Internal(err, "preview payment schedule")
	}
	return sched, nil
}

// RegenerateSchedule throws the item set away and rebuilds it from the current
// assignments. Refused once any item has received money.
func (b *Builder) RegenerateSchedule(ctx context.Context, scheduleID uuid.UUID, discounts []dto.DiscountInput) (*model.PaymentSchedule, error) {
	var out *model.PaymentSchedule
	err := b.store.Transaction(ctx, func(st Store) error {
		cur, err := st.LockSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if cur.PaymentScheduleStatus == model.ScheduleStatusCancelled {
			return apperror.InvalidState("schedule %s is cancelled", scheduleID)
		}
		items, err := st.ListItems(ctx, scheduleID)
		if err != nil {
			return err
		}
		if hasPayments(items) {
			return apperror.InvalidState("schedule %s already has payments and cannot be regenerated", scheduleID)
		}
		enr, err := st.GetEnrollment(ctx, cur.PaymentScheduleEnrollmentID)
		if err != nil {
			return err
		}

		next, err := b.compute(ctx, st, enr, discounts)
		if err != nil {
			return err
		}
		cur.PaymentScheduleClassID = next.PaymentScheduleClassID
		cur.PaymentScheduleCurrency = next.PaymentScheduleCurrency
		cur.PaymentScheduleTotalAmount = next.PaymentScheduleTotalAmount
		cur.PaymentSchedulePaidAmount = decimal.Zero
		cur.PaymentScheduleGeneratedAt = next.PaymentScheduleGeneratedAt
		if cur.PaymentScheduleStatus == model.ScheduleStatusCompleted {
			cur.PaymentScheduleStatus = model.ScheduleStatusActive
		}

		if err := st.ReplaceItems(ctx, scheduleID, next.PaymentScheduleItems); err != nil {
			return err
		}
		if err := st.SaveSchedule(ctx, cur); err != nil {
			return err
		}
		cur.PaymentScheduleItems, err = st.ListItems(ctx, scheduleID)
		if err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, apperror.Internal(err, "regenerate payment schedule")
	}
	b.log.Info().
		Str("payment_schedule_id", scheduleID.String()).
		Int("items", len(out.PaymentScheduleItems)).
		Str("total", out.PaymentScheduleTotalAmount.StringFixed(2)).
		Msg("payment schedule regenerated")
	return out, nil
}

func hasPayments(items []model.PaymentItem) bool {
	for _, it := range items {
		if it.PaymentItemPaidAmount.IsPositive() {
			return true
		}
	}
	return false
}

// compute resolves the enrollment's fees without a date window and lays them out as items.
func (b *Builder) compute(ctx context.Context, st Store, enr *schoolModel.Enrollment, discounts []dto.DiscountInput) (*model.PaymentSchedule, error) {
	assignments, err := st.FindAssignments(ctx, feeService.ApplicableTo(enr.EnrollmentStudentID, &enr.EnrollmentClassID))
	if err != nil {
		return nil, err
	}
	included := feeService.Applicable(assignments, nil, nil)
	currency, err := feeService.ResolveCurrency(included, b.opts.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	lines, _ := feeService.Expand(included, nil, nil)

	items, total, err := ComposeItems(lines, discounts)
	if err != nil {
		return nil, err
	}
	return &model.PaymentSchedule{
		PaymentScheduleEnrollmentID: enr.EnrollmentID,
		PaymentScheduleStudentID:    enr.EnrollmentStudentID,
		PaymentScheduleClassID:      enr.EnrollmentClassID,
		PaymentScheduleCurrency:     currency,
		PaymentScheduleTotalAmount:  total,
		PaymentSchedulePaidAmount:   decimal.Zero,
		PaymentScheduleStatus:       model.ScheduleStatusDraft,
		PaymentScheduleGeneratedAt:  b.opts.Now(),
		PaymentScheduleItems:        items,
	}, nil
}

type discountKey struct {
	feeDefinitionID uuid.UUID
	installment     int       // 0 = flat item
	assignmentID    uuid.UUID // uuid.Nil = any assignment of the fee
}

// ComposeItems turns resolved line items into payment items, applying the
// caller-supplied discounts, and returns the schedule total (sum of net amounts).
// A discount without a fee assignment must match exactly one item.
func ComposeItems(lines []feeDto.LineItem, discounts []dto.DiscountInput) ([]model.PaymentItem, decimal.Decimal, error) {
	byKey := make(map[discountKey]decimal.Decimal, len(discounts))
	for _, d := range discounts {
		if err := money.RequireNonNegative("discount amount", d.Amount); err != nil {
			return nil, decimal.Zero, err
		}
		k := discountKey{feeDefinitionID: d.FeeDefinitionID}
		if d.InstallmentIndex != nil {
			k.installment = *d.InstallmentIndex
		}
		if d.FeeAssignmentID != nil {
			k.assignmentID = *d.FeeAssignmentID
		}
		if _, dup := byKey[k]; dup {
			return nil, decimal.Zero, apperror.InvalidInput("duplicate discount for fee %s", d.FeeDefinitionID)
		}
		byKey[k] = d.Amount
	}
	used := make(map[discountKey]int, len(byKey))

	items := make([]model.PaymentItem, 0, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		k := discountKey{feeDefinitionID: l.FeeDefinitionID, assignmentID: l.Source.AssignmentID}
		title := l.FeeName
		var instNo *int
		if l.Installment != nil {
			idx := l.Installment.Index
			k.installment = idx
			instNo = &idx
			title = fmt.Sprintf("%s - %s", l.FeeName, l.Installment.Label)
		}

		discount := decimal.Zero
		if amt, ok := byKey[k]; ok {
			discount = amt
			used[k]++
		} else {
			k.assignmentID = uuid.Nil
			if amt, ok := byKey[k]; ok {
				discount = amt
				used[k]++
			}
		}
		if discount.GreaterThan(l.Amount) {
			return nil, decimal.Zero, apperror.InvalidInput("discount %s exceeds %s amount %s", discount.StringFixed(2), title, l.Amount.StringFixed(2))
		}
		net := l.Amount.Sub(discount)
		total = total.Add(net)

		items = append(items, model.PaymentItem{
			PaymentItemFeeDefinitionID: l.FeeDefinitionID,
			PaymentItemFeeAssignmentID: l.Source.AssignmentID,
			PaymentItemTitle:           title,
			PaymentItemInstallmentNo:   instNo,
			PaymentItemDueDate:         l.DueDate,
			PaymentItemPosition:        i + 1,
			PaymentItemAmount:          l.Amount,
			PaymentItemDiscountAmount:  discount,
			PaymentItemNetAmount:       net,
			PaymentItemPaidAmount:      decimal.Zero,
			PaymentItemStatus:          model.StatusFor(decimal.Zero, net),
		})
	}

	for k := range byKey {
		switch n := used[k]; {
		case n == 0:
			return nil, decimal.Zero, apperror.InvalidInput("discount for fee %s does not match any applicable fee", k.feeDefinitionID)
		case n > 1:
			return nil, decimal.Zero, apperror.InvalidInput("discount for fee %s matches %d items; set fee_assignment_id", k.feeDefinitionID, n)
		}
	}
	return items, total, nil
}
