package service

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"feeledger_backend/internals/features/finance/fees/dto"
	"feeledger_backend/internals/features/finance/fees/model"
	"feeledger_backend/internals/helpers/apperror"
	"feeledger_backend/internals/logger"
)

// Resolver answers "which fees apply to this student over this window".
type Resolver struct {
	catalog         Catalog
	defaultCurrency string
	log             zerolog.Logger
}

func NewResolver(catalog Catalog, defaultCurrency string) *Resolver {
	return &Resolver{
		catalog:         catalog,
		defaultCurrency: defaultCurrency,
		log:             logger.WithComponent("fee_resolver"),
	}
}

type ResolveInput struct {
	StudentID   uuid.UUID
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*dto.Resolution, error) {
	if in.StudentID == uuid.Nil {
		return nil, apperror.InvalidInput("student_id is required")
	}
	if in.PeriodStart != nil && in.PeriodEnd != nil && in.PeriodEnd.Before(*in.PeriodStart) {
		return nil, apperror.InvalidInput("period_end is before period_start")
	}

	if _, err := r.catalog.GetStudent(ctx, in.StudentID); err != nil {
		return nil, apperror.Internal(err, "load student")
	}
	enr, err := r.catalog.GetActiveEnrollment(ctx, in.StudentID)
	if err != nil {
		return nil, apperror.Internal(err, "load enrollment")
	}

	var classID *uuid.UUID
	if enr != nil {
		classID = &enr.EnrollmentClassID
	}
	assignments, err := r.catalog.FindAssignments(ctx, ApplicableTo(in.StudentID, classID))
	if err != nil {
		return nil, apperror.Internal(err, "load fee assignments")
	}

	included := Applicable(assignments, in.PeriodStart, in.PeriodEnd)
	currency, err := ResolveCurrency(included, r.defaultCurrency)
	if err != nil {
		return nil, err
	}
	items, upcoming := Expand(included, in.PeriodStart, in.PeriodEnd)

	res := &dto.Resolution{
		StudentID:     in.StudentID,
		ClassID:       classID,
		PeriodStart:   in.PeriodStart,
		PeriodEnd:     in.PeriodEnd,
		Currency:      currency,
		LineItems:     items,
		TotalDueNow:   lo.Reduce(items, func(acc decimal.Decimal, it dto.LineItem, _ int) decimal.Decimal { return acc.Add(it.Amount) }, decimal.Zero),
		TotalUpcoming: upcoming,
	}
	r.log.Debug().
		Str("student_id", in.StudentID.String()).
		Int("assignments", len(included)).
		Int("line_items", len(items)).
		Str("total_due_now", res.TotalDueNow.StringFixed(2)).
		Msg("fees resolved")
	return res, nil
}

// ApplicableTo builds the student-or-class filter. Without a class only
// student-targeted assignments can match.
func ApplicableTo(studentID uuid.UUID, classID *uuid.UUID) AssignmentFilter {
	return AssignmentFilter{StudentID: &studentID, ClassID: classID}
}

// Applicable keeps the assignments whose window intersects [from, to] and
// orders them by priority, then id.
func Applicable(assignments []model.FeeAssignment, from, to *time.Time) []model.FeeAssignment {
	out := lo.Filter(assignments, func(a model.FeeAssignment, _ int) bool {
		return a.FeeDefinition != nil && a.Overlaps(from, to)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FeeAssignmentPriority != out[j].FeeAssignmentPriority {
			return out[i].FeeAssignmentPriority < out[j].FeeAssignmentPriority
		}
		return bytes.Compare(out[i].FeeAssignmentID[:], out[j].FeeAssignmentID[:]) < 0
	})
	return out
}

// Expand turns ordered assignments into line items. Installments are kept when
// their due date falls inside [from, to] (no due date is always kept); a
// definition without installments yields one flat item. upcoming sums the
// installments due after to.
func Expand(assignments []model.FeeAssignment, from, to *time.Time) (items []dto.LineItem, upcoming decimal.Decimal) {
	items = make([]dto.LineItem, 0, len(assignments))
	upcoming = decimal.Zero

	for _, a := range assignments {
		def := a.FeeDefinition
		if def == nil {
			continue
		}
		src := dto.LineItemSource{
			AssignmentID: a.FeeAssignmentID,
			ClassID:      a.FeeAssignmentClassID,
			StudentID:    a.FeeAssignmentStudentID,
		}

		if !def.HasInstallments() {
			items = append(items, dto.LineItem{
				Type:            dto.LineItemFlat,
				FeeDefinitionID: def.FeeDefinitionID,
				FeeName:         def.FeeDefinitionName,
				DueDate:         def.FeeDefinitionDueDate,
				Amount:          def.FeeDefinitionBaseAmount,
				Currency:        def.FeeDefinitionCurrency,
				Source:          src,
			})
			continue
		}

		insts := append([]model.FeeInstallment(nil), def.FeeDefinitionInstallments...)
		sort.SliceStable(insts, func(i, j int) bool { return insts[i].FeeInstallmentIndex < insts[j].FeeInstallmentIndex })
		for _, in := range insts {
			if due := in.FeeInstallmentDueDate; due != nil && to != nil && due.After(*to) {
				upcoming = upcoming.Add(in.FeeInstallmentAmount)
				continue
			}
			if !dueWithin(in.FeeInstallmentDueDate, from, to) {
				continue
			}
			items = append(items, dto.LineItem{
				Type:            dto.LineItemInstallment,
				FeeDefinitionID: def.FeeDefinitionID,
				FeeName:         def.FeeDefinitionName,
				Installment: &dto.InstallmentRef{
					Label:   in.FeeInstallmentLabel,
					DueDate: in.FeeInstallmentDueDate,
					Index:   in.FeeInstallmentIndex,
				},
				DueDate:  in.FeeInstallmentDueDate,
				Amount:   in.FeeInstallmentAmount,
				Currency: def.FeeDefinitionCurrency,
				Source:   src,
			})
		}
	}
	return items, upcoming
}

func dueWithin(due, from, to *time.Time) bool {
	if due == nil {
		return true
	}
	if from != nil && due.Before(*from) {
		return false
	}
	if to != nil && due.After(*to) {
		return false
	}
	return true
}

// ResolveCurrency returns the single currency of the assignments' definitions,
// or fallback when there are none. Mixed currencies cannot be totalled.
func ResolveCurrency(assignments []model.FeeAssignment, fallback string) (string, error) {
	currencies := lo.Uniq(lo.FilterMap(assignments, func(a model.FeeAssignment, _ int) (string, bool) {
		if a.FeeDefinition == nil {
			return "", false
		}
		return a.FeeDefinition.FeeDefinitionCurrency, true
	}))
	switch len(currencies) {
	case 0:
		return fallback, nil
	case 1:
		return currencies[0], nil
	default:
		return "", apperror.InvalidState("applicable fees use more than one currency: %v", currencies)
	}
}
