package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	feeModel "feeledger_backend/internals/features/finance/fees/model"
	feeService "feeledger_backend/internals/features/finance/fees/service"
	"feeledger_backend/internals/features/finance/schedules/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
)

type ScheduleFilter struct {
	StudentID *uuid.UUID
	Status    *model.ScheduleStatus
}

// Store is the persistence the schedule builder and the payment ledger share.
// Lock* variants take row locks that last until the surrounding transaction ends.
// Items always come back ordered by position.
type Store interface {
	Transaction(ctx context.Context, fn func(Store) error) error

	GetEnrollment(ctx context.Context, id uuid.UUID) (*schoolModel.Enrollment, error)
	FindAssignments(ctx context.Context, f feeService.AssignmentFilter) ([]feeModel.FeeAssignment, error)

	GetSchedule(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error)
	LockSchedule(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error)
	// FindScheduleByEnrollment returns nil when the enrollment has no schedule.
	FindScheduleByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*model.PaymentSchedule, error)
	ListSchedules(ctx context.Context, f ScheduleFilter, limit, offset int) ([]model.PaymentSchedule, int64, error)
	CreateSchedule(ctx context.Context, s *model.PaymentSchedule) error
	SaveSchedule(ctx context.Context, s *model.PaymentSchedule) error
	DeleteSchedule(ctx context.Context, id uuid.UUID) error

	ListItems(ctx context.Context, scheduleID uuid.UUID) ([]model.PaymentItem, error)
	// LockItems returns the rows among ids that belong to scheduleID.
	LockItems(ctx context.Context, scheduleID uuid.UUID, ids []uuid.UUID) ([]model.PaymentItem, error)
	ReplaceItems(ctx context.Context, scheduleID uuid.UUID, items []model.PaymentItem) error
	SaveItems(ctx context.Context, items []model.PaymentItem) error

	// MarkOverdue flips pending, unpaid items of active schedules due before day.
	MarkOverdue(ctx context.Context, day time.Time) (int64, error)
}
