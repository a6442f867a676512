package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	database "feeledger_backend/internals/databases"
	feeModel "feeledger_backend/internals/features/finance/fees/model"
	feeService "feeledger_backend/internals/features/finance/fees/service"
	"feeledger_backend/internals/features/finance/schedules/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
	"feeledger_backend/internals/helpers/apperror"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

// DB exposes the handle so stores layered on top share the same transaction.
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) GetEnrollment(ctx context.Context, id uuid.UUID) (*schoolModel.Enrollment, error) {
	var m schoolModel.Enrollment
	if err := s.db.WithContext(ctx).First(&m, "enrollment_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("enrollment %s not found", id)
		}
		return nil, errors.Wrap(err, "get enrollment")
	}
	return &m, nil
}

func (s *GormStore) FindAssignments(ctx context.Context, f feeService.AssignmentFilter) ([]feeModel.FeeAssignment, error) {
	return feeService.NewGormStore(s.db).FindAssignments(ctx, f)
}

func (s *GormStore) getSchedule(ctx context.Context, id uuid.UUID, lock bool) (*model.PaymentSchedule, error) {
	q := s.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m model.PaymentSchedule
	if err := q.First(&m, "payment_schedule_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("payment schedule %s not found", id)
		}
		return nil, errors.Wrap(err, "get payment schedule")
	}
	return &m, nil
}

func (s *GormStore) GetSchedule(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error) {
	return s.getSchedule(ctx, id, false)
}

func (s *GormStore) LockSchedule(ctx context.Context, id uuid.UUID) (*model.PaymentSchedule, error) {
	return s.getSchedule(ctx, id, true)
}

func (s *GormStore) FindScheduleByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*model.PaymentSchedule, error) {
	var rows []model.PaymentSchedule
	err := s.db.WithContext(ctx).
		Where("payment_schedule_enrollment_id = ?", enrollmentID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "find payment schedule by enrollment")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormStore) ListSchedules(ctx context.Context, f ScheduleFilter, limit, offset int) ([]model.PaymentSchedule, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.PaymentSchedule{})
	if f.StudentID != nil {
		q = q.Where("payment_schedule_student_id = ?", *f.StudentID)
	}
	if f.Status != nil {
		q = q.Where("payment_schedule_status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count payment schedules")
	}
	var rows []model.PaymentSchedule
	err := q.Order("payment_schedule_generated_at DESC, payment_schedule_id ASC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list payment schedules")
	}
	return rows, total, nil
}

func (s *GormStore) CreateSchedule(ctx context.Context, sched *model.PaymentSchedule) error {
	if err := s.db.WithContext(ctx).Create(sched).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperror.Conflict("enrollment %s already has a payment schedule", sched.PaymentScheduleEnrollmentID)
		}
		return errors.Wrap(err, "create payment schedule")
	}
	return nil
}

func (s *GormStore) SaveSchedule(ctx context.Context, sched *model.PaymentSchedule) error {
	return errors.Wrap(s.db.WithContext(ctx).Omit(clause.Associations).Save(sched).Error, "save payment schedule")
}

func (s *GormStore) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("payment_item_schedule_id = ?", id).Delete(&model.PaymentItem{}).Error; err != nil {
		return errors.Wrap(err, "delete payment items")
	}
	res := db.Delete(&model.PaymentSchedule{}, "payment_schedule_id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete payment schedule")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("payment schedule %s not found", id)
	}
	return nil
}

func (s *GormStore) ListItems(ctx context.Context, scheduleID uuid.UUID) ([]model.PaymentItem, error) {
	var rows []model.PaymentItem
	err := s.db.WithContext(ctx).
		Where("payment_item_schedule_id = ?", scheduleID).
		Order("payment_item_position ASC").
		Find(&rows).Error
	return rows, errors.Wrap(err, "list payment items")
}

func (s *GormStore) LockItems(ctx context.Context, scheduleID uuid.UUID, ids []uuid.UUID) ([]model.PaymentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := lo.Map(ids, func(id uuid.UUID, _ int) string { return id.String() })

	var rows []model.PaymentItem
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_item_schedule_id = ? AND payment_item_id = ANY(?::uuid[])", scheduleID, pq.Array(keys)).
		Order("payment_item_position ASC").
		Find(&rows).Error
	return rows, errors.Wrap(err, "lock payment items")
}

func (s *GormStore) ReplaceItems(ctx context.Context, scheduleID uuid.UUID, items []model.PaymentItem) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("payment_item_schedule_id = ?", scheduleID).Delete(&model.PaymentItem{}).Error; err != nil {
		return errors.Wrap(err, "drop payment items")
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].PaymentItemID = uuid.Nil
		items[i].PaymentItemScheduleID = scheduleID
	}
	return errors.Wrap(db.Create(&items).Error, "create payment items")
}

func (s *GormStore) SaveItems(ctx context.Context, items []model.PaymentItem) error {
	db := s.db.WithContext(ctx)
	for i := range items {
		if err := db.Save(&items[i]).Error; err != nil {
			return errors.Wrapf(err, "save payment item %s", items[i].PaymentItemID)
		}
	}
	return nil
}

func (s *GormStore) MarkOverdue(ctx context.Context, day time.Time) (int64, error) {
	active := s.db.Model(&model.PaymentSchedule{}).
		Select("payment_schedule_id").
		Where("payment_schedule_status = ?", model.ScheduleStatusActive)

	res := s.db.WithContext(ctx).Model(&model.PaymentItem{}).
		Where("payment_item_status = ? AND payment_item_paid_amount = 0", model.ItemStatusPending).
		Where("payment_item_due_date < ?", day).
		Where("payment_item_schedule_id IN (?)", active).
		Update("payment_item_status", model.ItemStatusOverdue)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "mark overdue items")
	}
	return res.RowsAffected, nil
}
