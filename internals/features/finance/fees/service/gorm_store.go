package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"feeledger_backend/internals/features/finance/fees/model"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
	"feeledger_backend/internals/helpers/apperror"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) GetStudent(ctx context.Context, id uuid.UUID) (*schoolModel.Student, error) {
	var m schoolModel.Student
	if err := s.db.WithContext(ctx).First(&m, "student_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("student %s not found", id)
		}
		return nil, errors.Wrap(err, "get student")
	}
	return &m, nil
}

func (s *GormStore) GetActiveEnrollment(ctx context.Context, studentID uuid.UUID) (*schoolModel.Enrollment, error) {
	var rows []schoolModel.Enrollment
	err := s.db.WithContext(ctx).
		Where("enrollment_student_id = ? AND enrollment_status = ?", studentID, schoolModel.EnrollmentStatusActive).
		Order("enrollment_started_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "get active enrollment")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func withDefinition(db *gorm.DB) *gorm.DB {
	return db.
		Preload("FeeDefinition").
		Preload("FeeDefinition.FeeDefinitionInstallments", func(db *gorm.DB) *gorm.DB {
			return db.Order("fee_installment_index ASC")
		})
}

func (s *GormStore) FindAssignments(ctx context.Context, f AssignmentFilter) ([]model.FeeAssignment, error) {
	q := withDefinition(s.db.WithContext(ctx).Model(&model.FeeAssignment{}))

	switch {
	case f.StudentID != nil && f.ClassID != nil:
		q = q.Where("(fee_assignment_student_id = ? OR fee_assignment_class_id = ?)", *f.StudentID, *f.ClassID)
	case f.StudentID != nil:
		q = q.Where("fee_assignment_student_id = ?", *f.StudentID)
	case f.ClassID != nil:
		q = q.Where("fee_assignment_class_id = ?", *f.ClassID)
	}
	if f.FeeDefinitionID != nil {
		q = q.Where("fee_assignment_fee_definition_id = ?", *f.FeeDefinitionID)
	}

	var rows []model.FeeAssignment
	if err := q.Order("fee_assignment_priority ASC, fee_assignment_id ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "find fee assignments")
	}
	return rows, nil
}

func (s *GormStore) CreateDefinition(ctx context.Context, def *model.FeeDefinition) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(def).Error, "create fee definition")
}

func (s *GormStore) GetDefinition(ctx context.Context, id uuid.UUID) (*model.FeeDefinition, error) {
	var m model.FeeDefinition
	err := s.db.WithContext(ctx).
		Preload("FeeDefinitionInstallments", func(db *gorm.DB) *gorm.DB {
			return db.Order("fee_installment_index ASC")
		}).
		First(&m, "fee_definition_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("fee definition %s not found", id)
		}
		return nil, errors.Wrap(err, "get fee definition")
	}
	return &m, nil
}

func (s *GormStore) ListDefinitions(ctx context.Context, limit, offset int) ([]model.FeeDefinition, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.FeeDefinition{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count fee definitions")
	}
	var rows []model.FeeDefinition
	err := q.
		Preload("FeeDefinitionInstallments", func(db *gorm.DB) *gorm.DB {
			return db.Order("fee_installment_index ASC")
		}).
		Order("fee_definition_created_at DESC, fee_definition_id ASC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list fee definitions")
	}
	return rows, total, nil
}

func (s *GormStore) UpdateDefinition(ctx context.Context, def *model.FeeDefinition) error {
	db := s.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(def).Error; err != nil {
		return errors.Wrap(err, "save fee definition")
	}
	if err := db.Where("fee_installment_fee_definition_id = ?", def.FeeDefinitionID).
		Delete(&model.FeeInstallment{}).Error; err != nil {
		return errors.Wrap(err, "drop fee installments")
	}
	if len(def.FeeDefinitionInstallments) == 0 {
		return nil
	}
	return errors.Wrap(db.Create(&def.FeeDefinitionInstallments).Error, "create fee installments")
}

func (s *GormStore) CreateAssignment(ctx context.Context, a *model.FeeAssignment) error {
	return errors.Wrap(s.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error, "create fee assignment")
}

func (s *GormStore) GetAssignment(ctx context.Context, id uuid.UUID) (*model.FeeAssignment, error) {
	var m model.FeeAssignment
	if err := withDefinition(s.db.WithContext(ctx)).First(&m, "fee_assignment_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("fee assignment %s not found", id)
		}
		return nil, errors.Wrap(err, "get fee assignment")
	}
	return &m, nil
}

func (s *GormStore) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&model.FeeAssignment{}, "fee_assignment_id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete fee assignment")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("fee assignment %s not found", id)
	}
	return nil
}
