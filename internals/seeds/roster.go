package seeds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	inmemdb "feeledger_backend/internals/databases/inmem"
	schoolModel "feeledger_backend/internals/features/school/enrollments/model"
)

// Roster writes the school rows the fee seed hangs off. Every Ensure call is
// idempotent: an existing row with the same natural key is returned as is.
type Roster interface {
	EnsureClass(ctx context.Context, name string) (uuid.UUID, error)
	EnsureStudent(ctx context.Context, fullName, nis string) (uuid.UUID, error)
	EnsureEnrollment(ctx context.Context, studentID, classID uuid.UUID, year string, startedAt time.Time) (uuid.UUID, error)
}

type gormRoster struct{ db *gorm.DB }

func NewGormRoster(db *gorm.DB) Roster { return gormRoster{db: db} }

func (r gormRoster) EnsureClass(ctx context.Context, name string) (uuid.UUID, error) {
	var m schoolModel.Class
	err := r.db.WithContext(ctx).
		Where(schoolModel.Class{ClassName: name}).
		FirstOrCreate(&m).Error
	return m.ClassID, errors.Wrapf(err, "ensure class %q", name)
}

func (r gormRoster) EnsureStudent(ctx context.Context, fullName, nis string) (uuid.UUID, error) {
	var m schoolModel.Student
	err := r.db.WithContext(ctx).
		Where("student_nis = ?", nis).
		Attrs(schoolModel.Student{StudentFullName: fullName, StudentNIS: &nis}).
		FirstOrCreate(&m).Error
	return m.StudentID, errors.Wrapf(err, "ensure student %s", nis)
}

func (r gormRoster) EnsureEnrollment(ctx context.Context, studentID, classID uuid.UUID, year string, startedAt time.Time) (uuid.UUID, error) {
	var m schoolModel.Enrollment
	err := r.db.WithContext(ctx).
		Where("enrollment_student_id = ? AND enrollment_class_id = ? AND enrollment_academic_year = ?", studentID, classID, year).
		Attrs(schoolModel.Enrollment{
			EnrollmentStudentID:    studentID,
			EnrollmentClassID:      classID,
			EnrollmentAcademicYear: year,
			EnrollmentStatus:       schoolModel.EnrollmentStatusActive,
			EnrollmentStartedAt:    startedAt,
		}).
		FirstOrCreate(&m).Error
	return m.EnrollmentID, errors.Wrap(err, "ensure enrollment")
}

type memoryRoster struct{ db *inmemdb.DB }

func NewMemoryRoster(db *inmemdb.DB) Roster { return memoryRoster{db: db} }

func (r memoryRoster) EnsureClass(_ context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.Write(func(t *inmemdb.Tables) error {
		for _, c := range t.Classes {
			if c.ClassName == name {
				id = c.ClassID
				return nil
			}
		}
		id = uuid.New()
		t.Classes[id] = schoolModel.Class{ClassID: id, ClassName: name, ClassCreatedAt: time.Now()}
		return nil
	})
	return id, err
}

func (r memoryRoster) EnsureStudent(_ context.Context, fullName, nis string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.Write(func(t *inmemdb.Tables) error {
		for _, s := range t.Students {
			if s.StudentNIS != nil && *s.StudentNIS == nis {
				id = s.StudentID
				return nil
			}
		}
		id = uuid.New()
		t.Students[id] = schoolModel.Student{StudentID: id, StudentFullName: fullName, StudentNIS: &nis, StudentCreatedAt: time.Now()}
		return nil
	})
	return id, err
}

func (r memoryRoster) EnsureEnrollment(_ context.Context, studentID, classID uuid.UUID, year string, startedAt time.Time) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.Write(func(t *inmemdb.Tables) error {
		for _, e := range t.Enrollments {
			if e.EnrollmentStudentID == studentID && e.EnrollmentClassID == classID && e.EnrollmentAcademicYear == year {
				id = e.EnrollmentID
				return nil
			}
		}
		id = uuid.New()
		t.Enrollments[id] = schoolModel.Enrollment{
			EnrollmentID:           id,
			EnrollmentStudentID:    studentID,
			EnrollmentClassID:      classID,
			EnrollmentAcademicYear: year,
			EnrollmentStatus:       schoolModel.EnrollmentStatusActive,
			EnrollmentStartedAt:    startedAt,
			EnrollmentCreatedAt:    time.Now(),
		}
		return nil
	})
	return id, err
}
