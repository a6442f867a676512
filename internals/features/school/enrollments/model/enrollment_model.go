// file: internals/features/school/enrollments/model/enrollment_model.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Read models used by the finance features. Students, classes and enrollments are
// managed elsewhere; only the columns the fee logic needs are mapped.

type Student struct {
	StudentID        uuid.UUID `gorm:"column:student_id;type:uuid;default:gen_random_uuid();primaryKey" json:"student_id"`
	StudentFullName  string    `gorm:"column:student_full_name;type:varchar(160);not null" json:"student_full_name"`
	StudentNIS       *string   `gorm:"column:student_nis;type:varchar(40)" json:"student_nis,omitempty"`
	StudentCreatedAt time.Time `gorm:"column:student_created_at;not null;autoCreateTime" json:"student_created_at"`
}

func (Student) TableName() string { return "students" }

type Class struct {
	ClassID        uuid.UUID `gorm:"column:class_id;type:uuid;default:gen_random_uuid();primaryKey" json:"class_id"`
	ClassName      string    `gorm:"column:class_name;type:varchar(120);not null" json:"class_name"`
	ClassCreatedAt time.Time `gorm:"column:class_created_at;not null;autoCreateTime" json:"class_created_at"`
}

func (Class) TableName() string { return "classes" }

type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusWithdrawn EnrollmentStatus = "withdrawn"
)

type Enrollment struct {
	EnrollmentID           uuid.UUID        `gorm:"column:enrollment_id;type:uuid;default:gen_random_uuid();primaryKey" json:"enrollment_id"`
	EnrollmentStudentID    uuid.UUID        `gorm:"column:enrollment_student_id;type:uuid;not null;index" json:"enrollment_student_id"`
	EnrollmentClassID      uuid.UUID        `gorm:"column:enrollment_class_id;type:uuid;not null;index" json:"enrollment_class_id"`
	EnrollmentAcademicYear string           `gorm:"column:enrollment_academic_year;type:varchar(20)" json:"enrollment_academic_year"`
	EnrollmentStatus       EnrollmentStatus `gorm:"column:enrollment_status;type:varchar(20);not null;default:'active'" json:"enrollment_status"`
	EnrollmentStartedAt    time.Time        `gorm:"column:enrollment_started_at;not null" json:"enrollment_started_at"`
	EnrollmentCreatedAt    time.Time        `gorm:"column:enrollment_created_at;not null;autoCreateTime" json:"enrollment_created_at"`
}

func (Enrollment) TableName() string { return "enrollments" }
