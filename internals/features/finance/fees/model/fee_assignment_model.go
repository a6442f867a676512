// file: internals/features/finance/fees/model/fee_assignment_model.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// --- MODEL fee_assignments ---------------------------------------------------
// Exactly one of ClassID / StudentID is set (CHECK constraint in the migration).
type FeeAssignment struct {
	FeeAssignmentID              uuid.UUID  `gorm:"column:fee_assignment_id;type:uuid;default:gen_random_uuid();primaryKey" json:"fee_assignment_id"`
	FeeAssignmentFeeDefinitionID uuid.UUID  `gorm:"column:fee_assignment_fee_definition_id;type:uuid;not null;index" json:"fee_assignment_fee_definition_id"`
	FeeAssignmentClassID         *uuid.UUID `gorm:"column:fee_assignment_class_id;type:uuid;index" json:"fee_assignment_class_id,omitempty"`
	FeeAssignmentStudentID       *uuid.UUID `gorm:"column:fee_assignment_student_id;type:uuid;index" json:"fee_assignment_student_id,omitempty"`
	FeeAssignmentPriority        int        `gorm:"column:fee_assignment_priority;not null;default:0" json:"fee_assignment_priority"`

	// Validity window, both bounds inclusive; NULL = unbounded.
	FeeAssignmentStartDate *time.Time `gorm:"column:fee_assignment_start_date;type:date" json:"fee_assignment_start_date,omitempty"`
	FeeAssignmentEndDate   *time.Time `gorm:"column:fee_assignment_end_date;type:date" json:"fee_assignment_end_date,omitempty"`

	FeeAssignmentCreatedAt time.Time `gorm:"column:fee_assignment_created_at;type:timestamptz;not null;autoCreateTime" json:"fee_assignment_created_at"`

	FeeDefinition *FeeDefinition `gorm:"foreignKey:FeeAssignmentFeeDefinitionID;references:FeeDefinitionID" json:"fee_definition,omitempty"`
}

func (FeeAssignment) TableName() string { return "fee_assignments" }

// Overlaps reports whether the assignment window intersects [from, to]. A nil bound on
// either side never excludes.
func (a FeeAssignment) Overlaps(from, to *time.Time) bool {
	if a.FeeAssignmentEndDate != nil && from != nil && a.FeeAssignmentEndDate.Before(*from) {
		return false
	}
	if a.FeeAssignmentStartDate != nil && to != nil && a.FeeAssignmentStartDate.After(*to) {
		return false
	}
	return true
}
