// file: internals/features/finance/fees/dto/fee_assignment_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"

	"feeledger_backend/internals/features/finance/fees/model"
	helper "feeledger_backend/internals/helpers"
	"feeledger_backend/internals/helpers/apperror"
)

type CreateFeeAssignmentRequest struct {
	FeeDefinitionID uuid.UUID  `json:"fee_assignment_fee_definition_id" validate:"required"`
	ClassID         *uuid.UUID `json:"fee_assignment_class_id,omitempty"`
	StudentID       *uuid.UUID `json:"fee_assignment_student_id,omitempty"`
	Priority        int        `json:"fee_assignment_priority"`
	StartDate       *string    `json:"fee_assignment_start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate         *string    `json:"fee_assignment_end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ToModel enforces the XOR target and start <= end.
func (r CreateFeeAssignmentRequest) ToModel() (model.FeeAssignment, error) {
	if (r.ClassID == nil) == (r.StudentID == nil) {
		return model.FeeAssignment{}, apperror.InvalidInput("exactly one of fee_assignment_class_id or fee_assignment_student_id is required")
	}
	start, err := helper.ParseOptionalDate(r.StartDate)
	if err != nil {
		return model.FeeAssignment{}, apperror.InvalidInput("fee_assignment_start_date must be YYYY-MM-DD")
	}
	end, err := helper.ParseOptionalDate(r.EndDate)
	if err != nil {
		return model.FeeAssignment{}, apperror.InvalidInput("fee_assignment_end_date must be YYYY-MM-DD")
	}
	if start != nil && end != nil && end.Before(*start) {
		return model.FeeAssignment{}, apperror.InvalidInput("fee_assignment_end_date is before fee_assignment_start_date")
	}
	return model.FeeAssignment{
		FeeAssignmentFeeDefinitionID: r.FeeDefinitionID,
		FeeAssignmentClassID:         r.ClassID,
		FeeAssignmentStudentID:       r.StudentID,
		FeeAssignmentPriority:        r.Priority,
		FeeAssignmentStartDate:       start,
		FeeAssignmentEndDate:         end,
	}, nil
}

type FeeAssignmentResponse struct {
	FeeAssignmentID              uuid.UUID              `json:"fee_assignment_id"`
	FeeAssignmentFeeDefinitionID uuid.UUID              `json:"fee_assignment_fee_definition_id"`
	FeeAssignmentClassID         *uuid.UUID             `json:"fee_assignment_class_id,omitempty"`
	FeeAssignmentStudentID       *uuid.UUID             `json:"fee_assignment_student_id,omitempty"`
	FeeAssignmentPriority        int                    `json:"fee_assignment_priority"`
	FeeAssignmentStartDate       *time.Time             `json:"fee_assignment_start_date,omitempty"`
	FeeAssignmentEndDate         *time.Time             `json:"fee_assignment_end_date,omitempty"`
	FeeAssignmentCreatedAt       time.Time              `json:"fee_assignment_created_at"`
	FeeDefinition                *FeeDefinitionResponse `json:"fee_definition,omitempty"`
}

func ToFeeAssignmentResponse(m model.FeeAssignment) FeeAssignmentResponse {
	out := FeeAssignmentResponse{
		FeeAssignmentID:              m.FeeAssignmentID,
		FeeAssignmentFeeDefinitionID: m.FeeAssignmentFeeDefinitionID,
		FeeAssignmentClassID:         m.FeeAssignmentClassID,
		FeeAssignmentStudentID:       m.FeeAssignmentStudentID,
		FeeAssignmentPriority:        m.FeeAssignmentPriority,
		FeeAssignmentStartDate:       m.FeeAssignmentStartDate,
		FeeAssignmentEndDate:         m.FeeAssignmentEndDate,
		FeeAssignmentCreatedAt:       m.FeeAssignmentCreatedAt,
	}
	if m.FeeDefinition != nil {
		d := ToFeeDefinitionResponse(*m.FeeDefinition)
		out.FeeDefinition = &d
	}
	return out
}
