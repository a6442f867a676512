// file: internals/features/finance/schedules/dto/payment_schedule_dto.go
package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"feeledger_backend/internals/features/finance/schedules/model"
)

// DiscountInput lowers the net amount of the matching item. InstallmentIndex
// nil matches the fee's flat item; otherwise only that installment.
// FeeAssignmentID picks one assignment when the fee reaches the student
// through more than one.
type DiscountInput struct {
	FeeDefinitionID  uuid.UUID       `json:"fee_definition_id" validate:"required"`
	InstallmentIndex *int            `json:"installment_index,omitempty" validate:"omitempty,min=1"`
	FeeAssignmentID  *uuid.UUID      `json:"fee_assignment_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
}

type BuildScheduleRequest struct {
	Discounts []DiscountInput `json:"discounts" validate:"dive"`
}

type PaymentScheduleResponse struct {
	model.PaymentSchedule
	PaymentScheduleOutstanding decimal.Decimal `json:"payment_schedule_outstanding_amount"`
}

func ToPaymentScheduleResponse(s model.PaymentSchedule) PaymentScheduleResponse {
	if s.PaymentScheduleItems == nil {
		s.PaymentScheduleItems = []model.PaymentItem{}
	}
	return PaymentScheduleResponse{PaymentSchedule: s, PaymentScheduleOutstanding: s.Outstanding()}
}

func ToPaymentScheduleResponses(rows []model.PaymentSchedule) []PaymentScheduleResponse {
	out := make([]PaymentScheduleResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToPaymentScheduleResponse(r))
	}
	return out
}
