// file: internals/features/finance/fees/dto/fee_resolution_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineItemType string

const (
	LineItemInstallment LineItemType = "installment"
	LineItemFlat        LineItemType = "flat"
)

type InstallmentRef struct {
	Label   string     `json:"label"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Index   int        `json:"index"`
}

type LineItemSource struct {
	AssignmentID uuid.UUID  `json:"assignment_id"`
	ClassID      *uuid.UUID `json:"class_id,omitempty"`
	StudentID    *uuid.UUID `json:"student_id,omitempty"`
}

// LineItem is one obligation produced by expanding an applicable assignment.
type LineItem struct {
	Type            LineItemType    `json:"type"`
	FeeDefinitionID uuid.UUID       `json:"fee_definition_id"`
	FeeName         string          `json:"fee_name"`
	Installment     *InstallmentRef `json:"installment,omitempty"`
	// Installment due date, or the fee-level due date for flat items.
	DueDate  *time.Time      `json:"due_date,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Source   LineItemSource  `json:"source"`
}

type Resolution struct {
	StudentID     uuid.UUID       `json:"student_id"`
	ClassID       *uuid.UUID      `json:"class_id,omitempty"`
	PeriodStart   *time.Time      `json:"period_start,omitempty"`
	PeriodEnd     *time.Time      `json:"period_end,omitempty"`
	Currency      string          `json:"currency"`
	LineItems     []LineItem      `json:"line_items"`
	TotalDueNow   decimal.Decimal `json:"total_due_now"`
	TotalUpcoming decimal.Decimal `json:"total_upcoming"`
}
