// file: internals/features/finance/schedules/model/payment_schedule_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "draft"
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusSuspended ScheduleStatus = "suspended"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

type PaymentSchedule struct {
	PaymentScheduleID           uuid.UUID `gorm:"column:payment_schedule_id;type:uuid;default:gen_random_uuid();primaryKey" json:"payment_schedule_id"`
	PaymentScheduleEnrollmentID uuid.UUID `gorm:"column:payment_schedule_enrollment_id;type:uuid;not null;uniqueIndex" json:"payment_schedule_enrollment_id"`
	PaymentScheduleStudentID    uuid.UUID `gorm:"column:payment_schedule_student_id;type:uuid;not null;index" json:"payment_schedule_student_id"`
	PaymentScheduleClassID      uuid.UUID `gorm:"column:payment_schedule_class_id;type:uuid;not null" json:"payment_schedule_class_id"`
	PaymentScheduleCurrency     string    `gorm:"column:payment_schedule_currency;type:char(3);not null" json:"payment_schedule_currency"`

	PaymentScheduleTotalAmount decimal.Decimal `gorm:"column:payment_schedule_total_amount;type:numeric(14,2);not null;default:0" json:"payment_schedule_total_amount"`
	PaymentSchedulePaidAmount  decimal.Decimal `gorm:"column:payment_schedule_paid_amount;type:numeric(14,2);not null;default:0" json:"payment_schedule_paid_amount"`
	PaymentScheduleStatus      ScheduleStatus  `gorm:"column:payment_schedule_status;type:varchar(20);not null;default:'draft'" json:"payment_schedule_status"`

	PaymentScheduleGeneratedAt time.Time  `gorm:"column:payment_schedule_generated_at;type:timestamptz;not null" json:"payment_schedule_generated_at"`
	PaymentScheduleActivatedAt *time.Time `gorm:"column:payment_schedule_activated_at;type:timestamptz" json:"payment_schedule_activated_at,omitempty"`
	PaymentScheduleUpdatedAt   time.Time  `gorm:"column:payment_schedule_updated_at;type:timestamptz;not null;autoUpdateTime" json:"payment_schedule_updated_at"`

	PaymentScheduleItems []PaymentItem `gorm:"foreignKey:PaymentItemScheduleID;references:PaymentScheduleID;constraint:OnDelete:CASCADE" json:"payment_schedule_items,omitempty"`
}

func (PaymentSchedule) TableName() string { return "payment_schedules" }

// Reconcile recomputes paid_amount from the full item set and moves the status:
// completed when fully paid, otherwise active. A draft reconciled for the first
// time gets activated_at stamped.
func (s *PaymentSchedule) Reconcile(items []PaymentItem, at time.Time) {
	paid := decimal.Zero
	for _, it := range items {
		paid = paid.Add(it.PaymentItemPaidAmount)
	}
	s.PaymentSchedulePaidAmount = paid
	if paid.GreaterThanOrEqual(s.PaymentScheduleTotalAmount) {
		s.PaymentScheduleStatus = ScheduleStatusCompleted
	} else {
		s.PaymentScheduleStatus = ScheduleStatusActive
	}
	if s.PaymentScheduleActivatedAt == nil {
		s.PaymentScheduleActivatedAt = &at
	}
}

// Outstanding is total minus paid, never below zero.
func (s PaymentSchedule) Outstanding() decimal.Decimal {
	out := s.PaymentScheduleTotalAmount.Sub(s.PaymentSchedulePaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// AcceptsPayments is false for suspended and cancelled schedules.
func (s PaymentSchedule) AcceptsPayments() bool {
	switch s.PaymentScheduleStatus {
	case ScheduleStatusSuspended, ScheduleStatusCancelled:
		return false
	}
	return true
}
