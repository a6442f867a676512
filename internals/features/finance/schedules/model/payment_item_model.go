// file: internals/features/finance/schedules/model/payment_item_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemStatusPending       ItemStatus = "pending"
	ItemStatusPartiallyPaid ItemStatus = "partially_paid"
	ItemStatusPaid          ItemStatus = "paid"
	ItemStatusOverdue       ItemStatus = "overdue"
	ItemStatusWaived        ItemStatus = "waived"
	ItemStatusCancelled     ItemStatus = "cancelled"
)

type PaymentItem struct {
	PaymentItemID         uuid.UUID `gorm:"column:payment_item_id;type:uuid;default:gen_random_uuid();primaryKey" json:"payment_item_id"`
	PaymentItemScheduleID uuid.UUID `gorm:"column:payment_item_schedule_id;type:uuid;not null;index" json:"payment_item_schedule_id"`

	// Snapshot of where the item came from
	PaymentItemFeeDefinitionID uuid.UUID  `gorm:"column:payment_item_fee_definition_id;type:uuid;not null" json:"payment_item_fee_definition_id"`
	PaymentItemFeeAssignmentID uuid.UUID  `gorm:"column:payment_item_fee_assignment_id;type:uuid;not null" json:"payment_item_fee_assignment_id"`
	PaymentItemTitle           string     `gorm:"column:payment_item_title;type:varchar(200);not null" json:"payment_item_title"`
	PaymentItemInstallmentNo   *int       `gorm:"column:payment_item_installment_number" json:"payment_item_installment_number,omitempty"`
	PaymentItemDueDate         *time.Time `gorm:"column:payment_item_due_date;type:date" json:"payment_item_due_date,omitempty"`
	PaymentItemPosition        int        `gorm:"column:payment_item_position;not null" json:"payment_item_position"`

	PaymentItemAmount         decimal.Decimal `gorm:"column:payment_item_amount;type:numeric(14,2);not null" json:"payment_item_amount"`
	PaymentItemDiscountAmount decimal.Decimal `gorm:"column:payment_item_discount_amount;type:numeric(14,2);not null;default:0" json:"payment_item_discount_amount"`
	PaymentItemNetAmount      decimal.Decimal `gorm:"column:payment_item_net_amount;type:numeric(14,2);not null" json:"payment_item_net_amount"`
	PaymentItemPaidAmount     decimal.Decimal `gorm:"column:payment_item_paid_amount;type:numeric(14,2);not null;default:0" json:"payment_item_paid_amount"`
	PaymentItemStatus         ItemStatus      `gorm:"column:payment_item_status;type:varchar(20);not null;default:'pending';index" json:"payment_item_status"`

	PaymentItemPaidAt    *time.Time `gorm:"column:payment_item_paid_at;type:timestamptz" json:"payment_item_paid_at,omitempty"`
	PaymentItemCreatedAt time.Time  `gorm:"column:payment_item_created_at;type:timestamptz;not null;autoCreateTime" json:"payment_item_created_at"`
	PaymentItemUpdatedAt time.Time  `gorm:"column:payment_item_updated_at;type:timestamptz;not null;autoUpdateTime" json:"payment_item_updated_at"`
}

func (PaymentItem) TableName() string { return "payment_items" }

// Due is what is still owed on the item.
func (it PaymentItem) Due() decimal.Decimal {
	return it.PaymentItemNetAmount.Sub(it.PaymentItemPaidAmount)
}

// Payable is false for waived and cancelled items.
func (it PaymentItem) Payable() bool {
	return it.PaymentItemStatus != ItemStatusWaived && it.PaymentItemStatus != ItemStatusCancelled
}

// Apply credits amount to the item and derives the status from paid vs net.
// The caller guarantees amount <= Due().
func (it *PaymentItem) Apply(amount decimal.Decimal, at time.Time) {
	it.PaymentItemPaidAmount = it.PaymentItemPaidAmount.Add(amount)
	it.PaymentItemStatus = StatusFor(it.PaymentItemPaidAmount, it.PaymentItemNetAmount)
	if it.PaymentItemStatus == ItemStatusPaid {
		it.PaymentItemPaidAt = &at
	}
}

// StatusFor derives the status of a payable item from its paid and net amounts.
func StatusFor(paid, net decimal.Decimal) ItemStatus {
	switch {
	case paid.GreaterThanOrEqual(net):
		return ItemStatusPaid
	case paid.IsPositive():
		return ItemStatusPartiallyPaid
	default:
		return ItemStatusPending
	}
}

// IsOverdueOn: nothing paid yet and the due date lies before day.
func (it PaymentItem) IsOverdueOn(day time.Time) bool {
	return it.PaymentItemStatus == ItemStatusPending &&
		it.PaymentItemDueDate != nil &&
		it.PaymentItemDueDate.Before(day)
}
