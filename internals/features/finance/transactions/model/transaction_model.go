// file: internals/features/finance/transactions/model/transaction_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionStatus string

const TransactionStatusCompleted TransactionStatus = "completed"

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodGateway      PaymentMethod = "gateway"
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodOther        PaymentMethod = "other"
)

// Transaction is append-only: rows are inserted once and never updated.
type Transaction struct {
	TransactionID         uuid.UUID `gorm:"column:transaction_id;type:uuid;default:gen_random_uuid();primaryKey" json:"transaction_id"`
	TransactionNumber     string    `gorm:"column:transaction_number;type:varchar(32);not null;uniqueIndex" json:"transaction_number"`
	TransactionReceiptNo  string    `gorm:"column:transaction_receipt_number;type:varchar(32);not null;uniqueIndex" json:"transaction_receipt_number"`
	TransactionScheduleID uuid.UUID `gorm:"column:transaction_schedule_id;type:uuid;not null;index" json:"transaction_schedule_id"`
	TransactionStudentID  uuid.UUID `gorm:"column:transaction_student_id;type:uuid;not null;index" json:"transaction_student_id"`

	TransactionAmount   decimal.Decimal   `gorm:"column:transaction_amount;type:numeric(14,2);not null" json:"transaction_amount"`
	TransactionCurrency string            `gorm:"column:transaction_currency;type:char(3);not null" json:"transaction_currency"`
	TransactionMethod   PaymentMethod     `gorm:"column:transaction_payment_method;type:varchar(20);not null" json:"transaction_payment_method"`
	TransactionStatus   TransactionStatus `gorm:"column:transaction_status;type:varchar(20);not null" json:"transaction_status"`

	TransactionIdempotencyKey *string        `gorm:"column:transaction_idempotency_key;type:varchar(120);uniqueIndex" json:"transaction_idempotency_key,omitempty"`
	TransactionMetadata       datatypes.JSON `gorm:"column:transaction_metadata;type:jsonb" json:"transaction_metadata,omitempty"`

	TransactionPaidAt    time.Time `gorm:"column:transaction_paid_at;type:timestamptz;not null" json:"transaction_paid_at"`
	TransactionCreatedAt time.Time `gorm:"column:transaction_created_at;type:timestamptz;not null;autoCreateTime" json:"transaction_created_at"`

	TransactionAllocations []TransactionAllocation `gorm:"foreignKey:TransactionAllocationTransactionID;references:TransactionID" json:"transaction_allocations"`
}

func (Transaction) TableName() string { return "transactions" }

// TransactionAllocation links a transaction to one requested payment item and records
// how much of the payment landed on it (zero when the money ran out earlier).
type TransactionAllocation struct {
	TransactionAllocationTransactionID uuid.UUID       `gorm:"column:transaction_allocation_transaction_id;type:uuid;primaryKey" json:"transaction_id"`
	TransactionAllocationPaymentItemID uuid.UUID       `gorm:"column:transaction_allocation_payment_item_id;type:uuid;primaryKey;index" json:"payment_item_id"`
	TransactionAllocationPosition      int             `gorm:"column:transaction_allocation_position;not null" json:"position"`
	TransactionAllocationAmount        decimal.Decimal `gorm:"column:transaction_allocation_amount;type:numeric(14,2);not null" json:"allocated_amount"`
	TransactionAllocationDueBefore     decimal.Decimal `gorm:"column:transaction_allocation_due_before;type:numeric(14,2);not null" json:"due_before"`
	TransactionAllocationDueAfter      decimal.Decimal `gorm:"column:transaction_allocation_due_after;type:numeric(14,2);not null" json:"due_after"`
}

func (TransactionAllocation) TableName() string { return "transaction_allocations" }
