// file: internals/features/finance/transactions/dto/transaction_dto.go
package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"feeledger_backend/internals/features/finance/transactions/model"
)

// ProcessPaymentRequest pays the listed items in the given order.
type ProcessPaymentRequest struct {
	PaymentItemIDs []uuid.UUID         `json:"payment_item_ids" validate:"required,min=1"`
	Amount         decimal.Decimal     `json:"amount"`
	PaymentMethod  model.PaymentMethod `json:"payment_method" validate:"required,oneof=cash bank_transfer card mobile_money gateway wallet other"`
	Metadata       map[string]any      `json:"metadata,omitempty"`
	IdempotencyKey *string             `json:"idempotency_key,omitempty" validate:"omitempty,max=120"`
}

// ProcessPayment is the service input; ScheduleID comes from the route.
type ProcessPayment struct {
	ScheduleID uuid.UUID
	ProcessPaymentRequest
}

type TransactionResponse struct {
	model.Transaction
	// Replayed is true when an idempotency key matched an earlier payment.
	Replayed bool `json:"replayed"`
}

func ToTransactionResponse(t model.Transaction, replayed bool) TransactionResponse {
	if t.TransactionAllocations == nil {
		t.TransactionAllocations = []model.TransactionAllocation{}
	}
	return TransactionResponse{Transaction: t, Replayed: replayed}
}

func ToTransactionResponses(rows []model.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToTransactionResponse(r, false))
	}
	return out
}
