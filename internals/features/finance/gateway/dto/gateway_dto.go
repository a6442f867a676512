// file: internals/features/finance/gateway/dto/gateway_dto.go
package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRequest opens a gateway payment for schedule items. Amount defaults
// to everything still due on them.
type CheckoutRequest struct {
	PaymentItemIDs []uuid.UUID      `json:"payment_item_ids" validate:"required,min=1"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
}

// Notification is the HTTP notification Midtrans posts after a status change.
type Notification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"` // capture, settlement, pending, deny, cancel, expire, failure, refund
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"` // accept / challenge / deny
	TransactionID     string `json:"transaction_id"`
	SettlementTime    string `json:"settlement_time"`
}
