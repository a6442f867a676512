// file: internals/features/finance/gateway/model/payment_intent_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type IntentStatus string

const (
	IntentStatusPending IntentStatus = "pending"
	IntentStatusSettled IntentStatus = "settled"
	IntentStatusFailed  IntentStatus = "failed"
	IntentStatusExpired IntentStatus = "expired"
)

// PaymentIntent is a gateway checkout waiting for the provider's notification.
type PaymentIntent struct {
	PaymentIntentID         uuid.UUID       `gorm:"column:payment_intent_id;type:uuid;default:gen_random_uuid();primaryKey" json:"payment_intent_id"`
	PaymentIntentOrderID    string          `gorm:"column:payment_intent_order_id;type:varchar(64);not null;uniqueIndex" json:"payment_intent_order_id"`
	PaymentIntentScheduleID uuid.UUID       `gorm:"column:payment_intent_schedule_id;type:uuid;not null;index" json:"payment_intent_schedule_id"`
	PaymentIntentItemIDs    datatypes.JSON  `gorm:"column:payment_intent_item_ids;type:jsonb;not null" json:"payment_intent_item_ids"`
	PaymentIntentAmount     decimal.Decimal `gorm:"column:payment_intent_amount;type:numeric(14,2);not null" json:"payment_intent_amount"`
	PaymentIntentStatus     IntentStatus    `gorm:"column:payment_intent_status;type:varchar(20);not null;default:'pending'" json:"payment_intent_status"`

	PaymentIntentSnapToken     *string    `gorm:"column:payment_intent_snap_token" json:"payment_intent_snap_token,omitempty"`
	PaymentIntentRedirectURL   *string    `gorm:"column:payment_intent_redirect_url" json:"payment_intent_redirect_url,omitempty"`
	PaymentIntentProviderType  *string    `gorm:"column:payment_intent_provider_payment_type;type:varchar(40)" json:"payment_intent_provider_payment_type,omitempty"`
	PaymentIntentTransactionID *uuid.UUID `gorm:"column:payment_intent_transaction_id;type:uuid" json:"payment_intent_transaction_id,omitempty"`

	PaymentIntentCreatedAt time.Time `gorm:"column:payment_intent_created_at;type:timestamptz;not null;autoCreateTime" json:"payment_intent_created_at"`
	PaymentIntentUpdatedAt time.Time `gorm:"column:payment_intent_updated_at;type:timestamptz;not null;autoUpdateTime" json:"payment_intent_updated_at"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }
