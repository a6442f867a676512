// file: internals/features/finance/wallets/model/wallet_transaction_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type WalletTransactionType string

const (
	WalletTxDeposit    WalletTransactionType = "deposit"
	WalletTxWithdrawal WalletTransactionType = "withdrawal"
	WalletTxPurchase   WalletTransactionType = "purchase"
	WalletTxRefund     WalletTransactionType = "refund"
)

// Credit reports whether the entry type increases the balance.
func (t WalletTransactionType) Credit() bool {
	return t == WalletTxDeposit || t == WalletTxRefund
}

// WalletTransaction is append-only.
type WalletTransaction struct {
	WalletTransactionID       uuid.UUID             `gorm:"column:wallet_transaction_id;type:uuid;default:gen_random_uuid();primaryKey" json:"wallet_transaction_id"`
	WalletTransactionWalletID uuid.UUID             `gorm:"column:wallet_transaction_wallet_id;type:uuid;not null;index:ix_wallet_tx_wallet_created,priority:1" json:"wallet_transaction_wallet_id"`
	WalletTransactionNumber   string                `gorm:"column:wallet_transaction_number;type:varchar(32);not null;uniqueIndex" json:"wallet_transaction_number"`
	WalletTransactionType     WalletTransactionType `gorm:"column:wallet_transaction_type;type:varchar(20);not null" json:"wallet_transaction_type"`

	WalletTransactionAmount        decimal.Decimal `gorm:"column:wallet_transaction_amount;type:numeric(14,2);not null" json:"wallet_transaction_amount"`
	WalletTransactionBalanceBefore decimal.Decimal `gorm:"column:wallet_transaction_balance_before;type:numeric(14,2);not null" json:"wallet_transaction_balance_before"`
	WalletTransactionBalanceAfter  decimal.Decimal `gorm:"column:wallet_transaction_balance_after;type:numeric(14,2);not null" json:"wallet_transaction_balance_after"`

	WalletTransactionCategory      *string        `gorm:"column:wallet_transaction_category;type:varchar(60)" json:"wallet_transaction_category,omitempty"`
	WalletTransactionPaymentMethod *string        `gorm:"column:wallet_transaction_payment_method;type:varchar(20)" json:"wallet_transaction_payment_method,omitempty"`
	WalletTransactionItemDetails   datatypes.JSON `gorm:"column:wallet_transaction_item_details;type:jsonb" json:"wallet_transaction_item_details,omitempty"`

	WalletTransactionCreatedAt time.Time `gorm:"column:wallet_transaction_created_at;type:timestamptz;not null;index:ix_wallet_tx_wallet_created,priority:2" json:"wallet_transaction_created_at"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }
