// file: internals/features/finance/wallets/dto/wallet_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"feeledger_backend/internals/features/finance/wallets/model"
)

type CreateWalletRequest struct {
	StudentID           uuid.UUID        `json:"student_wallet_student_id" validate:"required"`
	Currency            string           `json:"student_wallet_currency" validate:"omitempty,len=3"`
	LowBalanceThreshold *decimal.Decimal `json:"student_wallet_low_balance_threshold,omitempty"`
	DailySpendingLimit  *decimal.Decimal `json:"student_wallet_daily_spending_limit,omitempty"`
}

type SetStatusRequest struct {
	Status model.WalletStatus `json:"student_wallet_status" validate:"required,oneof=active frozen closed"`
}

type TopupRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,max=20"`
}

type WithdrawRequest = TopupRequest

type PurchaseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"required,max=60"`
	Description string          `json:"description" validate:"required,max=200"`
}

type RefundRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason" validate:"required,max=200"`
	Reference *string         `json:"reference,omitempty" validate:"omitempty,max=32"`
}

// WalletEntryResponse is one posted entry plus the wallet it left behind.
type WalletEntryResponse struct {
	Entry  model.WalletTransaction `json:"wallet_transaction"`
	Wallet WalletResponse          `json:"student_wallet"`
}

type WalletResponse struct {
	model.StudentWallet
	LowBalance bool `json:"student_wallet_low_balance"`
}

func ToWalletResponse(w model.StudentWallet) WalletResponse {
	return WalletResponse{StudentWallet: w, LowBalance: w.IsLowBalance()}
}

type WalletStatement struct {
	WalletID       uuid.UUID                 `json:"student_wallet_id"`
	Currency       string                    `json:"currency"`
	PeriodStart    time.Time                 `json:"period_start"`
	PeriodEnd      time.Time                 `json:"period_end"`
	OpeningBalance decimal.Decimal           `json:"opening_balance"`
	ClosingBalance decimal.Decimal           `json:"closing_balance"`
	TotalCredits   decimal.Decimal           `json:"total_credits"`
	TotalDebits    decimal.Decimal           `json:"total_debits"`
	Entries        []model.WalletTransaction `json:"entries"`
}
