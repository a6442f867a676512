// file: internals/features/finance/wallets/model/student_wallet_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletStatus string

const (
	WalletStatusActive WalletStatus = "active"
	WalletStatusFrozen WalletStatus = "frozen"
	WalletStatusClosed WalletStatus = "closed"
)

type StudentWallet struct {
	StudentWalletID        uuid.UUID `gorm:"column:student_wallet_id;type:uuid;default:gen_random_uuid();primaryKey" json:"student_wallet_id"`
	StudentWalletStudentID uuid.UUID `gorm:"column:student_wallet_student_id;type:uuid;not null;uniqueIndex" json:"student_wallet_student_id"`
	StudentWalletCurrency  string    `gorm:"column:student_wallet_currency;type:char(3);not null" json:"student_wallet_currency"`

	StudentWalletCurrentBalance   decimal.Decimal `gorm:"column:student_wallet_current_balance;type:numeric(14,2);not null;default:0" json:"student_wallet_current_balance"`
	StudentWalletTotalDeposits    decimal.Decimal `gorm:"column:student_wallet_total_deposits;type:numeric(14,2);not null;default:0" json:"student_wallet_total_deposits"`
	StudentWalletTotalWithdrawals decimal.Decimal `gorm:"column:student_wallet_total_withdrawals;type:numeric(14,2);not null;default:0" json:"student_wallet_total_withdrawals"`
	StudentWalletStatus           WalletStatus    `gorm:"column:student_wallet_status;type:varchar(20);not null;default:'active'" json:"student_wallet_status"`

	// Zero means "not set" for both.
	StudentWalletLowBalanceThreshold decimal.Decimal `gorm:"column:student_wallet_low_balance_threshold;type:numeric(14,2);not null;default:0" json:"student_wallet_low_balance_threshold"`
	StudentWalletDailySpendingLimit  decimal.Decimal `gorm:"column:student_wallet_daily_spending_limit;type:numeric(14,2);not null;default:0" json:"student_wallet_daily_spending_limit"`

	StudentWalletCreatedAt time.Time `gorm:"column:student_wallet_created_at;type:timestamptz;not null;autoCreateTime" json:"student_wallet_created_at"`
	StudentWalletUpdatedAt time.Time `gorm:"column:student_wallet_updated_at;type:timestamptz;not null;autoUpdateTime" json:"student_wallet_updated_at"`
}

func (StudentWallet) TableName() string { return "student_wallets" }

// Reconciles checks current_balance == deposits - withdrawals and that the balance is not negative.
func (w StudentWallet) Reconciles() bool {
	expected := w.StudentWalletTotalDeposits.Sub(w.StudentWalletTotalWithdrawals)
	return w.StudentWalletCurrentBalance.Equal(expected) && !w.StudentWalletCurrentBalance.IsNegative()
}

func (w StudentWallet) IsLowBalance() bool {
	return w.StudentWalletLowBalanceThreshold.IsPositive() &&
		w.StudentWalletCurrentBalance.LessThan(w.StudentWalletLowBalanceThreshold)
}
