// file: internals/features/finance/fees/model/fee_definition_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- ENUM frequency ----------------------------------------------------------
type FeeFrequency string

const (
	FeeFrequencyYearly  FeeFrequency = "yearly"
	FeeFrequencyTerm    FeeFrequency = "term"
	FeeFrequencyMonthly FeeFrequency = "monthly"
	FeeFrequencyOneTime FeeFrequency = "one_time"
)

// --- ENUM calculation_method -------------------------------------------------
type FeeCalculationMethod string

const (
	FeeCalculationFlat    FeeCalculationMethod = "flat"
	FeeCalculationPerUnit FeeCalculationMethod = "per_unit"
	FeeCalculationFormula FeeCalculationMethod = "formula"
)

// --- MODEL fee_definitions ---------------------------------------------------
type FeeDefinition struct {
	FeeDefinitionID uuid.UUID `gorm:"column:fee_definition_id;type:uuid;default:gen_random_uuid();primaryKey" json:"fee_definition_id"`

	FeeDefinitionName              string               `gorm:"column:fee_definition_name;type:varchar(160);not null" json:"fee_definition_name"`
	FeeDefinitionBaseAmount        decimal.Decimal      `gorm:"column:fee_definition_base_amount;type:numeric(14,2);not null" json:"fee_definition_base_amount"`
	FeeDefinitionCurrency          string               `gorm:"column:fee_definition_currency;type:char(3);not null" json:"fee_definition_currency"`
	FeeDefinitionFrequency         FeeFrequency         `gorm:"column:fee_definition_frequency;type:varchar(20);not null" json:"fee_definition_frequency"`
	FeeDefinitionCalculationMethod FeeCalculationMethod `gorm:"column:fee_definition_calculation_method;type:varchar(20);not null;default:'flat'" json:"fee_definition_calculation_method"`

	// Due date used when the definition has no installments.
	FeeDefinitionDueDate *time.Time `gorm:"column:fee_definition_due_date;type:date" json:"fee_definition_due_date,omitempty"`

	FeeDefinitionInstallments []FeeInstallment `gorm:"foreignKey:FeeInstallmentFeeDefinitionID;references:FeeDefinitionID;constraint:OnDelete:CASCADE" json:"fee_definition_installments"`

	FeeDefinitionCreatedAt time.Time `gorm:"column:fee_definition_created_at;type:timestamptz;not null;autoCreateTime" json:"fee_definition_created_at"`
	FeeDefinitionUpdatedAt time.Time `gorm:"column:fee_definition_updated_at;type:timestamptz;not null;autoUpdateTime" json:"fee_definition_updated_at"`
}

func (FeeDefinition) TableName() string { return "fee_definitions" }

// HasInstallments reports whether the fee is split into installments.
func (d FeeDefinition) HasInstallments() bool { return len(d.FeeDefinitionInstallments) > 0 }

// --- MODEL fee_installments --------------------------------------------------
type FeeInstallment struct {
	FeeInstallmentID              uuid.UUID       `gorm:"column:fee_installment_id;type:uuid;default:gen_random_uuid();primaryKey" json:"fee_installment_id"`
	FeeInstallmentFeeDefinitionID uuid.UUID       `gorm:"column:fee_installment_fee_definition_id;type:uuid;not null;uniqueIndex:uq_fee_installment_index,priority:1" json:"fee_installment_fee_definition_id"`
	FeeInstallmentIndex           int             `gorm:"column:fee_installment_index;not null;uniqueIndex:uq_fee_installment_index,priority:2" json:"fee_installment_index"`
	FeeInstallmentLabel           string          `gorm:"column:fee_installment_label;type:varchar(120);not null" json:"fee_installment_label"`
	FeeInstallmentAmount          decimal.Decimal `gorm:"column:fee_installment_amount;type:numeric(14,2);not null" json:"fee_installment_amount"`
	FeeInstallmentDueDate         *time.Time      `gorm:"column:fee_installment_due_date;type:date" json:"fee_installment_due_date,omitempty"`
}

func (FeeInstallment) TableName() string { return "fee_installments" }
