// file: internals/features/finance/fees/dto/fee_definition_dto.go
package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"feeledger_backend/internals/features/finance/fees/model"
	"feeledger_backend/internals/features/finance/money"
	helper "feeledger_backend/internals/helpers"
	"feeledger_backend/internals/helpers/apperror"
)

////////////////////////////////////////////////////////////////////////////////
// FEE DEFINITIONS (REQUEST)
////////////////////////////////////////////////////////////////////////////////

type InstallmentInput struct {
	Index   int             `json:"index" validate:"min=1"`
	Label   string          `json:"label" validate:"required,max=120"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate *string         `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type CreateFeeDefinitionRequest struct {
	Name              string             `json:"fee_definition_name" validate:"required,max=160"`
	BaseAmount        decimal.Decimal    `json:"fee_definition_base_amount"`
	Currency          string             `json:"fee_definition_currency" validate:"required,len=3"`
	Frequency         string             `json:"fee_definition_frequency" validate:"required,oneof=yearly term monthly one_time"`
	CalculationMethod string             `json:"fee_definition_calculation_method" validate:"omitempty,oneof=flat per_unit formula"`
	DueDate           *string            `json:"fee_definition_due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Installments      []InstallmentInput `json:"fee_definition_installments" validate:"dive"`
}

// Update replaces the whole definition, installments included.
type UpdateFeeDefinitionRequest = CreateFeeDefinitionRequest

// ToModel checks the amounts and builds the row. Installment indexes must be unique.
func (r CreateFeeDefinitionRequest) ToModel() (model.FeeDefinition, error) {
	if err := money.RequireNonNegative("fee_definition_base_amount", r.BaseAmount); err != nil {
		return model.FeeDefinition{}, err
	}
	due, err := helper.ParseOptionalDate(r.DueDate)
	if err != nil {
		return model.FeeDefinition{}, apperror.InvalidInput("fee_definition_due_date must be YYYY-MM-DD")
	}

	method := model.FeeCalculationMethod(r.CalculationMethod)
	if method == "" {
		method = model.FeeCalculationFlat
	}

	m := model.FeeDefinition{
		FeeDefinitionName:              strings.TrimSpace(r.Name),
		FeeDefinitionBaseAmount:        r.BaseAmount,
		FeeDefinitionCurrency:          strings.ToUpper(strings.TrimSpace(r.Currency)),
		FeeDefinitionFrequency:         model.FeeFrequency(r.Frequency),
		FeeDefinitionCalculationMethod: method,
		FeeDefinitionDueDate:           due,
	}

	seen := make(map[int]struct{}, len(r.Installments))
	for _, in := range r.Installments {
		if _, dup := seen[in.Index]; dup {
			return model.FeeDefinition{}, apperror.InvalidInput("duplicate installment index %d", in.Index)
		}
		seen[in.Index] = struct{}{}
		if err := money.RequireNonNegative("installment amount", in.Amount); err != nil {
			return model.FeeDefinition{}, err
		}
		idue, err := helper.ParseOptionalDate(in.DueDate)
		if err != nil {
			return model.FeeDefinition{}, apperror.InvalidInput("installment due_date must be YYYY-MM-DD")
		}
		m.FeeDefinitionInstallments = append(m.FeeDefinitionInstallments, model.FeeInstallment{
			FeeInstallmentIndex:   in.Index,
			FeeInstallmentLabel:   strings.TrimSpace(in.Label),
			FeeInstallmentAmount:  in.Amount,
			FeeInstallmentDueDate: idue,
		})
	}
	return m, nil
}

////////////////////////////////////////////////////////////////////////////////
// FEE DEFINITIONS (RESPONSE)
////////////////////////////////////////////////////////////////////////////////

type FeeInstallmentResponse struct {
	Index   int             `json:"index"`
	Label   string          `json:"label"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate *time.Time      `json:"due_date,omitempty"`
}

type FeeDefinitionResponse struct {
	FeeDefinitionID                uuid.UUID                `json:"fee_definition_id"`
	FeeDefinitionName              string                   `json:"fee_definition_name"`
	FeeDefinitionBaseAmount        decimal.Decimal          `json:"fee_definition_base_amount"`
	FeeDefinitionCurrency          string                   `json:"fee_definition_currency"`
	FeeDefinitionFrequency         string                   `json:"fee_definition_frequency"`
	FeeDefinitionCalculationMethod string                   `json:"fee_definition_calculation_method"`
	FeeDefinitionDueDate           *time.Time               `json:"fee_definition_due_date,omitempty"`
	FeeDefinitionInstallments      []FeeInstallmentResponse `json:"fee_definition_installments"`
	FeeDefinitionCreatedAt         time.Time                `json:"fee_definition_created_at"`
	FeeDefinitionUpdatedAt         time.Time                `json:"fee_definition_updated_at"`
}

func ToFeeDefinitionResponse(m model.FeeDefinition) FeeDefinitionResponse {
	out := FeeDefinitionResponse{
		FeeDefinitionID:                m.FeeDefinitionID,
		FeeDefinitionName:              m.FeeDefinitionName,
		FeeDefinitionBaseAmount:        m.FeeDefinitionBaseAmount,
		FeeDefinitionCurrency:          m.FeeDefinitionCurrency,
		FeeDefinitionFrequency:         string(m.FeeDefinitionFrequency),
		FeeDefinitionCalculationMethod: string(m.FeeDefinitionCalculationMethod),
		FeeDefinitionDueDate:           m.FeeDefinitionDueDate,
		FeeDefinitionInstallments:      make([]FeeInstallmentResponse, 0, len(m.FeeDefinitionInstallments)),
		FeeDefinitionCreatedAt:         m.FeeDefinitionCreatedAt,
		FeeDefinitionUpdatedAt:         m.FeeDefinitionUpdatedAt,
	}
	for _, in := range m.FeeDefinitionInstallments {
		out.FeeDefinitionInstallments = append(out.FeeDefinitionInstallments, FeeInstallmentResponse{
			Index:   in.FeeInstallmentIndex,
			Label:   in.FeeInstallmentLabel,
			Amount:  in.FeeInstallmentAmount,
			DueDate: in.FeeInstallmentDueDate,
		})
	}
	return out
}
