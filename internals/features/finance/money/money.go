// Package money holds the amount rules shared by the fee, schedule and wallet ledgers.
package money

import (
	"github.com/shopspring/decimal"

	"feeledger_backend/internals/helpers/apperror"
)

// Scale is the number of fractional digits every stored amount carries.
const Scale = 2

// RequirePositive rejects amounts that are zero, negative or finer than a cent.
func RequirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return apperror.InvalidInput("%s must be greater than zero", field)
	}
	return RequireScale(field, d)
}

// RequireNonNegative is RequirePositive that also accepts zero.
func RequireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return apperror.InvalidInput("%s must not be negative", field)
	}
	return RequireScale(field, d)
}

func RequireScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(Scale)) {
		return apperror.InvalidInput("%s must have at most %d decimal places", field, Scale)
	}
	return nil
}

// Sum adds amounts; an empty list sums to zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
