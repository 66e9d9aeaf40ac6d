// Package ledger enforces the monetary invariants of a sale.
//
// Every function is a pure predicate over decimal amounts: no state, no I/O,
// and the same inputs always produce the same Result. Callers run them before
// any write and turn a failed Result into a validation error with Err.
package ledger

import (
	"github.com/shopspring/decimal"

	dErrors "immo/pkg/domain-errors"
)

// Reason is a stable code explaining why a check failed.
type Reason string

const (
	ReasonNegativeDeposit        Reason = "deposit_negative"
	ReasonDepositExceedsPrice    Reason = "deposit_exceeds_price"
	ReasonAmountNotPositive      Reason = "amount_not_positive"
	ReasonPaymentsExceedPrice    Reason = "payments_exceed_price"
	ReasonExceedsRemaining       Reason = "exceeds_remaining_balance"
	ReasonSubCentPrecision       Reason = "sub_cent_precision"
	ReasonInvalidInstallmentPlan Reason = "invalid_installment_plan"
)

// Result is the outcome of a ledger check.
type Result struct {
	OK     bool
	Reason Reason
	// Field names the input the reason applies to.
	Field string
}

func pass() Result { return Result{OK: true} }

func fail(field string, reason Reason) Result {
	return Result{Reason: reason, Field: field}
}

// Err converts a failed result into a CodeValidation error; nil when OK.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return dErrors.Validation(r.Field, string(r.Reason))
}

// Cents is the currency precision amounts are held at.
const Cents = 2

func subCent(d decimal.Decimal) bool {
	return !d.Equal(d.Round(Cents))
}

// ValidateDeposit fails if deposit < 0 or deposit > unitPrice.
func ValidateDeposit(unitPrice, deposit decimal.Decimal) Result {
	switch {
	case deposit.IsNegative():
		return fail("deposit", ReasonNegativeDeposit)
	case subCent(deposit):
		return fail("deposit", ReasonSubCentPrecision)
	case deposit.GreaterThan(unitPrice):
		return fail("deposit", ReasonDepositExceedsPrice)
	}
	return pass()
}

// ValidatePaymentAmount fails if newAmount <= 0 or existingTotal + newAmount > unitPrice.
func ValidatePaymentAmount(unitPrice, existingTotal, newAmount decimal.Decimal) Result {
	switch {
	case !newAmount.IsPositive():
		return fail("amount", ReasonAmountNotPositive)
	case subCent(newAmount):
		return fail("amount", ReasonSubCentPrecision)
	case existingTotal.Add(newAmount).GreaterThan(unitPrice):
		return fail("amount", ReasonPaymentsExceedPrice)
	}
	return pass()
}

// ValidateFinancingAmount fails if requested <= 0 or requested exceeds the remaining balance.
func ValidateFinancingAmount(unitPrice, deposit, validatedTotal, requested decimal.Decimal) Result {
	switch {
	case !requested.IsPositive():
		return fail("amount", ReasonAmountNotPositive)
	case subCent(requested):
		return fail("amount", ReasonSubCentPrecision)
	case requested.GreaterThan(RemainingBalance(unitPrice, deposit, validatedTotal)):
		return fail("amount", ReasonExceedsRemaining)
	}
	return pass()
}

// RemainingBalance is price - deposit - validated payments. It may be negative
// on inconsistent input; callers compare rather than clamp.
func RemainingBalance(unitPrice, deposit, validatedTotal decimal.Decimal) decimal.Decimal {
	return unitPrice.Sub(deposit).Sub(validatedTotal)
}

// Sum adds amounts; the zero value for an empty slice.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// SplitEvenly divides amount into n installments rounded to cents. The last
// installment absorbs the rounding remainder so the parts always sum to amount.
func SplitEvenly(amount decimal.Decimal, n int) ([]decimal.Decimal, Result) {
	if n <= 0 || !amount.IsPositive() {
		return nil, fail("count", ReasonInvalidInstallmentPlan)
	}
	if subCent(amount) {
		return nil, fail("amount", ReasonSubCentPrecision)
	}
	share := amount.DivRound(decimal.NewFromInt(int64(n)), Cents)
	if !share.IsPositive() {
		return nil, fail("count", ReasonInvalidInstallmentPlan)
	}
	parts := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := range n - 1 {
		parts[i] = share
		allocated = allocated.Add(share)
	}
	parts[n-1] = amount.Sub(allocated)
	if !parts[n-1].IsPositive() {
		return nil, fail("count", ReasonInvalidInstallmentPlan)
	}
	return parts, pass()
}
