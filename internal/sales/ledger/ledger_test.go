package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "immo/pkg/domain-errors"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateDeposit(t *testing.T) {
	price := d("50000000")

	tests := []struct {
		name    string
		deposit string
		reason  Reason
	}{
		{"zero deposit", "0", ""},
		{"deposit below price", "5000000", ""},
		{"deposit equal to price", "50000000", ""},
		{"negative deposit", "-1", ReasonNegativeDeposit},
		{"deposit above price", "50000000.01", ReasonDepositExceedsPrice},
		{"sub-cent deposit", "10.001", ReasonSubCentPrecision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateDeposit(price, d(tt.deposit))
			assert.Equal(t, tt.reason == "", res.OK)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestValidatePaymentAmount(t *testing.T) {
	price := d("50000000")

	t.Run("payment above price is rejected", func(t *testing.T) {
		res := ValidatePaymentAmount(price, decimal.Zero, d("60000000"))
		assert.False(t, res.OK)
		assert.Equal(t, ReasonPaymentsExceedPrice, res.Reason)

		err := res.Err()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("payment filling the price exactly is accepted", func(t *testing.T) {
		res := ValidatePaymentAmount(price, d("45000000"), d("5000000"))
		assert.True(t, res.OK)
		assert.NoError(t, res.Err())
	})

	t.Run("existing total plus amount above price", func(t *testing.T) {
		res := ValidatePaymentAmount(price, d("45000000"), d("5000000.01"))
		assert.Equal(t, ReasonPaymentsExceedPrice, res.Reason)
	})

	t.Run("zero and negative amounts", func(t *testing.T) {
		assert.Equal(t, ReasonAmountNotPositive, ValidatePaymentAmount(price, decimal.Zero, decimal.Zero).Reason)
		assert.Equal(t, ReasonAmountNotPositive, ValidatePaymentAmount(price, decimal.Zero, d("-5")).Reason)
	})
}

func TestValidateFinancingAmount(t *testing.T) {
	price, deposit := d("50000000"), d("5000000")

	t.Run("up to the remaining balance", func(t *testing.T) {
		assert.True(t, ValidateFinancingAmount(price, deposit, d("10000000"), d("35000000")).OK)
	})

	t.Run("above the remaining balance", func(t *testing.T) {
		res := ValidateFinancingAmount(price, deposit, d("10000000"), d("35000000.01"))
		assert.Equal(t, ReasonExceedsRemaining, res.Reason)
		assert.Equal(t, "amount", res.Field)
	})

	t.Run("non-positive request", func(t *testing.T) {
		assert.Equal(t, ReasonAmountNotPositive, ValidateFinancingAmount(price, deposit, decimal.Zero, decimal.Zero).Reason)
	})
}

func TestSplitEvenly(t *testing.T) {
	t.Run("remainder goes to the last installment", func(t *testing.T) {
		parts, res := SplitEvenly(d("100"), 3)
		require.True(t, res.OK)
		require.Len(t, parts, 3)
		assert.True(t, parts[0].Equal(d("33.33")))
		assert.True(t, parts[1].Equal(d("33.33")))
		assert.True(t, parts[2].Equal(d("33.34")))
		assert.True(t, Sum(parts...).Equal(d("100")))
	})

	t.Run("rejects empty plans", func(t *testing.T) {
		_, res := SplitEvenly(d("100"), 0)
		assert.Equal(t, ReasonInvalidInstallmentPlan, res.Reason)
	})

	t.Run("rejects plans with zero-cent shares", func(t *testing.T) {
		_, res := SplitEvenly(d("0.02"), 5)
		assert.False(t, res.OK)
	})
}
