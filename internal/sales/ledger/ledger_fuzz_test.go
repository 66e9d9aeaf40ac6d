package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func cents(v int64) decimal.Decimal { return decimal.New(v, -Cents) }

// FuzzValidatePaymentAmount checks the ceiling property: an accepted payment
// never takes the running total above the unit price, and the check is
// deterministic for identical inputs.
func FuzzValidatePaymentAmount(f *testing.F) {
	f.Add(int64(5_000_000_000), int64(0), int64(6_000_000_000))
	f.Add(int64(100), int64(50), int64(50))
	f.Add(int64(100), int64(50), int64(51))
	f.Add(int64(0), int64(0), int64(0))
	f.Add(int64(100), int64(0), int64(-1))

	f.Fuzz(func(t *testing.T, price, existing, amount int64) {
		p, e, a := cents(price), cents(existing), cents(amount)

		res := ValidatePaymentAmount(p, e, a)
		if res != ValidatePaymentAmount(p, e, a) {
			t.Fatal("non-deterministic result")
		}
		if res.OK {
			if !a.IsPositive() {
				t.Fatalf("accepted non-positive amount %s", a)
			}
			if e.Add(a).GreaterThan(p) {
				t.Fatalf("accepted %s + %s over price %s", e, a, p)
			}
		} else if res.Reason == "" || res.Err() == nil {
			t.Fatal("failed result without reason")
		}
	})
}

// FuzzValidateFinancingAmount checks that an accepted request always fits in
// price - deposit - validated payments.
func FuzzValidateFinancingAmount(f *testing.F) {
	f.Add(int64(5_000_000_000), int64(500_000_000), int64(0), int64(4_500_000_000))
	f.Add(int64(100), int64(100), int64(0), int64(1))
	f.Add(int64(100), int64(10), int64(10), int64(80))

	f.Fuzz(func(t *testing.T, price, deposit, validated, requested int64) {
		p, dep, v, r := cents(price), cents(deposit), cents(validated), cents(requested)

		res := ValidateFinancingAmount(p, dep, v, r)
		if res.OK && (r.GreaterThan(p.Sub(dep).Sub(v)) || !r.IsPositive()) {
			t.Fatalf("accepted %s with price=%s deposit=%s validated=%s", r, p, dep, v)
		}
	})
}

// FuzzValidateDeposit checks 0 <= deposit <= price for every accepted deposit.
func FuzzValidateDeposit(f *testing.F) {
	f.Add(int64(100), int64(0))
	f.Add(int64(100), int64(101))
	f.Add(int64(100), int64(-1))

	f.Fuzz(func(t *testing.T, price, deposit int64) {
		p, dep := cents(price), cents(deposit)
		res := ValidateDeposit(p, dep)
		if res.OK && (dep.IsNegative() || dep.GreaterThan(p)) {
			t.Fatalf("accepted deposit %s for price %s", dep, p)
		}
	})
}

// FuzzSplitEvenly checks installments are positive and sum back to the amount.
func FuzzSplitEvenly(f *testing.F) {
	f.Add(int64(10_000), 3)
	f.Add(int64(1), 1)
	f.Add(int64(50), 100)

	f.Fuzz(func(t *testing.T, amount int64, n int) {
		if n > 1000 {
			n = n % 1000
		}
		a := cents(amount)
		parts, res := SplitEvenly(a, n)
		if !res.OK {
			return
		}
		if len(parts) != n {
			t.Fatalf("got %d parts, want %d", len(parts), n)
		}
		for _, p := range parts {
			if !p.IsPositive() {
				t.Fatalf("non-positive installment %s", p)
			}
		}
		if !Sum(parts...).Equal(a) {
			t.Fatalf("parts sum to %s, want %s", Sum(parts...), a)
		}
	})
}
