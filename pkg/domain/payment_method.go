package domain

import dErrors "immo/pkg/domain-errors"

// PaymentMethod is how a client settled a payment.
// Invariant: the value must be one of the supported methods.
//
// Usage: construct via ParsePaymentMethod at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
)

var validPaymentMethods = map[PaymentMethod]bool{
	PaymentMethodBankTransfer: true,
	PaymentMethodCheque:       true,
	PaymentMethodCash:         true,
	PaymentMethodCard:         true,
}

// ParsePaymentMethod constructs a PaymentMethod from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	if s == "" {
		return "", dErrors.Validation("method", "is required")
	}
	m := PaymentMethod(s)
	if !m.IsValid() {
		return "", dErrors.Validation("method", "unsupported payment method")
	}
	return m, nil
}

func (m PaymentMethod) IsValid() bool {
	return validPaymentMethods[m]
}

func (m PaymentMethod) String() string {
	return string(m)
}
