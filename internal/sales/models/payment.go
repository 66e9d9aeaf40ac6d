package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
)

// Payment is recorded by the core, never processed. Only validated payments
// count toward the paid total; validated is committed and never downgraded.
type Payment struct {
	ID            id.PaymentID     `json:"id"`
	ReservationID id.ReservationID `json:"reservation_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Method        id.PaymentMethod `json:"method"`
	Status        PaymentStatus    `json:"status"`
	RecordedAt    time.Time        `json:"recorded_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	ValidatedBy     *id.UserID `json:"validated_by,omitempty"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

func NewPayment(paymentID id.PaymentID, reservationID id.ReservationID, amount decimal.Decimal, method id.PaymentMethod, now time.Time) *Payment {
	return &Payment{
		ID:            paymentID,
		ReservationID: reservationID,
		Amount:        amount,
		Method:        method,
		Status:        PaymentRecorded,
		RecordedAt:    now,
		UpdatedAt:     now,
	}
}

func (p *Payment) IsCommitted() bool {
	return p.Status == PaymentValidated
}

func (p *Payment) CanValidate() error {
	if p.Status != PaymentRecorded {
		return dErrors.New(dErrors.CodeConflict, "payment is "+string(p.Status)+", only recorded payments can be validated")
	}
	return nil
}

func (p *Payment) ApplyValidation(actor id.UserID, now time.Time) {
	p.Status = PaymentValidated
	p.ValidatedBy = &actor
	p.ValidatedAt = &now
	p.UpdatedAt = now
}

func (p *Payment) CanReject() error {
	if p.Status != PaymentRecorded {
		return dErrors.New(dErrors.CodeConflict, "payment is "+string(p.Status)+", only recorded payments can be rejected")
	}
	return nil
}

// ApplyRejection is also used by the cascade, which passes its own reason.
func (p *Payment) ApplyRejection(reason string, now time.Time) {
	p.Status = PaymentRejected
	p.RejectionReason = strings.TrimSpace(reason)
	p.UpdatedAt = now
}

// TotalByStatus sums payment amounts whose status is in statuses.
func TotalByStatus(payments []*Payment, statuses ...PaymentStatus) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		for _, s := range statuses {
			if p.Status == s {
				total = total.Add(p.Amount)
				break
			}
		}
	}
	return total
}
