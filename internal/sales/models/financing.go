package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
)

type FinancingType string

const (
	FinancingMortgage     FinancingType = "mortgage"
	FinancingPersonalLoan FinancingType = "personal_loan"
	FinancingBridgeLoan   FinancingType = "bridge_loan"
)

func ParseFinancingType(s string) (FinancingType, bool) {
	switch t := FinancingType(s); t {
	case FinancingMortgage, FinancingPersonalLoan, FinancingBridgeLoan:
		return t, true
	}
	return "", false
}

// Financing is one-to-one with a reservation. accepted and closed are
// committed: cancellation of the reservation leaves them untouched.
type Financing struct {
	ID            id.FinancingID   `json:"id"`
	ReservationID id.ReservationID `json:"reservation_id"`
	BankID        id.BankID        `json:"bank_id"`
	Type          FinancingType    `json:"type"`
	Amount        decimal.Decimal  `json:"amount"`
	Status        FinancingStatus  `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func NewFinancing(financingID id.FinancingID, reservationID id.ReservationID, bankID id.BankID, typ FinancingType, amount decimal.Decimal, now time.Time) *Financing {
	return &Financing{
		ID:            financingID,
		ReservationID: reservationID,
		BankID:        bankID,
		Type:          typ,
		Amount:        amount,
		Status:        FinancingSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (f *Financing) IsCommitted() bool {
	return f.Status.IsCommitted()
}

func (f *Financing) CanMoveTo(next FinancingStatus) error {
	if !f.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeConflict, "financing cannot move from "+string(f.Status)+" to "+string(next))
	}
	return nil
}

func (f *Financing) ApplyStatus(next FinancingStatus, now time.Time) {
	f.Status = next
	f.UpdatedAt = now
}

// CanScheduleInstallments rejects financing that will never be disbursed.
func (f *Financing) CanScheduleInstallments() error {
	switch f.Status {
	case FinancingRefused, FinancingCancelled:
		return dErrors.New(dErrors.CodeConflict, "financing is "+string(f.Status))
	}
	return nil
}

// Installment is one scheduled share of a financing. Its status mirrors the
// financing at creation time.
type Installment struct {
	ID          id.InstallmentID `json:"id"`
	FinancingID id.FinancingID   `json:"financing_id"`
	Sequence    int              `json:"sequence"`
	Amount      decimal.Decimal  `json:"amount"`
	DueDate     time.Time        `json:"due_date"`
	Status      FinancingStatus  `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// InstallmentInterval separates consecutive due dates.
const InstallmentInterval = 30 * 24 * time.Hour

// NewInstallments builds the schedule for pre-split amounts.
func NewInstallments(f *Financing, amounts []decimal.Decimal, firstDue time.Time, newID func() id.InstallmentID, now time.Time) []*Installment {
	out := make([]*Installment, len(amounts))
	for i, amount := range amounts {
		out[i] = &Installment{
			ID:          newID(),
			FinancingID: f.ID,
			Sequence:    i + 1,
			Amount:      amount,
			DueDate:     firstDue.Add(time.Duration(i) * InstallmentInterval),
			Status:      f.Status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return out
}

func (i *Installment) ApplyCancellation(now time.Time) {
	i.Status = FinancingCancelled
	i.UpdatedAt = now
}
