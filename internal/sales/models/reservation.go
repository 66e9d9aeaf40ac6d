package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
)

// Unit is the catalog view the core reads and writes.
type Unit struct {
	ID           id.UnitID       `json:"id"`
	Price        decimal.Decimal `json:"price"`
	Availability Availability    `json:"availability"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (u *Unit) CanReserve() error {
	if u.Availability != AvailabilityAvailable {
		return dErrors.New(dErrors.CodeConflict, "unit is not available")
	}
	return nil
}

// Reservation is the aggregate root of a sale.
//
// Invariants:
//   - Status moves in_progress -> confirmed -> {cancelled | expired}; in_progress may also end directly
//   - cancelled and expired are terminal
//   - Cancellation metadata is set only when the reservation is cancelled
//   - Deposit is within [0, unit price] (enforced by the ledger at creation)
type Reservation struct {
	ID        id.ReservationID  `json:"id"`
	UnitID    id.UnitID         `json:"unit_id"`
	ClientID  id.ClientID       `json:"client_id"`
	Status    ReservationStatus `json:"status"`
	Deposit   decimal.Decimal   `json:"deposit"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	ConfirmedBy *id.UserID `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledBy        *id.UserID `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	ExpiryReason string     `json:"expiry_reason,omitempty"`
	ExpiredBy    *id.UserID `json:"expired_by,omitempty"`
	ExpiredAt    *time.Time `json:"expired_at,omitempty"`
}

func NewReservation(reservationID id.ReservationID, unitID id.UnitID, clientID id.ClientID, deposit decimal.Decimal, now time.Time) *Reservation {
	return &Reservation{
		ID:        reservationID,
		UnitID:    unitID,
		ClientID:  clientID,
		Status:    ReservationInProgress,
		Deposit:   deposit,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Reservation) IsActive() bool {
	return r.Status.IsActive()
}

// CanConfirm checks the in_progress -> confirmed guard.
func (r *Reservation) CanConfirm() error {
	if r.Status != ReservationInProgress {
		return dErrors.New(dErrors.CodeConflict, "reservation is "+string(r.Status)+", only in_progress reservations can be confirmed")
	}
	return nil
}

// ApplyConfirmation must only be called after CanConfirm returns nil.
func (r *Reservation) ApplyConfirmation(actor id.UserID, now time.Time) {
	r.Status = ReservationConfirmed
	r.ConfirmedBy = &actor
	r.ConfirmedAt = &now
	r.UpdatedAt = now
}

// CanTerminate checks the guard shared by cancel and expire. The signed
// contract guard lives in the service because it spans two aggregates.
func (r *Reservation) CanTerminate() error {
	if r.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeConflict, "reservation is already "+string(r.Status))
	}
	return nil
}

func (r *Reservation) CanCancel(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.Validation("reason", "is required")
	}
	return r.CanTerminate()
}

// ApplyCancellation must only be called after CanCancel returns nil.
func (r *Reservation) ApplyCancellation(actor id.UserID, reason string, now time.Time) {
	r.Status = ReservationCancelled
	r.CancellationReason = strings.TrimSpace(reason)
	r.CancelledBy = &actor
	r.CancelledAt = &now
	r.UpdatedAt = now
}

func (r *Reservation) CanExpire() error {
	return r.CanTerminate()
}

// ApplyExpiry must only be called after CanExpire returns nil.
func (r *Reservation) ApplyExpiry(actor id.UserID, reason string, now time.Time) {
	r.Status = ReservationExpired
	r.ExpiryReason = strings.TrimSpace(reason)
	r.ExpiredBy = &actor
	r.ExpiredAt = &now
	r.UpdatedAt = now
}
