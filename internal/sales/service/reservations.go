package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"immo/internal/sales/cascade"
	"immo/internal/sales/documents"
	"immo/internal/sales/ledger"
	"immo/internal/sales/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	audit "immo/pkg/platform/audit"
	"immo/pkg/platform/sentinel"
	"immo/pkg/requestcontext"
)

const subjectReservation = "reservation"

// ConfirmResult carries the advisory document gate next to the confirmed
// reservation. Missing documents never block confirmation.
type ConfirmResult struct {
	Reservation      *models.Reservation `json:"reservation"`
	MissingDocuments []documents.Item    `json:"missing_documents"`
}

// TerminationResult reports the terminal transition and what the cascade changed.
type TerminationResult struct {
	Reservation *models.Reservation `json:"reservation"`
	Cascade     cascade.Report      `json:"cascade"`
}

// CreateReservation claims an available unit for a client.
func (s *Service) CreateReservation(ctx context.Context, actor id.Actor, unitID id.UnitID, clientID id.ClientID, deposit decimal.Decimal) (_ *models.Reservation, err error) {
	ctx, done := s.observe(ctx, "create_reservation", attribute.String("unit_id", unitID.String()))
	defer done(&err)

	if err := requireRoles(actor, anyRole...); err != nil {
		return nil, err
	}
	if clientID.IsNil() {
		return nil, dErrors.Validation("client_id", "is required")
	}
	if !actor.CanAccessClient(clientID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "clients may only reserve for themselves")
	}

	now := requestcontext.Now(ctx)
	var reservation *models.Reservation
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		unit, err := st.GetUnit(ctx, unitID)
		if err != nil {
			return storeErr(err, "unit")
		}
		if err := ledger.ValidateDeposit(unit.Price, deposit).Err(); err != nil {
			return err
		}
		if err := unit.CanReserve(); err != nil {
			return err
		}

		r := models.NewReservation(id.ReservationID(newID()), unitID, clientID, deposit, now)
		if err := st.InsertReservation(ctx, r); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "unit already has an active reservation")
			}
			return storeErr(err, "reservation")
		}
		unit.Availability = models.AvailabilityReserved
		unit.UpdatedAt = now
		if err := st.SetAvailability(ctx, unit); err != nil {
			return storeErr(err, "unit")
		}
		reservation = r
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.metrics.IncTransition("created")
	s.logAudit(ctx, actor, audit.EventReservationCreated, subjectReservation, reservation.ID.String(),
		"unit_id", unitID, "client_id", clientID, "deposit", deposit)
	return reservation, nil
}

// ConfirmReservation moves in_progress to confirmed. Staff only.
func (s *Service) ConfirmReservation(ctx context.Context, actor id.Actor, reservationID id.ReservationID) (_ *ConfirmResult, err error) {
	ctx, done := s.observe(ctx, "confirm_reservation", attribute.String("reservation_id", reservationID.String()))
	defer done(&err)

	if err := requireRoles(actor, id.StaffRoles...); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var result ConfirmResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, reservationID)
		if err != nil {
			return err
		}
		if err := r.CanConfirm(); err != nil {
			return err
		}
		r.ApplyConfirmation(actor.UserID, now)
		if err := st.UpdateReservation(ctx, r); err != nil {
			return storeErr(err, "reservation")
		}
		docs, err := st.ListDocuments(ctx, models.ReservationContext(r.ID))
		if err != nil {
			return storeErr(err, "documents")
		}
		result = ConfirmResult{Reservation: r, MissingDocuments: documents.Missing(models.ContextReservation, docs)}
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.metrics.IncTransition("confirmed")
	s.logAudit(ctx, actor, audit.EventReservationConfirmed, subjectReservation, reservationID.String(),
		"missing_documents", len(result.MissingDocuments))
	return &result, nil
}

// CancelReservation ends the reservation with a mandatory reason and cascades.
func (s *Service) CancelReservation(ctx context.Context, actor id.Actor, reservationID id.ReservationID, reason string) (_ *TerminationResult, err error) {
	ctx, done := s.observe(ctx, "cancel_reservation", attribute.String("reservation_id", reservationID.String()))
	defer done(&err)

	return s.terminate(ctx, actor, reservationID, models.ReservationCancelled, reason)
}

// ExpireReservation is the manual counterpart of cancel; the reason is optional.
func (s *Service) ExpireReservation(ctx context.Context, actor id.Actor, reservationID id.ReservationID, reason string) (_ *TerminationResult, err error) {
	ctx, done := s.observe(ctx, "expire_reservation", attribute.String("reservation_id", reservationID.String()))
	defer done(&err)

	return s.terminate(ctx, actor, reservationID, models.ReservationExpired, reason)
}

func (s *Service) terminate(ctx context.Context, actor id.Actor, reservationID id.ReservationID, to models.ReservationStatus, reason string) (*TerminationResult, error) {
	if err := requireRoles(actor, id.StaffRoles...); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var result TerminationResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, reservationID)
		if err != nil {
			return err
		}
		if to == models.ReservationCancelled {
			err = r.CanCancel(reason)
		} else {
			err = r.CanExpire()
		}
		if err != nil {
			return err
		}

		contract, err := optional(st.FindContractByReservation(ctx, r.ID))
		if err != nil {
			return storeErr(err, "contract")
		}
		if contract != nil && contract.IsCommitted() {
			return dErrors.New(dErrors.CodeConflict, "reservation has a signed contract")
		}

		if to == models.ReservationCancelled {
			r.ApplyCancellation(actor.UserID, reason, now)
		} else {
			r.ApplyExpiry(actor.UserID, reason, now)
		}
		if err := st.UpdateReservation(ctx, r); err != nil {
			return storeErr(err, "reservation")
		}

		target, err := loadCascadeTarget(ctx, st, r, contract)
		if err != nil {
			return err
		}
		report, err := s.cascade.Apply(ctx, r, target, now)
		if err != nil {
			return err
		}
		if err := persistCascade(ctx, st, target, report); err != nil {
			return err
		}
		result = TerminationResult{Reservation: r, Cascade: report}
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	event := audit.EventReservationCancelled
	if to == models.ReservationExpired {
		event = audit.EventReservationExpired
	}
	s.metrics.IncTransition(string(to))
	s.logAudit(ctx, actor, event, subjectReservation, reservationID.String(),
		"reason", strings.TrimSpace(reason))
	s.logAudit(ctx, actor, audit.EventCascadeApplied, subjectReservation, reservationID.String(),
		"changes", result.Cascade.Changes)
	return &result, nil
}

func loadCascadeTarget(ctx context.Context, st Store, r *models.Reservation, contract *models.Contract) (cascade.Target, error) {
	t := cascade.Target{Contract: contract}
	var err error
	if t.Unit, err = st.GetUnit(ctx, r.UnitID); err != nil {
		return t, storeErr(err, "unit")
	}
	if t.UnitHolder, err = optional(st.FindActiveReservationByUnit(ctx, r.UnitID)); err != nil {
		return t, storeErr(err, "reservation")
	}
	if t.Payments, err = st.ListPayments(ctx, r.ID); err != nil {
		return t, storeErr(err, "payments")
	}
	if t.Financing, err = optional(st.FindFinancingByReservation(ctx, r.ID)); err != nil {
		return t, storeErr(err, "financing")
	}
	if t.Financing != nil {
		if t.Installments, err = st.ListInstallments(ctx, t.Financing.ID); err != nil {
			return t, storeErr(err, "installments")
		}
	}
	return t, nil
}

// persistCascade writes back exactly the records the report lists.
func persistCascade(ctx context.Context, st Store, t cascade.Target, report cascade.Report) error {
	changed := make(map[string]bool, len(report.Changes))
	for _, c := range report.Changes {
		changed[string(c.Kind)+":"+c.ID] = true
	}
	is := func(kind cascade.RecordKind, recordID string) bool {
		return changed[string(kind)+":"+recordID]
	}

	if t.Unit != nil && is(cascade.RecordUnit, t.Unit.ID.String()) {
		if err := st.SetAvailability(ctx, t.Unit); err != nil {
			return storeErr(err, "unit")
		}
	}
	for _, p := range t.Payments {
		if is(cascade.RecordPayment, p.ID.String()) {
			if err := st.UpdatePayment(ctx, p); err != nil {
				return storeErr(err, "payment")
			}
		}
	}
	if t.Contract != nil && is(cascade.RecordContract, t.Contract.ID.String()) {
		if err := st.UpdateContract(ctx, t.Contract); err != nil {
			return storeErr(err, "contract")
		}
	}
	if t.Financing != nil && is(cascade.RecordFinancing, t.Financing.ID.String()) {
		if err := st.UpdateFinancing(ctx, t.Financing); err != nil {
			return storeErr(err, "financing")
		}
	}
	for _, inst := range t.Installments {
		if is(cascade.RecordInstallment, inst.ID.String()) {
			if err := st.UpdateInstallment(ctx, inst); err != nil {
				return storeErr(err, "installment")
			}
		}
	}
	return nil
}
