package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"immo/internal/sales/ledger"
	"immo/internal/sales/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	audit "immo/pkg/platform/audit"
	"immo/pkg/requestcontext"
)

const subjectPayment = "payment"

// RecordPayment registers a payment made outside the system. The ceiling is
// checked against every payment that may still be validated, under the
// reservation lock, so concurrent recordings cannot jointly exceed the price.
func (s *Service) RecordPayment(ctx context.Context, actor id.Actor, reservationID id.ReservationID, amount decimal.Decimal, method id.PaymentMethod) (_ *models.Payment, err error) {
	ctx, done := s.observe(ctx, "record_payment", attribute.String("reservation_id", reservationID.String()))
	defer done(&err)

	if err := requireRoles(actor, anyRole...); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, dErrors.Validation("method", "unsupported payment method")
	}

	now := requestcontext.Now(ctx)
	var payment *models.Payment
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, reservationID)
		if err != nil {
			return err
		}
		if err := requireActive(r); err != nil {
			return err
		}
		unit, err := st.GetUnit(ctx, r.UnitID)
		if err != nil {
			return storeErr(err, "unit")
		}
		payments, err := st.ListPayments(ctx, r.ID)
		if err != nil {
			return storeErr(err, "payments")
		}
		outstanding := models.TotalByStatus(payments, models.PaymentRecorded, models.PaymentValidated)
		if err := ledger.ValidatePaymentAmount(unit.Price, outstanding, amount).Err(); err != nil {
			return err
		}

		p := models.NewPayment(id.PaymentID(newID()), r.ID, amount, method, now)
		if err := st.InsertPayment(ctx, p); err != nil {
			return storeErr(err, "payment")
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.metrics.IncPayment(string(models.PaymentRecorded))
	s.logAudit(ctx, actor, audit.EventPaymentRecorded, subjectPayment, payment.ID.String(),
		"reservation_id", reservationID, "amount", amount, "method", string(method))
	return payment, nil
}

// ValidatePayment commits a recorded payment. Staff only.
func (s *Service) ValidatePayment(ctx context.Context, actor id.Actor, paymentID id.PaymentID) (_ *models.Payment, err error) {
	ctx, done := s.observe(ctx, "validate_payment", attribute.String("payment_id", paymentID.String()))
	defer done(&err)

	if err := requireRoles(actor, id.StaffRoles...); err != nil {
		return nil, err
	}
	reservationID, err := s.paymentReservation(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var payment *models.Payment
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, reservationID)
		if err != nil {
			return err
		}
		p, err := st.GetPayment(ctx, paymentID)
		if err != nil {
			return storeErr(err, "payment")
		}
		if err := p.CanValidate(); err != nil {
			return err
		}
		unit, err := st.GetUnit(ctx, r.UnitID)
		if err != nil {
			return storeErr(err, "unit")
		}
		payments, err := st.ListPayments(ctx, r.ID)
		if err != nil {
			return storeErr(err, "payments")
		}
		validated := models.TotalByStatus(payments, models.PaymentValidated)
		if err := ledger.ValidatePaymentAmount(unit.Price, validated, p.Amount).Err(); err != nil {
			return err
		}

		p.ApplyValidation(actor.UserID, now)
		if err := st.UpdatePayment(ctx, p); err != nil {
			return storeErr(err, "payment")
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.metrics.IncPayment(string(models.PaymentValidated))
	s.logAudit(ctx, actor, audit.EventPaymentValidated, subjectPayment, paymentID.String(),
		"reservation_id", reservationID, "amount", payment.Amount)
	return payment, nil
}

// RejectPayment refuses a recorded payment with a reason. Staff only.
func (s *Service) RejectPayment(ctx context.Context, actor id.Actor, paymentID id.PaymentID, reason string) (_ *models.Payment, err error) {
	ctx, done := s.observe(ctx, "reject_payment", attribute.String("payment_id", paymentID.String()))
	defer done(&err)

	if err := requireRoles(actor, id.StaffRoles...); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.Validation("reason", "is required")
	}
	reservationID, err := s.paymentReservation(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var payment *models.Payment
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		if _, err := lockReservation(ctx, st, actor, reservationID); err != nil {
			return err
		}
		p, err := st.GetPayment(ctx, paymentID)
		if err != nil {
			return storeErr(err, "payment")
		}
		if err := p.CanReject(); err != nil {
			return err
		}
		p.ApplyRejection(reason, now)
		if err := st.UpdatePayment(ctx, p); err != nil {
			return storeErr(err, "payment")
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.metrics.IncPayment(string(models.PaymentRejected))
	s.logAudit(ctx, actor, audit.EventPaymentRejected, subjectPayment, paymentID.String(),
		"reservation_id", reservationID, "reason", payment.RejectionReason)
	return payment, nil
}

// paymentReservation resolves the owning reservation without locking so the
// transaction can lock the reservation before the payment.
func (s *Service) paymentReservation(ctx context.Context, paymentID id.PaymentID) (id.ReservationID, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return id.ReservationID{}, storeErr(err, "payment")
	}
	return p.ReservationID, nil
}
