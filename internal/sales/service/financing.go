package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"immo/internal/sales/documents"
	"immo/internal/sales/ledger"
	"immo/internal/sales/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	audit "immo/pkg/platform/audit"
	"immo/pkg/platform/sentinel"
	"immo/pkg/requestcontext"
)

const subjectFinancing = "financing"

// FinancingRequest is the input of RequestFinancing.
type FinancingRequest struct {
	BankID id.BankID
	Type   models.FinancingType
	Amount decimal.Decimal
}

// RequestFinancing opens the single financing of a reservation for at most
// the remaining balance.
func (s *Service) RequestFinancing(ctx context.Context, actor id.Actor, reservationID id.ReservationID, req FinancingRequest) (_ *models.Financing, err error) {
	ctx, done := s.observe(ctx, "request_financing", attribute.String("reservation_id", reservationID.String()))
	defer done(&err)

	if err := requireRoles(actor, anyRole...); err != nil {
		return nil, err
	}
	if uuid.UUID(req.BankID) == uuid.Nil {
		return nil, dErrors.Validation("bank_id", "is required")
	}
	if _, ok := models.ParseFinancingType(string(req.Type)); !ok {
		return nil, dErrors.Validation("type", "unsupported financing type")
	}

	now := requestcontext.Now(ctx)
	var financing *models.Financing
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, reservationID)
		if err != nil {
			return err
		}
		if err := requireActive(r); err != nil {
			return err
		}
		existing, err := optional(st.FindFinancingByReservation(ctx, r.ID))
		if err != nil {
			return storeErr(err, "financing")
		}
		if existing != nil {
			return dErrors.New(dErrors.CodeConflict, "reservation already has a financing")
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
		if err := ledger.ValidateFinancingAmount(unit.Price, r.Deposit, validated, req.Amount).Err(); err != nil {
			return err
		}

		f := models.NewFinancing(id.FinancingID(newID()), r.ID, req.BankID, req.Type, req.Amount, now)
		if err := st.InsertFinancing(ctx, f); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "reservation already has a financing")
			}
			return storeErr(err, "financing")
		}
		financing = f
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.logAudit(ctx, actor, audit.EventFinancingRequested, subjectFinancing, financing.ID.String(),
		"reservation_id", reservationID, "bank_id", req.BankID, "type", string(req.Type), "amount", req.Amount)
	return financing, nil
}

// UpdateFinancingStatus moves the financing along its lifecycle. Acceptance
// requires a complete financing document checklist. Installments follow the
// financing status.
func (s *Service) UpdateFinancingStatus(ctx context.Context, actor id.Actor, financingID id.FinancingID, next models.FinancingStatus) (_ *models.Financing, err error) {
	ctx, done := s.observe(ctx, "update_financing_status", attribute.String("financing_id", financingID.String()))
	defer done(&err)

	if err := requireRoles(actor, id.StaffRoles...); err != nil {
		return nil, err
	}
	reservationID, err := s.financingReservation(ctx, financingID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var (
		financing *models.Financing
		from      models.FinancingStatus
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, reservationID)
		if err != nil {
			return err
		}
		f, err := st.GetFinancing(ctx, financingID)
		if err != nil {
			return storeErr(err, "financing")
		}
		if err := f.CanMoveTo(next); err != nil {
			return err
		}
		if next == models.FinancingAccepted {
			if err := requireActive(r); err != nil {
				return err
			}
			docs, err := st.ListDocuments(ctx, models.FinancingContext(r.ID, f.ID))
			if err != nil {
				return storeErr(err, "documents")
			}
			if missing := documents.Missing(models.ContextFinancing, docs); len(missing) > 0 {
				gateErr := dErrors.New(dErrors.CodeConflict, "financing documents are incomplete")
				for _, item := range missing {
					gateErr = gateErr.WithField(string(item.Type), string(item.Status))
				}
				return gateErr
			}
		}

		from = f.Status
		f.ApplyStatus(next, now)
		if err := st.UpdateFinancing(ctx, f); err != nil {
			return storeErr(err, "financing")
		}
		financing = f
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.logAudit(ctx, actor, audit.EventFinancingStatusChanged, subjectFinancing, financingID.String(),
		"from", string(from), "to", string(next))
	return financing, nil
}

// GenerateInstallments splits the financed amount into count installments
// due every InstallmentInterval starting at firstDue.
func (s *Service) GenerateInstallments(ctx context.Context, actor id.Actor, financingID id.FinancingID, count int, firstDue time.Time) (_ []*models.Installment, err error) {
	ctx, done := s.observe(ctx, "generate_installments", attribute.String("financing_id", financingID.String()))
	defer done(&err)

	if err := requireRoles(actor, id.StaffRoles...); err != nil {
		return nil, err
	}
	if firstDue.IsZero() {
		return nil, dErrors.Validation("first_due_date", "is required")
	}
	reservationID, err := s.financingReservation(ctx, financingID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var items []*models.Installment
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		if _, err := lockReservation(ctx, st, actor, reservationID); err != nil {
			return err
		}
		f, err := st.GetFinancing(ctx, financingID)
		if err != nil {
			return storeErr(err, "financing")
		}
		if err := f.CanScheduleInstallments(); err != nil {
			return err
		}
		existing, err := st.ListInstallments(ctx, f.ID)
		if err != nil {
			return storeErr(err, "installments")
		}
		if len(existing) > 0 {
			return dErrors.New(dErrors.CodeConflict, "installments already generated")
		}
		amounts, res := ledger.SplitEvenly(f.Amount, count)
		if err := res.Err(); err != nil {
			return err
		}
		items = models.NewInstallments(f, amounts, firstDue, func() id.InstallmentID { return id.InstallmentID(newID()) }, now)
		if err := st.InsertInstallments(ctx, items); err != nil {
			return storeErr(err, "installments")
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.logAudit(ctx, actor, audit.EventInstallmentsGenerated, subjectFinancing, financingID.String(),
		"count", count, "first_due_date", firstDue)
	return items, nil
}

func (s *Service) financingReservation(ctx context.Context, financingID id.FinancingID) (id.ReservationID, error) {
	f, err := s.store.GetFinancing(ctx, financingID)
	if err != nil {
		return id.ReservationID{}, storeErr(err, "financing")
	}
	return f.ReservationID, nil
}
