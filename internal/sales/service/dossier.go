package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"immo/internal/sales/documents"
	"immo/internal/sales/ledger"
	"immo/internal/sales/models"
	id "immo/pkg/domain"
)

// Dossier is the read model of one sale.
type Dossier struct {
	Reservation      *models.Reservation   `json:"reservation"`
	Unit             *models.Unit          `json:"unit"`
	Payments         []*models.Payment     `json:"payments"`
	ValidatedTotal   decimal.Decimal       `json:"validated_total"`
	RemainingBalance decimal.Decimal       `json:"remaining_balance"`
	Contract         *models.Contract      `json:"contract,omitempty"`
	Financing        *models.Financing     `json:"financing,omitempty"`
	Installments     []*models.Installment `json:"installments,omitempty"`

	MissingReservationDocuments []documents.Item `json:"missing_reservation_documents"`
	MissingFinancingDocuments   []documents.Item `json:"missing_financing_documents,omitempty"`
}

// GetDossier loads a reservation and its dependents concurrently.
func (s *Service) GetDossier(ctx context.Context, actor id.Actor, reservationID id.ReservationID) (_ *Dossier, err error) {
	ctx, done := s.observe(ctx, "get_dossier", attribute.String("reservation_id", reservationID.String()))
	defer done(&err)

	if err := requireRoles(actor, anyRole...); err != nil {
		return nil, err
	}
	r, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, storeErr(err, "reservation")
	}
	if err := requireOwner(actor, r); err != nil {
		return nil, err
	}

	d := &Dossier{Reservation: r}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		unit, err := s.store.GetUnit(gctx, r.UnitID)
		d.Unit = unit
		return storeErr(err, "unit")
	})
	g.Go(func() error {
		payments, err := s.store.ListPayments(gctx, r.ID)
		d.Payments = payments
		return storeErr(err, "payments")
	})
	g.Go(func() error {
		contract, err := optional(s.store.FindContractByReservation(gctx, r.ID))
		d.Contract = contract
		return storeErr(err, "contract")
	})
	g.Go(func() error {
		docs, err := s.store.ListDocuments(gctx, models.ReservationContext(r.ID))
		if err != nil {
			return storeErr(err, "documents")
		}
		d.MissingReservationDocuments = documents.Missing(models.ContextReservation, docs)
		return nil
	})
	g.Go(func() error {
		f, err := optional(s.store.FindFinancingByReservation(gctx, r.ID))
		if err != nil || f == nil {
			return storeErr(err, "financing")
		}
		d.Financing = f
		if d.Installments, err = s.store.ListInstallments(gctx, f.ID); err != nil {
			return storeErr(err, "installments")
		}
		docs, err := s.store.ListDocuments(gctx, models.FinancingContext(r.ID, f.ID))
		if err != nil {
			return storeErr(err, "documents")
		}
		d.MissingFinancingDocuments = documents.Missing(models.ContextFinancing, docs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.ValidatedTotal = models.TotalByStatus(d.Payments, models.PaymentValidated)
	d.RemainingBalance = ledger.RemainingBalance(d.Unit.Price, r.Deposit, d.ValidatedTotal)
	return d, nil
}
