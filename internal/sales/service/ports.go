package service

import (
	"context"

	"immo/internal/sales/models"
	id "immo/pkg/domain"
	audit "immo/pkg/platform/audit"
)

// Store is the persistence port. Inside RunInTx every Get* call locks the
// row it returns for the rest of the transaction; outside a transaction the
// same methods are plain reads. Stores return sentinel errors.
type Store interface {
	// Catalog collaborator.
	GetUnit(ctx context.Context, unitID id.UnitID) (*models.Unit, error)
	SetAvailability(ctx context.Context, unit *models.Unit) error

	InsertReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, reservationID id.ReservationID) (*models.Reservation, error)
	FindActiveReservationByUnit(ctx context.Context, unitID id.UnitID) (*models.Reservation, error)
	UpdateReservation(ctx context.Context, r *models.Reservation) error

	InsertPayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error)
	ListPayments(ctx context.Context, reservationID id.ReservationID) ([]*models.Payment, error)
	UpdatePayment(ctx context.Context, p *models.Payment) error

	InsertContract(ctx context.Context, c *models.Contract) error
	GetContract(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	FindContractByReservation(ctx context.Context, reservationID id.ReservationID) (*models.Contract, error)
	UpdateContract(ctx context.Context, c *models.Contract) error

	InsertFinancing(ctx context.Context, f *models.Financing) error
	GetFinancing(ctx context.Context, financingID id.FinancingID) (*models.Financing, error)
	FindFinancingByReservation(ctx context.Context, reservationID id.ReservationID) (*models.Financing, error)
	UpdateFinancing(ctx context.Context, f *models.Financing) error

	InsertInstallments(ctx context.Context, items []*models.Installment) error
	ListInstallments(ctx context.Context, financingID id.FinancingID) ([]*models.Installment, error)
	UpdateInstallment(ctx context.Context, i *models.Installment) error

	InsertDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, documentID id.DocumentID) (*models.Document, error)
	ListDocuments(ctx context.Context, dc models.DocumentContext) ([]*models.Document, error)
	UpdateDocument(ctx context.Context, d *models.Document) error
}

// TxRunner runs fn as one atomic unit. Any error from fn rolls back every
// write made through the Store it was given.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

//go:generate mockgen -destination=mocks/mocks.go -package=mocks immo/internal/sales/service AuditSink

// AuditSink receives one event per mutation. Fire-and-forget: it must not
// block and its failures never reach the caller.
type AuditSink interface {
	Record(ctx context.Context, event audit.Event)
}
