//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"immo/internal/sales/models"
	"immo/internal/sales/service"
	"immo/internal/sales/store"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	"immo/pkg/platform/sentinel"
	"immo/pkg/requestcontext"
	"immo/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	svc      *service.Service
	unit     *models.Unit
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.svc = service.New(s.store, store.NewPostgresTxRunner(s.postgres.DB, 5*time.Second))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(s.postgres.TruncateTables(s.ctx,
		"documents", "installments", "financings", "contracts", "payments", "reservations", "units", "audit_outbox"))
	s.unit = &models.Unit{
		ID: id.UnitID(uuid.New()), Price: decimal.NewFromInt(50_000_000),
		Availability: models.AvailabilityAvailable, UpdatedAt: requestcontext.Now(s.ctx),
	}
	s.Require().NoError(s.store.UpsertUnit(s.ctx, s.unit))
}

func staff() id.Actor {
	return id.Actor{UserID: id.UserID(uuid.New()), Roles: []id.Role{id.RoleCommercial}}
}

// TestConcurrentReservationsOneWins relies on the partial unique index and
// the unit row lock.
func (s *PostgresStoreSuite) TestConcurrentReservationsOneWins() {
	const goroutines = 20
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.CreateReservation(s.ctx, staff(), s.unit.ID, id.ClientID(uuid.New()), decimal.Zero)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

// TestConcurrentPaymentsCannotExceedPrice checks the ceiling under the
// reservation row lock.
func (s *PostgresStoreSuite) TestConcurrentPaymentsCannotExceedPrice() {
	actor := staff()
	r, err := s.svc.CreateReservation(s.ctx, actor, s.unit.ID, id.ClientID(uuid.New()), decimal.Zero)
	s.Require().NoError(err)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.svc.RecordPayment(s.ctx, actor, r.ID, decimal.NewFromInt(30_000_000), id.PaymentMethodBankTransfer); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), successes.Load())
}

func (s *PostgresStoreSuite) TestRoundTripsAggregate() {
	actor := staff()
	r, err := s.svc.CreateReservation(s.ctx, actor, s.unit.ID, id.ClientID(uuid.New()), decimal.RequireFromString("5000000.50"))
	s.Require().NoError(err)
	_, err = s.svc.ConfirmReservation(s.ctx, actor, r.ID)
	s.Require().NoError(err)
	c, err := s.svc.CreateContract(s.ctx, actor, r.ID, []byte("terms"))
	s.Require().NoError(err)
	f, err := s.svc.RequestFinancing(s.ctx, actor, r.ID, service.FinancingRequest{
		BankID: id.BankID(uuid.New()), Type: models.FinancingMortgage, Amount: decimal.NewFromInt(1000),
	})
	s.Require().NoError(err)
	_, err = s.svc.GenerateInstallments(s.ctx, actor, f.ID, 3, requestcontext.Now(s.ctx))
	s.Require().NoError(err)
	_, err = s.svc.UploadDocument(s.ctx, actor, models.DocumentContext{Kind: models.ContextFinancing, FinancingID: f.ID},
		models.DocSalarySlip, models.FileRef{Key: "slip", ContentType: "application/pdf", Size: 3})
	s.Require().NoError(err)

	d, err := s.svc.GetDossier(s.ctx, actor, r.ID)
	s.Require().NoError(err)
	s.True(d.Reservation.Deposit.Equal(decimal.RequireFromString("5000000.5")))
	s.Equal(c.Number, d.Contract.Number)
	s.Require().Len(d.Installments, 3)
	s.True(d.Installments[2].Amount.Equal(decimal.RequireFromString("333.34")))
	s.NotNil(d.Reservation.ConfirmedBy)

	res, err := s.svc.CancelReservation(s.ctx, actor, r.ID, "withdrawn")
	s.Require().NoError(err)
	s.Equal(3, res.Cascade.Count("installment"))

	contract, err := s.store.GetContract(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.ContractCancelled, contract.Status)
	unit, err := s.store.GetUnit(s.ctx, s.unit.ID)
	s.Require().NoError(err)
	s.Equal(models.AvailabilityAvailable, unit.Availability)
}

func (s *PostgresStoreSuite) TestMissingRowsAreNotFound() {
	_, err := s.store.GetReservation(s.ctx, id.ReservationID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
	err = s.store.UpdatePayment(s.ctx, &models.Payment{ID: id.PaymentID(uuid.New())})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
