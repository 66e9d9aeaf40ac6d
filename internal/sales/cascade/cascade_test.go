package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"immo/internal/sales/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
)

type CascadeSuite struct {
	suite.Suite
	engine *Engine
	now    time.Time
	staff  id.UserID
}

func TestCascadeSuite(t *testing.T) {
	suite.Run(t, new(CascadeSuite))
}

func (s *CascadeSuite) SetupTest() {
	s.engine = New()
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.staff = id.UserID(uuid.New())
}

func (s *CascadeSuite) fixture(paymentStatuses []models.PaymentStatus, contract models.ContractStatus, financing models.FinancingStatus) (*models.Reservation, Target) {
	unit := &models.Unit{ID: id.UnitID(uuid.New()), Price: decimal.NewFromInt(1000), Availability: models.AvailabilityReserved}
	r := models.NewReservation(id.ReservationID(uuid.New()), unit.ID, id.ClientID(uuid.New()), decimal.NewFromInt(100), s.now)

	t := Target{Unit: unit, UnitHolder: r}
	for _, st := range paymentStatuses {
		p := models.NewPayment(id.PaymentID(uuid.New()), r.ID, decimal.NewFromInt(10), id.PaymentMethodCash, s.now)
		p.Status = st
		t.Payments = append(t.Payments, p)
	}
	if contract != "" {
		t.Contract = models.NewContract(id.ContractID(uuid.New()), r.ID, []byte("c"), s.now)
		t.Contract.Status = contract
	}
	if financing != "" {
		t.Financing = models.NewFinancing(id.FinancingID(uuid.New()), r.ID, id.BankID(uuid.New()), models.FinancingMortgage, decimal.NewFromInt(500), s.now)
		t.Financing.Status = financing
		t.Installments = models.NewInstallments(t.Financing, []decimal.Decimal{decimal.NewFromInt(250), decimal.NewFromInt(250)}, s.now, func() id.InstallmentID { return id.InstallmentID(uuid.New()) }, s.now)
	}
	return r, t
}

func (s *CascadeSuite) TestRequiresTerminalReservation() {
	r, target := s.fixture(nil, "", "")

	_, err := s.engine.Apply(context.Background(), r, target, s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.Equal(models.AvailabilityReserved, target.Unit.Availability)
}

func (s *CascadeSuite) TestCancelsEveryUncommittedRecord() {
	r, target := s.fixture([]models.PaymentStatus{models.PaymentRecorded, models.PaymentRecorded}, models.ContractDraft, models.FinancingUnderReview)
	r.ApplyCancellation(s.staff, "client withdrew", s.now)
	target.UnitHolder = nil

	report, err := s.engine.Apply(context.Background(), r, target, s.now)
	s.Require().NoError(err)

	s.Equal(models.AvailabilityAvailable, target.Unit.Availability)
	for _, p := range target.Payments {
		s.Equal(models.PaymentRejected, p.Status)
		s.Equal("reservation cancelled", p.RejectionReason)
	}
	s.Equal(models.ContractCancelled, target.Contract.Status)
	s.Equal(models.FinancingCancelled, target.Financing.Status)
	for _, inst := range target.Installments {
		s.Equal(models.FinancingCancelled, inst.Status)
	}
	s.Equal(1, report.Count(RecordUnit))
	s.Equal(2, report.Count(RecordPayment))
	s.Equal(2, report.Count(RecordInstallment))
}

func (s *CascadeSuite) TestNeverDowngradesCommittedRecords() {
	for _, financing := range []models.FinancingStatus{models.FinancingAccepted, models.FinancingClosed} {
		s.Run(string(financing), func() {
			r, target := s.fixture([]models.PaymentStatus{models.PaymentValidated, models.PaymentRecorded}, models.ContractSigned, financing)
			r.ApplyExpiry(s.staff, "", s.now)

			report, err := s.engine.Apply(context.Background(), r, target, s.now)
			s.Require().NoError(err)

			s.Equal(models.PaymentValidated, target.Payments[0].Status)
			s.Equal(models.PaymentRejected, target.Payments[1].Status)
			s.Equal(models.ContractSigned, target.Contract.Status)
			s.Equal(financing, target.Financing.Status)
			s.False(report.Touched(RecordContract))
			s.False(report.Touched(RecordFinancing))
			s.False(report.Touched(RecordInstallment))
		})
	}
}

func (s *CascadeSuite) TestIdempotent() {
	r, target := s.fixture([]models.PaymentStatus{models.PaymentRecorded, models.PaymentValidated, models.PaymentRejected}, models.ContractDraft, models.FinancingSubmitted)
	r.ApplyCancellation(s.staff, "duplicate", s.now)

	first, err := s.engine.Apply(context.Background(), r, target, s.now)
	s.Require().NoError(err)
	s.False(first.Empty())
	snapshot := snapshotOf(target)

	second, err := s.engine.Apply(context.Background(), r, target, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.True(second.Empty())
	s.Equal(snapshot, snapshotOf(target))
}

func (s *CascadeSuite) TestLeavesUnitReReservedByAnotherReservation() {
	r, target := s.fixture(nil, "", "")
	r.ApplyCancellation(s.staff, "client withdrew", s.now)

	other := models.NewReservation(id.ReservationID(uuid.New()), target.Unit.ID, id.ClientID(uuid.New()), decimal.Zero, s.now)
	target.UnitHolder = other

	report, err := s.engine.Apply(context.Background(), r, target, s.now)
	s.Require().NoError(err)
	s.True(report.Empty())
	s.Equal(models.AvailabilityReserved, target.Unit.Availability)
}

type state struct {
	unit         models.Availability
	payments     []models.PaymentStatus
	contract     models.ContractStatus
	financing    models.FinancingStatus
	installments []models.FinancingStatus
}

func snapshotOf(t Target) state {
	st := state{unit: t.Unit.Availability}
	for _, p := range t.Payments {
		st.payments = append(st.payments, p.Status)
	}
	if t.Contract != nil {
		st.contract = t.Contract.Status
	}
	if t.Financing != nil {
		st.financing = t.Financing.Status
	}
	for _, i := range t.Installments {
		st.installments = append(st.installments, i.Status)
	}
	return st
}

// TestCascadeProperties runs every combination of dependent statuses and checks
// idempotence and non-regression together.
func TestCascadeProperties(t *testing.T) {
	engine := New()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	paymentStatuses := []models.PaymentStatus{models.PaymentRecorded, models.PaymentValidated, models.PaymentRejected}
	contractStatuses := []models.ContractStatus{"", models.ContractDraft, models.ContractSigned, models.ContractCancelled}
	financingStatuses := []models.FinancingStatus{"", models.FinancingSubmitted, models.FinancingUnderReview,
		models.FinancingAccepted, models.FinancingRefused, models.FinancingCancelled, models.FinancingClosed}

	cs := &CascadeSuite{engine: engine, now: now, staff: id.UserID(uuid.New())}
	for _, ps := range paymentStatuses {
		for _, cst := range contractStatuses {
			for _, fs := range financingStatuses {
				r, target := cs.fixture([]models.PaymentStatus{ps}, cst, fs)
				r.ApplyCancellation(cs.staff, "property", now)
				before := snapshotOf(target)

				_, err := engine.Apply(context.Background(), r, target, now)
				require.NoError(t, err)
				once := snapshotOf(target)
				_, err = engine.Apply(context.Background(), r, target, now)
				require.NoError(t, err)

				assert.Equal(t, once, snapshotOf(target), "cascade not idempotent for %s/%s/%s", ps, cst, fs)
				if ps == models.PaymentValidated {
					assert.Equal(t, models.PaymentValidated, once.payments[0])
				}
				if cst == models.ContractSigned {
					assert.Equal(t, models.ContractSigned, once.contract)
				}
				if fs.IsCommitted() {
					assert.Equal(t, before.financing, once.financing)
					assert.Equal(t, before.installments, once.installments)
				}
				assert.Equal(t, models.AvailabilityAvailable, once.unit)
			}
		}
	}
}
