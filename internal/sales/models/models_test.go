package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newReservation() *Reservation {
	return NewReservation(id.ReservationID(uuid.New()), id.UnitID(uuid.New()), id.ClientID(uuid.New()), decimal.NewFromInt(1000), now)
}

func TestReservationLifecycle(t *testing.T) {
	staff := id.UserID(uuid.New())

	t.Run("confirm only from in_progress", func(t *testing.T) {
		r := newReservation()
		require.NoError(t, r.CanConfirm())
		r.ApplyConfirmation(staff, now)
		assert.Equal(t, ReservationConfirmed, r.Status)
		assert.Equal(t, staff, *r.ConfirmedBy)

		err := r.CanConfirm()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("cancel requires a reason", func(t *testing.T) {
		r := newReservation()
		err := r.CanCancel("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("cancelled and expired are terminal", func(t *testing.T) {
		r := newReservation()
		require.NoError(t, r.CanCancel("client withdrew"))
		r.ApplyCancellation(staff, " client withdrew ", now)
		assert.Equal(t, "client withdrew", r.CancellationReason)
		assert.NotNil(t, r.CancelledAt)
		assert.False(t, r.IsActive())

		assert.True(t, dErrors.HasCode(r.CanCancel("again"), dErrors.CodeConflict))
		assert.True(t, dErrors.HasCode(r.CanExpire(), dErrors.CodeConflict))
		assert.True(t, dErrors.HasCode(r.CanConfirm(), dErrors.CodeConflict))

		e := newReservation()
		e.ApplyExpiry(staff, "", now)
		assert.Nil(t, e.CancelledAt)
		assert.True(t, dErrors.HasCode(e.CanCancel("late"), dErrors.CodeConflict))
	})

	t.Run("transition table", func(t *testing.T) {
		assert.True(t, ReservationInProgress.CanTransitionTo(ReservationExpired))
		assert.False(t, ReservationCancelled.CanTransitionTo(ReservationExpired))
		assert.False(t, ReservationExpired.CanTransitionTo(ReservationInProgress))
		assert.False(t, ReservationConfirmed.CanTransitionTo(ReservationInProgress))
	})
}

func TestPaymentTotals(t *testing.T) {
	rid := id.ReservationID(uuid.New())
	mk := func(amount int64, status PaymentStatus) *Payment {
		p := NewPayment(id.PaymentID(uuid.New()), rid, decimal.NewFromInt(amount), id.PaymentMethodCash, now)
		p.Status = status
		return p
	}
	payments := []*Payment{mk(100, PaymentValidated), mk(50, PaymentRecorded), mk(25, PaymentRejected)}

	assert.True(t, TotalByStatus(payments, PaymentValidated).Equal(decimal.NewFromInt(100)))
	assert.True(t, TotalByStatus(payments, PaymentValidated, PaymentRecorded).Equal(decimal.NewFromInt(150)))
	assert.True(t, TotalByStatus(nil, PaymentValidated).IsZero())
}

func TestPaymentTransitions(t *testing.T) {
	p := NewPayment(id.PaymentID(uuid.New()), id.ReservationID(uuid.New()), decimal.NewFromInt(10), id.PaymentMethodCard, now)
	require.NoError(t, p.CanValidate())
	p.ApplyValidation(id.UserID(uuid.New()), now)
	assert.True(t, p.IsCommitted())
	assert.True(t, dErrors.HasCode(p.CanReject(), dErrors.CodeConflict))
	assert.True(t, dErrors.HasCode(p.CanValidate(), dErrors.CodeConflict))
}

func TestContract(t *testing.T) {
	cid := id.ContractID(uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"))
	c := NewContract(cid, id.ReservationID(uuid.New()), []byte("contract body"), now)

	assert.Equal(t, "CTR-20260504-0F8FAD5B", c.Number)
	assert.Len(t, c.ContentHash, 64)
	assert.Equal(t, HashContent([]byte("contract body")), c.ContentHash)
	require.NoError(t, c.CanSign())

	c.ApplySignature(SignatureLogEntry{Timestamp: now, IP: "203.0.113.1"}, now)
	assert.True(t, c.IsCommitted())
	assert.Len(t, c.SignatureLog, 1)
	assert.True(t, dErrors.HasCode(c.CanSign(), dErrors.CodeConflict))
}

func TestFinancingTransitions(t *testing.T) {
	f := NewFinancing(id.FinancingID(uuid.New()), id.ReservationID(uuid.New()), id.BankID(uuid.New()), FinancingMortgage, decimal.NewFromInt(1000), now)

	assert.True(t, dErrors.HasCode(f.CanMoveTo(FinancingAccepted), dErrors.CodeConflict))
	require.NoError(t, f.CanMoveTo(FinancingUnderReview))
	f.ApplyStatus(FinancingUnderReview, now)
	require.NoError(t, f.CanMoveTo(FinancingAccepted))
	f.ApplyStatus(FinancingAccepted, now)
	assert.True(t, f.IsCommitted())
	assert.True(t, dErrors.HasCode(f.CanMoveTo(FinancingCancelled), dErrors.CodeConflict))
}

func TestNewInstallments(t *testing.T) {
	f := NewFinancing(id.FinancingID(uuid.New()), id.ReservationID(uuid.New()), id.BankID(uuid.New()), FinancingMortgage, decimal.NewFromInt(300), now)
	first := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	amounts := []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(100), decimal.NewFromInt(100)}

	items := NewInstallments(f, amounts, first, func() id.InstallmentID { return id.InstallmentID(uuid.New()) }, now)

	require.Len(t, items, 3)
	assert.Equal(t, first, items[0].DueDate)
	assert.Equal(t, first.Add(60*24*time.Hour), items[2].DueDate)
	assert.Equal(t, 3, items[2].Sequence)
	assert.Equal(t, FinancingSubmitted, items[1].Status)
}

func TestDocumentReuploadClearsVerification(t *testing.T) {
	ctx := ReservationContext(id.ReservationID(uuid.New()))
	doc := NewDocument(id.DocumentID(uuid.New()), ctx, DocIdentityCard, FileRef{Key: "k1", ContentType: "application/pdf", Size: 10}, now)

	already, err := doc.CanValidate()
	require.NoError(t, err)
	assert.False(t, already)
	doc.ApplyValidation(id.UserID(uuid.New()), now)

	doc.ApplyReupload(FileRef{Key: "k2", ContentType: "image/png", Size: 20}, now.Add(time.Hour))
	assert.Equal(t, DocumentPending, doc.Status)
	assert.Nil(t, doc.VerifiedBy)
	assert.Nil(t, doc.VerifiedAt)
	assert.Equal(t, "k2", doc.File.Key)
}

func TestDocumentRejection(t *testing.T) {
	doc := NewDocument(id.DocumentID(uuid.New()), ReservationContext(id.ReservationID(uuid.New())), DocPhoto, FileRef{Key: "k", Size: 1}, now)

	assert.True(t, dErrors.HasCode(doc.CanReject(""), dErrors.CodeValidation))
	require.NoError(t, doc.CanReject("blurry"))
	doc.ApplyRejection(id.UserID(uuid.New()), "blurry", now)

	_, err := doc.CanValidate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.True(t, dErrors.HasCode(doc.CanReject("still blurry"), dErrors.CodeConflict))
}
