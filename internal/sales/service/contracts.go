package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"immo/internal/sales/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	audit "immo/pkg/platform/audit"
	"immo/pkg/platform/middleware/device"
	"immo/pkg/platform/sentinel"
	"immo/pkg/requestcontext"
)

const subjectContract = "contract"

// CreateContract drafts the single contract of a confirmed reservation.
func (s *Service) CreateContract(ctx context.Context, actor id.Actor, reservationID id.ReservationID, content []byte) (_ *models.Contract, err error) {
	ctx, done := s.observe(ctx, "create_contract", attribute.String("reservation_id", reservationID.String()))
	defer done(&err)

	if err := requireRoles(actor, id.StaffRoles...); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, dErrors.Validation("content", "is required")
	}

	now := requestcontext.Now(ctx)
	var contract *models.Contract
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, reservationID)
		if err != nil {
			return err
		}
		if r.Status != models.ReservationConfirmed {
			return dErrors.New(dErrors.CodeConflict, "contract requires a confirmed reservation, reservation is "+string(r.Status))
		}
		existing, err := optional(st.FindContractByReservation(ctx, r.ID))
		if err != nil {
			return storeErr(err, "contract")
		}
		if existing != nil {
			return dErrors.New(dErrors.CodeConflict, "reservation already has a contract")
		}
		c := models.NewContract(id.ContractID(newID()), r.ID, content, now)
		if err := st.InsertContract(ctx, c); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "reservation already has a contract")
			}
			return storeErr(err, "contract")
		}
		contract = c
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.logAudit(ctx, actor, audit.EventContractCreated, subjectContract, contract.ID.String(),
		"reservation_id", reservationID, "number", contract.Number, "content_hash", contract.ContentHash)
	return contract, nil
}

// SigningContract returns a contract the actor may see, checking that it can
// still be signed: draft and attached to a confirmed reservation.
func (s *Service) SigningContract(ctx context.Context, actor id.Actor, contractID id.ContractID) (*models.Contract, error) {
	c, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, storeErr(err, "contract")
	}
	r, err := s.store.GetReservation(ctx, c.ReservationID)
	if err != nil {
		return nil, storeErr(err, "reservation")
	}
	if !actor.CanAccessClient(r.ClientID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "contract not found")
	}
	if err := signable(r, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ContractOwner reports the client a contract belongs to.
func (s *Service) ContractOwner(ctx context.Context, contractID id.ContractID) (id.ClientID, error) {
	c, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return id.ClientID{}, storeErr(err, "contract")
	}
	r, err := s.store.GetReservation(ctx, c.ReservationID)
	if err != nil {
		return id.ClientID{}, storeErr(err, "reservation")
	}
	return r.ClientID, nil
}

// MarkCodeIssued stamps the issuance time of a fresh signature code.
func (s *Service) MarkCodeIssued(ctx context.Context, actor id.Actor, contractID id.ContractID, issuedAt time.Time) error {
	return s.mutateContract(ctx, actor, contractID, func(r *models.Reservation, c *models.Contract, _ Store) error {
		if err := signable(r, c); err != nil {
			return err
		}
		c.ApplyOTPIssued(issuedAt)
		return nil
	})
}

// SignContract completes a signature after a successful code verification:
// the contract becomes signed with a signature log entry and the unit is sold.
func (s *Service) SignContract(ctx context.Context, actor id.Actor, contractID id.ContractID, issuedAt time.Time) (_ *models.Contract, err error) {
	ctx, done := s.observe(ctx, "sign_contract", attribute.String("contract_id", contractID.String()))
	defer done(&err)

	now := requestcontext.Now(ctx)
	entry := models.SignatureLogEntry{
		Timestamp:   now,
		SignerID:    actor.UserID,
		IP:          requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
		Device:      signingDevice(ctx),
		OTPIssuedAt: issuedAt,
	}

	var signed *models.Contract
	err = s.mutateContract(ctx, actor, contractID, func(r *models.Reservation, c *models.Contract, st Store) error {
		if err := signable(r, c); err != nil {
			return err
		}
		entry.ContentHash = c.ContentHash
		c.ApplySignature(entry, now)

		unit, err := st.GetUnit(ctx, r.UnitID)
		if err != nil {
			return storeErr(err, "unit")
		}
		unit.Availability = models.AvailabilitySold
		unit.UpdatedAt = now
		if err := st.SetAvailability(ctx, unit); err != nil {
			return storeErr(err, "unit")
		}
		signed = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition("signed")
	s.logAudit(ctx, actor, audit.EventContractSigned, subjectContract, contractID.String(),
		"reservation_id", signed.ReservationID, "number", signed.Number, "content_hash", signed.ContentHash,
		"otp_issued_at", issuedAt, "device", entry.Device)
	return signed, nil
}

func (s *Service) mutateContract(ctx context.Context, actor id.Actor, contractID id.ContractID, apply func(r *models.Reservation, c *models.Contract, st Store) error) error {
	current, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return storeErr(err, "contract")
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Store) error {
		r, err := lockReservation(ctx, st, actor, current.ReservationID)
		if err != nil {
			return err
		}
		c, err := st.GetContract(ctx, contractID)
		if err != nil {
			return storeErr(err, "contract")
		}
		if err := apply(r, c, st); err != nil {
			return err
		}
		if err := st.UpdateContract(ctx, c); err != nil {
			return storeErr(err, "contract")
		}
		return nil
	})
	return txErr(err)
}

func signable(r *models.Reservation, c *models.Contract) error {
	if err := c.CanSign(); err != nil {
		return err
	}
	if r.Status != models.ReservationConfirmed {
		return dErrors.New(dErrors.CodeConflict, "reservation is "+string(r.Status))
	}
	return nil
}

// signingDevice prefers the description computed by the HTTP middleware.
func signingDevice(ctx context.Context) string {
	if d := requestcontext.Device(ctx); d != "" {
		return d
	}
	return device.Describe(requestcontext.UserAgent(ctx))
}
