// Package cascade propagates a terminal reservation status to the records
// that depend on it.
//
// The engine works on records already loaded (and locked) by the caller's
// transaction and mutates them in place; the caller persists exactly the
// records listed in the returned Report. Committed records (validated payment,
// signed contract, accepted or closed financing) are never touched, and a
// second run over the same records produces an empty Report.
package cascade

import (
	"context"
	"log/slog"
	"time"

	"immo/internal/sales/metrics"
	"immo/internal/sales/models"
	dErrors "immo/pkg/domain-errors"
)

type RecordKind string

const (
	RecordUnit        RecordKind = "unit"
	RecordPayment     RecordKind = "payment"
	RecordContract    RecordKind = "contract"
	RecordFinancing   RecordKind = "financing"
	RecordInstallment RecordKind = "installment"
)

// Target is the dependent state of one reservation.
type Target struct {
	Unit         *models.Unit
	Payments     []*models.Payment
	Contract     *models.Contract
	Financing    *models.Financing
	Installments []*models.Installment
	// UnitHolder is the unit's current active reservation, if any. When it is
	// another reservation the unit has been re-reserved and is left alone.
	UnitHolder *models.Reservation
}

// Change records one status move performed by the cascade.
type Change struct {
	Kind RecordKind `json:"kind"`
	ID   string     `json:"id"`
	From string     `json:"from"`
	To   string     `json:"to"`
}

type Report struct {
	Changes []Change `json:"changes"`
}

func (r Report) Empty() bool { return len(r.Changes) == 0 }

// Count returns how many changes touched the given kind.
func (r Report) Count(kind RecordKind) int {
	n := 0
	for _, c := range r.Changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

func (r Report) Touched(kind RecordKind) bool { return r.Count(kind) > 0 }

func (r *Report) add(kind RecordKind, id, from, to string) {
	r.Changes = append(r.Changes, Change{Kind: kind, ID: id, From: from, To: to})
}

// Engine applies the cascade.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs the cascade for a reservation in a terminal status.
func (e *Engine) Apply(ctx context.Context, r *models.Reservation, t Target, now time.Time) (Report, error) {
	var report Report
	if !r.Status.IsTerminal() {
		return report, dErrors.New(dErrors.CodeInvariantViolation, "cascade requires a cancelled or expired reservation")
	}
	reason := "reservation " + string(r.Status)

	if u := t.Unit; u != nil && u.Availability != models.AvailabilityAvailable {
		if t.UnitHolder == nil || t.UnitHolder.ID == r.ID {
			report.add(RecordUnit, u.ID.String(), string(u.Availability), string(models.AvailabilityAvailable))
			u.Availability = models.AvailabilityAvailable
			u.UpdatedAt = now
		}
	}

	for _, p := range t.Payments {
		if p.IsCommitted() || p.Status == models.PaymentRejected {
			continue
		}
		report.add(RecordPayment, p.ID.String(), string(p.Status), string(models.PaymentRejected))
		p.ApplyRejection(reason, now)
	}

	if c := t.Contract; c != nil && !c.IsCommitted() && c.Status != models.ContractCancelled {
		report.add(RecordContract, c.ID.String(), string(c.Status), string(models.ContractCancelled))
		c.ApplyCancellation(now)
	}

	if f := t.Financing; f != nil && !f.IsCommitted() {
		if f.Status != models.FinancingCancelled {
			report.add(RecordFinancing, f.ID.String(), string(f.Status), string(models.FinancingCancelled))
			f.ApplyStatus(models.FinancingCancelled, now)
		}
		for _, inst := range t.Installments {
			if inst.Status == models.FinancingCancelled {
				continue
			}
			report.add(RecordInstallment, inst.ID.String(), string(inst.Status), string(models.FinancingCancelled))
			inst.ApplyCancellation(now)
		}
	}

	for _, kind := range []RecordKind{RecordUnit, RecordPayment, RecordContract, RecordFinancing, RecordInstallment} {
		e.metrics.AddCascadeChanges(string(kind), report.Count(kind))
	}
	e.logger.InfoContext(ctx, "reservation cascade applied",
		"reservation_id", r.ID,
		"status", r.Status,
		"changes", len(report.Changes),
	)
	return report, nil
}
