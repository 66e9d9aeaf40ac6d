// Package service implements the reservation state machine and every
// operation exposed to collaborators. Each mutation runs as one RunInTx
// closure that locks the reservation row first, evaluates guards, then
// writes; audit events are recorded after commit.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"immo/internal/sales/cascade"
	"immo/internal/sales/metrics"
	"immo/internal/sales/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	audit "immo/pkg/platform/audit"
	"immo/pkg/platform/sentinel"
)

var tracer = otel.Tracer("immo/internal/sales/service")

var anyRole = []id.Role{id.RoleClient, id.RoleCommercial, id.RoleAdmin}

// Service orchestrates reservations and their dependent records.
type Service struct {
	store   Store
	tx      TxRunner
	cascade *cascade.Engine
	audit   AuditSink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditSink(sink AuditSink) Option {
	return func(s *Service) {
		s.audit = sink
	}
}

func WithCascade(engine *cascade.Engine) Option {
	return func(s *Service) {
		s.cascade = engine
	}
}

// New constructs a Service. store serves reads outside transactions; tx runs
// every mutation.
func New(store Store, tx TxRunner, opts ...Option) *Service {
	s := &Service{store: store, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.cascade == nil {
		s.cascade = cascade.New(cascade.WithLogger(s.logger), cascade.WithMetrics(s.metrics))
	}
	return s
}

// -----------------------------------------------------------------------------
// Observability
// -----------------------------------------------------------------------------

// observe opens a span for op and returns a finisher that records latency
// and, for failures, the error code.
func (s *Service) observe(ctx context.Context, op string, kv ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, "sales."+op, trace.WithAttributes(kv...))
	start := time.Now()
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			code := dErrors.CodeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, string(code))
			if code == dErrors.CodeInternal {
				s.logger.ErrorContext(ctx, "sales operation failed", "operation", op, "error", err)
			} else {
				s.metrics.IncGuardRejection(op, string(code))
			}
		}
		s.metrics.ObserveOperation(op, time.Since(start))
		span.End()
	}
}

// logAudit logs the event and hands it to the audit sink. kv pairs become the
// event payload.
func (s *Service) logAudit(ctx context.Context, actor id.Actor, event audit.AuditEvent, subjectType, subjectID string, kv ...any) {
	audit.Emit(ctx, s.logger, s.audit, actor, event, subjectType, subjectID, kv...)
}

// -----------------------------------------------------------------------------
// Guards and error translation
// -----------------------------------------------------------------------------

func requireRoles(actor id.Actor, roles ...id.Role) error {
	if actor.IsAnonymous() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !id.ActorHasAnyRole(actor, roles...) {
		return dErrors.New(dErrors.CodeForbidden, "operation not permitted for this role")
	}
	return nil
}

// requireOwner hides reservations outside the actor's scope behind NotFound.
func requireOwner(actor id.Actor, r *models.Reservation) error {
	if !actor.CanAccessClient(r.ClientID) {
		return dErrors.New(dErrors.CodeNotFound, "reservation not found")
	}
	return nil
}

func requireActive(r *models.Reservation) error {
	if !r.IsActive() {
		return dErrors.New(dErrors.CodeConflict, "reservation is "+string(r.Status))
	}
	return nil
}

// storeErr maps sentinel store errors onto the domain taxonomy.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, what+" conflicts with an existing record")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+what)
	}
}

// txErr wraps failures raised by the transaction machinery itself.
func txErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "transaction failed")
}

// optional turns ErrNotFound into a nil result for one-to-one lookups.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// lockReservation loads and locks the aggregate root and checks scope. Every
// transactional operation calls it before touching dependent rows.
func lockReservation(ctx context.Context, st Store, actor id.Actor, reservationID id.ReservationID) (*models.Reservation, error) {
	r, err := st.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, storeErr(err, "reservation")
	}
	if err := requireOwner(actor, r); err != nil {
		return nil, err
	}
	return r, nil
}

func newID() uuid.UUID {
	return uuid.New()
}
