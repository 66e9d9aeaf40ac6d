// Package service implements the signature code protocol that gates the
// irreversible signing of a contract.
//
// Per contract it keeps three independent records in a KV store: the active
// code (bcrypt hash + issuance time), the wrong-attempt counter and the block
// flag. Expiry is evaluated lazily against the request time; every
// verification runs as one atomic read-compare-write over the three keys.
package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"immo/internal/signature/metrics"
	"immo/internal/signature/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
	audit "immo/pkg/platform/audit"
	"immo/pkg/platform/sentinel"
	"immo/pkg/requestcontext"
)

var tracer = otel.Tracer("immo/internal/signature/service")

var anyRole = []id.Role{id.RoleClient, id.RoleCommercial, id.RoleAdmin}

const subjectContract = "contract"

type Service struct {
	kv        KV
	contracts Contracts
	notifier  Notifier
	audit     AuditSink
	logger    *slog.Logger
	metrics   *metrics.Metrics
	cfg       Config
	random    io.Reader
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

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func New(kv KV, contracts Contracts, notifier Notifier, opts ...Option) (*Service, error) {
	if kv == nil {
		return nil, errors.New("signature store is required")
	}
	if contracts == nil {
		return nil, errors.New("contracts service is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Service{
		kv:        kv,
		contracts: contracts,
		notifier:  notifier,
		cfg:       DefaultConfig(),
		random:    rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.withDefaults()
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s, nil
}

// Issue generates a fresh code for a signable contract, replacing any
// previous one and resetting the attempt counter. It is refused while the
// contract is blocked. The code itself only leaves through the notifier.
func (s *Service) Issue(ctx context.Context, actor id.Actor, contractID id.ContractID) (_ *models.IssueResult, err error) {
	ctx, done := s.observe(ctx, "issue", contractID)
	defer done(&err)

	if err := requireRoles(actor, anyRole...); err != nil {
		return nil, err
	}
	if _, err := s.contracts.SigningContract(ctx, actor, contractID); err != nil {
		return nil, err
	}
	owner, err := s.contracts.ContractOwner(ctx, contractID)
	if err != nil {
		return nil, err
	}

	code, err := generateCode(s.random)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate signature code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash signature code")
	}

	now := requestcontext.Now(ctx)
	err = s.kv.Atomic(ctx, models.Keys(contractID), func(ctx context.Context, ops KVOps) error {
		block, err := readJSON[models.BlockEntry](ctx, ops, models.BlockKey(contractID))
		if err != nil {
			return err
		}
		if block != nil && block.ActiveAt(now) {
			return blockedErr(block.Remaining(now))
		}
		entry := models.CodeEntry{Hash: hash, IssuedAt: now}
		if err := writeJSON(ctx, ops, models.CodeKey(contractID), entry, s.cfg.CodeTTL); err != nil {
			return err
		}
		return ops.Delete(ctx, models.AttemptsKey(contractID), models.BlockKey(contractID))
	})
	if err != nil {
		return nil, kvErr(err)
	}

	if err := s.contracts.MarkCodeIssued(ctx, actor, contractID, now); err != nil {
		s.discardCode(ctx, contractID)
		return nil, err
	}

	expiresAt := now.Add(s.cfg.CodeTTL)
	delivery := models.CodeDelivery{ContractID: contractID, ClientID: owner, Code: code, ExpiresAt: expiresAt}
	if err := s.notifier.SendSignatureCode(ctx, delivery); err != nil {
		s.discardCode(ctx, contractID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver signature code")
	}

	s.metrics.IncIssued()
	s.logAudit(ctx, actor, audit.EventSignatureCodeIssued, contractID, "expires_at", expiresAt)
	return &models.IssueResult{ContractID: contractID, ExpiresIn: s.cfg.CodeTTL, ExpiresAt: expiresAt}, nil
}

// Submit verifies a code from the owning client. Protocol outcomes come back
// as a SignatureResult; errors are reserved for guards and infrastructure.
// On a match the code is consumed and the contract is signed.
func (s *Service) Submit(ctx context.Context, actor id.Actor, contractID id.ContractID, code string) (_ *models.SignatureResult, err error) {
	ctx, done := s.observe(ctx, "submit", contractID)
	defer done(&err)

	if err := requireRoles(actor, id.RoleClient); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, dErrors.Validation("code", "is required")
	}
	if _, err := s.contracts.SigningContract(ctx, actor, contractID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var (
		result     models.SignatureResult
		issuedAt   time.Time
		blockedNow bool
	)
	err = s.kv.Atomic(ctx, models.Keys(contractID), func(ctx context.Context, ops KVOps) error {
		result, issuedAt, blockedNow = models.SignatureResult{}, time.Time{}, false

		block, err := readJSON[models.BlockEntry](ctx, ops, models.BlockKey(contractID))
		if err != nil {
			return err
		}
		if block != nil && block.ActiveAt(now) {
			result = models.SignatureResult{Outcome: models.OutcomeBlocked, RetryAfter: block.Remaining(now)}
			return nil
		}

		entry, err := readJSON[models.CodeEntry](ctx, ops, models.CodeKey(contractID))
		if err != nil {
			return err
		}
		if entry == nil || entry.ExpiredAt(now, s.cfg.CodeTTL) {
			result = models.SignatureResult{Outcome: models.OutcomeExpired}
			return nil
		}

		if bcrypt.CompareHashAndPassword(entry.Hash, []byte(code)) == nil {
			issuedAt = entry.IssuedAt
			result = models.SignatureResult{Outcome: models.OutcomeSigned}
			return ops.Delete(ctx, models.CodeKey(contractID), models.AttemptsKey(contractID))
		}

		attempts, err := readJSON[models.AttemptsEntry](ctx, ops, models.AttemptsKey(contractID))
		if err != nil {
			return err
		}
		used := 1
		if attempts != nil {
			used = attempts.Count + 1
		}
		if err := writeJSON(ctx, ops, models.AttemptsKey(contractID), models.AttemptsEntry{Count: used}, s.cfg.BlockDuration); err != nil {
			return err
		}
		if used < s.cfg.MaxAttempts {
			result = models.SignatureResult{Outcome: models.OutcomeIncorrect, AttemptsUsed: used, AttemptsLeft: s.cfg.MaxAttempts - used}
			return nil
		}

		blockedNow = true
		result = models.SignatureResult{Outcome: models.OutcomeBlocked, AttemptsUsed: used, RetryAfter: s.cfg.BlockDuration}
		block = &models.BlockEntry{Until: now.Add(s.cfg.BlockDuration)}
		if err := writeJSON(ctx, ops, models.BlockKey(contractID), block, s.cfg.BlockDuration); err != nil {
			return err
		}
		return ops.Delete(ctx, models.CodeKey(contractID))
	})
	if err != nil {
		return nil, kvErr(err)
	}

	switch result.Outcome {
	case models.OutcomeSigned:
		contract, err := s.contracts.SignContract(ctx, actor, contractID, issuedAt)
		if err != nil {
			return nil, err
		}
		result.Contract = contract
	case models.OutcomeIncorrect:
		s.logAudit(ctx, actor, audit.EventSignatureCodeIncorrect, contractID,
			"attempts_used", result.AttemptsUsed, "attempts_left", result.AttemptsLeft)
	case models.OutcomeBlocked:
		if blockedNow {
			s.metrics.IncBlock()
			s.logAudit(ctx, actor, audit.EventSignatureBlocked, contractID,
				"attempts_used", result.AttemptsUsed, "blocked_until", now.Add(s.cfg.BlockDuration))
		}
	}
	s.metrics.IncOutcome(string(result.Outcome))
	return &result, nil
}

// RemainingValidity returns the time until the active code expires, or nil
// when no code is active.
func (s *Service) RemainingValidity(ctx context.Context, contractID id.ContractID) (*time.Duration, error) {
	ttl, err := s.kv.TTLRemaining(ctx, models.CodeKey(contractID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, kvErr(err)
	}
	if ttl <= 0 {
		return nil, nil
	}
	return &ttl, nil
}

// IsBlocked reports whether submissions and issuance are refused, and for how long.
func (s *Service) IsBlocked(ctx context.Context, contractID id.ContractID) (bool, time.Duration, error) {
	block, err := readJSON[models.BlockEntry](ctx, s.kv, models.BlockKey(contractID))
	if err != nil {
		return false, 0, kvErr(err)
	}
	now := requestcontext.Now(ctx)
	if block == nil || !block.ActiveAt(now) {
		return false, 0, nil
	}
	return true, block.Remaining(now), nil
}

// Status combines RemainingValidity and IsBlocked for actors that may see the contract.
func (s *Service) Status(ctx context.Context, actor id.Actor, contractID id.ContractID) (_ *models.Status, err error) {
	ctx, done := s.observe(ctx, "status", contractID)
	defer done(&err)

	if err := s.requireVisible(ctx, actor, contractID, anyRole...); err != nil {
		return nil, err
	}
	remaining, err := s.RemainingValidity(ctx, contractID)
	if err != nil {
		return nil, err
	}
	blocked, blockRemaining, err := s.IsBlocked(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return &models.Status{
		ContractID:        contractID,
		RemainingValidity: remaining,
		Blocked:           blocked,
		BlockRemaining:    blockRemaining,
	}, nil
}

// Reset clears a block and the attempt counter. ADMIN only.
func (s *Service) Reset(ctx context.Context, actor id.Actor, contractID id.ContractID) (err error) {
	ctx, done := s.observe(ctx, "reset", contractID)
	defer done(&err)

	if err := s.requireVisible(ctx, actor, contractID, id.RoleAdmin); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	var wasBlocked bool
	keys := []string{models.BlockKey(contractID), models.AttemptsKey(contractID)}
	err = s.kv.Atomic(ctx, keys, func(ctx context.Context, ops KVOps) error {
		block, err := readJSON[models.BlockEntry](ctx, ops, models.BlockKey(contractID))
		if err != nil {
			return err
		}
		wasBlocked = block != nil && block.ActiveAt(now)
		return ops.Delete(ctx, keys...)
	})
	if err != nil {
		return kvErr(err)
	}

	s.metrics.IncReset()
	s.logAudit(ctx, actor, audit.EventSignatureBlockReset, contractID, "was_blocked", wasBlocked)
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *Service) observe(ctx context.Context, op string, contractID id.ContractID) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, "signature."+op,
		trace.WithAttributes(attribute.String("contract_id", contractID.String())))
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			code := dErrors.CodeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, string(code))
			if code == dErrors.CodeInternal {
				s.logger.ErrorContext(ctx, "signature operation failed", "operation", op, "contract_id", contractID, "error", err)
			}
		}
		span.End()
	}
}

func (s *Service) logAudit(ctx context.Context, actor id.Actor, event audit.AuditEvent, contractID id.ContractID, kv ...any) {
	audit.Emit(ctx, s.logger, s.audit, actor, event, subjectContract, contractID.String(), kv...)
}

// discardCode drops a code whose issuance could not be completed.
func (s *Service) discardCode(ctx context.Context, contractID id.ContractID) {
	if err := s.kv.Delete(ctx, models.CodeKey(contractID)); err != nil {
		s.logger.WarnContext(ctx, "failed to discard signature code", "contract_id", contractID, "error", err)
	}
}

func (s *Service) requireVisible(ctx context.Context, actor id.Actor, contractID id.ContractID, roles ...id.Role) error {
	if err := requireRoles(actor, roles...); err != nil {
		return err
	}
	owner, err := s.contracts.ContractOwner(ctx, contractID)
	if err != nil {
		return err
	}
	if !actor.CanAccessClient(owner) {
		return dErrors.New(dErrors.CodeNotFound, "contract not found")
	}
	return nil
}

func requireRoles(actor id.Actor, roles ...id.Role) error {
	if actor.IsAnonymous() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !id.ActorHasAnyRole(actor, roles...) {
		return dErrors.New(dErrors.CodeForbidden, "operation not permitted for this role")
	}
	return nil
}

func blockedErr(remaining time.Duration) error {
	return dErrors.New(dErrors.CodeRateLimited, "signature is blocked after too many incorrect codes").
		WithRetryAfter(remaining)
}

func kvErr(err error) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrContention) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "signature state changed concurrently, retry")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "signature store unavailable")
}

func readJSON[T any](ctx context.Context, ops KVOps, key string) (*T, error) {
	raw, err := ops.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

func writeJSON(ctx context.Context, ops KVOps, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return ops.SetWithExpiry(ctx, key, raw, ttl)
}
