package service

import (
	"context"
	"time"

	salesmodels "immo/internal/sales/models"
	"immo/internal/signature/models"
	id "immo/pkg/domain"
	audit "immo/pkg/platform/audit"
)

// KVOps is the per-key TTL store the protocol state lives in. Get and
// TTLRemaining return sentinel.ErrNotFound for absent or expired keys.
type KVOps interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	TTLRemaining(ctx context.Context, key string) (time.Duration, error)
}

// KV adds an atomic read-modify-write over a set of keys. Writes made
// through the ops passed to fn apply together after fn returns nil, and
// never if another writer touched keys in between. Implementations may
// retry fn; it must not have side effects beyond the ops.
type KV interface {
	KVOps
	Atomic(ctx context.Context, keys []string, fn func(ctx context.Context, ops KVOps) error) error
}

//go:generate mockgen -destination=mocks/mocks.go -package=mocks immo/internal/signature/service Contracts,Notifier

// Contracts is the slice of the sales service the protocol drives. Guards on
// the contract itself (draft, confirmed reservation, actor scope) live there.
type Contracts interface {
	SigningContract(ctx context.Context, actor id.Actor, contractID id.ContractID) (*salesmodels.Contract, error)
	ContractOwner(ctx context.Context, contractID id.ContractID) (id.ClientID, error)
	MarkCodeIssued(ctx context.Context, actor id.Actor, contractID id.ContractID, issuedAt time.Time) error
	SignContract(ctx context.Context, actor id.Actor, contractID id.ContractID, issuedAt time.Time) (*salesmodels.Contract, error)
}

// Notifier delivers a fresh code to the signer out of band.
type Notifier interface {
	SendSignatureCode(ctx context.Context, delivery models.CodeDelivery) error
}

type AuditSink = audit.Recorder
