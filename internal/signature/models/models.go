// Package models holds the ephemeral signature code state and the outcomes
// of the signing protocol.
package models

import (
	"time"

	salesmodels "immo/internal/sales/models"
	id "immo/pkg/domain"
)

// The three records are stored under separate keys with separate lifetimes
// so a block outlives the code it was raised for.
func CodeKey(contractID id.ContractID) string     { return "code:" + contractID.String() }
func AttemptsKey(contractID id.ContractID) string { return "attempts:" + contractID.String() }
func BlockKey(contractID id.ContractID) string    { return "block:" + contractID.String() }

// Keys lists every key a verification touches, in a stable order.
func Keys(contractID id.ContractID) []string {
	return []string{BlockKey(contractID), CodeKey(contractID), AttemptsKey(contractID)}
}

// CodeEntry is the active code of a contract. Only the bcrypt hash is kept.
type CodeEntry struct {
	Hash     []byte    `json:"hash"`
	IssuedAt time.Time `json:"issued_at"`
}

// ExpiredAt reports whether the code is past its lifetime at now.
func (c CodeEntry) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return !now.Before(c.IssuedAt.Add(ttl))
}

type AttemptsEntry struct {
	Count int `json:"count"`
}

type BlockEntry struct {
	Until time.Time `json:"until"`
}

func (b BlockEntry) ActiveAt(now time.Time) bool {
	return now.Before(b.Until)
}

// Remaining is the block time left at now, rounded up to the second.
func (b BlockEntry) Remaining(now time.Time) time.Duration {
	if !b.ActiveAt(now) {
		return 0
	}
	d := b.Until.Sub(now)
	return (d + time.Second - 1).Truncate(time.Second)
}

// CodeDelivery is what a notifier receives to hand a fresh code to the signer.
type CodeDelivery struct {
	ContractID id.ContractID
	ClientID   id.ClientID
	Code       string
	ExpiresAt  time.Time
}

type Outcome string

const (
	OutcomeSigned    Outcome = "signed"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeExpired   Outcome = "expired"
)

// SignatureResult is the protocol answer to a code submission. Exactly one
// outcome applies; the other fields are set only for their outcome.
type SignatureResult struct {
	Outcome Outcome `json:"outcome"`

	// Contract is the signed contract (signed).
	Contract *salesmodels.Contract `json:"contract,omitempty"`

	// AttemptsUsed and AttemptsLeft count wrong submissions for the current code (incorrect).
	AttemptsUsed int `json:"attempts_used,omitempty"`
	AttemptsLeft int `json:"attempts_left,omitempty"`

	// RetryAfter is the remaining block time (blocked).
	RetryAfter time.Duration `json:"-"`
}

// IssueResult describes a freshly issued code without revealing it.
type IssueResult struct {
	ContractID id.ContractID `json:"contract_id"`
	ExpiresIn  time.Duration `json:"-"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// Status is the read-only view used for countdowns. It is not a security
// boundary: verification re-checks everything.
type Status struct {
	ContractID        id.ContractID  `json:"contract_id"`
	RemainingValidity *time.Duration `json:"-"`
	Blocked           bool           `json:"blocked"`
	BlockRemaining    time.Duration  `json:"-"`
}
