package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
)

// Contract is one-to-one with a confirmed reservation. signed is terminal and
// only reachable through a successful signature code verification.
type Contract struct {
	ID            id.ContractID    `json:"id"`
	ReservationID id.ReservationID `json:"reservation_id"`
	Number        string           `json:"number"`
	Status        ContractStatus   `json:"status"`
	ContentHash   string           `json:"content_hash"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// OTPIssuedAt marks the most recent signature code issuance.
	OTPIssuedAt  *time.Time          `json:"otp_issued_at,omitempty"`
	SignedAt     *time.Time          `json:"signed_at,omitempty"`
	SignatureLog []SignatureLogEntry `json:"signature_log,omitempty"`
}

// SignatureLogEntry is the tamper-evident trace of a signature.
type SignatureLogEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	SignerID    id.UserID `json:"signer_id"`
	IP          string    `json:"ip"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Device      string    `json:"device,omitempty"`
	OTPIssuedAt time.Time `json:"otp_issued_at"`
	ContentHash string    `json:"content_hash"`
}

// NewContract hashes content and derives a unique number from the creation day.
func NewContract(contractID id.ContractID, reservationID id.ReservationID, content []byte, now time.Time) *Contract {
	return &Contract{
		ID:            contractID,
		ReservationID: reservationID,
		Number:        ContractNumber(contractID, now),
		Status:        ContractDraft,
		ContentHash:   HashContent(content),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ContractNumber formats CTR-YYYYMMDD-XXXXXXXX from the contract id.
func ContractNumber(contractID id.ContractID, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.UUID(contractID).String(), "-", "")[:8])
	return "CTR-" + now.UTC().Format("20060102") + "-" + suffix
}

func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (c *Contract) IsCommitted() bool {
	return c.Status == ContractSigned
}

// CanSign checks the contract half of the signing guard.
func (c *Contract) CanSign() error {
	switch c.Status {
	case ContractDraft:
		return nil
	case ContractSigned:
		return dErrors.New(dErrors.CodeConflict, "contract is already signed")
	default:
		return dErrors.New(dErrors.CodeConflict, "contract is "+string(c.Status))
	}
}

func (c *Contract) ApplyOTPIssued(now time.Time) {
	c.OTPIssuedAt = &now
	c.UpdatedAt = now
}

// ApplySignature must only be called after a successful code verification.
func (c *Contract) ApplySignature(entry SignatureLogEntry, now time.Time) {
	c.Status = ContractSigned
	c.SignedAt = &now
	c.SignatureLog = append(c.SignatureLog, entry)
	c.UpdatedAt = now
}

func (c *Contract) ApplyCancellation(now time.Time) {
	c.Status = ContractCancelled
	c.UpdatedAt = now
}
