package models

import (
	"strings"
	"time"

	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
)

type DocumentContextKind string

const (
	ContextReservation DocumentContextKind = "reservation"
	ContextFinancing   DocumentContextKind = "financing"
)

// DocumentContext identifies the transaction a checklist applies to.
// ReservationID is always set so ownership checks work for both kinds.
type DocumentContext struct {
	Kind          DocumentContextKind `json:"kind"`
	ReservationID id.ReservationID    `json:"reservation_id"`
	FinancingID   id.FinancingID      `json:"financing_id"`
}

func ReservationContext(reservationID id.ReservationID) DocumentContext {
	return DocumentContext{Kind: ContextReservation, ReservationID: reservationID}
}

func FinancingContext(reservationID id.ReservationID, financingID id.FinancingID) DocumentContext {
	return DocumentContext{Kind: ContextFinancing, ReservationID: reservationID, FinancingID: financingID}
}

type DocumentType string

const (
	DocIdentityCard        DocumentType = "identity_card"
	DocPhoto               DocumentType = "photo"
	DocProofOfResidence    DocumentType = "proof_of_residence"
	DocBrochure            DocumentType = "brochure"
	DocSalarySlip          DocumentType = "salary_slip"
	DocBankAccountProof    DocumentType = "bank_account_proof"
	DocEmployerAttestation DocumentType = "employer_attestation"
)

// FileRef is an opaque handle owned by the storage collaborator.
type FileRef struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func (f FileRef) Validate() error {
	switch {
	case strings.TrimSpace(f.Key) == "":
		return dErrors.Validation("file.key", "is required")
	case f.Size <= 0:
		return dErrors.Validation("file.size", "must be positive")
	}
	return nil
}

// Document is an uploaded proof for one checklist entry. Replacing its file
// resets it to pending and clears verification metadata.
type Document struct {
	ID         id.DocumentID   `json:"id"`
	Context    DocumentContext `json:"context"`
	Type       DocumentType    `json:"type"`
	Status     DocumentStatus  `json:"status"`
	File       FileRef         `json:"file"`
	UploadedAt time.Time       `json:"uploaded_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	RejectionReason string     `json:"rejection_reason,omitempty"`
	VerifiedBy      *id.UserID `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
}

func NewDocument(documentID id.DocumentID, ctx DocumentContext, typ DocumentType, file FileRef, now time.Time) *Document {
	return &Document{
		ID:         documentID,
		Context:    ctx,
		Type:       typ,
		Status:     DocumentPending,
		File:       file,
		UploadedAt: now,
		UpdatedAt:  now,
	}
}

// ApplyReupload swaps the file reference and forgets any prior verdict.
func (d *Document) ApplyReupload(file FileRef, now time.Time) {
	d.File = file
	d.Status = DocumentPending
	d.RejectionReason = ""
	d.VerifiedBy = nil
	d.VerifiedAt = nil
	d.UploadedAt = now
	d.UpdatedAt = now
}

// CanValidate allows pending documents. Validating an already validated
// document is a no-op reported through the bool.
func (d *Document) CanValidate() (alreadyValidated bool, err error) {
	switch d.Status {
	case DocumentPending:
		return false, nil
	case DocumentValidated:
		return true, nil
	default:
		return false, dErrors.New(dErrors.CodeConflict, "document was rejected, a new upload is required")
	}
}

func (d *Document) ApplyValidation(actor id.UserID, now time.Time) {
	d.Status = DocumentValidated
	d.RejectionReason = ""
	d.VerifiedBy = &actor
	d.VerifiedAt = &now
	d.UpdatedAt = now
}

func (d *Document) CanReject(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.Validation("reason", "is required")
	}
	if d.Status == DocumentRejected {
		return dErrors.New(dErrors.CodeConflict, "document is already rejected")
	}
	return nil
}

func (d *Document) ApplyRejection(actor id.UserID, reason string, now time.Time) {
	d.Status = DocumentRejected
	d.RejectionReason = strings.TrimSpace(reason)
	d.VerifiedBy = &actor
	d.VerifiedAt = &now
	d.UpdatedAt = now
}
