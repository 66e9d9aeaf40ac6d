package handler

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"immo/internal/sales/models"
	id "immo/pkg/domain"
	dErrors "immo/pkg/domain-errors"
)

const (
	maxReasonLength = 500
	maxFileKeyLen   = 512
	dateLayout      = "2006-01-02"
	maxInstallments = 600
)

// CreateReservationRequest is the body of POST /reservations. ClientID may be
// omitted by a CLIENT actor, who then reserves for its own account.
type CreateReservationRequest struct {
	UnitID   string `json:"unit_id"`
	ClientID string `json:"client_id"`
	Deposit  string `json:"deposit"`

	unitID   id.UnitID
	clientID id.ClientID
	deposit  decimal.Decimal
}

func (r *CreateReservationRequest) Validate() error {
	unitID, err := id.ParseUnitID(strings.TrimSpace(r.UnitID))
	if err != nil {
		return dErrors.Validation("unit_id", "must be a valid identifier")
	}
	r.unitID = unitID
	if s := strings.TrimSpace(r.ClientID); s != "" {
		clientID, err := id.ParseClientID(s)
		if err != nil {
			return dErrors.Validation("client_id", "must be a valid identifier")
		}
		r.clientID = clientID
	}
	deposit, err := parseAmount("deposit", r.Deposit)
	if err != nil {
		return err
	}
	r.deposit = deposit
	return nil
}

// ClientFor falls back to the actor's own account.
func (r *CreateReservationRequest) ClientFor(actor id.Actor) id.ClientID {
	if r.clientID.IsNil() {
		return actor.ClientID
	}
	return r.clientID
}

// ReasonRequest carries the mandatory reason of cancellations and rejections.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.Validation("reason", "is required")
	}
	if len(r.Reason) > maxReasonLength {
		return dErrors.Validation("reason", "is too long")
	}
	return nil
}

// ExpireRequest is the optional body of POST /reservations/{id}/expire.
type ExpireRequest struct {
	Reason string `json:"reason"`
}

func (r *ExpireRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		r.Reason = "reservation period elapsed"
	}
	if len(r.Reason) > maxReasonLength {
		return dErrors.Validation("reason", "is too long")
	}
	return nil
}

type RecordPaymentRequest struct {
	Amount string `json:"amount"`
	Method string `json:"method"`

	amount decimal.Decimal
	method id.PaymentMethod
}

func (r *RecordPaymentRequest) Validate() error {
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return err
	}
	r.amount = amount
	method, err := id.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(r.Method)))
	if err != nil {
		return dErrors.Validation("method", "must be one of bank_transfer, cheque, cash, card")
	}
	r.method = method
	return nil
}

type RequestFinancingRequest struct {
	BankID string `json:"bank_id"`
	Type   string `json:"type"`
	Amount string `json:"amount"`

	parsed FinancingInput
}

// FinancingInput is the validated form of RequestFinancingRequest.
type FinancingInput struct {
	BankID id.BankID
	Type   models.FinancingType
	Amount decimal.Decimal
}

func (r *RequestFinancingRequest) Validate() error {
	bankID, err := id.ParseBankID(strings.TrimSpace(r.BankID))
	if err != nil {
		return dErrors.Validation("bank_id", "must be a valid identifier")
	}
	typ, ok := models.ParseFinancingType(strings.ToLower(strings.TrimSpace(r.Type)))
	if !ok {
		return dErrors.Validation("type", "unknown financing type")
	}
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return err
	}
	r.parsed = FinancingInput{BankID: bankID, Type: typ, Amount: amount}
	return nil
}

type FinancingStatusRequest struct {
	Status string `json:"status"`

	status models.FinancingStatus
}

func (r *FinancingStatusRequest) Validate() error {
	status, ok := models.ParseFinancingStatus(strings.ToLower(strings.TrimSpace(r.Status)))
	if !ok {
		return dErrors.Validation("status", "unknown financing status")
	}
	r.status = status
	return nil
}

type InstallmentsRequest struct {
	Count        int    `json:"count"`
	FirstDueDate string `json:"first_due_date"`

	firstDue time.Time
}

func (r *InstallmentsRequest) Validate() error {
	if r.Count < 1 || r.Count > maxInstallments {
		return dErrors.Validation("count", "must be between 1 and 600")
	}
	due, err := time.Parse(dateLayout, strings.TrimSpace(r.FirstDueDate))
	if err != nil {
		return dErrors.Validation("first_due_date", "must be a date formatted YYYY-MM-DD")
	}
	r.firstDue = due
	return nil
}

// UploadDocumentRequest attaches a stored file to a checklist entry. The file
// itself lives with the storage collaborator; only its reference travels here.
type UploadDocumentRequest struct {
	Type string      `json:"type"`
	File FileRequest `json:"file"`

	typ models.DocumentType
}

type FileRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func (f FileRequest) toRef() (models.FileRef, error) {
	key := strings.TrimSpace(f.Key)
	if len(key) > maxFileKeyLen {
		return models.FileRef{}, dErrors.Validation("file.key", "is too long")
	}
	ref := models.FileRef{Key: key, ContentType: strings.TrimSpace(f.ContentType), Size: f.Size}
	return ref, ref.Validate()
}

func (r *UploadDocumentRequest) Validate() error {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	if r.Type == "" {
		return dErrors.Validation("type", "is required")
	}
	r.typ = models.DocumentType(r.Type)
	_, err := r.File.toRef()
	return err
}

func (r *UploadDocumentRequest) FileRef() models.FileRef {
	ref, _ := r.File.toRef()
	return ref
}

// ReplaceDocumentRequest is the body of PUT /documents/{id}/file.
type ReplaceDocumentRequest struct {
	FileRequest

	ref models.FileRef
}

func (r *ReplaceDocumentRequest) Validate() error {
	ref, err := r.toRef()
	if err != nil {
		return err
	}
	r.ref = ref
	return nil
}

type CreateContractRequest struct {
	ContentBase64 string `json:"content_base64"`

	content []byte
}

func (r *CreateContractRequest) Validate() error {
	content, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.ContentBase64))
	if err != nil {
		return dErrors.Validation("content_base64", "must be standard base64")
	}
	if len(content) == 0 {
		return dErrors.Validation("content_base64", "is required")
	}
	r.content = content
	return nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, dErrors.Validation(field, "is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, dErrors.Validation(field, "must be a decimal amount")
	}
	return d, nil
}
