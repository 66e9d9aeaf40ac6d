package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks
// can apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: signatures,
	// cancellations, payment validation. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers signature code failures, blocks and overrides.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity such as uploads.
	CategoryOperations EventCategory = "operations"
)

// Event is one journal entry. It is transport-agnostic so stores and sinks
// can fan out. SubjectType/SubjectID name the record the action applied to.
type Event struct {
	ID          string         `json:"id"`
	Category    EventCategory  `json:"category"`
	Timestamp   time.Time      `json:"timestamp"`
	ActorID     string         `json:"actor_id,omitempty"`
	ActorRoles  []string       `json:"actor_roles,omitempty"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	Action      string         `json:"action"`
	Payload     map[string]any `json:"payload,omitempty"`
	IP          string         `json:"ip,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
}

// Store persists events. Implementations may block; callers that must not
// block go through a Publisher.
type Store interface {
	Append(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	EventReservationCreated   AuditEvent = "reservation_created"
	EventReservationConfirmed AuditEvent = "reservation_confirmed"
	EventReservationCancelled AuditEvent = "reservation_cancelled"
	EventReservationExpired   AuditEvent = "reservation_expired"
	EventCascadeApplied       AuditEvent = "cascade_applied"

	EventPaymentRecorded  AuditEvent = "payment_recorded"
	EventPaymentValidated AuditEvent = "payment_validated"
	EventPaymentRejected  AuditEvent = "payment_rejected"

	EventFinancingRequested     AuditEvent = "financing_requested"
	EventFinancingStatusChanged AuditEvent = "financing_status_changed"
	EventInstallmentsGenerated  AuditEvent = "installments_generated"

	EventDocumentUploaded  AuditEvent = "document_uploaded"
	EventDocumentReplaced  AuditEvent = "document_replaced"
	EventDocumentValidated AuditEvent = "document_validated"
	EventDocumentRejected  AuditEvent = "document_rejected"

	EventContractCreated AuditEvent = "contract_created"
	EventContractSigned  AuditEvent = "contract_signed"

	EventSignatureCodeIssued    AuditEvent = "signature_code_issued"
	EventSignatureCodeIncorrect AuditEvent = "signature_code_incorrect"
	EventSignatureBlocked       AuditEvent = "signature_blocked"
	EventSignatureBlockReset    AuditEvent = "signature_block_reset"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventReservationCreated:   CategoryCompliance,
	EventReservationConfirmed: CategoryCompliance,
	EventReservationCancelled: CategoryCompliance,
	EventReservationExpired:   CategoryCompliance,
	EventCascadeApplied:       CategoryCompliance,
	EventPaymentValidated:     CategoryCompliance,
	EventPaymentRejected:      CategoryCompliance,
	EventContractCreated:      CategoryCompliance,
	EventContractSigned:       CategoryCompliance,

	EventSignatureCodeIncorrect: CategorySecurity,
	EventSignatureBlocked:       CategorySecurity,
	EventSignatureBlockReset:    CategorySecurity,
	EventSignatureCodeIssued:    CategorySecurity,

	EventPaymentRecorded:        CategoryOperations,
	EventFinancingRequested:     CategoryOperations,
	EventFinancingStatusChanged: CategoryOperations,
	EventInstallmentsGenerated:  CategoryOperations,
	EventDocumentUploaded:       CategoryOperations,
	EventDocumentReplaced:       CategoryOperations,
	EventDocumentValidated:      CategoryOperations,
	EventDocumentRejected:       CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
