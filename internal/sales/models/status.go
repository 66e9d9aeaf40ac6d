package models

// Availability is the catalog status of a unit. The core only moves it as a
// side effect of reservation and contract transitions.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityReserved  Availability = "reserved"
	AvailabilitySold      Availability = "sold"
	AvailabilityDelivered Availability = "delivered"
)

type ReservationStatus string

const (
	ReservationInProgress ReservationStatus = "in_progress"
	ReservationConfirmed  ReservationStatus = "confirmed"
	ReservationCancelled  ReservationStatus = "cancelled"
	ReservationExpired    ReservationStatus = "expired"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationInProgress: {ReservationConfirmed, ReservationCancelled, ReservationExpired},
	ReservationConfirmed:  {ReservationCancelled, ReservationExpired},
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsActive is true for statuses that hold a claim on the unit.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationInProgress || s == ReservationConfirmed
}

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationCancelled || s == ReservationExpired
}

type PaymentStatus string

const (
	PaymentRecorded  PaymentStatus = "recorded"
	PaymentValidated PaymentStatus = "validated"
	PaymentRejected  PaymentStatus = "rejected"
)

type ContractStatus string

const (
	ContractDraft     ContractStatus = "draft"
	ContractSigned    ContractStatus = "signed"
	ContractCancelled ContractStatus = "cancelled"
)

type FinancingStatus string

const (
	FinancingSubmitted   FinancingStatus = "submitted"
	FinancingUnderReview FinancingStatus = "under_review"
	FinancingAccepted    FinancingStatus = "accepted"
	FinancingRefused     FinancingStatus = "refused"
	FinancingCancelled   FinancingStatus = "cancelled"
	FinancingClosed      FinancingStatus = "closed"
)

var financingTransitions = map[FinancingStatus][]FinancingStatus{
	FinancingSubmitted:   {FinancingUnderReview, FinancingRefused, FinancingCancelled},
	FinancingUnderReview: {FinancingAccepted, FinancingRefused, FinancingCancelled},
	FinancingAccepted:    {FinancingClosed},
}

func (s FinancingStatus) CanTransitionTo(next FinancingStatus) bool {
	for _, allowed := range financingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsCommitted is true for financing the cascade must never touch.
func (s FinancingStatus) IsCommitted() bool {
	return s == FinancingAccepted || s == FinancingClosed
}

func ParseFinancingStatus(s string) (FinancingStatus, bool) {
	switch st := FinancingStatus(s); st {
	case FinancingSubmitted, FinancingUnderReview, FinancingAccepted,
		FinancingRefused, FinancingCancelled, FinancingClosed:
		return st, true
	}
	return "", false
}

type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "pending"
	DocumentValidated DocumentStatus = "validated"
	DocumentRejected  DocumentStatus = "rejected"
)
