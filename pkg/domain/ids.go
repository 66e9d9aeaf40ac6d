// Package domain holds primitive value types shared across modules.
//
// Identifiers are distinct named UUID types so a ReservationID can never be
// passed where a ContractID is expected. Construct them from external input
// with the Parse* functions; they reject empty, malformed and nil UUIDs.
package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "immo/pkg/domain-errors"
)

type (
	UnitID        uuid.UUID
	ReservationID uuid.UUID
	ClientID      uuid.UUID
	UserID        uuid.UUID
	PaymentID     uuid.UUID
	FinancingID   uuid.UUID
	ContractID    uuid.UUID
	DocumentID    uuid.UUID
	InstallmentID uuid.UUID
	BankID        uuid.UUID
)

// maxIDLength bounds input before it reaches uuid.Parse.
const maxIDLength = 64

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseUnitID(s string) (UnitID, error) {
	u, err := parseUUID(s, "unit_id")
	return UnitID(u), err
}

func ParseReservationID(s string) (ReservationID, error) {
	u, err := parseUUID(s, "reservation_id")
	return ReservationID(u), err
}

func ParseClientID(s string) (ClientID, error) {
	u, err := parseUUID(s, "client_id")
	return ClientID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s, "payment_id")
	return PaymentID(u), err
}

func ParseFinancingID(s string) (FinancingID, error) {
	u, err := parseUUID(s, "financing_id")
	return FinancingID(u), err
}

func ParseContractID(s string) (ContractID, error) {
	u, err := parseUUID(s, "contract_id")
	return ContractID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document_id")
	return DocumentID(u), err
}

func ParseInstallmentID(s string) (InstallmentID, error) {
	u, err := parseUUID(s, "installment_id")
	return InstallmentID(u), err
}

func ParseBankID(s string) (BankID, error) {
	u, err := parseUUID(s, "bank_id")
	return BankID(u), err
}

func (id UnitID) String() string        { return uuid.UUID(id).String() }
func (id ReservationID) String() string { return uuid.UUID(id).String() }
func (id ClientID) String() string      { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id PaymentID) String() string     { return uuid.UUID(id).String() }
func (id FinancingID) String() string   { return uuid.UUID(id).String() }
func (id ContractID) String() string    { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }
func (id InstallmentID) String() string { return uuid.UUID(id).String() }
func (id BankID) String() string        { return uuid.UUID(id).String() }

func (id UnitID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ReservationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ContractID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id FinancingID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id UnitID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ReservationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ClientID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id PaymentID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id FinancingID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id ContractID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id DocumentID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id InstallmentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id BankID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }

func unmarshalUUID(dst *uuid.UUID, text []byte) error {
	u, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*dst = u
	return nil
}

func (id *UnitID) UnmarshalText(b []byte) error        { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *ReservationID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *ClientID) UnmarshalText(b []byte) error      { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *UserID) UnmarshalText(b []byte) error        { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *PaymentID) UnmarshalText(b []byte) error     { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *FinancingID) UnmarshalText(b []byte) error   { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *ContractID) UnmarshalText(b []byte) error    { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *DocumentID) UnmarshalText(b []byte) error    { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *InstallmentID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *BankID) UnmarshalText(b []byte) error        { return unmarshalUUID((*uuid.UUID)(id), b) }
