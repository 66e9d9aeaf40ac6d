package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "immo/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseReservationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseReservationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseReservationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseReservationID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, ReservationID(valid), id)
	})
}

// TestTypeDistinction verifies distinct identifier types for the same UUID.
// Assigning a ContractID to a ReservationID does not compile.
func TestTypeDistinction(t *testing.T) {
	raw := uuid.New()
	reservationID := ReservationID(raw)
	contractID := ContractID(raw)

	assert.Equal(t, reservationID.String(), contractID.String())
	assert.IsType(t, ReservationID{}, reservationID)
	assert.IsType(t, ContractID{}, contractID)
}

func TestParseID_TrustBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE reservations;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContractID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	valid := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		for _, err := range parseAll(valid) {
			require.NoError(t, err)
		}
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			for _, err := range parseAll(input) {
				require.Error(t, err)
			}
		})
	}
}

func TestMarshalTextWritesPlainUUID(t *testing.T) {
	raw := uuid.New()
	text, err := UnitID(raw).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, raw.String(), string(text))
}

func TestIDsRoundTripThroughJSON(t *testing.T) {
	type entry struct {
		Signer UserID `json:"signer"`
	}
	in := entry{Signer: UserID(uuid.New())}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"signer":"`+in.Signer.String()+`"}`, string(raw))

	var out entry
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"signer":"nope"}`), &out))
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("bank_transfer")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodBankTransfer, m)

	_, err = ParsePaymentMethod("bitcoin")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ParsePaymentMethod("")
	require.Error(t, err)
}

func parseAll(input string) []error {
	_, e1 := ParseUnitID(input)
	_, e2 := ParseReservationID(input)
	_, e3 := ParseClientID(input)
	_, e4 := ParseUserID(input)
	_, e5 := ParsePaymentID(input)
	_, e6 := ParseFinancingID(input)
	_, e7 := ParseContractID(input)
	_, e8 := ParseDocumentID(input)
	_, e9 := ParseInstallmentID(input)
	_, e10 := ParseBankID(input)
	return []error{e1, e2, e3, e4, e5, e6, e7, e8, e9, e10}
}
