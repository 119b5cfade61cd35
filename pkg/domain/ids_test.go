package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustcore/pkg/domain-errors"
)

func TestParseUserID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE users;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocumentID(tt.input)
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
	validUUID := uuid.New().String()

	_, errUser := ParseUserID(validUUID)
	_, errDoc := ParseDocumentID(validUUID)
	_, errAdmin := ParseAdminID(validUUID)
	require.NoError(t, errUser)
	require.NoError(t, errDoc)
	require.NoError(t, errAdmin)

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errUser := ParseUserID(input)
			_, errDoc := ParseDocumentID(input)
			_, errAdmin := ParseAdminID(input)
			require.Error(t, errUser)
			require.Error(t, errDoc)
			require.Error(t, errAdmin)
		})
	}
}

func TestParseDocumentType(t *testing.T) {
	t.Run("maps each type to its verification group", func(t *testing.T) {
		cases := map[string]VerificationGroup{
			"identity_card":   GroupIdentity,
			"selfie_with_id":  GroupIdentity,
			"income_proof":    GroupFinancial,
			"ownership_proof": GroupFinancial,
		}
		for raw, group := range cases {
			dt, err := ParseDocumentType(raw)
			require.NoError(t, err)
			assert.Equal(t, group, dt.Group())
		}
	})

	t.Run("rejects unknown and empty values", func(t *testing.T) {
		for _, raw := range []string{"", "passport", "IDENTITY_CARD"} {
			_, err := ParseDocumentType(raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}
