package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "medgate/pkg/domain-errors"
)

func TestParseIDs(t *testing.T) {
	t.Run("rejects empty, negative, zero and non-numeric ids", func(t *testing.T) {
		for _, in := range []string{"", "-3", "0", "abc", "1.5"} {
			_, err := ParsePatientID(in)
			require.Error(t, err, in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	t.Run("accepts positive ids with surrounding space", func(t *testing.T) {
		id, err := ParsePatientID(" 42 ")
		require.NoError(t, err)
		assert.Equal(t, PatientID(42), id)

		uid, err := ParseUserID("7")
		require.NoError(t, err)
		assert.Equal(t, UserID(7), uid)
	})
}

func TestRoles(t *testing.T) {
	t.Run("every declared role round-trips through its name", func(t *testing.T) {
		for _, r := range Roles {
			parsed, err := ParseRole(r.String())
			require.NoError(t, err)
			assert.Equal(t, r, parsed)
			assert.True(t, r.Valid())
		}
	})

	t.Run("parsing is case-insensitive", func(t *testing.T) {
		r, err := ParseRole("Doctor")
		require.NoError(t, err)
		assert.Equal(t, RoleDoctor, r)
	})

	t.Run("zero value and unknown names are not roles", func(t *testing.T) {
		assert.False(t, RoleUnknown.Valid())
		assert.False(t, Role(99).Valid())
		_, err := ParseRole("nurse")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("text marshalling uses the role name", func(t *testing.T) {
		b, err := RoleReceptionist.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "receptionist", string(b))

		var r Role
		require.NoError(t, r.UnmarshalText([]byte("admin")))
		assert.Equal(t, RoleAdmin, r)
	})
}
