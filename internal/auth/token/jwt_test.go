package token

import (
	"bytes"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/internal/auth/models"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
)

var testKey = bytes.Repeat([]byte("k"), MinKeyLength)

func newService(t *testing.T, now *time.Time) *Service {
	t.Helper()
	svc, err := New(testKey, time.Hour, WithClock(func() time.Time { return *now }))
	require.NoError(t, err)
	return svc
}

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 30, 15, 500, time.UTC)
	svc := newService(t, &now)
	user := &models.User{ID: 2, Username: "DrBob", Role: domain.RoleDoctor}

	session, err := svc.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, session.TokenID)
	assert.Equal(t, now.Truncate(time.Second), session.StartedAt)
	assert.Equal(t, session.StartedAt.Add(time.Hour), session.ExpiresAt)

	parsed, err := svc.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, parsed.UserID)
	assert.Equal(t, "DrBob", parsed.Username)
	assert.Equal(t, domain.RoleDoctor, parsed.Role)
	assert.Equal(t, session.TokenID, parsed.TokenID)
	assert.True(t, session.StartedAt.Equal(parsed.StartedAt))
	assert.True(t, session.ExpiresAt.Equal(parsed.ExpiresAt))
}

func TestParseRejects(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newService(t, &now)
	user := &models.User{ID: 1, Username: "admin", Role: domain.RoleAdmin}

	t.Run("expired token", func(t *testing.T) {
		session, err := svc.Issue(user)
		require.NoError(t, err)
		later := now.Add(2 * time.Hour)
		expired := newService(t, &later)
		_, err = expired.Parse(session.Token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other, err := New(bytes.Repeat([]byte("x"), MinKeyLength), time.Hour, WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		session, err := other.Issue(user)
		require.NoError(t, err)
		_, err = svc.Parse(session.Token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("unknown role claim", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			UserID: 1,
			Role:   "superuser",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    defaultIssuer,
				ID:        "jti",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}).SignedString(testKey)
		require.NoError(t, err)
		_, err = svc.Parse(raw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("none algorithm", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			UserID: 1,
			Role:   "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    defaultIssuer,
				ID:        "jti",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Parse(raw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Parse("not.a.token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestNewValidatesKey(t *testing.T) {
	_, err := New([]byte("short"), time.Hour)
	assert.Error(t, err)
	_, err = New(testKey, 0)
	assert.Error(t, err)
}
