package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/pkg/platform/sentinel"
)

func TestInMemoryTRL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	trl := NewInMemoryTRL(func() time.Time { return now })

	t.Run("revoked until ttl elapses", func(t *testing.T) {
		require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Hour))

		revoked, err := trl.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		other, err := trl.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, other)
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		err := trl.RevokeToken(ctx, "jti-3", 0)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("token without jti records nothing", func(t *testing.T) {
		require.NoError(t, trl.RevokeToken(ctx, "", time.Hour))
		revoked, err := trl.IsRevoked(ctx, "")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("expired entries are purged", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		revoked, err := trl.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)

		n, err := trl.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
