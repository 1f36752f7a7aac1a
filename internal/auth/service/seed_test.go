package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"medgate/internal/auth/secrets"
	userstore "medgate/internal/auth/store/user"
	"medgate/pkg/domain"
	"medgate/internal/platform/logger"
)

func TestSeedAccounts(t *testing.T) {
	ctx := context.Background()
	accounts := []SeedAccount{
		{Username: "admin", Secret: "admin123", Role: domain.RoleAdmin},
		{Username: "DrBob", Secret: "doc123", Role: domain.RoleDoctor},
	}

	t.Run("creates every account once", func(t *testing.T) {
		users := userstore.New()
		require.NoError(t, SeedAccounts(ctx, users, accounts, bcrypt.MinCost, logger.Discard()))
		require.NoError(t, SeedAccounts(ctx, users, accounts, bcrypt.MinCost, logger.Discard()))

		admin, err := users.FindByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, admin.Role)
		assert.NoError(t, secrets.Verify("admin123", admin.SecretHash))

		bob, err := users.FindByUsername(ctx, "DrBob")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleDoctor, bob.Role)
		assert.NotEqual(t, admin.ID, bob.ID)
	})

	t.Run("never overwrites an existing secret", func(t *testing.T) {
		users := userstore.New()
		require.NoError(t, SeedAccounts(ctx, users, accounts[:1], bcrypt.MinCost, nil))

		changed := []SeedAccount{{Username: "admin", Secret: "rotated", Role: domain.RoleAdmin}}
		require.NoError(t, SeedAccounts(ctx, users, changed, bcrypt.MinCost, nil))

		admin, err := users.FindByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.NoError(t, secrets.Verify("admin123", admin.SecretHash))
	})

	t.Run("default accounts cover every role", func(t *testing.T) {
		seen := map[domain.Role]bool{}
		for _, a := range DefaultAccounts {
			seen[a.Role] = true
		}
		for _, r := range domain.Roles {
			assert.True(t, seen[r], r.String())
		}
	})
}
