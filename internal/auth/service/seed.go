package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"medgate/internal/auth/models"
	"medgate/internal/auth/secrets"
	"medgate/pkg/domain"
	"medgate/pkg/platform/sentinel"
)

// SeedStore is what bootstrap needs from the user store.
type SeedStore interface {
	Create(ctx context.Context, user *models.User) error
	ExistingUsernames(ctx context.Context, usernames []string) (map[string]bool, error)
}

// SeedAccount is one bootstrap credential.
type SeedAccount struct {
	Username string
	Secret   string
	Role     domain.Role
}

// DefaultAccounts has one account per role.
var DefaultAccounts = []SeedAccount{
	{Username: "admin", Secret: "admin123", Role: domain.RoleAdmin},
	{Username: "DrBob", Secret: "doc123", Role: domain.RoleDoctor},
	{Username: "AliceRecep", Secret: "rec123", Role: domain.RoleReceptionist},
}

// SeedDefaultAccounts provisions DefaultAccounts at the default bcrypt cost.
func SeedDefaultAccounts(ctx context.Context, users SeedStore, logger *slog.Logger) error {
	return SeedAccounts(ctx, users, DefaultAccounts, secrets.DefaultCost, logger)
}

// SeedAccounts creates each account whose username is not taken yet. Running
// it again is a no-op, and existing secrets are never overwritten.
func SeedAccounts(ctx context.Context, users SeedStore, accounts []SeedAccount, cost int, logger *slog.Logger) error {
	names := make([]string, len(accounts))
	for i, a := range accounts {
		names[i] = a.Username
	}
	existing, err := users.ExistingUsernames(ctx, names)
	if err != nil {
		return fmt.Errorf("check seed accounts: %w", err)
	}

	for _, a := range accounts {
		if existing[a.Username] {
			continue
		}
		hash, err := secrets.HashWithCost(a.Secret, cost)
		if err != nil {
			return fmt.Errorf("hash seed secret for %s: %w", a.Username, err)
		}
		err = users.Create(ctx, &models.User{Username: a.Username, SecretHash: hash, Role: a.Role})
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create seed account %s: %w", a.Username, err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded account", "username", a.Username, "role", a.Role.String())
		}
	}
	return nil
}
