package models

import (
	"time"

	"medgate/pkg/domain"
)

// User is a provisioned staff account. SecretHash is a bcrypt hash; the
// plaintext secret is never stored.
type User struct {
	ID         domain.UserID
	Username   string
	SecretHash string
	Role       domain.Role
}

// Session is the role-bound context issued at login. It travels with every
// request as a signed token and is re-validated each time.
type Session struct {
	UserID    domain.UserID
	Username  string
	Role      domain.Role
	StartedAt time.Time
	ExpiresAt time.Time
	// TokenID identifies the token for revocation on logout.
	TokenID string
	Token   string
}

// Valid reports whether s names a user with a known role.
func (s *Session) Valid() bool {
	return s != nil && !s.UserID.IsZero() && s.Role.Valid()
}

// Remaining is how long the session has left at now. Never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
