package service

import (
	"context"

	"medgate/internal/auth/models"
	dErrors "medgate/pkg/domain-errors"
	audit "medgate/pkg/platform/audit"
	"medgate/pkg/requestcontext"
)

// ValidateToken re-asserts a presented token: signature, expiry, known role,
// and absence from the revocation list. A revocation list that cannot be
// consulted fails closed.
func (s *Service) ValidateToken(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing session token")
	}
	session, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.trl.IsRevoked(ctx, session.TokenID)
	if err != nil {
		s.logger.ErrorContext(ctx, "revocation check failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "session check unavailable")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session has ended")
	}
	return session, nil
}

// Logout revokes the session's token for the rest of its lifetime and audits
// the logout.
func (s *Service) Logout(ctx context.Context, session *models.Session) error {
	if !session.Valid() {
		return dErrors.New(dErrors.CodeUnauthorized, "session required")
	}
	if ttl := session.Remaining(requestcontext.Now(ctx)); ttl > 0 {
		if err := s.trl.RevokeToken(ctx, session.TokenID, ttl); err != nil {
			s.logger.ErrorContext(ctx, "failed to add token to revocation list", "error", err, "user_id", session.UserID)
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "logout unavailable")
		}
	}
	if _, err := s.audit.Record(ctx, session.UserID, session.Role, audit.ActionLogout, session.Username+" logged out"); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", session.UserID)
	return nil
}
