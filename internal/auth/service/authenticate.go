package service

import (
	"context"
	"errors"
	"fmt"

	"medgate/internal/auth/device"
	"medgate/internal/auth/models"
	"medgate/internal/auth/secrets"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	audit "medgate/pkg/platform/audit"
	"medgate/pkg/platform/sentinel"
	"medgate/pkg/requestcontext"
)

// Authenticate verifies credentials and issues a session. Every credential
// failure returns the same error so callers cannot tell an unknown user from
// a wrong secret. The login is audited before the session is returned; if the
// audit write fails, so does the login.
func (s *Service) Authenticate(ctx context.Context, username, secret string) (*models.Session, error) {
	if username == "" || secret == "" {
		return nil, s.authFailure(ctx, username, "missing_credentials")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			_ = secrets.Verify(secret, s.dummyHash)
			return nil, s.authFailure(ctx, username, "unknown_user")
		}
		s.logger.ErrorContext(ctx, "user lookup failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "authentication unavailable")
	}

	if err := secrets.Verify(secret, user.SecretHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, s.authFailure(ctx, username, "bad_secret")
		}
		s.logger.ErrorContext(ctx, "stored credential unreadable", "user_id", user.ID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "authentication failed")
	}
	if !user.Role.Valid() {
		return nil, s.authFailure(ctx, username, "invalid_role")
	}

	session, err := s.tokens.Issue(user)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}

	details := user.Username + " logged in"
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		details += " from " + device.ParseUserAgent(ua)
	}
	if _, err := s.audit.Record(ctx, user.ID, user.Role, audit.ActionLogin, details); err != nil {
		return nil, err
	}

	s.metrics.IncLogin("success")
	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID,
		"role", user.Role.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return session, nil
}

func (s *Service) authFailure(ctx context.Context, username, reason string) error {
	s.metrics.IncLogin("failure")
	s.logger.WarnContext(ctx, "authentication failed",
		"reason", reason,
		"client_ip", requestcontext.ClientIP(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditFailures {
		details := fmt.Sprintf("failed login for %q", username)
		if _, err := s.audit.Record(ctx, 0, domain.RoleUnknown, audit.ActionLoginFailed, details); err != nil {
			s.logger.ErrorContext(ctx, "failed to audit login failure", "error", err)
		}
	}
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}
