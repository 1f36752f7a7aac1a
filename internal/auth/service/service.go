package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"medgate/internal/auth/models"
	"medgate/internal/auth/secrets"
	"medgate/internal/platform/metrics"
	"medgate/pkg/domain"
	audit "medgate/pkg/platform/audit"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// RevocationList records logged-out token ids until they would have expired.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, actorID domain.UserID, role domain.Role, action audit.Action, details string) (*audit.Entry, error)
}

// TokenService signs and verifies session tokens.
type TokenService interface {
	Issue(user *models.User) (*models.Session, error)
	Parse(token string) (*models.Session, error)
}

// dummySecret is hashed once at startup so that unknown usernames cost the
// same bcrypt comparison as known ones.
const dummySecret = "medgate-timing-equalizer"

// Service is the session authority: it verifies credentials, issues sessions,
// and re-validates them on every request.
type Service struct {
	users         UserStore
	tokens        TokenService
	trl           RevocationList
	audit         AuditRecorder
	logger        *slog.Logger
	metrics       *metrics.Metrics
	auditFailures bool
	dummyHash     string
	bcryptCost    int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFailureAuditing records a login_failed entry for every rejected login.
func WithFailureAuditing(enabled bool) Option {
	return func(s *Service) {
		s.auditFailures = enabled
	}
}

// WithBcryptCost sets the cost of the dummy hash. It must match the cost of
// stored hashes for timing to be uniform.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func New(users UserStore, tokens TokenService, trl RevocationList, auditor AuditRecorder, opts ...Option) (*Service, error) {
	s := &Service{
		users:      users,
		tokens:     tokens,
		trl:        trl,
		audit:      auditor,
		logger:     slog.Default(),
		bcryptCost: secrets.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	hash, err := secrets.HashWithCost(dummySecret, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	s.dummyHash = hash
	return s, nil
}
