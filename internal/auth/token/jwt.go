package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medgate/internal/auth/models"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
)

// MinKeyLength is the shortest HS256 signing key accepted.
const MinKeyLength = 32

const defaultIssuer = "medgate"

// Claims is the signed payload of a session token.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	StartedAt int64  `json:"started_at"`
	jwt.RegisteredClaims
}

// Service issues and validates HS256 session tokens.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

func New(signingKey []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(signingKey) < MinKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes", MinKeyLength)
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	s := &Service{
		signingKey: append([]byte(nil), signingKey...),
		issuer:     defaultIssuer,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a new session for user. The session starts now.
func (s *Service) Issue(user *models.User) (*models.Session, error) {
	startedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := startedAt.Add(s.ttl)
	jti := uuid.NewString()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    int64(user.ID),
		Username:  user.Username,
		Role:      user.Role.String(),
		StartedAt: startedAt.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(startedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}).SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &models.Session{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		StartedAt: startedAt,
		ExpiresAt: expiresAt,
		TokenID:   jti,
		Token:     signed,
	}, nil
}

// Parse verifies signature, issuer, and expiry and rebuilds the session.
// Every failure is CodeUnauthorized.
func (s *Service) Parse(tokenString string) (*models.Session, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" || claims.UserID <= 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	return &models.Session{
		UserID:    domain.UserID(claims.UserID),
		Username:  claims.Username,
		Role:      role,
		StartedAt: time.Unix(claims.StartedAt, 0).UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		TokenID:   claims.ID,
		Token:     tokenString,
	}, nil
}
