package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"medgate/internal/auth/models"
	"medgate/internal/auth/secrets"
	"medgate/internal/auth/service/mocks"
	"medgate/internal/auth/token"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	audit "medgate/pkg/platform/audit"
	"medgate/pkg/platform/sentinel"
	"medgate/internal/platform/logger"
	"medgate/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	users   *mocks.MockUserStore
	trl     *mocks.MockRevocationList
	auditor *mocks.MockAuditRecorder
	tokens  *token.Service
	service *Service
	bob     *models.User
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = mocks.NewMockUserStore(s.ctrl)
	s.trl = mocks.NewMockRevocationList(s.ctrl)
	s.auditor = mocks.NewMockAuditRecorder(s.ctrl)

	var err error
	s.tokens, err = token.New([]byte(strings.Repeat("k", token.MinKeyLength)), time.Hour)
	s.Require().NoError(err)
	s.service = s.newService()

	hash, err := secrets.HashWithCost("doc123", bcrypt.MinCost)
	s.Require().NoError(err)
	s.bob = &models.User{ID: 2, Username: "DrBob", SecretHash: hash, Role: domain.RoleDoctor}
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) newService(opts ...Option) *Service {
	opts = append([]Option{WithLogger(logger.Discard()), WithBcryptCost(bcrypt.MinCost)}, opts...)
	svc, err := New(s.users, s.tokens, s.trl, s.auditor, opts...)
	s.Require().NoError(err)
	return svc
}

func (s *ServiceSuite) TestAuthenticate() {
	ctx := context.Background()

	s.Run("valid credentials issue a session bound to the stored role", func() {
		s.users.EXPECT().FindByUsername(gomock.Any(), "DrBob").Return(s.bob, nil)
		s.auditor.EXPECT().Record(gomock.Any(), s.bob.ID, domain.RoleDoctor, audit.ActionLogin, "DrBob logged in").
			Return(&audit.Entry{ID: 1}, nil)

		session, err := s.service.Authenticate(ctx, "DrBob", "doc123")
		s.Require().NoError(err)
		s.Equal(s.bob.ID, session.UserID)
		s.Equal(domain.RoleDoctor, session.Role)
		s.NotEmpty(session.Token)
		s.NotEmpty(session.TokenID)
	})

	s.Run("login details name the device when a user agent is present", func() {
		uaCtx := requestcontext.WithClientMetadata(ctx, "10.0.0.1",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		s.users.EXPECT().FindByUsername(gomock.Any(), "DrBob").Return(s.bob, nil)
		s.auditor.EXPECT().Record(gomock.Any(), s.bob.ID, domain.RoleDoctor, audit.ActionLogin,
			gomock.Cond(func(x any) bool {
				return strings.HasPrefix(x.(string), "DrBob logged in from ")
			})).Return(&audit.Entry{ID: 2}, nil)

		_, err := s.service.Authenticate(uaCtx, "DrBob", "doc123")
		s.Require().NoError(err)
	})

	s.Run("wrong secret and unknown user fail identically without auditing", func() {
		s.users.EXPECT().FindByUsername(gomock.Any(), "DrBob").Return(s.bob, nil)
		s.users.EXPECT().FindByUsername(gomock.Any(), "ghost").Return(nil, sentinel.ErrNotFound)

		_, wrongErr := s.service.Authenticate(ctx, "DrBob", "nope")
		_, ghostErr := s.service.Authenticate(ctx, "ghost", "doc123")

		s.True(dErrors.HasCode(wrongErr, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(ghostErr, dErrors.CodeUnauthorized))
		s.Equal(wrongErr.Error(), ghostErr.Error())
	})

	s.Run("empty credentials are rejected before any lookup", func() {
		_, err := s.service.Authenticate(ctx, "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("a failed audit write fails the login", func() {
		s.users.EXPECT().FindByUsername(gomock.Any(), "DrBob").Return(s.bob, nil)
		s.auditor.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), audit.ActionLogin, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "audit log unavailable"))

		session, err := s.service.Authenticate(ctx, "DrBob", "doc123")
		s.Nil(session)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("user store outage is unavailable, not unauthorized", func() {
		s.users.EXPECT().FindByUsername(gomock.Any(), "DrBob").Return(nil, errors.New("connection refused"))

		_, err := s.service.Authenticate(ctx, "DrBob", "doc123")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestFailureAuditing() {
	svc := s.newService(WithFailureAuditing(true))
	s.users.EXPECT().FindByUsername(gomock.Any(), "ghost").Return(nil, sentinel.ErrNotFound)
	s.auditor.EXPECT().Record(gomock.Any(), domain.UserID(0), domain.RoleUnknown, audit.ActionLoginFailed, `failed login for "ghost"`).
		Return(&audit.Entry{ID: 1}, nil)

	_, err := svc.Authenticate(context.Background(), "ghost", "x")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestValidateToken() {
	ctx := context.Background()
	session, err := s.tokens.Issue(s.bob)
	s.Require().NoError(err)

	s.Run("a live token yields its session", func() {
		s.trl.EXPECT().IsRevoked(gomock.Any(), session.TokenID).Return(false, nil)

		got, err := s.service.ValidateToken(ctx, session.Token)
		s.Require().NoError(err)
		s.Equal(s.bob.ID, got.UserID)
		s.Equal(domain.RoleDoctor, got.Role)
	})

	s.Run("a revoked token is rejected", func() {
		s.trl.EXPECT().IsRevoked(gomock.Any(), session.TokenID).Return(true, nil)

		_, err := s.service.ValidateToken(ctx, session.Token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("revocation list outage fails closed", func() {
		s.trl.EXPECT().IsRevoked(gomock.Any(), session.TokenID).Return(false, errors.New("redis down"))

		_, err := s.service.ValidateToken(ctx, session.Token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("a tampered token never reaches the revocation list", func() {
		_, err := s.service.ValidateToken(ctx, session.Token+"x")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("a missing token is unauthorized", func() {
		_, err := s.service.ValidateToken(ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestLogout() {
	session, err := s.tokens.Issue(s.bob)
	s.Require().NoError(err)
	ctx := requestcontext.WithTime(context.Background(), session.StartedAt.Add(10*time.Minute))

	s.Run("revokes the token for its remaining lifetime and audits", func() {
		s.trl.EXPECT().RevokeToken(gomock.Any(), session.TokenID, 50*time.Minute).Return(nil)
		s.auditor.EXPECT().Record(gomock.Any(), s.bob.ID, domain.RoleDoctor, audit.ActionLogout, "DrBob logged out").
			Return(&audit.Entry{ID: 3}, nil)

		s.Require().NoError(s.service.Logout(ctx, session))
	})

	s.Run("revocation failure surfaces as unavailable and skips the audit", func() {
		s.trl.EXPECT().RevokeToken(gomock.Any(), session.TokenID, gomock.Any()).Return(errors.New("write failed"))

		err := s.service.Logout(ctx, session)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("an empty session cannot log out", func() {
		err := s.service.Logout(ctx, &models.Session{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
