//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medgate/pkg/domain"
	audit "medgate/pkg/platform/audit"
	"medgate/pkg/testutil/containers"
)

type StoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = New(s.pg.DB)
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "audit_entries"))
}

func (s *StoreSuite) append(actor domain.UserID, role domain.Role, action audit.Action) *audit.Entry {
	e := &audit.Entry{
		ActorUserID: actor, ActorRole: role, Action: action,
		Timestamp: time.Now().UTC().Truncate(time.Microsecond), Details: string(action),
	}
	s.Require().NoError(s.store.Append(context.Background(), e))
	return e
}

func (s *StoreSuite) TestQueryOrderAndFilters() {
	ctx := context.Background()
	first := s.append(1, domain.RoleAdmin, audit.ActionLogin)
	s.append(2, domain.RoleDoctor, audit.ActionLogin)
	s.append(1, domain.RoleAdmin, audit.ActionAddPatient)
	s.append(0, domain.RoleUnknown, audit.ActionLoginFailed)

	all, err := s.store.Query(ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	for i := 1; i < len(all); i++ {
		s.Greater(all[i-1].ID, all[i].ID)
	}
	s.Equal(first.ID, all[3].ID)
	s.True(first.Timestamp.Equal(all[3].Timestamp))
	s.Equal(domain.RoleUnknown, all[0].ActorRole)

	admin := domain.RoleAdmin
	adminOnly, err := s.store.Query(ctx, audit.Filter{Role: &admin})
	s.Require().NoError(err)
	s.Len(adminOnly, 2)

	logins, err := s.store.Query(ctx, audit.Filter{Role: &admin, ActionContains: "LOGIN"})
	s.Require().NoError(err)
	s.Require().Len(logins, 1)
	s.Equal(audit.ActionLogin, logins[0].Action)

	underscore, err := s.store.Query(ctx, audit.Filter{ActionContains: "_"})
	s.Require().NoError(err)
	s.Len(underscore, 2)
}
