package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"medgate/internal/platform/logger"
	"medgate/internal/platform/metrics"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	audit "medgate/pkg/platform/audit"
	"medgate/pkg/platform/audit/store/memory"
	"medgate/pkg/requestcontext"
)

type brokenStore struct{ err error }

func (b brokenStore) Append(context.Context, *audit.Entry) error { return b.err }
func (b brokenStore) Query(context.Context, audit.Filter) ([]audit.Entry, error) {
	return nil, b.err
}

type captureMirror struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureMirror) Publish(_ context.Context, e audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

type ServiceSuite struct {
	suite.Suite
	store   *memory.InMemoryStore
	mirror  *captureMirror
	service *Service
	ctx     context.Context
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.mirror = &captureMirror{}
	s.service = New(s.store, WithLogger(logger.Discard()), WithMirror(s.mirror))
	s.now = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TestRecord() {
	s.Run("stamps and persists the entry", func() {
		entry, err := s.service.Record(s.ctx, 1, domain.RoleAdmin, audit.ActionLogin, "admin logged in")
		s.Require().NoError(err)
		s.Equal(domain.LogID(1), entry.ID)
		s.Equal(s.now, entry.Timestamp)
		s.Equal(domain.RoleAdmin, entry.ActorRole)
		s.Equal(1, s.store.Len())
	})

	s.Run("mirrors persisted entries", func() {
		s.Require().Len(s.mirror.entries, 1)
		s.Equal(audit.ActionLogin, s.mirror.entries[0].Action)
	})

	s.Run("rejects an empty action", func() {
		_, err := s.service.Record(s.ctx, 1, domain.RoleAdmin, "", "x")
		s.Error(err)
		s.Equal(1, s.store.Len())
	})
}

func (s *ServiceSuite) TestRecordFailure() {
	m := metrics.New(prometheus.NewRegistry())
	mirror := &captureMirror{}
	svc := New(brokenStore{err: errors.New("disk full")}, WithLogger(logger.Discard()), WithMetrics(m), WithMirror(mirror))

	_, err := svc.Record(s.ctx, 1, domain.RoleAdmin, audit.ActionAddPatient, "Added patient 1 (ANON_1)")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Empty(mirror.entries)
	s.Equal(1.0, testutil.ToFloat64(m.AuditFailures.WithLabelValues("add_patient")))

	timeout := New(brokenStore{err: context.DeadlineExceeded}, WithLogger(logger.Discard()))
	_, err = timeout.Query(s.ctx, audit.Filter{})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *ServiceSuite) TestQueryIsNewestFirstAndAppendOnly() {
	actions := []audit.Action{audit.ActionLogin, audit.ActionAddPatient, audit.ActionEditPatient, audit.ActionDeletePatient}
	for _, a := range actions {
		_, err := s.service.Record(s.ctx, 1, domain.RoleAdmin, a, string(a))
		s.Require().NoError(err)
	}

	entries, err := s.service.Query(s.ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Require().Len(entries, len(actions))
	for i := range entries {
		s.Equal(actions[len(actions)-1-i], entries[i].Action)
		if i > 0 {
			s.Less(entries[i].ID, entries[i-1].ID)
		}
	}

	doctor := domain.RoleDoctor
	none, err := s.service.Query(s.ctx, audit.Filter{Role: &doctor})
	s.Require().NoError(err)
	s.Empty(none)
}
