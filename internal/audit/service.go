// Package audit records security-relevant actions and answers audit queries.
//
// Recording is fail-closed: when the entry cannot be persisted the caller
// gets an error and must treat its own operation as failed.
package audit

import (
	"context"
	"errors"
	"log/slog"

	"medgate/internal/platform/metrics"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	audit "medgate/pkg/platform/audit"
	"medgate/pkg/requestcontext"
)

type Store interface {
	Append(ctx context.Context, entry *audit.Entry) error
	Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
}

// Mirror receives a copy of every persisted entry. It must not block.
type Mirror interface {
	Publish(ctx context.Context, entry audit.Entry)
}

type Service struct {
	store   Store
	mirror  Mirror
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// WithMirror forwards persisted entries to a stream publisher.
func WithMirror(m Mirror) Option {
	return func(s *Service) {
		s.mirror = m
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends an entry stamped with the request time.
func (s *Service) Record(ctx context.Context, actorID domain.UserID, role domain.Role, action audit.Action, details string) (*audit.Entry, error) {
	if action == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "audit action required")
	}
	entry := &audit.Entry{
		ActorUserID: actorID,
		ActorRole:   role,
		Action:      action,
		Timestamp:   requestcontext.Now(ctx).UTC(),
		Details:     details,
	}
	if err := s.store.Append(ctx, entry); err != nil {
		s.metrics.IncAuditFailure(string(action))
		s.logger.ErrorContext(ctx, "CRITICAL: audit write failed",
			"action", action,
			"actor_user_id", actorID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, persistenceError(err, "audit log unavailable")
	}
	if s.mirror != nil {
		s.mirror.Publish(ctx, *entry)
	}
	return entry, nil
}

// Query returns matching entries, newest first.
func (s *Service) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	entries, err := s.store.Query(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "audit query failed", "error", err)
		return nil, persistenceError(err, "audit log unavailable")
	}
	return entries, nil
}

func persistenceError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "audit log timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
}
