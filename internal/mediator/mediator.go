// Package mediator is the single entry point for patient and audit
// operations. Every request is authorized, executed, audited, and shaped
// here; nothing else calls the patient repository or the audit log on behalf
// of a user.
package mediator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	authmodels "medgate/internal/auth/models"
	"medgate/internal/patient/models"
	"medgate/internal/platform/metrics"
	"medgate/internal/policy"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	audit "medgate/pkg/platform/audit"
	"medgate/pkg/requestcontext"
)

//go:generate mockgen -source=mediator.go -destination=mocks/mocks.go -package=mocks

// DefaultStoreTimeout bounds every persistence call.
const DefaultStoreTimeout = 5 * time.Second

type PatientService interface {
	Add(ctx context.Context, in models.Input) (*models.Patient, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Patient, error)
	Update(ctx context.Context, id domain.PatientID, in models.Input) (*models.Patient, error)
	Delete(ctx context.Context, id domain.PatientID) (*models.Patient, error)
}

type AuditLog interface {
	Record(ctx context.Context, actorID domain.UserID, role domain.Role, action audit.Action, details string) (*audit.Entry, error)
	Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
}

type Mediator struct {
	patients     PatientService
	audit        AuditLog
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	storeTimeout time.Duration
	auditDenials bool
}

type Option func(*Mediator)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Mediator) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Mediator) {
		m.metrics = mt
	}
}

// WithStoreTimeout overrides DefaultStoreTimeout. Non-positive values are ignored.
func WithStoreTimeout(d time.Duration) Option {
	return func(m *Mediator) {
		if d > 0 {
			m.storeTimeout = d
		}
	}
}

// WithDenialAuditing records an access_denied entry for every refused request.
func WithDenialAuditing(enabled bool) Option {
	return func(m *Mediator) {
		m.auditDenials = enabled
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(m *Mediator) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

func New(patients PatientService, auditLog AuditLog, opts ...Option) *Mediator {
	m := &Mediator{
		patients:     patients,
		audit:        auditLog,
		logger:       slog.Default(),
		tracer:       otel.Tracer("medgate/mediator"),
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle authorizes op for the session's role, runs it, audits a successful
// mutation, and shapes the response for the decision. A denied request never
// reaches the repository.
func (m *Mediator) Handle(ctx context.Context, session *authmodels.Session, op Operation) (*Result, error) {
	if !session.Valid() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session required")
	}
	if op == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "operation required")
	}

	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "mediator."+op.name(), trace.WithAttributes(
		attribute.String("medgate.role", session.Role.String()),
		attribute.String("medgate.operation", op.name()),
	))
	defer span.End()

	decision := policy.Authorize(session.Role, op.resource(), op.kind())
	span.SetAttributes(attribute.String("medgate.decision", decision.String()))
	m.metrics.IncOperation(op.name(), decision.String())
	defer func() { m.metrics.ObserveHandle(op.name(), time.Since(start)) }()

	if !decision.Allowed() {
		err := m.deny(ctx, session, op)
		span.SetStatus(codes.Error, "denied")
		return nil, err
	}

	result, err := m.execute(ctx, session, op, decision)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	return result, nil
}

// QueryAudit reads the audit log through the same authorization path as
// every other request.
func (m *Mediator) QueryAudit(ctx context.Context, session *authmodels.Session, filter audit.Filter) ([]audit.Entry, error) {
	res, err := m.Handle(ctx, session, ListAuditLog{Filter: filter})
	if err != nil {
		return nil, err
	}
	return res.AuditEntries, nil
}

func (m *Mediator) execute(ctx context.Context, session *authmodels.Session, op Operation, decision policy.Decision) (*Result, error) {
	switch op := op.(type) {
	case ListPatients:
		patients, err := m.listPatients(ctx, op.filter())
		if err != nil {
			return nil, err
		}
		return &Result{Decision: decision, Patients: shapeAll(patients, decision)}, nil

	case AddPatient:
		sctx, cancel := m.storeContext(ctx)
		p, err := m.patients.Add(sctx, op.input())
		cancel()
		if err != nil {
			return nil, err
		}
		if err := m.record(ctx, session, audit.ActionAddPatient, p.ID, fmt.Sprintf("Added patient %d (%s)", p.ID, p.MaskedName)); err != nil {
			return nil, err
		}
		v := echo(session.Role, p)
		return &Result{Decision: decision, Patient: &v}, nil

	case UpdatePatient:
		if op.ID.IsZero() {
			return nil, dErrors.New(dErrors.CodeValidation, "patient id is required")
		}
		sctx, cancel := m.storeContext(ctx)
		p, err := m.patients.Update(sctx, op.ID, op.input())
		cancel()
		if err != nil {
			return nil, err
		}
		if err := m.record(ctx, session, audit.ActionEditPatient, p.ID, fmt.Sprintf("Edited patient %d (%s)", p.ID, p.MaskedName)); err != nil {
			return nil, err
		}
		v := echo(session.Role, p)
		return &Result{Decision: decision, Patient: &v}, nil

	case DeletePatient:
		if op.ID.IsZero() {
			return nil, dErrors.New(dErrors.CodeValidation, "patient id is required")
		}
		sctx, cancel := m.storeContext(ctx)
		p, err := m.patients.Delete(sctx, op.ID)
		cancel()
		if err != nil {
			return nil, err
		}
		if err := m.record(ctx, session, audit.ActionDeletePatient, p.ID, fmt.Sprintf("Deleted patient %d (%s)", p.ID, p.MaskedName)); err != nil {
			return nil, err
		}
		v := echo(session.Role, p)
		return &Result{Decision: decision, Patient: &v}, nil

	case ListAuditLog:
		sctx, cancel := m.storeContext(ctx)
		defer cancel()
		entries, err := m.audit.Query(sctx, op.Filter)
		if err != nil {
			return nil, err
		}
		return &Result{Decision: decision, AuditEntries: entries}, nil

	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported operation")
	}
}

func (m *Mediator) listPatients(ctx context.Context, filter models.Filter) ([]*models.Patient, error) {
	sctx, cancel := m.storeContext(ctx)
	defer cancel()
	return m.patients.List(sctx, filter)
}

// record writes the audit entry for a committed mutation. A failure here
// leaves the mutation in place and the entry missing; the caller still sees
// the operation fail.
func (m *Mediator) record(ctx context.Context, session *authmodels.Session, action audit.Action, id domain.PatientID, details string) error {
	sctx, cancel := m.storeContext(ctx)
	defer cancel()
	if _, err := m.audit.Record(sctx, session.UserID, session.Role, action, details); err != nil {
		m.logger.ErrorContext(ctx, "audit entry lost",
			"action", string(action),
			"patient_id", id,
			"user_id", session.UserID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return err
	}
	return nil
}

func (m *Mediator) deny(ctx context.Context, session *authmodels.Session, op Operation) error {
	m.metrics.IncDenied(session.Role.String(), op.name())
	m.logger.WarnContext(ctx, "operation denied",
		"role", session.Role.String(),
		"operation", op.name(),
		"user_id", session.UserID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if m.auditDenials {
		details := fmt.Sprintf("%s denied %s", session.Username, op.name())
		sctx, cancel := m.storeContext(ctx)
		defer cancel()
		if _, err := m.audit.Record(sctx, session.UserID, session.Role, audit.ActionAccessDenied, details); err != nil {
			m.logger.ErrorContext(ctx, "failed to audit denial", "error", err)
		}
	}
	return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("role %s may not perform %s", session.Role, op.name()))
}

func (m *Mediator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.storeTimeout)
}
