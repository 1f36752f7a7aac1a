package mediator

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	authmodels "medgate/internal/auth/models"
	"medgate/internal/patient/models"
	"medgate/internal/policy"
	dErrors "medgate/pkg/domain-errors"
	audit "medgate/pkg/platform/audit"
)

const exportOperation = "export_patients"

// ExportHeader is the first row of every export.
var ExportHeader = []string{"patient_id", "name", "contact", "diagnosis", "anonymized_name", "anonymized_contact", "date_added"}

type exportPatients struct{}

func (exportPatients) resource() policy.Resource { return policy.ResourcePatients }
func (exportPatients) kind() policy.Operation    { return policy.OpView }
func (exportPatients) name() string              { return exportOperation }

// ExportPatients writes every patient record as CSV. Only callers whose view
// decision is AllowRaw may export. The export is audited before any row is
// written, so a failed audit write produces no output.
func (m *Mediator) ExportPatients(ctx context.Context, session *authmodels.Session, w io.Writer) error {
	if !session.Valid() {
		return dErrors.New(dErrors.CodeUnauthorized, "session required")
	}

	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "mediator."+exportOperation, trace.WithAttributes(
		attribute.String("medgate.role", session.Role.String()),
		attribute.String("medgate.operation", exportOperation),
	))
	defer span.End()

	op := exportPatients{}
	decision := policy.Authorize(session.Role, op.resource(), op.kind())
	span.SetAttributes(attribute.String("medgate.decision", decision.String()))
	m.metrics.IncOperation(exportOperation, decision.String())
	defer func() { m.metrics.ObserveHandle(exportOperation, time.Since(start)) }()

	if decision != policy.AllowRaw {
		span.SetStatus(codes.Error, "denied")
		return m.deny(ctx, session, op)
	}

	patients, err := m.listPatients(ctx, models.Filter{})
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := m.record(ctx, session, audit.ActionExportPatients, 0, fmt.Sprintf("Exported %d patient records", len(patients))); err != nil {
		span.RecordError(err)
		return err
	}

	if err := writeCSV(w, patients); err != nil {
		m.logger.ErrorContext(ctx, "export write failed", "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
	}
	return nil
}

func writeCSV(w io.Writer, patients []*models.Patient) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, p := range patients {
		row := []string{
			strconv.FormatInt(int64(p.ID), 10),
			p.Name,
			p.Contact,
			p.Diagnosis,
			p.MaskedName,
			p.MaskedContact,
			formatDate(p.DateAdded),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
