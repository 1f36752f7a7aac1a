package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"medgate/internal/patient/models"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/platform/sentinel"
	"medgate/pkg/requestcontext"
)

// Store persists patient records. Create assigns the id. RunInTx groups calls
// made with the context it hands to fn into one atomic unit.
type Store interface {
	Create(ctx context.Context, p *models.Patient) error
	FindByID(ctx context.Context, id domain.PatientID) (*models.Patient, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Patient, error)
	Update(ctx context.Context, p *models.Patient) error
	Delete(ctx context.Context, id domain.PatientID) error
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Masker derives the de-identified fields stored with every record.
type Masker interface {
	MaskName(raw string) string
	MaskContact(raw string) (string, error)
}

// Service is the patient repository. It validates input, derives masked
// fields at write time, and translates store failures into coded errors.
type Service struct {
	store    Store
	masker   Masker
	rederive bool
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRederiveOnUpdate recomputes masked fields from the new raw values on
// every update. Off by default: masked values stay as first written.
func WithRederiveOnUpdate(enabled bool) Option {
	return func(s *Service) {
		s.rederive = enabled
	}
}

func New(store Store, masker Masker, opts ...Option) *Service {
	s := &Service{store: store, masker: masker, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates and persists a new patient. DateAdded is the request date in UTC.
func (s *Service) Add(ctx context.Context, in models.Input) (*models.Patient, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	maskedContact, err := s.masker.MaskContact(in.Contact)
	if err != nil {
		return nil, err
	}
	p := &models.Patient{
		Name:          in.Name,
		Contact:       in.Contact,
		Diagnosis:     in.Diagnosis,
		MaskedName:    s.masker.MaskName(in.Name),
		MaskedContact: maskedContact,
		DateAdded:     dateOf(requestcontext.Now(ctx)),
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.Create(ctx, p)
	})
	if err != nil {
		return nil, s.fail(ctx, err, "failed to add patient")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, filter models.Filter) ([]*models.Patient, error) {
	patients, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.fail(ctx, err, "failed to list patients")
	}
	return patients, nil
}

// Update replaces the raw fields of an existing patient.
func (s *Service) Update(ctx context.Context, id domain.PatientID, in models.Input) (*models.Patient, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "patient id required")
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var maskedName, maskedContact string
	if s.rederive {
		var err error
		if maskedContact, err = s.masker.MaskContact(in.Contact); err != nil {
			return nil, err
		}
		maskedName = s.masker.MaskName(in.Name)
	}

	var updated *models.Patient
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		p.Name = in.Name
		p.Contact = in.Contact
		p.Diagnosis = in.Diagnosis
		if s.rederive {
			p.MaskedName = maskedName
			p.MaskedContact = maskedContact
		}
		if err := s.store.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err, "failed to update patient")
	}
	return updated, nil
}

// Delete removes a patient permanently and returns the record as it was.
func (s *Service) Delete(ctx context.Context, id domain.PatientID) (*models.Patient, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "patient id required")
	}
	var deleted *models.Patient
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.store.Delete(ctx, id); err != nil {
			return err
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err, "failed to delete patient")
	}
	return deleted, nil
}

func (s *Service) fail(ctx context.Context, err error, msg string) error {
	err = translate(err, msg)
	if code := dErrors.CodeOf(err); code == dErrors.CodeUnavailable || code == dErrors.CodeTimeout {
		s.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	return err
}

// translate maps store failures onto the caller-facing taxonomy. Already coded
// errors pass through unchanged.
func translate(err error, msg string) error {
	var coded *dErrors.Error
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "patient not found")
	case errors.As(err, &coded):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "patient store timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
}

// dateOf truncates t to midnight UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
