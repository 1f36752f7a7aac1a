package mediator

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	authmodels "medgate/internal/auth/models"
	"medgate/internal/mediator/mocks"
	"medgate/internal/patient/models"
	"medgate/internal/platform/logger"
	"medgate/internal/policy"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	audit "medgate/pkg/platform/audit"
)

type MediatorSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	patients *mocks.MockPatientService
	audit    *mocks.MockAuditLog
	mediator *Mediator
}

func TestMediatorSuite(t *testing.T) {
	suite.Run(t, new(MediatorSuite))
}

func (s *MediatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.patients = mocks.NewMockPatientService(s.ctrl)
	s.audit = mocks.NewMockAuditLog(s.ctrl)
	s.mediator = New(s.patients, s.audit, WithLogger(logger.Discard()))
}

func (s *MediatorSuite) TearDownTest() {
	s.ctrl.Finish()
}

var (
	adminSession        = &authmodels.Session{UserID: 1, Username: "admin", Role: domain.RoleAdmin}
	doctorSession       = &authmodels.Session{UserID: 2, Username: "DrBob", Role: domain.RoleDoctor}
	receptionistSession = &authmodels.Session{UserID: 3, Username: "AliceRecep", Role: domain.RoleReceptionist}
)

func jane() *models.Patient {
	return &models.Patient{
		ID:            7,
		Name:          "Jane Doe",
		Contact:       "555-0102",
		Diagnosis:     "Hypertension",
		MaskedName:    "ANON_1234",
		MaskedContact: "XXX-XXX-0102",
		DateAdded:     time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
	}
}

func (s *MediatorSuite) TestSessionRequired() {
	ctx := context.Background()

	_, err := s.mediator.Handle(ctx, nil, ListPatients{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.mediator.Handle(ctx, &authmodels.Session{UserID: 1}, ListPatients{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = s.mediator.ExportPatients(ctx, nil, &bytes.Buffer{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *MediatorSuite) TestDenialsTouchNothing() {
	ctx := context.Background()
	cases := []struct {
		name    string
		session *authmodels.Session
		op      Operation
	}{
		{"receptionist delete", receptionistSession, DeletePatient{ID: 7}},
		{"doctor add", doctorSession, AddPatient{Name: "A", Contact: "5550000", Diagnosis: "B"}},
		{"doctor edit", doctorSession, UpdatePatient{ID: 7, Name: "A", Contact: "5550000", Diagnosis: "B"}},
		{"doctor audit log", doctorSession, ListAuditLog{}},
		{"receptionist audit log", receptionistSession, ListAuditLog{}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			res, err := s.mediator.Handle(ctx, tc.session, tc.op)
			s.Nil(res)
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		})
	}
}

func (s *MediatorSuite) TestDenialAuditing() {
	m := New(s.patients, s.audit, WithLogger(logger.Discard()), WithDenialAuditing(true))
	s.audit.EXPECT().
		Record(gomock.Any(), receptionistSession.UserID, domain.RoleReceptionist, audit.ActionAccessDenied, "AliceRecep denied delete_patient").
		Return(&audit.Entry{ID: 1}, nil)

	_, err := m.Handle(context.Background(), receptionistSession, DeletePatient{ID: 7})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *MediatorSuite) TestAddAuditsWithoutRawIdentifiers() {
	s.patients.EXPECT().
		Add(gomock.Any(), models.Input{Name: "Jane Doe", Contact: "555-0102", Diagnosis: "Hypertension"}).
		Return(jane(), nil)
	s.audit.EXPECT().
		Record(gomock.Any(), adminSession.UserID, domain.RoleAdmin, audit.ActionAddPatient, "Added patient 7 (ANON_1234)").
		Return(&audit.Entry{ID: 1}, nil)

	res, err := s.mediator.Handle(context.Background(), adminSession,
		AddPatient{Name: "Jane Doe", Contact: "555-0102", Diagnosis: "Hypertension"})
	s.Require().NoError(err)
	s.Equal(policy.AllowRaw, res.Decision)
	s.Equal("Jane Doe", res.Patient.Name)
	s.Equal("ANON_1234", res.Patient.MaskedName)
}

func (s *MediatorSuite) TestReceptionistSeesMaskedEdit() {
	s.patients.EXPECT().Update(gomock.Any(), domain.PatientID(7), gomock.Any()).Return(jane(), nil)
	s.audit.EXPECT().
		Record(gomock.Any(), receptionistSession.UserID, domain.RoleReceptionist, audit.ActionEditPatient, "Edited patient 7 (ANON_1234)").
		Return(&audit.Entry{ID: 1}, nil)

	res, err := s.mediator.Handle(context.Background(), receptionistSession,
		UpdatePatient{ID: 7, Name: "Jane Doe", Contact: "555-0102", Diagnosis: "Hypertension"})
	s.Require().NoError(err)
	s.Equal(policy.AllowMasked, res.Decision)
	s.Empty(res.Patient.Name)
	s.Empty(res.Patient.Contact)
	s.Equal("XXX-XXX-0102", res.Patient.MaskedContact)
}

func (s *MediatorSuite) TestReceptionistAddEchoesMaskedRecord() {
	s.patients.EXPECT().
		Add(gomock.Any(), models.Input{Name: "Jane Doe", Contact: "555-0102", Diagnosis: "Hypertension"}).
		Return(jane(), nil)
	s.audit.EXPECT().
		Record(gomock.Any(), receptionistSession.UserID, domain.RoleReceptionist, audit.ActionAddPatient, "Added patient 7 (ANON_1234)").
		Return(&audit.Entry{ID: 1}, nil)

	res, err := s.mediator.Handle(context.Background(), receptionistSession,
		AddPatient{Name: "Jane Doe", Contact: "555-0102", Diagnosis: "Hypertension"})
	s.Require().NoError(err)
	s.Equal(policy.AllowRaw, res.Decision)
	s.Empty(res.Patient.Name)
	s.Empty(res.Patient.Contact)
	s.Equal("ANON_1234", res.Patient.MaskedName)
	s.Equal("XXX-XXX-0102", res.Patient.MaskedContact)
}

func (s *MediatorSuite) TestFailedMutationIsNotAudited() {
	s.patients.EXPECT().Update(gomock.Any(), domain.PatientID(99), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "patient not found"))

	_, err := s.mediator.Handle(context.Background(), adminSession,
		UpdatePatient{ID: 99, Name: "A", Contact: "5550000", Diagnosis: "B"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MediatorSuite) TestLostAuditEntryFailsTheOperation() {
	s.patients.EXPECT().Delete(gomock.Any(), domain.PatientID(7)).Return(jane(), nil)
	s.audit.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), audit.ActionDeletePatient, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "audit log unavailable"))

	res, err := s.mediator.Handle(context.Background(), adminSession, DeletePatient{ID: 7})
	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *MediatorSuite) TestMissingPatientID() {
	_, err := s.mediator.Handle(context.Background(), adminSession, DeletePatient{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *MediatorSuite) TestPersistenceCallsAreBounded() {
	m := New(s.patients, s.audit, WithLogger(logger.Discard()), WithStoreTimeout(time.Second))
	s.patients.EXPECT().List(gomock.Any(), models.Filter{Diagnosis: "Flu"}).
		DoAndReturn(func(ctx context.Context, _ models.Filter) ([]*models.Patient, error) {
			deadline, ok := ctx.Deadline()
			s.True(ok)
			s.WithinDuration(time.Now().Add(time.Second), deadline, time.Second)
			return nil, nil
		})

	res, err := m.Handle(context.Background(), doctorSession, ListPatients{Diagnosis: "Flu"})
	s.Require().NoError(err)
	s.Empty(res.Patients)
}

func (s *MediatorSuite) TestQueryAudit() {
	role := domain.RoleDoctor
	filter := audit.Filter{Role: &role, ActionContains: "login"}
	entries := []audit.Entry{{ID: 2, Action: audit.ActionLogin}, {ID: 1, Action: audit.ActionLogin}}
	s.audit.EXPECT().Query(gomock.Any(), filter).Return(entries, nil)

	got, err := s.mediator.QueryAudit(context.Background(), adminSession, filter)
	s.Require().NoError(err)
	s.Equal(entries, got)
}

func (s *MediatorSuite) TestExport() {
	ctx := context.Background()

	s.Run("admin export is audited and written as CSV", func() {
		s.patients.EXPECT().List(gomock.Any(), models.Filter{}).Return([]*models.Patient{jane()}, nil)
		s.audit.EXPECT().Record(gomock.Any(), adminSession.UserID, domain.RoleAdmin, audit.ActionExportPatients, "Exported 1 patient records").
			Return(&audit.Entry{ID: 1}, nil)

		var buf bytes.Buffer
		s.Require().NoError(s.mediator.ExportPatients(ctx, adminSession, &buf))
		s.Equal("patient_id,name,contact,diagnosis,anonymized_name,anonymized_contact,date_added\n"+
			"7,Jane Doe,555-0102,Hypertension,ANON_1234,XXX-XXX-0102,2026-10-17\n", buf.String())
	})

	s.Run("masked viewers cannot export", func() {
		var buf bytes.Buffer
		err := s.mediator.ExportPatients(ctx, doctorSession, &buf)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Zero(buf.Len())
	})

	s.Run("nothing is written when the audit entry cannot be stored", func() {
		s.patients.EXPECT().List(gomock.Any(), models.Filter{}).Return([]*models.Patient{jane()}, nil)
		s.audit.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), audit.ActionExportPatients, gomock.Any()).
			Return(nil, errors.New("disk full"))

		var buf bytes.Buffer
		s.Require().Error(s.mediator.ExportPatients(ctx, adminSession, &buf))
		s.Zero(buf.Len())
	})
}
