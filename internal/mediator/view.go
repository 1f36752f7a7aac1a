package mediator

import (
	"time"

	"medgate/internal/patient/models"
	"medgate/internal/policy"
	"medgate/pkg/domain"
	audit "medgate/pkg/platform/audit"
)

// PatientView is a patient record shaped for one caller. Name and Contact are
// empty unless the caller's decision was AllowRaw.
type PatientView struct {
	ID            int64     `json:"patient_id"`
	Name          string    `json:"name,omitempty"`
	Contact       string    `json:"contact,omitempty"`
	Diagnosis     string    `json:"diagnosis"`
	MaskedName    string    `json:"anonymized_name"`
	MaskedContact string    `json:"anonymized_contact"`
	DateAdded     time.Time `json:"date_added"`
}

// Result is what Handle returns. Exactly one of the payload fields is set,
// according to the operation; DeletePatient leaves Patient describing the
// removed record.
type Result struct {
	Decision     policy.Decision
	Patients     []PatientView
	Patient      *PatientView
	AuditEntries []audit.Entry
}

func shape(p *models.Patient, decision policy.Decision) PatientView {
	v := PatientView{
		ID:            int64(p.ID),
		Diagnosis:     p.Diagnosis,
		MaskedName:    p.MaskedName,
		MaskedContact: p.MaskedContact,
		DateAdded:     p.DateAdded,
	}
	if decision == policy.AllowRaw {
		v.Name = p.Name
		v.Contact = p.Contact
	}
	return v
}

// echo shapes a record returned by a mutation. The caller's view permission
// decides what is displayed, so a receptionist who writes raw values gets
// only the masked form back.
func echo(role domain.Role, p *models.Patient) PatientView {
	return shape(p, policy.Authorize(role, policy.ResourcePatients, policy.OpView))
}

func shapeAll(patients []*models.Patient, decision policy.Decision) []PatientView {
	views := make([]PatientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, shape(p, decision))
	}
	return views
}
