package mediator

import (
	"medgate/internal/patient/models"
	"medgate/internal/policy"
	"medgate/pkg/domain"
	audit "medgate/pkg/platform/audit"
)

// Operation is a request the mediator can carry out. The set is closed:
// only the types in this file implement it.
type Operation interface {
	resource() policy.Resource
	kind() policy.Operation
	name() string
}

// ListPatients lists patient records, optionally narrowed.
type ListPatients struct {
	Diagnosis string
	Search    string
}

// AddPatient creates a patient record.
type AddPatient struct {
	Name      string
	Contact   string
	Diagnosis string
}

// UpdatePatient replaces the raw fields of an existing record.
type UpdatePatient struct {
	ID        domain.PatientID
	Name      string
	Contact   string
	Diagnosis string
}

// DeletePatient removes a record.
type DeletePatient struct {
	ID domain.PatientID
}

// ListAuditLog reads audit entries, newest first.
type ListAuditLog struct {
	Filter audit.Filter
}

func (ListPatients) resource() policy.Resource  { return policy.ResourcePatients }
func (AddPatient) resource() policy.Resource    { return policy.ResourcePatients }
func (UpdatePatient) resource() policy.Resource { return policy.ResourcePatients }
func (DeletePatient) resource() policy.Resource { return policy.ResourcePatients }
func (ListAuditLog) resource() policy.Resource  { return policy.ResourceAuditLog }

func (ListPatients) kind() policy.Operation  { return policy.OpView }
func (AddPatient) kind() policy.Operation    { return policy.OpAdd }
func (UpdatePatient) kind() policy.Operation { return policy.OpEdit }
func (DeletePatient) kind() policy.Operation { return policy.OpDelete }
func (ListAuditLog) kind() policy.Operation  { return policy.OpView }

func (ListPatients) name() string  { return "list_patients" }
func (AddPatient) name() string    { return "add_patient" }
func (UpdatePatient) name() string { return "update_patient" }
func (DeletePatient) name() string { return "delete_patient" }
func (ListAuditLog) name() string  { return "list_audit_log" }

func (op ListPatients) filter() models.Filter {
	return models.Filter{Diagnosis: op.Diagnosis, Search: op.Search}
}

func (op AddPatient) input() models.Input {
	return models.Input{Name: op.Name, Contact: op.Contact, Diagnosis: op.Diagnosis}
}

func (op UpdatePatient) input() models.Input {
	return models.Input{Name: op.Name, Contact: op.Contact, Diagnosis: op.Diagnosis}
}
