// Package policy decides which role may perform which operation on which
// resource, and which representation of the data the caller gets back.
//
// Authorize is the single enforcement point. It is pure and total: every
// combination not listed in the table, including unknown roles, resources, and
// operations, resolves to Deny.
package policy

import "medgate/pkg/domain"

// Decision is the outcome of an authorization check. The zero value denies.
type Decision int

const (
	Deny Decision = iota
	AllowMasked
	AllowRaw
)

func (d Decision) String() string {
	switch d {
	case AllowRaw:
		return "allow_raw"
	case AllowMasked:
		return "allow_masked"
	default:
		return "deny"
	}
}

// Allowed reports whether d permits the operation in any representation.
func (d Decision) Allowed() bool {
	return d == AllowRaw || d == AllowMasked
}

type Resource int

const (
	ResourceUnknown Resource = iota
	ResourcePatients
	ResourceAuditLog
)

func (r Resource) String() string {
	switch r {
	case ResourcePatients:
		return "patients"
	case ResourceAuditLog:
		return "audit_log"
	default:
		return "unknown"
	}
}

type Operation int

const (
	OpUnknown Operation = iota
	OpView
	OpAdd
	OpEdit
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpView:
		return "view"
	case OpAdd:
		return "add"
	case OpEdit:
		return "edit"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Authorize looks up the decision for role performing op on resource.
func Authorize(role domain.Role, resource Resource, op Operation) Decision {
	switch role {
	case domain.RoleAdmin:
		return admin(resource, op)
	case domain.RoleDoctor:
		return doctor(resource, op)
	case domain.RoleReceptionist:
		return receptionist(resource, op)
	default:
		return Deny
	}
}

func admin(resource Resource, op Operation) Decision {
	switch resource {
	case ResourcePatients:
		switch op {
		case OpView, OpAdd, OpEdit, OpDelete:
			return AllowRaw
		}
	case ResourceAuditLog:
		if op == OpView {
			return AllowRaw
		}
	}
	return Deny
}

func doctor(resource Resource, op Operation) Decision {
	if resource == ResourcePatients && op == OpView {
		return AllowMasked
	}
	return Deny
}

// receptionist writes real values on add but only ever sees masked data on
// view and edit.
func receptionist(resource Resource, op Operation) Decision {
	if resource != ResourcePatients {
		return Deny
	}
	switch op {
	case OpView, OpEdit:
		return AllowMasked
	case OpAdd:
		return AllowRaw
	default:
		return Deny
	}
}
