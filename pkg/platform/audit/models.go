package audit

import (
	"strings"
	"time"

	"medgate/pkg/domain"
)

// Action names a kind of security-relevant event.
type Action string

const (
	ActionLogin          Action = "login"
	ActionLoginFailed    Action = "login_failed"
	ActionLogout         Action = "logout"
	ActionAddPatient     Action = "add_patient"
	ActionEditPatient    Action = "edit_patient"
	ActionDeletePatient  Action = "delete_patient"
	ActionExportPatients Action = "export_patients"
	ActionAccessDenied   Action = "access_denied"
)

// Entry is one immutable audit record. ActorUserID is a soft reference: the
// user may no longer exist when the entry is read. Zero means no resolved
// actor, as for a failed login.
type Entry struct {
	ID          domain.LogID
	ActorUserID domain.UserID
	ActorRole   domain.Role
	Action      Action
	Timestamp   time.Time
	// Details is a human-readable summary. It never carries raw patient
	// names or contacts.
	Details string
}

// Filter selects entries. Both predicates must hold when set.
type Filter struct {
	Role           *domain.Role
	ActionContains string
}

// Matches applies the role equality and the case-insensitive action
// substring predicates.
func (f Filter) Matches(e *Entry) bool {
	if f.Role != nil && e.ActorRole != *f.Role {
		return false
	}
	if f.ActionContains == "" {
		return true
	}
	return strings.Contains(strings.ToLower(string(e.Action)), strings.ToLower(f.ActionContains))
}
