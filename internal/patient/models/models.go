package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
)

// MinContactLength is the shortest contact the masking rule can keep a suffix of.
const MinContactLength = 4

// Patient is a stored record. Masked fields are derived from the raw fields
// when the record is written and are never recomputed on read.
type Patient struct {
	ID            domain.PatientID
	Name          string
	Contact       string
	Diagnosis     string
	MaskedName    string
	MaskedContact string
	DateAdded     time.Time
}

// Clone returns a copy that shares no memory with p.
func (p *Patient) Clone() *Patient {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Input carries the caller-supplied fields of an add or update.
type Input struct {
	Name      string
	Contact   string
	Diagnosis string
}

// Normalize trims surrounding whitespace from every field.
func (in *Input) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Contact = strings.TrimSpace(in.Contact)
	in.Diagnosis = strings.TrimSpace(in.Diagnosis)
}

// Validate checks required fields. Messages name the field, never its value.
func (in Input) Validate() error {
	switch {
	case in.Name == "":
		return dErrors.New(dErrors.CodeValidation, "name is required")
	case in.Contact == "":
		return dErrors.New(dErrors.CodeValidation, "contact is required")
	case in.Diagnosis == "":
		return dErrors.New(dErrors.CodeValidation, "diagnosis is required")
	case utf8.RuneCountInString(in.Contact) < MinContactLength:
		return dErrors.New(dErrors.CodeValidation, "contact must have at least 4 characters")
	}
	return nil
}

// Filter narrows a listing. Zero value matches everything.
type Filter struct {
	// Diagnosis must match exactly when set.
	Diagnosis string
	// Search is a case-insensitive substring of the patient id or the masked contact.
	Search string
}

func (f Filter) Matches(p *Patient) bool {
	if f.Diagnosis != "" && p.Diagnosis != f.Diagnosis {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(p.ID.String(), q) ||
		strings.Contains(strings.ToLower(p.MaskedContact), q)
}
