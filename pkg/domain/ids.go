package domain

import (
	"strconv"
	"strings"

	dErrors "medgate/pkg/domain-errors"
)

// Identifiers are store-assigned and strictly increasing. Distinct types keep
// a patient id from being passed where a user id is expected.
type (
	UserID    int64
	PatientID int64
	LogID     int64
)

func (id UserID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id PatientID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id LogID) String() string     { return strconv.FormatInt(int64(id), 10) }

// IsZero reports whether the id was never assigned.
func (id UserID) IsZero() bool    { return id == 0 }
func (id PatientID) IsZero() bool { return id == 0 }

// ParsePatientID parses a positive decimal patient id from an untrusted source.
func ParsePatientID(s string) (PatientID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid patient id")
	}
	return PatientID(n), nil
}

// ParseUserID parses a positive decimal user id from an untrusted source.
func ParseUserID(s string) (UserID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid user id")
	}
	return UserID(n), nil
}

func parsePositive(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
