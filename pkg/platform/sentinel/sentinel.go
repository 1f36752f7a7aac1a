package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors:
// - ErrNotFound: row does not exist in the store
// - ErrConflict: unique constraint would be violated
// - ErrExpired: token or lock has expired
// - ErrInvalidState: entity or argument in wrong state for the operation
// - ErrUnavailable: backing store unreachable or lock wait exceeded
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
