package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Handlers map these onto HTTP statuses; services wrap them
// with fmt.Errorf("...: %w", ...) so errors.Is still matches.
var (
	// ErrValidation: malformed input, rejected before any store access
	ErrValidation = errors.New("validation error")

	// ErrNotFound: member/event/series/allocation absent (distinct from store failure)
	ErrNotFound = errors.New("not found")

	// ErrConflict: state machine violation or a lost conditional write
	ErrConflict = errors.New("conflict")

	// ErrCollaborator: a downstream call (store, catalog, notification) failed transiently
	ErrCollaborator = errors.New("collaborator failure")
)

// Stable reason codes surfaced to clients alongside the HTTP status
const (
	ReasonRegistrationClosed = "REGISTRATION_CLOSED"
	ReasonNotEligible        = "NOT_ELIGIBLE"
	ReasonInvalidTransition  = "INVALID_TRANSITION"
	ReasonNotFound           = "NOT_FOUND"
	ReasonValidation         = "VALIDATION_FAILED"
	ReasonConflict           = "CONFLICT"
	ReasonCollaborator       = "COLLABORATOR_FAILURE"
)

// ValidationError carries the full list of messages found during validation
// so handlers can return them all to the client at once.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(e.Messages, "; "))
}

// Is lets errors.Is(err, ErrValidation) match wrapped validation errors
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation builds a client-facing validation error with detail messages
func Validation(msgs ...string) error {
	return &ValidationError{Messages: msgs}
}

// NotFoundf wraps ErrNotFound with context about what was missing
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflictf wraps ErrConflict with context about the rejected transition
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Collaborator wraps a downstream failure so callers can tell it apart from
// absence. The original error stays reachable through errors.Unwrap.
func Collaborator(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrCollaborator, err)
}

// Reason resolves the stable reason code for an error
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return ReasonValidation
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrConflict):
		return ReasonConflict
	default:
		return ReasonCollaborator
	}
}
