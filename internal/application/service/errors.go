package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the referenced record does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when an approver is not authorized to
	// act on a claim
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized is returned when a non-owner attempts an
	// owner-only action (e.g. revoking someone else's delegation)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyTerminal is returned on an attempted transition of a
	// record no longer in a mutable state
	ErrAlreadyTerminal = errors.New("already in a terminal state")

	// ErrConflict is returned when a concurrent writer won the race on
	// a shared resource
	ErrConflict = errors.New("conflict")
)

// ValidationError carries field-level validation messages back to the
// caller. It is recoverable: the caller corrects the fields and retries.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err is a ValidationError and
// returns it if so
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
