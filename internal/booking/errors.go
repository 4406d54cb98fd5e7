package booking

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers. External provider failures are never
// surfaced here: provisioning degrades to a placeholder and notification
// failures are logged only.
var (
	ErrNotFound     = errors.New("booking: not found")
	ErrForbidden    = errors.New("booking: forbidden")
	ErrInvalidState = errors.New("booking: invalid state transition")
)

// ValidationError reports malformed input on a booking operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
