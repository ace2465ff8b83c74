package emissions

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record or line item does not exist.
	ErrNotFound = errors.New("emission record not found")

	// ErrForbidden is returned on cross-company access by a non-admin or when
	// the actor's role is insufficient for the requested transition.
	ErrForbidden = errors.New("forbidden")

	// ErrRecordImmutable is returned when a line-item mutation targets a
	// validated or archived record and the actor has no override privilege.
	ErrRecordImmutable = errors.New("record is immutable")

	// ErrInvalidTransition is returned when the requested status change is not
	// in the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicatePeriod is returned when a record already exists for the
	// company's reporting period.
	ErrDuplicatePeriod = errors.New("reporting period already exists for company")
)

// ValidationError reports malformed input with the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}
