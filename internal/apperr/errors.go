// Package apperr holds the error taxonomy shared by every service.
// Handlers translate these into HTTP status codes; services wrap them
// with fmt.Errorf("...: %w", ...) for context.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input rejected before any side effect.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization marks an action the actor's role does not permit.
	ErrAuthorization = errors.New("not authorized")

	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")

	// ErrRateNotFound marks a missing pay rate for a (project, employee type,
	// category, date) lookup. Callers zero-rate the category and surface a
	// warning, never substituting a default amount.
	ErrRateNotFound = errors.New("pay rate not found")

	// ErrInvalidTransition marks a state-machine action attempted from a
	// source state that is not a valid origin for it.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPeriodLocked marks an aggregation attempt on a payment period that
	// already left the open state.
	ErrPeriodLocked = errors.New("payment period is locked")

	// ErrAlreadyReviewed marks a second review decision on a correction
	// request that is no longer pending.
	ErrAlreadyReviewed = errors.New("correction request already reviewed")

	// ErrHistoricalEditDenied marks a work-log write for a date other than
	// today by a role without historical-edit privilege.
	ErrHistoricalEditDenied = errors.New("historical work logs cannot be edited")

	// ErrConcurrentModification marks an optimistic-lock conflict: the row
	// changed between read and write. Callers may re-read and retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrCorrectionRequired marks a direct edit on a field that is only
	// changeable through an approved correction request.
	ErrCorrectionRequired = errors.New("change requires an approved correction request")
)

// InvalidTransitionError names the current state and the requested action.
type InvalidTransitionError struct {
	Current string
	Action  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a payment period in status %q", e.Action, e.Current)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// HistoricalEditError names the role and work date of a denied write.
type HistoricalEditError struct {
	Role     string
	WorkDate string
}

func (e *HistoricalEditError) Error() string {
	return fmt.Sprintf("role %q may only record work logs for today, not %s", e.Role, e.WorkDate)
}

func (e *HistoricalEditError) Unwrap() error {
	return ErrHistoricalEditDenied
}

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// IsNotFound reports whether err indicates a missing entity or rate.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRateNotFound)
}

// IsConflict reports whether err is a state or concurrency rejection,
// mapped by the API layer to 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrPeriodLocked) ||
		errors.Is(err, ErrAlreadyReviewed) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrCorrectionRequired)
}
