package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationf(t *testing.T) {
	err := Validationf("bad value %q", "x")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), `bad value "x"`)
}

func TestStructuredErrorsUnwrap(t *testing.T) {
	var err error = &InvalidTransitionError{Current: "open", Action: "approve"}
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "open")

	err = &HistoricalEditError{Role: "supervisor", WorkDate: "2026-03-09"}
	assert.ErrorIs(t, err, ErrHistoricalEditDenied)
	assert.Contains(t, err.Error(), "2026-03-09")
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("fetch: %w", ErrNotFound)))
	assert.True(t, IsNotFound(ErrRateNotFound))
	assert.False(t, IsNotFound(ErrValidation))

	for _, err := range []error{
		ErrInvalidTransition,
		ErrPeriodLocked,
		ErrAlreadyReviewed,
		ErrConcurrentModification,
		ErrCorrectionRequired,
	} {
		assert.True(t, IsConflict(fmt.Errorf("wrapped: %w", err)))
	}
	assert.False(t, IsConflict(errors.New("other")))
}
