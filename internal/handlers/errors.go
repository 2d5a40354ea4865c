package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/examdesk/exam-scheduler-api/internal/engine"
)

// httpError maps engine domain errors onto huma HTTP errors.
func httpError(err error) error {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, engine.ErrScheduleNotFound),
		errors.Is(err, engine.ErrRegistrationNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, engine.ErrCapacityExceeded),
		errors.Is(err, engine.ErrIllegalTransition),
		errors.Is(err, engine.ErrWindowClosed),
		errors.Is(err, engine.ErrConcurrencyConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, engine.ErrPartialEligibility):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("Operation failed: " + err.Error())
	}
}
