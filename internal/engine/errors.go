package engine

import "errors"

// Domain errors returned by engine operations. Handlers map these onto HTTP
// status codes; nothing here is fatal to the hosting process.
var (
	ErrValidation           = errors.New("engine: validation failed")
	ErrScheduleNotFound     = errors.New("engine: schedule entry not found")
	ErrRegistrationNotFound = errors.New("engine: registration not found")
	ErrCapacityExceeded     = errors.New("engine: schedule capacity exceeded")
	ErrIllegalTransition    = errors.New("engine: illegal status transition")
	ErrPartialEligibility   = errors.New("engine: one or more registrations are not eligible")
	ErrWindowClosed         = errors.New("engine: registration window is closed")
	ErrConcurrencyConflict  = errors.New("engine: concurrent modification conflict")
)
