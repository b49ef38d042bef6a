package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails a business rule
// (e.g. negative distance, unknown mode, end timestamp before start).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when an operation is not legal in the current
// state of a flow, such as saving a tracked trip that is still tracking.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")
