package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates a state precondition violation (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthenticated indicates that the caller supplied no identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden indicates that the actor's role may not perform the action.
var ErrForbidden = errors.New("forbidden")

// ErrUnavailable marks a transient storage or transport failure.
var ErrUnavailable = errors.New("unavailable")
