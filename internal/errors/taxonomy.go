package errors

import "net/http"

// Error kinds shared by the repositories, the gameplay service and the HTTP handlers.
// Wrap them with context and detect them with Is.
var (
	ErrUnauthorized = NewSentinel("unauthorized")
	ErrNotFound     = NewSentinel("not found")
	ErrConflict     = NewSentinel("conflict")
	ErrValidation   = NewSentinel("validation error")
	ErrUpstream     = NewSentinel("upstream failure")
)

// HTTPStatus maps the error kinds to HTTP status codes.
//
// Unknown errors, including ErrUpstream, are server errors.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrConflict):
		return http.StatusConflict
	case Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
