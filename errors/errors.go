package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Authentication: the connection or request is refused outright.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrMissingToken       = fmt.Errorf("missing credential")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	// Validation: the event is rejected, the connection stays open.
	ErrInvalidPassword = fmt.Errorf("password does not meet complexity rules")
	ErrInvalidUsername = fmt.Errorf("invalid username")
	ErrEmptyContent    = fmt.Errorf("message content is empty")
	ErrContentTooLong  = fmt.Errorf("message content too long")
	ErrInvalidVerdict  = fmt.Errorf("verdict must be upvote or downvote")

	// Not found: no partial state change has happened.
	ErrUserAlreadyExists = fmt.Errorf("user already exists")
	ErrUserNotFound      = fmt.Errorf("user not found")
	ErrMessageNotFound   = fmt.Errorf("message not found")
	ErrRecipientNotFound = fmt.Errorf("one or more recipients not found")

	// Infrastructure.
	ErrPersistence = fmt.Errorf("persistence failure")
	ErrWorkerPanic = fmt.Errorf("worker panic")
)

// HTTPStatus maps a domain error to the status code the REST surface answers with.
// Unknown errors deliberately collapse to 500 so internals never leak to clients.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrRecipientNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrInvalidUsername),
		errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrContentTooLong),
		errors.Is(err, ErrInvalidVerdict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Reason converts a domain error into the reason string carried by an
// outbound error frame. Validation and lookup failures are safe to echo back;
// anything else is reported as a generic internal error.
func Reason(err error) string {
	for _, known := range []error{
		ErrInvalidCredentials, ErrInvalidToken, ErrMissingToken,
		ErrInvalidPassword, ErrInvalidUsername, ErrEmptyContent,
		ErrContentTooLong, ErrInvalidVerdict, ErrUserAlreadyExists,
		ErrUserNotFound, ErrMessageNotFound, ErrRecipientNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal error"
}
