package services

import (
	"errors"
	"fmt"

	"github.com/desertthunder/ampsync/internal/shared"
)

// Ampache error codes that mean the account or token was rejected.
const (
	codeAccessControl  = 4700
	codeBadHandshake   = 4701
	codeAccessDenied   = 4703
	codeNotFound       = 4704
	codeFailedAccess   = 4742
	codeLegacyUnauthed = 401
	codeLegacyNotFound = 404
)

// APIError is an error payload returned by the server in place of a result.
type APIError struct {
	Code    int
	Action  string
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("ampache error %d (%s): %s", e.Code, e.Action, e.Message)
	}
	return fmt.Sprintf("ampache error %d: %s", e.Code, e.Message)
}

// Unwrap maps the server code onto a shared sentinel so callers can use [errors.Is].
func (e *APIError) Unwrap() error {
	switch e.Code {
	case codeAccessControl, codeBadHandshake, codeAccessDenied, codeFailedAccess, codeLegacyUnauthed:
		return shared.ErrAuthFailed
	case codeNotFound, codeLegacyNotFound:
		return shared.ErrNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// ErrorMessage returns the user facing text for err: the server message for [*APIError],
// a connectivity hint for transport failures, and err.Error() otherwise.
func ErrorMessage(err error) string {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return apiErr.Error()
	case errors.Is(err, shared.ErrServiceUnavailable):
		return "cannot reach the server, check your connection"
	case errors.Is(err, shared.ErrNotAuthenticated):
		return "not logged in"
	default:
		return err.Error()
	}
}
