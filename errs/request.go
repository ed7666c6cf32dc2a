package errs

import (
	"errors"
	"net/http"
)

// Authentication & Authorization Errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInsufficientRole = errors.New("insufficient role")
	ErrCSRFFailed       = errors.New("CSRF verification failed")
)

// NewNotAuthenticatedError is a write attempted without a session. Session
// auth answers it with 403, not 401.
func NewNotAuthenticatedError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		err:        ErrNotAuthenticated,
		Details:    "Authentication credentials were not provided.",
		Field:      "authorization",
	}
}

func NewInsufficientRoleError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		err:        ErrInsufficientRole,
		Details:    "You do not have permission to perform this action.",
		Field:      "authorization",
	}
}

func NewCSRFError(reason string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		err:        ErrCSRFFailed,
		Details:    reason,
		Field:      "csrf",
	}
}

func IsNotAuthenticatedError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

func IsInsufficientRoleError(err error) bool {
	return errors.Is(err, ErrInsufficientRole)
}

func IsCSRFError(err error) bool {
	return errors.Is(err, ErrCSRFFailed)
}
