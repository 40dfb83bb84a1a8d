package errclass

import "fmt"

// Error is a stable, machine-readable error class.
// Classes are compared by Code via errors.Is, so callers can branch on the
// kind of failure without parsing messages.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithMessage returns a new Error with the same Code but a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// The full set of error classes surfaced by the edit pipeline.
//
// Conflict and Expired are the only classes expected under normal correct
// usage (a legitimate race); callers recover by re-reading and re-staging.
// Range and BadConfirmation indicate caller logic errors. Fatal means the
// underlying store is unavailable and is never retried.
var (
	ErrNotFound        = &Error{Code: "E_NOT_FOUND"}
	ErrConflict        = &Error{Code: "E_CONFLICT"}
	ErrExpired         = &Error{Code: "E_EXPIRED"}
	ErrRange           = &Error{Code: "E_RANGE"}
	ErrBadConfirmation = &Error{Code: "E_BAD_CONFIRMATION"}
	ErrFatal           = &Error{Code: "E_FATAL"}
)
