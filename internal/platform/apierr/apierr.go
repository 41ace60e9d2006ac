// Package apierr carries HTTP-mapped dispatch errors. The webhook surface
// uses three statuses: 400 for payload validation and unsupported
// (source, action) pairs, 401 for a bearer mismatch on the generic route,
// and 500 for side effects that are not locally recoverable (identity
// deletion, demo ticket seeding).
package apierr

import "fmt"

// Error pairs the HTTP status with a stable machine-readable code; the
// wrapped error keeps the human-readable cause for the response body.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
