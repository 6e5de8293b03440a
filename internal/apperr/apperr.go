// Package apperr defines the error kinds shared across services and
// mapped to HTTP statuses at the boundary.
package apperr

import "errors"

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidDomain      = errors.New("invalid email domain")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStudentNotFound    = errors.New("student not found")
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrDuplicate          = errors.New("record already exists")
)
