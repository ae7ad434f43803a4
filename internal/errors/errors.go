// Package errors provides sentinel errors and exit handling for the drgen CLI.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for known conditions.
var (
	// ErrNotFound indicates a catalog key, file, or resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a configuration or input validation failure.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates two configured values collide (e.g. IP ranges).
	ErrConflict = errors.New("conflict")

	// ErrUnresolved indicates placeholder tokens survived substitution.
	ErrUnresolved = errors.New("unresolved placeholder")
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitValidationError indicates catalog or input validation failed.
	ExitValidationError = 2

	// ExitConflictError indicates an IP range conflict.
	ExitConflictError = 3

	// ExitNotFound indicates a catalog key, file, or resource was not found.
	ExitNotFound = 4
)

// ExitError carries an exit code together with the underlying error.
// main() unwraps it to decide the process exit status.
type ExitError struct {
	// Code is the process exit code.
	Code int

	// Err is the underlying error.
	Err error

	// Printed is true if the command layer already printed the error.
	Printed bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// CodeFor maps an engine error to its exit code via the sentinel chain.
func CodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrConflict):
		return ExitConflictError
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnresolved):
		return ExitValidationError
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	default:
		return ExitGeneralError
	}
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}
