package cmd

import (
	stderrors "errors"

	"github.com/mlisa-ops/drgen/internal/errors"
)

// exitError maps an engine error onto the process exit code via the sentinel
// chain. Errors that already carry a code pass through unchanged.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *errors.ExitError
	if stderrors.As(err, &exitErr) {
		return err
	}
	return &errors.ExitError{Code: errors.CodeFor(err), Err: err}
}
