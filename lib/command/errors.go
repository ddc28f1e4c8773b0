package command

import (
	"fmt"
	"strings"
)

// NotFoundError means the program could not be resolved on the search path.
type NotFoundError struct {
	Name string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command not found: %s", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// FailedError means the program ran and exited unsuccessfully.
type FailedError struct {
	Argv []string
	// ExitCode is -1 when the process was killed by a signal.
	ExitCode int
	Err      error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d", strings.Join(e.Argv, " "), e.ExitCode)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}
