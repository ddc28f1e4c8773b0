package mount

import "fmt"

// UnmountError is returned when a mount point could not be released within
// the configured number of attempts.
type UnmountError struct {
	Path     string
	Attempts int
	// Err is the failure of the last attempt.
	Err error
}

func (e *UnmountError) Error() string {
	return fmt.Sprintf("unmount %s: giving up after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *UnmountError) Unwrap() error {
	return e.Err
}
