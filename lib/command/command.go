// Package command runs the external tools a build depends on.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/onkernel/debian-builder/lib/logger"
)

// Runner executes a program and waits for it.
type Runner interface {
	// Run resolves argv[0] on the search path and runs it to completion.
	Run(ctx context.Context, argv ...string) error
}

// ExecRunner runs programs as child processes of the builder.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner returns a runner streaming child output to the process's
// stdout and stderr.
func NewRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts argv and waits for it to exit. The child is not tied to ctx:
// once started, a tool like mkfs or umount is always allowed to finish.
func (r *ExecRunner) Run(ctx context.Context, argv ...string) error {
	log := logger.FromContext(ctx)

	if len(argv) == 0 {
		return errors.New("run: empty command")
	}

	path, err := lookPath(argv[0])
	if err != nil {
		return err
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	log.DebugContext(ctx, "running command", "argv", argv, "path", path)
	start := time.Now()

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.DebugContext(ctx, "command failed", "argv", argv, "exit_code", exitErr.ExitCode(), "duration", time.Since(start))
			return &FailedError{Argv: argv, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return fmt.Errorf("run %s: %w", argv[0], err)
	}

	log.DebugContext(ctx, "command finished", "argv", argv, "duration", time.Since(start))
	return nil
}

// lookPath resolves name on PATH only. Names with a separator are checked
// as given; a bare name found through a relative PATH entry is rejected.
func lookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &NotFoundError{Name: name, Err: err}
	}
	return path, nil
}
