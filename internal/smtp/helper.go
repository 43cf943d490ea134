package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes the SMTP helper and reports how it exited.
type Runner interface {
	// Run executes name with args and returns nil when it exits with status
	// zero. Any other outcome is reported as a *HelperError.
	Run(ctx context.Context, name string, args ...string) error
}

// HelperError describes a helper run that did not succeed.
type HelperError struct {
	// ExitCode is -1 when the helper could not be started.
	ExitCode int
	Stderr   string
	Err      error
}

func (e *HelperError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("smtp helper failed to run: %v", e.Err)
	}
	return fmt.Sprintf("smtp helper exited with status %d", e.ExitCode)
}

func (e *HelperError) Unwrap() error {
	return e.Err
}

// ExecRunner runs the helper as a child process. Arguments are passed as an
// argument vector and never through a shell.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &HelperError{
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	return &HelperError{ExitCode: -1, Err: err}
}
