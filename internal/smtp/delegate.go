// Package smtp delegates delivery to an external helper program that speaks
// SMTP on our behalf, using per-sender credentials.
package smtp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// fileSeparator joins attachment paths into the helper's -files argument.
const fileSeparator = "|"

// ErrInvalidArgument is returned when a value cannot be passed to the helper
// without changing its meaning.
var ErrInvalidArgument = errors.New("invalid helper argument")

// Request carries the caller's original values. The helper derives its own
// MIME encoding from them.
type Request struct {
	To          string
	Sender      string // credential lookup key
	Subject     string
	Message     string
	Attachments []string
}

// Delegate sends messages by running the SMTP helper.
type Delegate struct {
	helperPath string
	creds      CredentialSource
	runner     Runner
}

// New creates a Delegate that runs the helper at helperPath as a child process.
func New(helperPath string, creds CredentialSource) *Delegate {
	return NewWithRunner(helperPath, creds, ExecRunner{})
}

// NewWithRunner creates a Delegate with a custom Runner, used for testing.
func NewWithRunner(helperPath string, creds CredentialSource, runner Runner) *Delegate {
	return &Delegate{
		helperPath: helperPath,
		creds:      creds,
		runner:     runner,
	}
}

// Send looks up the sender's credentials and runs the helper. It blocks until
// the helper exits. A missing sender yields an error wrapping
// ErrSenderNotFound; a failed helper run yields a *HelperError.
func (d *Delegate) Send(ctx context.Context, req Request) error {
	creds, err := d.creds.Lookup(req.Sender)
	if err != nil {
		return fmt.Errorf("failed to look up smtp credentials: %w", err)
	}

	args, err := buildArgs(req, creds)
	if err != nil {
		return err
	}

	slog.Debug("running smtp helper",
		"helper", d.helperPath,
		"to", req.To,
		"sender", creds.Email,
		"host", creds.Host,
		"port", creds.Port,
		"attachments", len(req.Attachments),
	)

	if err := d.runner.Run(ctx, d.helperPath, args...); err != nil {
		var helperErr *HelperError
		if errors.As(err, &helperErr) && helperErr.Stderr != "" {
			slog.Debug("smtp helper stderr", "stderr", helperErr.Stderr)
		}
		return err
	}

	return nil
}

// buildArgs renders the helper's argument vector as flag/value pairs.
func buildArgs(req Request, c Credentials) ([]string, error) {
	for _, path := range req.Attachments {
		if strings.Contains(path, fileSeparator) {
			return nil, fmt.Errorf("%w: attachment path %q contains %q", ErrInvalidArgument, path, fileSeparator)
		}
	}

	args := []string{
		"-to", req.To,
		"-fname", c.Name,
		"-femail", c.Email,
		"-subject", req.Subject,
		"-msg", req.Message,
		"-files", strings.Join(req.Attachments, fileSeparator),
		"-pass", c.Password,
		"-host", c.Host,
		"-port", strconv.Itoa(c.Port),
	}

	for i := 1; i < len(args); i += 2 {
		if strings.ContainsRune(args[i], 0) {
			return nil, fmt.Errorf("%w: %s contains a NUL byte", ErrInvalidArgument, strings.TrimPrefix(args[i-1], "-"))
		}
	}

	return args, nil
}
