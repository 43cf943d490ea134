// Package sendmail implements a Provider that pipes messages to the local
// sendmail binary.
package sendmail

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/shineum/mailsend-lite/internal/email"
)

// DefaultPath is the conventional location of the sendmail binary.
const DefaultPath = "/usr/sbin/sendmail"

// Provider hands messages to the local mail-transfer agent.
type Provider struct {
	path string
	args []string
}

// New creates a Provider that runs the sendmail-compatible binary at path.
// Recipients are taken from the message headers (-t) and a lone dot does
// not end the message (-oi).
func New(path string) *Provider {
	if path == "" {
		path = DefaultPath
	}
	return &Provider{
		path: path,
		args: []string{"-oi", "-t"},
	}
}

// Send writes the rendered message to sendmail's standard input and waits
// for it to exit.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	cmd := exec.CommandContext(ctx, p.path, p.args...)
	cmd.Stdin = bytes.NewReader(msg.Bytes())

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("sendmail failed: %w: %s", err, detail)
		}
		return fmt.Errorf("sendmail failed: %w", err)
	}

	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "sendmail"
}
