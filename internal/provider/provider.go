// Package provider defines the interface for local mail-transfer backends.
package provider

import (
	"context"

	"github.com/shineum/mailsend-lite/internal/email"
)

// Provider hands a composed message to a mail-transfer backend
// (e.g., a sendmail binary, AWS SES, Microsoft Graph, stdout).
type Provider interface {
	// Send delivers a composed message. It returns an error if the backend
	// did not accept the message.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}
