// Package gmail implements a Provider that submits composed MIME messages
// through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/shineum/mailsend-lite/internal/email"
)

// Config holds the configuration for creating a Provider.
type Config struct {
	// CredentialsJSON is a service account key with domain-wide delegation.
	CredentialsJSON []byte
	// Sender is the mailbox impersonated for sending.
	Sender string
}

// Provider sends raw messages with users.messages.send.
type Provider struct {
	service *gmailapi.Service
}

// New creates a Provider that authenticates as cfg.Sender using the service
// account in cfg.CredentialsJSON.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if len(cfg.CredentialsJSON) == 0 {
		return nil, errors.New("gmail: credentials JSON is required")
	}
	if cfg.Sender == "" {
		return nil, errors.New("gmail: sender address is required")
	}

	jwtConfig, err := google.JWTConfigFromJSON(cfg.CredentialsJSON, gmailapi.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to parse credentials: %w", err)
	}
	jwtConfig.Subject = cfg.Sender

	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create service: %w", err)
	}

	return &Provider{service: svc}, nil
}

// NewWithService creates a Provider around an existing service, used for
// testing.
func NewWithService(svc *gmailapi.Service) *Provider {
	return &Provider{service: svc}
}

// Send uploads the CRLF-rendered message. Gmail takes recipients and sender
// from the message headers.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	raw := &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString(msg.CRLF()),
	}

	sent, err := p.service.Users.Messages.Send("me", raw).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail: failed to send email: %w", err)
	}

	slog.Debug("Gmail accepted message", "message_id", sent.Id, "to", msg.Recipient)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "gmail"
}
