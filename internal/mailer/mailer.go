// Package mailer composes messages and dispatches them either to a local
// mail-transfer backend or to the SMTP helper.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shineum/mailsend-lite/internal/address"
	"github.com/shineum/mailsend-lite/internal/attachment"
	"github.com/shineum/mailsend-lite/internal/provider"
	"github.com/shineum/mailsend-lite/internal/smtp"
)

// resultSent is the message reported for every successful send.
const resultSent = "sent"

// Request describes one message to send.
type Request struct {
	// To and From accept "Name <email>" or a bare email.
	To   string
	From string

	Subject string
	Message string // HTML body

	// Attachments are file paths, attached in order.
	Attachments []string

	// UseSMTP routes the message through the SMTP helper instead of the
	// local transport.
	UseSMTP bool
}

// Result is returned for a successful send.
type Result struct {
	Message string
}

// SMTPSender is the delivery path used when Request.UseSMTP is set.
type SMTPSender interface {
	Send(ctx context.Context, req smtp.Request) error
}

// Mailer validates, composes and dispatches messages. It holds no per-send
// state and is safe for concurrent use.
type Mailer struct {
	local    provider.Provider
	smtp     SMTPSender
	boundary func() string
}

// New creates a Mailer. Either transport may be nil; sending through a nil
// transport fails with the transport's error kind.
func New(local provider.Provider, smtpSender SMTPSender) *Mailer {
	return &Mailer{
		local:    local,
		smtp:     smtpSender,
		boundary: newBoundary,
	}
}

// Send validates the request and delivers it. On failure the returned error
// is an *Error whose Kind says which step failed, except for unexpected I/O
// faults which are returned wrapped. Validation always completes before any
// transport is contacted.
func (m *Mailer) Send(ctx context.Context, req Request) (Result, error) {
	to, err := address.Parse(req.To)
	if err != nil {
		return Result{}, newError(KindInvalidRecipient, "invalid recipient", err)
	}

	from, err := address.Parse(req.From)
	if err != nil {
		return Result{}, newError(KindInvalidSender, "invalid sender", err)
	}

	if req.UseSMTP {
		return m.sendSMTP(ctx, to, from, req)
	}
	return m.sendLocal(ctx, to, from, req)
}

func (m *Mailer) sendLocal(ctx context.Context, to, from address.Address, req Request) (Result, error) {
	msg, err := compose(to, from, req, m.boundary)
	if err != nil {
		return Result{}, attachmentError(err)
	}

	if m.local == nil {
		return Result{}, newError(KindSend, "no local transport configured", nil)
	}

	if err := m.local.Send(ctx, msg); err != nil {
		slog.Warn("local transport failed",
			"provider", m.local.Name(),
			"to", to.Email,
			"error", err,
		)
		return Result{}, newError(KindSend, "failed to send message", err)
	}

	slog.Info("message sent",
		"provider", m.local.Name(),
		"to", to.Email,
		"from", from.Email,
		"attachments", len(req.Attachments),
		"multipart", msg.Multipart(),
	)

	return Result{Message: resultSent}, nil
}

func (m *Mailer) sendSMTP(ctx context.Context, to, from address.Address, req Request) (Result, error) {
	if err := attachment.Check(req.Attachments); err != nil {
		return Result{}, attachmentError(err)
	}

	if m.smtp == nil {
		return Result{}, newError(KindSendSMTP, "no smtp helper configured", nil)
	}

	err := m.smtp.Send(ctx, smtp.Request{
		To:          to.String(),
		Sender:      from.Email,
		Subject:     req.Subject,
		Message:     req.Message,
		Attachments: req.Attachments,
	})
	if err != nil {
		switch {
		case errors.Is(err, smtp.ErrSenderNotFound):
			return Result{}, newError(KindUnknownSender, fmt.Sprintf("no smtp credentials for %q", from.Email), err)
		case errors.Is(err, smtp.ErrInvalidArgument):
			return Result{}, newError(KindInvalidArgument, "message cannot be passed to the smtp helper", err)
		}

		slog.Warn("smtp helper failed",
			"to", to.Email,
			"sender", from.Email,
			"error", err,
		)
		return Result{}, newError(KindSendSMTP, "failed to send message via smtp", err)
	}

	slog.Info("message sent",
		"provider", "smtp",
		"to", to.Email,
		"from", from.Email,
		"attachments", len(req.Attachments),
	)

	return Result{Message: resultSent}, nil
}

// attachmentError maps a missing file to KindFileNotFound and passes other
// errors through.
func attachmentError(err error) error {
	var nf *attachment.NotFoundError
	if errors.As(err, &nf) {
		return newError(KindFileNotFound, nf.Error(), nil)
	}
	return err
}
