package mailer

import (
	"strings"

	"github.com/google/uuid"

	"github.com/shineum/mailsend-lite/internal/address"
	"github.com/shineum/mailsend-lite/internal/attachment"
	"github.com/shineum/mailsend-lite/internal/email"
	"github.com/shineum/mailsend-lite/internal/encode"
)

const (
	htmlContentType = `text/html; charset="UTF-8"`
	transferBase64  = "base64"
)

// newBoundary returns a fresh multipart boundary. The "=_" prefix cannot
// occur in base64 text, so the token never collides with an encoded part.
func newBoundary() string {
	return "=_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// compose builds the message for the local transport from already validated
// addresses. It reads attachment files, so it may fail with a
// *attachment.NotFoundError or an I/O error.
func compose(to, from address.Address, req Request, boundary func() string) (*email.Message, error) {
	msg := &email.Message{
		To:        encode.Address(to),
		Recipient: to.Email,
		Subject:   encode.Subject(req.Subject),
	}
	body := encode.Body(req.Message)

	msg.Header.Add("From", encode.Address(from))

	if len(req.Attachments) == 0 {
		msg.Header.Add("Content-Type", htmlContentType)
		msg.Header.Add("Content-Transfer-Encoding", transferBase64)
		msg.Body = body
		return msg, nil
	}

	b := boundary()
	block, err := attachment.Bundle(req.Attachments, b)
	if err != nil {
		return nil, err
	}

	msg.Boundary = b
	msg.Header.Add("Content-Type", `multipart/mixed; boundary="`+b+`"`)

	var sb strings.Builder
	sb.WriteString("--" + b + "\n")
	sb.WriteString("Content-Type: " + htmlContentType + "\n")
	sb.WriteString("Content-Transfer-Encoding: " + transferBase64 + "\n\n")
	sb.WriteString(body)
	sb.WriteString("--" + b + "\n")
	sb.WriteString(block)
	msg.Body = sb.String()

	return msg, nil
}
