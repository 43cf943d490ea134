// Package stdout implements a Provider that prints a decoded summary of each
// message instead of delivering it.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/mailsend-lite/internal/email"
	"github.com/shineum/mailsend-lite/internal/parser"
)

const separator = "========================================\n"

// Provider writes human-readable message summaries.
type Provider struct {
	writer io.Writer
	raw    bool
}

// New creates a Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a Provider that writes to w. When raw is true the
// rendered MIME message is printed verbatim instead of a summary.
func NewWithWriter(w io.Writer, raw bool) *Provider {
	return &Provider{writer: w, raw: raw}
}

// Send decodes the composed message and prints its headers, body and
// attachment list.
func (p *Provider) Send(_ context.Context, msg *email.Message) error {
	if p.raw {
		_, err := p.writer.Write(msg.Bytes())
		return err
	}

	decoded, err := parser.Parse(msg.Bytes())
	if err != nil {
		return fmt.Errorf("failed to decode composed message: %w", err)
	}

	var b strings.Builder
	b.WriteString(separator)
	fmt.Fprintf(&b, "From: %s\n", decoded.From)
	fmt.Fprintf(&b, "To: %s\n", decoded.To)
	fmt.Fprintf(&b, "Subject: %s\n", decoded.Subject)
	fmt.Fprintf(&b, "Content-Type: %s\n", decoded.ContentType)
	b.WriteString("Body:\n")

	body := decoded.HTMLBody
	if body == "" {
		body = decoded.TextBody
	}
	b.WriteString(body + "\n")

	if len(decoded.Attachments) > 0 {
		names := make([]string, 0, len(decoded.Attachments))
		for _, att := range decoded.Attachments {
			names = append(names, fmt.Sprintf("%s (%s, %s)", att.FileName, att.MIMEType, formatSize(len(att.Payload))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(names, ", "))
	}
	b.WriteString(separator)

	_, err = io.WriteString(p.writer, b.String())
	return err
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
