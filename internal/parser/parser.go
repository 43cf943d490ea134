// Package parser decodes rendered RFC 5322 messages back into their parts.
// It is used to inspect composed messages (dry runs and tests).
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/shineum/mailsend-lite/internal/email"
)

// wordDecoder decodes RFC 2047 encoded words in header values.
var wordDecoder = new(mime.WordDecoder)

// Decoded is a rendered message with its encodings removed.
type Decoded struct {
	From        string
	To          string
	Subject     string
	ContentType string
	Boundary    string
	TextBody    string
	HTMLBody    string
	Attachments []email.Attachment
}

// Parse decodes a rendered message. Encoded words in From, To and Subject are
// decoded, base64 parts are decoded, and multipart bodies are walked
// recursively. Unrecognized MIME parts are logged and skipped.
func Parse(raw []byte) (*Decoded, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &Decoded{
		From:    decodeHeader(msg.Header.Get("From")),
		To:      decodeHeader(msg.Header.Get("To")),
		Subject: decodeHeader(msg.Header.Get("Subject")),
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content type %q: %w", contentType, err)
	}
	result.ContentType = mediaType

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		result.Boundary = boundary
		if err := parseMultipart(msg.Body, boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return result, nil
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	content, err := decodeTransfer(msg.Header.Get("Content-Transfer-Encoding"), body)
	if err != nil {
		return nil, err
	}
	setBody(result, mediaType, content)

	return result, nil
}

// parseMultipart walks a multipart body, collecting text parts and
// attachments in order.
func parseMultipart(body io.Reader, boundary string, result *Decoded) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			if err := parseMultipart(part, params["boundary"], result); err != nil {
				return err
			}
			continue
		}

		raw, err := io.ReadAll(part)
		if err != nil {
			return fmt.Errorf("failed to read part: %w", err)
		}
		content, err := decodeTransfer(part.Header.Get("Content-Transfer-Encoding"), raw)
		if err != nil {
			return err
		}

		if filename := extractFilename(part, params); filename != "" {
			result.Attachments = append(result.Attachments, email.Attachment{
				FileName: filename,
				MIMEType: mediaType,
				Payload:  content,
			})
			continue
		}

		setBody(result, mediaType, content)
	}
}

func setBody(result *Decoded, mediaType string, content []byte) {
	switch mediaType {
	case "text/html":
		if result.HTMLBody == "" {
			result.HTMLBody = string(content)
		}
	case "text/plain":
		if result.TextBody == "" {
			result.TextBody = string(content)
		}
	default:
		slog.Warn("unrecognized MIME part, skipping", "content_type", mediaType)
	}
}

// decodeTransfer removes a base64 transfer encoding. Other encodings are
// returned as-is; multipart.Reader already handles quoted-printable.
func decodeTransfer(encoding string, raw []byte) ([]byte, error) {
	if !strings.EqualFold(strings.TrimSpace(encoding), "base64") {
		return raw, nil
	}

	cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 content: %w", err)
	}
	return decoded, nil
}

// extractFilename returns the attachment filename from Content-Disposition
// or the Content-Type name parameter, or "" for inline parts.
func extractFilename(part *multipart.Part, params map[string]string) string {
	if !strings.HasPrefix(part.Header.Get("Content-Disposition"), "attachment") {
		return params["name"]
	}
	if fn := part.FileName(); fn != "" {
		return fn
	}
	return params["name"]
}

func decodeHeader(v string) string {
	decoded, err := wordDecoder.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}
