// Package attachment loads files from disk and renders them as MIME parts
// of a multipart/mixed message.
package attachment

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/shineum/mailsend-lite/internal/email"
	"github.com/shineum/mailsend-lite/internal/encode"
)

// defaultMIMEType is used when neither content nor extension say more.
const defaultMIMEType = "application/octet-stream"

// NotFoundError reports an attachment path that does not resolve to a file.
type NotFoundError struct {
	// Name is the base name of the missing file.
	Name string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file %q not found", e.Name)
}

// Check verifies that every path exists, in order, and reports the first
// missing one.
func Check(paths []string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &NotFoundError{Name: filepath.Base(path), Path: path}
			}
			return fmt.Errorf("failed to stat attachment %q: %w", path, err)
		}
	}
	return nil
}

// Load reads the file at path and detects its MIME type from the content.
func Load(path string) (email.Attachment, error) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return email.Attachment{}, &NotFoundError{Name: name, Path: path}
		}
		return email.Attachment{}, fmt.Errorf("failed to read attachment %q: %w", path, err)
	}

	return email.Attachment{
		Path:     path,
		FileName: name,
		MIMEType: DetectMIMEType(name, data),
		Payload:  data,
	}, nil
}

// DetectMIMEType sniffs the media type of data. When the content alone is
// inconclusive the file extension of name is consulted.
func DetectMIMEType(name string, data []byte) string {
	detected := mimetype.Detect(data)
	mediaType, _, _ := strings.Cut(detected.String(), ";")

	if mediaType == defaultMIMEType || mediaType == "text/plain" {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			byExt, _, _ = strings.Cut(byExt, ";")
			return byExt
		}
	}

	return mediaType
}

// Part renders a single attachment part without its trailing delimiter.
func Part(att email.Attachment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Content-Type: %s; name=\"%s\"\n", att.MIMEType, att.FileName)
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=\"%s\"\n", att.FileName)
	b.WriteString("Content-Transfer-Encoding: base64\n\n")
	b.WriteString(encode.Payload(att.Payload))

	return b.String()
}

// Bundle loads every path in order and renders the attachment block of a
// multipart message. Each part is followed by the boundary delimiter; the
// last part gets the closing delimiter. The first missing file aborts the
// whole bundle with a *NotFoundError and no block is returned.
func Bundle(paths []string, boundary string) (string, error) {
	var block strings.Builder

	for i, path := range paths {
		att, err := Load(path)
		if err != nil {
			return "", err
		}

		part := Part(att)
		if i == len(paths)-1 {
			part += "--" + boundary + "--\n"
		} else {
			part += "--" + boundary + "\n"
		}

		block.WriteString(encode.Wrap(part, encode.LineWidth))
	}

	return block.String(), nil
}
