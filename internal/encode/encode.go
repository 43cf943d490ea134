// Package encode provides the MIME encodings used when composing a message:
// RFC 2047 encoded words for headers and line-wrapped base64 for bodies and
// attachment payloads.
package encode

import (
	"encoding/base64"
	"strings"

	"github.com/shineum/mailsend-lite/internal/address"
)

// LineWidth is the maximum encoded line length per RFC 2045.
const LineWidth = 76

// Word returns s as a UTF-8 base64 encoded word.
func Word(s string) string {
	return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(s)) + "?="
}

// Subject encodes a subject line. An empty subject stays empty so that no
// Subject header is emitted.
func Subject(s string) string {
	if s == "" {
		return ""
	}
	return Word(s)
}

// Body base64-encodes a message body. See Payload.
func Body(s string) string {
	return Payload([]byte(s))
}

// Payload base64-encodes b and breaks the output every LineWidth characters.
// Every line, including the last, ends with "\n". Empty input encodes to "".
func Payload(b []byte) string {
	encoded := base64.StdEncoding.EncodeToString(b)

	var sb strings.Builder
	sb.Grow(len(encoded) + len(encoded)/LineWidth + 1)
	for i := 0; i < len(encoded); i += LineWidth {
		end := i + LineWidth
		if end > len(encoded) {
			end = len(encoded)
		}
		sb.WriteString(encoded[i:end])
		sb.WriteByte('\n')
	}

	return sb.String()
}

// Address renders a for a From or To header. A display name is emitted as an
// encoded word so that non-ASCII names survive transport.
func Address(a address.Address) string {
	if a.Name == "" {
		return a.Email
	}
	return Word(a.Name) + " <" + a.Email + ">"
}

// Wrap breaks every line of s that is longer than width at the last space
// that keeps the line within width. The space is kept at the start of the
// continuation line, which makes the break a valid header fold. Lines with no
// such space are left as they are.
func Wrap(s string, width int) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		for len(line) > width {
			cut := strings.LastIndexByte(line[:width+1], ' ')
			if cut <= 0 {
				break
			}
			out = append(out, line[:cut])
			line = line[cut:]
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}
