// Package email defines the core message data model shared by the composer
// and the delivery backends.
package email

import (
	"bytes"
	"strings"
)

// Field is a single header field. Values are stored already encoded.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered list of header fields. Insertion order is the order
// the fields are written on the wire.
type Header []Field

// Add appends a field to the header.
func (h *Header) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

// Get returns the value of the first field with the given name, compared
// case-insensitively, or "" if there is none.
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Message is a composed message ready to hand to a transport.
type Message struct {
	// To is the encoded value of the To header.
	To string

	// Recipient is the bare envelope address of the recipient.
	Recipient string

	// Subject is the encoded subject, empty when the message has none.
	Subject string

	Header Header
	Body   string

	// Boundary is set only for multipart messages.
	Boundary string
}

// Multipart reports whether the message carries attachments.
func (m *Message) Multipart() bool {
	return m.Boundary != ""
}

// Bytes renders the message with LF line endings, the form expected by a
// local sendmail binary.
func (m *Message) Bytes() []byte {
	var buf bytes.Buffer

	buf.WriteString("To: " + m.To + "\n")
	if m.Subject != "" {
		buf.WriteString("Subject: " + m.Subject + "\n")
	}
	buf.WriteString("MIME-Version: 1.0\n")
	for _, f := range m.Header {
		buf.WriteString(f.Name + ": " + f.Value + "\n")
	}
	buf.WriteString("\n")
	buf.WriteString(m.Body)

	return buf.Bytes()
}

// CRLF renders the message with CRLF line endings for network transports.
func (m *Message) CRLF() []byte {
	return bytes.ReplaceAll(m.Bytes(), []byte("\n"), []byte("\r\n"))
}

// Attachment is a file loaded from disk for inclusion in a message.
type Attachment struct {
	Path     string
	FileName string
	MIMEType string
	Payload  []byte
}
