package mailer

import (
	"errors"
	"fmt"
)

// Kind classifies a failed send. The set is closed.
type Kind string

const (
	// KindInvalidRecipient means the recipient failed address validation.
	KindInvalidRecipient Kind = "error_to"
	// KindInvalidSender means the sender failed address validation.
	KindInvalidSender Kind = "error_from"
	// KindFileNotFound means an attachment path does not exist.
	KindFileNotFound Kind = "file_not_found"
	// KindSend means the local mail-transfer backend rejected the message.
	KindSend Kind = "err_send"
	// KindSendSMTP means the SMTP helper process failed.
	KindSendSMTP Kind = "error_send_smtp"
	// KindUnknownSender means no SMTP credentials exist for the sender.
	KindUnknownSender Kind = "error_unknown_sender"
	// KindInvalidArgument means a value cannot be passed to the SMTP helper.
	KindInvalidArgument Kind = "error_argument"
)

// Error is the error returned by Mailer.Send for every expected failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" if err is nil or not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
