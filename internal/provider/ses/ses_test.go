package ses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/shineum/mailsend-lite/internal/email"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func testMessage() *email.Message {
	msg := &email.Message{
		To:        "=?UTF-8?B?QWxpY2U=?= <alice@example.com>",
		Recipient: "alice@example.com",
		Subject:   "=?UTF-8?B?SGk=?=",
		Boundary:  "=_b",
		Body:      "--=_b\nContent-Type: text/html; charset=\"UTF-8\"\nContent-Transfer-Encoding: base64\n\nSGVsbG8=\n--=_b\n",
	}
	msg.Header.Add("From", "shop@example.com")
	msg.Header.Add("Content-Type", `multipart/mixed; boundary="=_b"`)
	return msg
}

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient(&mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestSend_RawMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient(mock)

	if err := p.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if input.Content.Raw == nil {
		t.Fatal("expected raw email content, got nil")
	}
	if input.Content.Simple != nil {
		t.Error("expected no simple content when using raw message")
	}
	if got := input.Destination.ToAddresses; len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("ToAddresses: got %v, want [alice@example.com]", got)
	}
	if input.FromEmailAddress != nil {
		t.Errorf("FromEmailAddress: got %q, want nil", *input.FromEmailAddress)
	}
	if input.ConfigurationSetName != nil {
		t.Errorf("ConfigurationSetName: got %q, want nil", *input.ConfigurationSetName)
	}

	raw := string(input.Content.Raw.Data)
	if !strings.HasPrefix(raw, "To: =?UTF-8?B?QWxpY2U=?= <alice@example.com>\r\n") {
		t.Errorf("raw message should start with To header, got %q", raw[:40])
	}
	if !strings.Contains(raw, "From: shop@example.com\r\n") {
		t.Error("raw message missing From header")
	}
	if !strings.Contains(raw, "Content-Type: multipart/mixed; boundary=\"=_b\"\r\n") {
		t.Error("raw message missing multipart content type")
	}
	if strings.Contains(strings.ReplaceAll(raw, "\r\n", ""), "\n") {
		t.Error("raw message contains bare LF line endings")
	}
}

func TestSend_ConfigurationSet(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := &SESProvider{configurationSet: "transactional", client: mock}

	if err := p.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(mock.lastInput.ConfigurationSetName); got != "transactional" {
		t.Errorf("ConfigurationSetName: got %q, want %q", got, "transactional")
	}
}

func TestSend_ErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	apiErr := errors.New("MessageRejected: Email address is not verified")
	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, apiErr
		},
	}
	p := NewWithClient(mock)

	err := p.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, apiErr) {
		t.Errorf("error should wrap API error, got %v", err)
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
}
