package graph

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shineum/mailsend-lite/internal/email"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

func testMessage() *email.Message {
	msg := &email.Message{
		To:        "alice@example.com",
		Recipient: "alice@example.com",
		Subject:   "=?UTF-8?B?SGk=?=",
		Body:      "SGVsbG8=\n",
	}
	msg.Header.Add("From", "shop@example.com")
	msg.Header.Add("Content-Type", `text/html; charset="UTF-8"`)
	msg.Header.Add("Content-Transfer-Encoding", "base64")
	return msg
}

// fakeGraph serves both the token and sendMail endpoints.
type fakeGraph struct {
	server     *httptest.Server
	tokenCalls atomic.Int32
	sendCalls  atomic.Int32
	sendStatus func(call int32, token string) int
	sendBody   string

	mu          sync.Mutex
	lastPayload string
	lastType    string
	lastPath    string
}

func newFakeGraph(t *testing.T) *fakeGraph {
	t.Helper()
	f := &fakeGraph{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		writeToken(w, tokenResponse{AccessToken: "tok-" + strconv.Itoa(int(n)), ExpiresIn: 3600})
	})
	mux.HandleFunc("/v1.0/users/", func(w http.ResponseWriter, r *http.Request) {
		n := f.sendCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lastPayload = string(body)
		f.lastType = r.Header.Get("Content-Type")
		f.lastPath = r.URL.EscapedPath()
		f.mu.Unlock()

		status := http.StatusAccepted
		if f.sendStatus != nil {
			status = f.sendStatus(n, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		}
		w.WriteHeader(status)
		if status != http.StatusAccepted {
			w.Write([]byte(f.sendBody))
		}
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGraph) provider(sender string) *GraphProvider {
	cfg := GraphProviderConfig{ClientID: "cid", ClientSecret: "secret", Sender: sender}
	return newWithEndpoints(cfg, f.server.URL+"/v1.0", f.server.URL+"/token", f.server.Client())
}

func TestName(t *testing.T) {
	t.Parallel()
	if got := New(GraphProviderConfig{}).Name(); got != "msgraph" {
		t.Errorf("Name(): got %q, want %q", got, "msgraph")
	}
}

func TestSend_PostsRawMIME(t *testing.T) {
	t.Parallel()

	f := newFakeGraph(t)
	if err := f.provider("shop@example.com").Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.sendCalls.Load(); got != 1 {
		t.Fatalf("send calls: got %d, want 1", got)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastType != "text/plain" {
		t.Errorf("Content-Type: got %q, want %q", f.lastType, "text/plain")
	}
	if f.lastPath != "/v1.0/users/shop@example.com/sendMail" {
		t.Errorf("path: got %q", f.lastPath)
	}

	raw, err := base64.StdEncoding.DecodeString(f.lastPayload)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if string(raw) != string(testMessage().CRLF()) {
		t.Errorf("decoded payload:\ngot  %q\nwant %q", raw, testMessage().CRLF())
	}
}

func TestSend_RefreshesTokenOnceOn401(t *testing.T) {
	t.Parallel()

	f := newFakeGraph(t)
	f.sendStatus = func(call int32, token string) int {
		if token == "tok-1" {
			return http.StatusUnauthorized
		}
		return http.StatusAccepted
	}

	if err := f.provider("shop@example.com").Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.tokenCalls.Load(); got != 2 {
		t.Errorf("token calls: got %d, want 2", got)
	}
	if got := f.sendCalls.Load(); got != 2 {
		t.Errorf("send calls: got %d, want 2", got)
	}
}

func TestSend_Persistent401(t *testing.T) {
	t.Parallel()

	f := newFakeGraph(t)
	f.sendStatus = func(int32, string) int { return http.StatusUnauthorized }

	err := f.provider("shop@example.com").Send(context.Background(), testMessage())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", statusErr.StatusCode)
	}
	if got := f.sendCalls.Load(); got != 2 {
		t.Errorf("send calls: got %d, want 2", got)
	}
}

func TestSend_NoRetryOnOtherErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "graph error envelope",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":"ErrorInvalidRecipients","message":"bad recipient"}}`,
			wantCode: "ErrorInvalidRecipients",
			wantMsg:  "bad recipient",
		},
		{name: "throttled", status: http.StatusTooManyRequests, body: "slow down", wantMsg: "slow down"},
		{name: "server error", status: http.StatusServiceUnavailable, body: "", wantMsg: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeGraph(t)
			f.sendStatus = func(int32, string) int { return tt.status }
			f.sendBody = tt.body

			err := f.provider("shop@example.com").Send(context.Background(), testMessage())
			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected *StatusError, got %v", err)
			}
			if statusErr.StatusCode != tt.status {
				t.Errorf("status: got %d, want %d", statusErr.StatusCode, tt.status)
			}
			if statusErr.Code != tt.wantCode {
				t.Errorf("code: got %q, want %q", statusErr.Code, tt.wantCode)
			}
			if statusErr.Message != tt.wantMsg {
				t.Errorf("message: got %q, want %q", statusErr.Message, tt.wantMsg)
			}
			if got := f.sendCalls.Load(); got != 1 {
				t.Errorf("send calls: got %d, want 1", got)
			}
		})
	}
}

func TestSend_TokenFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	p := newWithEndpoints(GraphProviderConfig{Sender: "shop@example.com"}, server.URL, server.URL+"/token", server.Client())
	err := p.Send(context.Background(), testMessage())
	if err == nil || !contains(err.Error(), "failed to get access token") {
		t.Errorf("error: got %v, want access token failure", err)
	}
}

func TestStatusError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  *StatusError
		want string
	}{
		{&StatusError{StatusCode: 400, Code: "BadRequest", Message: "nope"}, "Graph API error (HTTP 400, BadRequest): nope"},
		{&StatusError{StatusCode: 503, Message: "down"}, "Graph API error (HTTP 503): down"},
	}
	for _, tt := range tests {
		tt := tt
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error(): got %q, want %q", got, tt.want)
		}
	}
}
