package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shineum/mailsend-lite/internal/email"
)

// GraphProviderConfig holds the configuration for creating a GraphProvider.
type GraphProviderConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// Sender is the mailbox the message is sent from.
	Sender string
}

// GraphProvider sends raw MIME messages via the Microsoft Graph API using
// OAuth2 client credentials.
type GraphProvider struct {
	sendURL    string
	httpClient *http.Client
	tokens     *tokenSource
}

// New creates a new GraphProvider with the given configuration.
func New(cfg GraphProviderConfig) *GraphProvider {
	client := &http.Client{Timeout: 30 * time.Second}
	return newWithEndpoints(
		cfg,
		"https://graph.microsoft.com/v1.0",
		fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(cfg.TenantID)),
		client,
	)
}

func newWithEndpoints(cfg GraphProviderConfig, graphBase, tokenURL string, client *http.Client) *GraphProvider {
	return &GraphProvider{
		sendURL:    strings.TrimRight(graphBase, "/") + "/users/" + url.PathEscape(cfg.Sender) + "/sendMail",
		httpClient: client,
		tokens:     newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// Send posts the base64-encoded MIME message to sendMail. A 401 triggers
// one token refresh and a second attempt; any other failure is returned.
func (g *GraphProvider) Send(ctx context.Context, msg *email.Message) error {
	payload := base64.StdEncoding.EncodeToString(msg.CRLF())

	token, err := g.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	err = g.post(ctx, token, payload)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		slog.Info("refreshing Graph API token after 401")
		token, err = g.tokens.Invalidate(ctx)
		if err != nil {
			return fmt.Errorf("token refresh failed: %w", err)
		}
		err = g.post(ctx, token, payload)
	}
	if err != nil {
		return err
	}

	slog.Debug("Graph accepted message", "to", msg.Recipient)
	return nil
}

// Name returns the provider name.
func (g *GraphProvider) Name() string {
	return "msgraph"
}

func (g *GraphProvider) post(ctx context.Context, token, payload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.sendURL, strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}

	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error.Message != "" {
		statusErr.Code = er.Error.Code
		statusErr.Message = er.Error.Message
	}
	return statusErr
}
