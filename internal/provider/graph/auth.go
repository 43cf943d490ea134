package graph

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenExpiryBuffer is subtracted from the advertised lifetime so a token
// never expires mid-request.
const tokenExpiryBuffer = 5 * time.Minute

const defaultScope = "https://graph.microsoft.com/.default"

// tokenSource hands out OAuth2 client-credentials tokens and caches them
// until shortly before they expire. Safe for concurrent use.
type tokenSource struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	cfg    *clientcredentials.Config
	client *http.Client
	now    func() time.Time
}

func newTokenSource(endpoint, clientID, clientSecret string, client *http.Client) *tokenSource {
	return &tokenSource{
		cfg: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     endpoint,
			Scopes:       []string{defaultScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: client,
		now:    time.Now,
	}
}

// Token returns the cached token or fetches a new one.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiresAt) {
		return ts.token, nil
	}
	return ts.fetch(ctx)
}

// Invalidate drops the cached token and fetches a fresh one.
func (ts *tokenSource) Invalidate(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.token = ""
	ts.expiresAt = time.Time{}
	return ts.fetch(ctx)
}

// fetch must be called with ts.mu held.
func (ts *tokenSource) fetch(ctx context.Context) (string, error) {
	tok, err := ts.cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, ts.client))
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}

	ts.token = tok.AccessToken
	if tok.Expiry.IsZero() {
		// No expires_in: reuse until Graph answers 401.
		ts.expiresAt = ts.now().Add(time.Hour)
	} else {
		ts.expiresAt = tok.Expiry.Add(-tokenExpiryBuffer)
	}
	return ts.token, nil
}
