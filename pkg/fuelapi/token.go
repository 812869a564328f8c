package fuelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// tokenMargin is subtracted from the server-reported expiry so a
	// token is refreshed before it actually lapses mid-request.
	tokenMargin = 45 * time.Second

	// tokenMinTTL guards against a provider reporting absurdly short
	// expiries.
	tokenMinTTL = 60 * time.Second
)

// tokenResponse is the provider's client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// tokenSource obtains and caches a bearer token for the provider API.
// The mutex is held across the exchange so concurrent callers observe at
// most one in-flight refresh; late arrivals get the freshly cached token.
type tokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time

	// now is a clock function, overridable in tests.
	now func() time.Time
}

func newTokenSource(tokenURL, clientID, clientSecret, scope string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		httpClient:   httpClient,
		now:          time.Now,
	}
}

// Token returns a bearer token valid for at least tokenMargin, refreshing
// it via the client-credentials grant when needed.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	if ts.clientID == "" || ts.clientSecret == "" {
		return "", ErrNoCredentials
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiry) {
		return ts.token, nil
	}

	tok, expiresIn, err := ts.exchange(ctx)
	if err != nil {
		return "", err
	}

	ttl := time.Duration(expiresIn) * time.Second
	if ttl < tokenMinTTL {
		ttl = tokenMinTTL
	}
	ts.token = tok
	ts.expiry = ts.now().Add(ttl - tokenMargin)

	return ts.token, nil
}

func (ts *tokenSource) exchange(ctx context.Context) (token string, expiresIn int64, err error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {ts.clientID},
		"client_secret": {ts.clientSecret},
	}
	if ts.scope != "" {
		form.Set("scope", ts.scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("error creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", 0, &UpstreamTimeoutError{Op: "token exchange", Err: err}
		}
		return "", 0, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("error reading token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, &UpstreamAuthError{Status: resp.StatusCode, Body: truncateBody(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", 0, &UpstreamAuthError{Status: resp.StatusCode, Body: truncateBody(body)}
	}

	return tr.AccessToken, tr.ExpiresIn, nil
}
