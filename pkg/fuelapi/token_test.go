package fuelapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, calls *atomic.Int32, expiresIn int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		require.Equal(t, "id", r.Form.Get("client_id"))
		require.Equal(t, "secret", r.Form.Get("client_secret"))

		err := json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"expires_in":   expiresIn,
		})
		require.NoError(t, err)
	}))
}

func TestTokenCachedWithinMargin(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, &calls, 3600)
	defer srv.Close()

	ts := newTokenSource(srv.URL, "id", "secret", "", srv.Client())

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)
	require.EqualValues(t, 1, calls.Load())

	// Second call inside the safety margin makes no network call.
	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)
	require.EqualValues(t, 1, calls.Load())
}

func TestTokenRefreshAfterExpiry(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, &calls, 3600)
	defer srv.Close()

	ts := newTokenSource(srv.URL, "id", "secret", "", srv.Client())

	now := time.Now()
	ts.now = func() time.Time { return now }

	_, err := ts.Token(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load())

	// Advance the clock past expiry minus margin.
	ts.now = func() time.Time { return now.Add(2 * time.Hour) }

	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
}

func TestTokenMinTTL(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, &calls, 1)
	defer srv.Close()

	ts := newTokenSource(srv.URL, "id", "secret", "", srv.Client())

	now := time.Now()
	ts.now = func() time.Time { return now }

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	// expires_in of 1s is clamped to the minimum TTL, so the token is
	// still valid a few seconds later.
	ts.now = func() time.Time { return now.Add(10 * time.Second) }
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load())
}

func TestTokenConcurrentRefreshSerialized(t *testing.T) {
	var calls atomic.Int32
	srv := newTokenServer(t, &calls, 3600)
	defer srv.Close()

	ts := newTokenSource(srv.URL, "id", "secret", "", srv.Client())

	const workers = 10
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ts.Token(context.Background())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		require.NoError(t, err)
	}

	require.EqualValues(t, 1, calls.Load(), "concurrent callers must coalesce into one exchange")
}

func TestTokenNoCredentials(t *testing.T) {
	ts := newTokenSource("http://unused", "", "", "", http.DefaultClient)

	_, err := ts.Token(context.Background())
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestTokenUpstreamAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_client", http.StatusUnauthorized)
	}))
	defer srv.Close()

	ts := newTokenSource(srv.URL, "id", "bad", "", srv.Client())

	_, err := ts.Token(context.Background())
	var authErr *UpstreamAuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.Status)
	require.Contains(t, authErr.Body, "invalid_client")
}

func TestTokenMissingAccessTokenField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"expires_in": 3600}`))
	}))
	defer srv.Close()

	ts := newTokenSource(srv.URL, "id", "secret", "", srv.Client())

	_, err := ts.Token(context.Background())
	var authErr *UpstreamAuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusOK, authErr.Status)
}

func TestTokenScopeSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "prices.read", r.Form.Get("scope"))
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer srv.Close()

	ts := newTokenSource(srv.URL, "id", "secret", "prices.read", srv.Client())

	_, err := ts.Token(context.Background())
	require.NoError(t, err)
}
