// Package fuelapi is a client for the government fuel-price data
// provider: an OAuth2 client-credentials token endpoint plus paginated
// station and price resources behind bearer auth.
package fuelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mar156-star/fuel-finder-backend/pkg/geo"
)

const (
	DefaultTimeout = 15 * time.Second

	// maxPages is a safety bound against an upstream that never returns
	// an empty page. Hitting it stops pagination without failing the
	// fetch.
	maxPages = 500
)

// Config carries the endpoints and credentials for a provider client.
type Config struct {
	TokenURL     string
	StationsURL  string
	PricesURL    string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
}

// Client fetches station and price datasets from the provider, handling
// token acquisition and pagination.
type Client struct {
	stationsURL string
	pricesURL   string
	httpClient  *http.Client
	tokens      *tokenSource
}

// NewClient creates a provider client. A zero Timeout falls back to
// DefaultTimeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{Timeout: timeout}

	return &Client{
		stationsURL: cfg.StationsURL,
		pricesURL:   cfg.PricesURL,
		httpClient:  hc,
		tokens:      newTokenSource(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Scope, hc),
	}
}

// Token returns a valid bearer token, refreshing it if needed.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx)
}

// Stations fetches the full station dataset across all pages. Records
// with no site ID or out-of-range coordinates are dropped here, so the
// cache only ever holds usable stations.
func (c *Client) Stations(ctx context.Context) ([]Station, error) {
	stations, err := fetchAllPages[Station](ctx, c, c.stationsURL, "stations")
	if err != nil {
		return nil, err
	}

	kept := stations[:0]
	for _, st := range stations {
		coord := geo.Coordinate{Lat: st.Latitude, Lon: st.Longitude}
		if st.SiteID == "" || !coord.Valid() {
			continue
		}
		kept = append(kept, st)
	}
	return kept, nil
}

// Prices fetches the full price snapshot across all pages.
func (c *Client) Prices(ctx context.Context) ([]PriceRecord, error) {
	return fetchAllPages[PriceRecord](ctx, c, c.pricesURL, "prices")
}

// fetchAllPages walks a paginated resource, 1-indexed via the page query
// parameter, accumulating records until an empty page or the page bound.
func fetchAllPages[T any](ctx context.Context, c *Client, resourceURL, resource string) ([]T, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var all []T
	for page := 1; page <= maxPages; page++ {
		records, err := fetchPage[T](ctx, c, resourceURL, resource, token, page)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}
		all = append(all, records...)
	}

	return all, nil
}

func fetchPage[T any](ctx context.Context, c *Client, resourceURL, resource, token string, page int) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request for %s: %w", resource, err)
	}
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &UpstreamTimeoutError{Op: "fetching " + resource, Err: err}
		}
		return nil, fmt.Errorf("error fetching %s page %d: %w", resource, page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading %s page %d: %w", resource, page, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamFetchError{Resource: resource, Status: resp.StatusCode, Body: truncateBody(body)}
	}

	// A page must be a JSON array. null decodes into a nil slice
	// without error, which would look like the empty-page terminator
	// and silently truncate the dataset.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &MalformedUpstreamDataError{Resource: resource, Body: truncateBody(body)}
	}

	var records []T
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &MalformedUpstreamDataError{Resource: resource, Body: truncateBody(body)}
	}

	return records, nil
}

// isTimeout classifies transport errors that should surface as
// retryable timeouts rather than hard upstream failures.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return true
	}
	return os.IsTimeout(err)
}
