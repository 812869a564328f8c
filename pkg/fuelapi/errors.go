package fuelapi

import (
	"errors"
	"fmt"
)

// ErrNoCredentials means the provider client ID or secret is unset.
// Configuration validation at startup should make this unreachable.
var ErrNoCredentials = errors.New("fuelapi: client credentials not configured")

// maxErrBody caps how much of an upstream response body is kept for
// diagnostics. Bodies are truncated, never logged whole.
const maxErrBody = 512

// UpstreamAuthError reports a failed token exchange with the provider.
type UpstreamAuthError struct {
	Status int
	Body   string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("token exchange failed: status %d: %s", e.Status, e.Body)
}

// UpstreamFetchError reports a non-success response from a paginated
// resource endpoint.
type UpstreamFetchError struct {
	Resource string
	Status   int
	Body     string
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("fetching %s failed: status %d: %s", e.Resource, e.Status, e.Body)
}

// UpstreamTimeoutError reports an upstream call that exceeded its deadline.
// Callers may retry; the other upstream errors are hard failures.
type UpstreamTimeoutError struct {
	Op  string
	Err error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *UpstreamTimeoutError) Unwrap() error { return e.Err }

// MalformedUpstreamDataError reports a page body that is not the JSON
// array the provider contract promises.
type MalformedUpstreamDataError struct {
	Resource string
	Body     string
}

func (e *MalformedUpstreamDataError) Error() string {
	return fmt.Sprintf("malformed page from %s: %s", e.Resource, e.Body)
}

func truncateBody(b []byte) string {
	if len(b) > maxErrBody {
		return string(b[:maxErrBody]) + "..."
	}
	return string(b)
}
