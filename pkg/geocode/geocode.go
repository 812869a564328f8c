// Package geocode resolves postcodes and free-text place names to
// coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"

	"github.com/mar156-star/fuel-finder-backend/pkg/geo"
)

const (
	DefaultBaseURL  = "https://api.postcodes.io"
	DefaultTimeout  = 10 * time.Second
	nominatimServer = "https://nominatim.openstreetmap.org/"

	// Postcode coordinates do not move; cache them for a day.
	cacheTTL     = 24 * time.Hour
	cacheCleanup = 48 * time.Hour
)

// InvalidLocationError means the geocoding service could not resolve the
// given location.
type InvalidLocationError struct {
	Location string
	Reason   string
}

func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("could not resolve location %q: %s", e.Location, e.Reason)
}

// postcodeResponse is the lookup service's envelope. The service reports
// its own status code in the body alongside the HTTP status.
type postcodeResponse struct {
	Status int `json:"status"`
	Result *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"result"`
}

// Resolver resolves locations to coordinates, caching results in memory.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewResolver creates a Resolver against the given postcode lookup
// service. An empty baseURL falls back to DefaultBaseURL.
func NewResolver(baseURL string, timeout time.Duration) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(cacheTTL, cacheCleanup),
	}
}

// Postcode resolves a postal code to a coordinate pair.
func (r *Resolver) Postcode(ctx context.Context, postcode string) (geo.Coordinate, error) {
	code := strings.TrimSpace(postcode)
	if code == "" {
		return geo.Coordinate{}, &InvalidLocationError{Location: postcode, Reason: "empty postcode"}
	}

	key := "postcode:" + strings.ToUpper(code)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(geo.Coordinate), nil
	}

	lookupURL := r.baseURL + "/postcodes/" + url.PathEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, http.NoBody)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("error creating geocode request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocoding error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("error reading geocode response: %w", err)
	}

	var pr postcodeResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return geo.Coordinate{}, &InvalidLocationError{Location: code, Reason: "unexpected response from lookup service"}
	}
	if resp.StatusCode != http.StatusOK || pr.Status != http.StatusOK || pr.Result == nil {
		return geo.Coordinate{}, &InvalidLocationError{Location: code, Reason: fmt.Sprintf("lookup status %d", pr.Status)}
	}

	coord := geo.Coordinate{Lat: pr.Result.Latitude, Lon: pr.Result.Longitude}
	if !coord.Valid() {
		return geo.Coordinate{}, &InvalidLocationError{Location: code, Reason: "lookup returned invalid coordinates"}
	}

	r.cache.Set(key, coord, cache.DefaultExpiration)
	return coord, nil
}

// Place resolves a free-text place name via Nominatim. Used by callers
// that accept a location string instead of a postcode.
func (r *Resolver) Place(location string) (geo.Coordinate, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return geo.Coordinate{}, &InvalidLocationError{Location: location, Reason: "empty location"}
	}

	key := "place:" + strings.ToLower(location)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(geo.Coordinate), nil
	}

	gominatim.SetServer(nominatimServer)
	query := gominatim.SearchQuery{Q: location}

	results, err := query.Get()
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocoding error: %w", err)
	}
	if len(results) == 0 {
		return geo.Coordinate{}, &InvalidLocationError{Location: location, Reason: "no results"}
	}

	coord, err := resultToCoordinate(results[0])
	if err != nil {
		return geo.Coordinate{}, &InvalidLocationError{Location: location, Reason: err.Error()}
	}

	r.cache.Set(key, coord, cache.DefaultExpiration)
	return coord, nil
}

func resultToCoordinate(result gominatim.SearchResult) (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("error parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("error parsing longitude: %w", err)
	}
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}
