// Package server exposes the fuel finder over HTTP as JSON endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"

	"github.com/mar156-star/fuel-finder-backend/internal/fuelfinder"
	"github.com/mar156-star/fuel-finder-backend/pkg/fuelapi"
	"github.com/mar156-star/fuel-finder-backend/pkg/geo"
	"github.com/mar156-star/fuel-finder-backend/pkg/geocode"
)

const rateLimitPerMinute = 60

// Server routes fuel queries to a Finder.
type Server struct {
	router *chi.Mux
	finder *fuelfinder.Finder
	logger *httplog.Logger
}

// New builds the router with logging, panic recovery, and per-IP rate
// limiting.
func New(finder *fuelfinder.Finder, logger *httplog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		finder: finder,
		logger: logger,
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(httplog.RequestLogger(logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(httprate.LimitByIP(rateLimitPerMinute, time.Minute))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/cheapest", s.handleCheapest)
	s.router.Get("/api/status", s.handleStatus)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCheapest answers GET /api/cheapest. Location is given as
// lat+lon, a postcode, or a free-text location, in that order of
// precedence.
func (s *Server) handleCheapest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := fuelfinder.Query{
		Postcode: query.Get("postcode"),
		Place:    query.Get("location"),
		Fuel:     query.Get("fuel"),
	}

	latStr, lonStr := query.Get("lat"), query.Get("lon")
	if latStr != "" || lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid latitude value")
			return
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid longitude value")
			return
		}
		q.Coord = &geo.Coordinate{Lat: lat, Lon: lon}
	}

	if radiusStr := query.Get("radius"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius <= 0 {
			writeError(w, http.StatusBadRequest, "invalid radius value")
			return
		}
		q.RadiusKm = radius
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit value")
			return
		}
		q.Limit = limit
	}

	result, err := s.finder.Cheapest(r.Context(), q)
	if err != nil {
		s.writeFinderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.finder.Status(r.Context())
	if err != nil {
		s.writeFinderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// writeFinderError maps the error taxonomy onto HTTP statuses: bad
// location input is the caller's fault, upstream failures are gateway
// errors, timeouts are gateway timeouts.
func (s *Server) writeFinderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidLoc *geocode.InvalidLocationError
		unknown    *fuelfinder.UnknownFuelError
		timeout    *fuelapi.UpstreamTimeoutError
		authErr    *fuelapi.UpstreamAuthError
		fetchErr   *fuelapi.UpstreamFetchError
		malformed  *fuelapi.MalformedUpstreamDataError
	)

	switch {
	case errors.Is(err, fuelfinder.ErrMissingLocation),
		errors.As(err, &invalidLoc),
		errors.As(err, &unknown):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &timeout):
		s.logger.Error("upstream timeout", "error", err)
		writeError(w, http.StatusGatewayTimeout, "upstream request timed out")
	case errors.As(err, &authErr), errors.As(err, &fetchErr), errors.As(err, &malformed):
		s.logger.Error("upstream failure", "error", err)
		writeError(w, http.StatusBadGateway, "upstream data provider failed")
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nothing useful to write.
		s.logger.Debug("request cancelled", "error", err)
	default:
		s.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}
