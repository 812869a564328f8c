// Package fuelfinder answers "cheapest nearby fuel" queries by joining
// cached upstream station and price datasets.
package fuelfinder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mar156-star/fuel-finder-backend/pkg/fuelapi"
	"github.com/mar156-star/fuel-finder-backend/pkg/geo"
	"github.com/mar156-star/fuel-finder-backend/pkg/geocode"
)

const (
	DefaultRadiusKm = 10.0
	DefaultLimit    = 10

	stationSlot = "stations"
	priceSlot   = "prices"
)

// ErrMissingLocation means a query carried neither coordinates nor a
// postcode nor a place name.
var ErrMissingLocation = errors.New("missing location: provide a postcode, place, or coordinates")

// UnknownFuelError means the requested fuel label is not in the
// configured set.
type UnknownFuelError struct {
	Fuel string
}

func (e *UnknownFuelError) Error() string {
	return fmt.Sprintf("unknown fuel type %q", e.Fuel)
}

// DataProvider supplies the upstream datasets. *fuelapi.Client is the
// production implementation.
type DataProvider interface {
	Token(ctx context.Context) (string, error)
	Stations(ctx context.Context) ([]fuelapi.Station, error)
	Prices(ctx context.Context) ([]fuelapi.PriceRecord, error)
}

// LocationResolver turns postcodes and place names into coordinates.
// *geocode.Resolver is the production implementation.
type LocationResolver interface {
	Postcode(ctx context.Context, postcode string) (geo.Coordinate, error)
	Place(location string) (geo.Coordinate, error)
}

// Options tune a Finder. Zero values fall back to sensible defaults.
type Options struct {
	StationTTL  time.Duration
	PriceTTL    time.Duration
	FuelTypes   []string
	DefaultFuel string
	Logger      *slog.Logger
}

// Finder composes the provider client, the geocoder, and the dataset
// cache to answer queries. It is safe for concurrent use.
type Finder struct {
	provider  DataProvider
	locations LocationResolver
	cache     *datasetCache

	stationTTL  time.Duration
	priceTTL    time.Duration
	fuels       []string
	defaultFuel string
	log         *slog.Logger
}

// New creates a Finder.
func New(provider DataProvider, locations LocationResolver, opts Options) *Finder {
	if opts.StationTTL == 0 {
		opts.StationTTL = 6 * time.Hour
	}
	if opts.PriceTTL == 0 {
		opts.PriceTTL = 10 * time.Minute
	}
	if len(opts.FuelTypes) == 0 {
		opts.FuelTypes = []string{"E10", "E5", "B7", "SDV"}
	}
	if opts.DefaultFuel == "" {
		opts.DefaultFuel = opts.FuelTypes[0]
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Finder{
		provider:    provider,
		locations:   locations,
		cache:       newDatasetCache(),
		stationTTL:  opts.StationTTL,
		priceTTL:    opts.PriceTTL,
		fuels:       opts.FuelTypes,
		defaultFuel: opts.DefaultFuel,
		log:         opts.Logger,
	}
}

// Query is one "cheapest stations near X" request. Coordinates take
// precedence over Postcode, which takes precedence over Place.
type Query struct {
	Coord    *geo.Coordinate
	Postcode string
	Place    string

	Fuel     string
	RadiusKm float64
	Limit    int
}

// Result is the answer to a query. Count is the number of matches
// before truncation to the result limit.
type Result struct {
	Center   geo.Coordinate `json:"center"`
	Fuel     string         `json:"fuel"`
	RadiusKm float64        `json:"radius_km"`
	Count    int            `json:"count"`
	Results  []RankedResult `json:"results"`
}

// Cheapest resolves the query origin, fetches both datasets through the
// cache, and ranks stations by price then distance. Any failing
// dependency aborts the whole query.
func (f *Finder) Cheapest(ctx context.Context, q Query) (*Result, error) {
	fuel, radius, limit, err := f.normalize(q)
	if err != nil {
		return nil, err
	}

	origin, err := f.resolveOrigin(ctx, q)
	if err != nil {
		return nil, err
	}

	stations, prices, err := f.datasets(ctx)
	if err != nil {
		return nil, err
	}

	results, total := rank(stations, prices, fuel, origin, radius, limit)

	f.log.Debug("query served",
		"origin", origin.String(),
		"fuel", fuel,
		"radius_km", radius,
		"matches", total,
	)

	return &Result{
		Center:   origin,
		Fuel:     fuel,
		RadiusKm: radius,
		Count:    total,
		Results:  results,
	}, nil
}

func (f *Finder) normalize(q Query) (fuel string, radius float64, limit int, err error) {
	fuel = q.Fuel
	if fuel == "" {
		fuel = f.defaultFuel
	}
	if !f.fuelAllowed(fuel) {
		return "", 0, 0, &UnknownFuelError{Fuel: fuel}
	}

	radius = q.RadiusKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}

	limit = q.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}

	return fuel, radius, limit, nil
}

func (f *Finder) resolveOrigin(ctx context.Context, q Query) (geo.Coordinate, error) {
	switch {
	case q.Coord != nil:
		if !q.Coord.Valid() {
			return geo.Coordinate{}, &geocode.InvalidLocationError{
				Location: q.Coord.String(),
				Reason:   "coordinates out of range",
			}
		}
		return *q.Coord, nil
	case q.Postcode != "":
		return f.locations.Postcode(ctx, q.Postcode)
	case q.Place != "":
		return f.locations.Place(q.Place)
	default:
		return geo.Coordinate{}, ErrMissingLocation
	}
}

// datasets fetches the station and price datasets concurrently; they
// are independent resources and ranking only starts once both are in.
func (f *Finder) datasets(ctx context.Context) ([]fuelapi.Station, []fuelapi.PriceRecord, error) {
	var (
		stations []fuelapi.Station
		prices   []fuelapi.PriceRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stations, err = getDataset(gctx, f.cache, stationSlot, f.stationTTL, f.provider.Stations)
		return err
	})
	g.Go(func() error {
		var err error
		prices, err = getDataset(gctx, f.cache, priceSlot, f.priceTTL, f.provider.Prices)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return stations, prices, nil
}

func (f *Finder) fuelAllowed(label string) bool {
	for _, ft := range f.fuels {
		if strings.EqualFold(ft, label) {
			return true
		}
	}
	return false
}
