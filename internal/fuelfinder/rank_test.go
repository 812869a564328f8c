package fuelfinder

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mar156-star/fuel-finder-backend/pkg/fuelapi"
	"github.com/mar156-star/fuel-finder-backend/pkg/geo"
)

var westminster = geo.Coordinate{Lat: 51.50, Lon: -0.12}

func testStations() []fuelapi.Station {
	return []fuelapi.Station{
		{SiteID: "A", Name: "Alpha Fuels", Brand: "Alpha", Postcode: "SW1A 1AA", Latitude: 51.50, Longitude: -0.12},
		{SiteID: "B", Name: "Beta Petrol", Brand: "Beta", Postcode: "SW1A 2AA", Latitude: 51.51, Longitude: -0.13},
	}
}

func price(v float64) map[string]any {
	return map[string]any{"E10": v}
}

func TestRankCheapestFirst(t *testing.T) {
	prices := []fuelapi.PriceRecord{
		{SiteID: "A", Prices: price(140.9)},
		{SiteID: "B", Prices: price(139.5)},
	}

	results, total := rank(testStations(), prices, "E10", westminster, 10, 10)
	require.Equal(t, 2, total)
	require.Len(t, results, 2)
	require.Equal(t, "B", results[0].SiteID, "cheaper station ranks first")
	require.Equal(t, "A", results[1].SiteID)
	require.True(t, results[0].Price.Equal(decimal.NewFromFloat(139.5)))
}

func TestRankRadiusExcludes(t *testing.T) {
	prices := []fuelapi.PriceRecord{
		{SiteID: "A", Prices: price(140.9)},
		{SiteID: "B", Prices: price(139.5)},
	}

	// B is about 1.3km away; a tight radius leaves only A.
	results, total := rank(testStations(), prices, "E10", westminster, 0.5, 10)
	require.Equal(t, 1, total)
	require.Equal(t, "A", results[0].SiteID)
}

func TestRankTieBrokenByDistance(t *testing.T) {
	// Two stations at the same price, roughly 1.5km and 3km north.
	stations := []fuelapi.Station{
		{SiteID: "far", Name: "Far", Postcode: "N1", Latitude: 51.527, Longitude: -0.12},
		{SiteID: "near", Name: "Near", Postcode: "N2", Latitude: 51.5135, Longitude: -0.12},
	}
	prices := []fuelapi.PriceRecord{
		{SiteID: "far", Prices: price(140.0)},
		{SiteID: "near", Prices: price(140.0)},
	}

	results, _ := rank(stations, prices, "E10", westminster, 10, 10)
	require.Len(t, results, 2)
	require.Equal(t, "near", results[0].SiteID, "nearer station wins a price tie")
	require.Less(t, results[0].DistanceKm, results[1].DistanceKm)
}

func TestRankFuelMatchIsCaseInsensitive(t *testing.T) {
	prices := []fuelapi.PriceRecord{
		{SiteID: "A", Prices: map[string]any{"e10": 141.0}},
	}

	results, total := rank(testStations(), prices, "E10", westminster, 10, 10)
	require.Equal(t, 1, total)
	require.Equal(t, "A", results[0].SiteID)
}

func TestRankSkipsMissingFuelAndNonNumericPrices(t *testing.T) {
	prices := []fuelapi.PriceRecord{
		{SiteID: "A", Prices: map[string]any{"B7": 148.0}},
		{SiteID: "B", Prices: map[string]any{"E10": nil}},
	}

	results, total := rank(testStations(), prices, "E10", westminster, 10, 10)
	require.Zero(t, total)
	require.Empty(t, results)
}

func TestRankStringPricesAccepted(t *testing.T) {
	prices := []fuelapi.PriceRecord{
		{SiteID: "A", Prices: map[string]any{"E10": "142.9"}},
	}

	results, _ := rank(testStations(), prices, "E10", westminster, 10, 10)
	require.Len(t, results, 1)
	require.True(t, results[0].Price.Equal(decimal.RequireFromString("142.9")))
}

func TestRankDropsMalformedStations(t *testing.T) {
	stations := []fuelapi.Station{
		{SiteID: "bad", Name: "Broken", Postcode: "X1", Latitude: math.NaN(), Longitude: -0.12},
		{SiteID: "range", Name: "OffGrid", Postcode: "X2", Latitude: 123.0, Longitude: -0.12},
		{SiteID: "ok", Name: "Fine", Postcode: "X3", Latitude: 51.50, Longitude: -0.12},
	}
	prices := []fuelapi.PriceRecord{
		{SiteID: "bad", Prices: price(130.0)},
		{SiteID: "range", Prices: price(131.0)},
		{SiteID: "ok", Prices: price(150.0)},
	}

	results, total := rank(stations, prices, "E10", westminster, 10, 10)
	require.Equal(t, 1, total)
	require.Equal(t, "ok", results[0].SiteID, "stations with bogus coordinates never rank")
}

func TestRankIgnoresOrphanPriceRecords(t *testing.T) {
	prices := []fuelapi.PriceRecord{
		{SiteID: "ghost", Prices: price(100.0)},
		{SiteID: "A", Prices: price(140.0)},
	}

	results, total := rank(testStations(), prices, "E10", westminster, 10, 10)
	require.Equal(t, 1, total)
	require.Equal(t, "A", results[0].SiteID)
}

func TestRankLimitAndCount(t *testing.T) {
	prices := []fuelapi.PriceRecord{
		{SiteID: "A", Prices: price(140.9)},
		{SiteID: "B", Prices: price(139.5)},
	}

	results, total := rank(testStations(), prices, "E10", westminster, 10, 1)
	require.Equal(t, 2, total, "count reflects matches before truncation")
	require.Len(t, results, 1)
	require.Equal(t, "B", results[0].SiteID)
}

func TestRankLimitMinimumOne(t *testing.T) {
	prices := []fuelapi.PriceRecord{
		{SiteID: "A", Prices: price(140.9)},
		{SiteID: "B", Prices: price(139.5)},
	}

	results, _ := rank(testStations(), prices, "E10", westminster, 10, -3)
	require.Len(t, results, 1)
}

func TestRankDistanceRounded(t *testing.T) {
	prices := []fuelapi.PriceRecord{
		{SiteID: "B", Prices: price(139.5)},
	}

	results, _ := rank(testStations(), prices, "E10", westminster, 10, 10)
	require.Len(t, results, 1)

	d := results[0].DistanceKm
	require.Equal(t, geo.RoundKm(d), d, "distance is rounded to 2 decimal places")
	require.Greater(t, d, 0.0)
	require.Less(t, d, 2.0)
}
