package fuelfinder

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mar156-star/fuel-finder-backend/pkg/fuelapi"
	"github.com/mar156-star/fuel-finder-backend/pkg/geo"
)

// RankedResult is one station in a query response, cheapest first.
type RankedResult struct {
	SiteID     string          `json:"site_id"`
	Name       string          `json:"name"`
	Brand      string          `json:"brand,omitempty"`
	Postcode   string          `json:"postcode"`
	Location   geo.Coordinate  `json:"location"`
	DistanceKm float64         `json:"distance_km"`
	Price      decimal.Decimal `json:"price"`
}

// rank joins station metadata with price records, filters by fuel type
// and radius, and orders by price ascending with distance as the
// tie-break. It returns the top limit results and the untruncated match
// count.
func rank(stations []fuelapi.Station, prices []fuelapi.PriceRecord, fuel string, origin geo.Coordinate, radiusKm float64, limit int) ([]RankedResult, int) {
	// The provider client already filters bogus station records, but the
	// lookup re-checks them so alternative DataProviders cannot sneak
	// unusable coordinates into a result.
	lookup := make(map[string]fuelapi.Station, len(stations))
	for _, st := range stations {
		coord := geo.Coordinate{Lat: st.Latitude, Lon: st.Longitude}
		if st.SiteID == "" || !coord.Valid() {
			continue
		}
		lookup[st.SiteID] = st
	}

	var results []RankedResult
	for _, rec := range prices {
		st, ok := lookup[rec.SiteID]
		if !ok {
			continue
		}
		price, ok := priceFor(rec.Prices, fuel)
		if !ok {
			continue
		}

		coord := geo.Coordinate{Lat: st.Latitude, Lon: st.Longitude}
		distance := geo.DistanceKm(origin, coord)
		if distance > radiusKm {
			continue
		}

		results = append(results, RankedResult{
			SiteID:     st.SiteID,
			Name:       st.Name,
			Brand:      st.Brand,
			Postcode:   st.Postcode,
			Location:   coord,
			DistanceKm: geo.RoundKm(distance),
			Price:      price,
		})
	}

	sortResults(results)

	total := len(results)
	if limit < 1 {
		limit = 1
	}
	if len(results) > limit {
		results = results[:limit]
	}

	return results, total
}

// sortResults orders cheapest first, nearer first among equal prices,
// and by site ID as a final tie-break so the ordering is deterministic.
func sortResults(results []RankedResult) {
	sort.Slice(results, func(i, j int) bool {
		if cmp := results[i].Price.Cmp(results[j].Price); cmp != 0 {
			return cmp < 0
		}
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].SiteID < results[j].SiteID
	})
}

// priceFor finds the price entry matching the fuel label, ignoring
// case, and coerces it to a decimal. The feed carries numbers, numeric
// strings, and nulls; anything non-numeric is skipped.
func priceFor(prices map[string]any, fuel string) (decimal.Decimal, bool) {
	for label, raw := range prices {
		if !strings.EqualFold(label, fuel) {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return decimal.NewFromFloat(v), true
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return decimal.Decimal{}, false
			}
			return d, true
		case json.Number:
			d, err := decimal.NewFromString(v.String())
			if err != nil {
				return decimal.Decimal{}, false
			}
			return d, true
		default:
			return decimal.Decimal{}, false
		}
	}
	return decimal.Decimal{}, false
}
