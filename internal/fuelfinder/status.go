package fuelfinder

import (
	"context"
	"time"
)

// Status is a health snapshot of the upstream connection and caches.
type Status struct {
	TokenOK        bool      `json:"token_ok"`
	Stations       int       `json:"stations"`
	Prices         int       `json:"prices"`
	StationsCached bool      `json:"stations_cached"`
	PricesCached   bool      `json:"prices_cached"`
	StationsExpiry time.Time `json:"stations_expiry,omitzero"`
	PricesExpiry   time.Time `json:"prices_expiry,omitzero"`
}

// Status probes the token endpoint and both datasets. Dataset fetches
// go through the cache, so a freshly served instance reports cached
// data without extra upstream calls.
func (f *Finder) Status(ctx context.Context) (*Status, error) {
	if _, err := f.provider.Token(ctx); err != nil {
		return &Status{}, err
	}

	st := &Status{TokenOK: true}
	st.StationsExpiry, st.StationsCached = f.cache.expiry(stationSlot)
	st.PricesExpiry, st.PricesCached = f.cache.expiry(priceSlot)

	stations, prices, err := f.datasets(ctx)
	if err != nil {
		return st, err
	}
	st.Stations = len(stations)
	st.Prices = len(prices)

	if !st.StationsCached {
		st.StationsExpiry, _ = f.cache.expiry(stationSlot)
	}
	if !st.PricesCached {
		st.PricesExpiry, _ = f.cache.expiry(priceSlot)
	}

	return st, nil
}
