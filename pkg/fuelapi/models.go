package fuelapi

// Station is one forecourt record from the provider's station dataset.
// Latitude/Longitude arrive as plain JSON numbers; Client.Stations
// drops records with a missing site ID or out-of-range coordinates
// before returning, so bad feed entries are never stored.
type Station struct {
	SiteID    string  `json:"site_id"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand,omitempty"`
	Postcode  string  `json:"postcode"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PriceRecord is one entry from the provider's price snapshot. Prices is
// keyed by fuel-type label (E10, B7, ...). Values are decoded loosely:
// the feed has been observed to carry numbers, numeric strings, and
// nulls, so coercion happens at ranking time rather than failing the
// whole page.
type PriceRecord struct {
	SiteID string         `json:"site_id"`
	Prices map[string]any `json:"prices"`
}
