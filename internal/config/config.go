// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all runtime configuration loaded from environment
// variables. Provider credentials are required; everything else has a
// working default.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// Fuel data provider.
	ClientID     string `env:"FUEL_CLIENT_ID"`
	ClientSecret string `env:"FUEL_CLIENT_SECRET"`
	Scope        string `env:"FUEL_SCOPE"`
	TokenURL     string `env:"FUEL_TOKEN_URL" envDefault:"https://api.fuel-finder.service.gov.uk/oauth/token"`
	StationsURL  string `env:"FUEL_STATIONS_URL" envDefault:"https://api.fuel-finder.service.gov.uk/v1/stations"`
	PricesURL    string `env:"FUEL_PRICES_URL" envDefault:"https://api.fuel-finder.service.gov.uk/v1/prices"`

	// Postcode lookup service.
	GeocoderURL string `env:"GEOCODER_URL" envDefault:"https://api.postcodes.io"`

	// Cache TTLs. Forecourts rarely change; prices update frequently.
	StationTTL time.Duration `env:"STATION_CACHE_TTL" envDefault:"6h"`
	PriceTTL   time.Duration `env:"PRICE_CACHE_TTL" envDefault:"10m"`

	// Upstream HTTP timeout, applied per request.
	HTTPTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`

	// Accepted fuel-type labels, matched case-insensitively.
	FuelTypes   []string `env:"FUEL_TYPES" envSeparator:"," envDefault:"E10,E5,B7,SDV"`
	DefaultFuel string   `env:"DEFAULT_FUEL" envDefault:"E10"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields. Missing provider credentials are a
// startup failure, not a per-request one.
func (c *Config) Validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, &ConfigError{Field: "FUEL_CLIENT_ID", Message: "required but not set"})
	}
	if c.ClientSecret == "" {
		errs = append(errs, &ConfigError{Field: "FUEL_CLIENT_SECRET", Message: "required but not set"})
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"})
	}
	if len(c.FuelTypes) == 0 {
		errs = append(errs, &ConfigError{Field: "FUEL_TYPES", Message: "cannot be empty"})
	}
	if !c.FuelAllowed(c.DefaultFuel) {
		errs = append(errs, &ConfigError{Field: "DEFAULT_FUEL", Message: "must be one of FUEL_TYPES"})
	}
	return errors.Join(errs...)
}

// FuelAllowed reports whether the label is in the configured fuel-type
// set, ignoring case.
func (c *Config) FuelAllowed(label string) bool {
	for _, ft := range c.FuelTypes {
		if strings.EqualFold(ft, label) {
			return true
		}
	}
	return false
}
