package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mar156-star/fuel-finder-backend/internal/config"
	"github.com/mar156-star/fuel-finder-backend/internal/fuelfinder"
	"github.com/mar156-star/fuel-finder-backend/pkg/fuelapi"
	"github.com/mar156-star/fuel-finder-backend/pkg/geocode"
)

func main() {
	app := &cli.App{
		Name:  "fuelfinder",
		Usage: "Find the cheapest nearby fuel from the government price feed",
		Commands: []*cli.Command{
			serveCommand(),
			nearbyCommand(),
			statusCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFinder wires the provider client and geocoder from environment
// configuration. Missing credentials fail here, before any serving.
func newFinder(cfg *config.Config, opts fuelfinder.Options) *fuelfinder.Finder {
	client := fuelapi.NewClient(fuelapi.Config{
		TokenURL:     cfg.TokenURL,
		StationsURL:  cfg.StationsURL,
		PricesURL:    cfg.PricesURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scope:        cfg.Scope,
		Timeout:      cfg.HTTPTimeout,
	})
	resolver := geocode.NewResolver(cfg.GeocoderURL, cfg.HTTPTimeout)

	opts.StationTTL = cfg.StationTTL
	opts.PriceTTL = cfg.PriceTTL
	opts.FuelTypes = cfg.FuelTypes
	opts.DefaultFuel = cfg.DefaultFuel

	return fuelfinder.New(client, resolver, opts)
}
