package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/tkrajina/gpxgo/gpx"
	"github.com/urfave/cli/v2"

	"github.com/mar156-star/fuel-finder-backend/internal/config"
	"github.com/mar156-star/fuel-finder-backend/internal/fuelfinder"
	"github.com/mar156-star/fuel-finder-backend/pkg/geo"
)

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "nearby",
		Usage: "List the cheapest nearby fuel stations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "postcode",
				Usage: "Postcode to search around",
			},
			&cli.StringFlag{
				Name:  "location",
				Usage: "Free-text place to search around",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "Latitude of the location",
			},
			&cli.Float64Flag{
				Name:  "long",
				Usage: "Longitude of the location",
			},
			&cli.StringFlag{
				Name:  "gpx",
				Usage: "GPX file; search along the track instead of around a point",
			},
			&cli.StringFlag{
				Name:  "fuel",
				Usage: "Fuel type (E10, E5, B7, SDV)",
			},
			&cli.Float64Flag{
				Name:    "radius",
				Aliases: []string{"r"},
				Usage:   "Search radius in kilometers",
				Value:   fuelfinder.DefaultRadiusKm,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: fuelfinder.DefaultLimit,
			},
		},
		Action: nearbyAction,
	}
}

func nearbyAction(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	finder := newFinder(cfg, fuelfinder.Options{})

	q := fuelfinder.Query{
		Postcode: c.String("postcode"),
		Place:    c.String("location"),
		Fuel:     c.String("fuel"),
		RadiusKm: c.Float64("radius"),
		Limit:    c.Int("limit"),
	}
	if c.IsSet("lat") || c.IsSet("long") {
		q.Coord = &geo.Coordinate{Lat: c.Float64("lat"), Lon: c.Float64("long")}
	}

	var result *fuelfinder.Result
	if gpxPath := c.String("gpx"); gpxPath != "" {
		route, err := loadRoute(gpxPath)
		if err != nil {
			return err
		}
		result, err = finder.NearRoute(c.Context, route, q)
		if err != nil {
			return err
		}
	} else {
		result, err = finder.Cheapest(c.Context, q)
		if err != nil {
			return err
		}
	}

	printResult(result)
	return nil
}

// loadRoute flattens all tracks, segments, and route points of a GPX
// file into one point list.
func loadRoute(path string) ([]geo.Coordinate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading GPX file: %w", err)
	}

	parsed, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing GPX file: %w", err)
	}

	var route []geo.Coordinate
	for _, track := range parsed.Tracks {
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				route = append(route, geo.Coordinate{Lat: p.Latitude, Lon: p.Longitude})
			}
		}
	}
	for _, r := range parsed.Routes {
		for _, p := range r.Points {
			route = append(route, geo.Coordinate{Lat: p.Latitude, Lon: p.Longitude})
		}
	}

	if len(route) == 0 {
		return nil, errors.New("GPX file contains no points")
	}
	return route, nil
}

func printResult(result *fuelfinder.Result) {
	if len(result.Results) == 0 {
		fmt.Printf("No %s prices within %g km\n", result.Fuel, result.RadiusKm)
		return
	}

	for i, station := range result.Results {
		name := station.Name
		if station.Brand != "" {
			name = fmt.Sprintf("%s (%s)", name, station.Brand)
		}
		fmt.Printf("%d. %s\n", i+1, name)
		fmt.Printf("   Postcode: %s\n", station.Postcode)
		fmt.Printf("   Distance: %.2f km\n", station.DistanceKm)
		fmt.Printf("   %s: %s p/litre\n", result.Fuel, station.Price.StringFixed(1))
		fmt.Printf("   Coordinates: %s\n\n", station.Location)
	}

	fmt.Printf("Found %d stations within %g km radius\n", result.Count, result.RadiusKm)
}
