package fuelfinder

import (
	"context"
	"errors"

	"github.com/mar156-star/fuel-finder-backend/pkg/geo"
)

// sampleStepKm is the spacing between route points used as query
// origins. Finer sampling buys little once station radii overlap.
const sampleStepKm = 2.0

// NearRoute finds the cheapest stations within radius of any point
// along a route, e.g. a GPX track. The route is sampled roughly every
// 2km, each sample queried, and per-station matches merged keeping the
// shortest distance to the route.
func (f *Finder) NearRoute(ctx context.Context, route []geo.Coordinate, q Query) (*Result, error) {
	if len(route) == 0 {
		return nil, errors.New("route has no points")
	}

	fuel, radius, limit, err := f.normalize(q)
	if err != nil {
		return nil, err
	}
	for _, p := range route {
		if !p.Valid() {
			return nil, errors.New("route contains invalid coordinates")
		}
	}

	stations, prices, err := f.datasets(ctx)
	if err != nil {
		return nil, err
	}

	best := make(map[string]RankedResult)
	for _, origin := range samplePoints(route, sampleStepKm) {
		// Rank untruncated per sample; the merged set is cut at the end.
		matches, _ := rank(stations, prices, fuel, origin, radius, len(prices)+1)
		for _, m := range matches {
			if prev, ok := best[m.SiteID]; !ok || m.DistanceKm < prev.DistanceKm {
				best[m.SiteID] = m
			}
		}
	}

	merged := make([]RankedResult, 0, len(best))
	for _, m := range best {
		merged = append(merged, m)
	}
	sortResults(merged)

	total := len(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return &Result{
		Center:   route[0],
		Fuel:     fuel,
		RadiusKm: radius,
		Count:    total,
		Results:  merged,
	}, nil
}

// samplePoints thins a route to points at least stepKm apart. The first
// and last points are always kept.
func samplePoints(route []geo.Coordinate, stepKm float64) []geo.Coordinate {
	samples := []geo.Coordinate{route[0]}
	sinceLast := 0.0

	for i := 1; i < len(route); i++ {
		sinceLast += geo.DistanceKm(route[i-1], route[i])
		if sinceLast >= stepKm {
			samples = append(samples, route[i])
			sinceLast = 0
		}
	}

	if last := route[len(route)-1]; samples[len(samples)-1] != last {
		samples = append(samples, last)
	}

	return samples
}
