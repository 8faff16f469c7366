// Package geo provides great-circle distance and nearest-facility
// computation on a spherical Earth approximation.
package geo

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/greenatlas/wastemap/internal/model"
)

// Earth radius in kilometers for the spherical approximation.
const earthRadiusKm = 6371.0

var (
	// ErrInvalidCoordinate is returned when an input coordinate is outside
	// the valid latitude/longitude ranges.
	ErrInvalidCoordinate = eris.New("geo: invalid coordinate")

	// ErrEmptyCandidates is returned by Nearest when no facilities were
	// supplied. Callers surface this as a user-facing notice instead of
	// rendering a route.
	ErrEmptyCandidates = eris.New("geo: no candidate facilities")
)

// DistanceKm computes the great-circle (haversine) distance between two
// coordinates in kilometers. Identical points yield exactly 0 and the result
// is symmetric in its arguments.
func DistanceKm(a, b model.Coordinate) (float64, error) {
	if a.Validate() != nil || b.Validate() != nil {
		return 0, ErrInvalidCoordinate
	}

	if a.Lat == b.Lat && a.Lon == b.Lon {
		return 0, nil
	}

	lat1 := a.Lat * math.Pi / 180
	lon1 := a.Lon * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lon2 := b.Lon * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c, nil
}

// Midpoint returns the point halfway along the rendered line between a and b.
// Linear interpolation is adequate for the intra-city spans drawn here.
func Midpoint(a, b model.Coordinate) model.Coordinate {
	return model.Coordinate{
		Lat: a.Lat + (b.Lat-a.Lat)/2,
		Lon: a.Lon + (b.Lon-a.Lon)/2,
	}
}

// Nearest scans the candidates in order and returns the one closest to the
// reference point. Ties resolve to the first candidate encountered, so the
// result is deterministic for a given input order.
func Nearest(ref model.Coordinate, candidates []model.Facility) (model.NearestResult, error) {
	if len(candidates) == 0 {
		return model.NearestResult{}, ErrEmptyCandidates
	}

	best := model.NearestResult{DistanceKm: math.Inf(1)}
	for _, cand := range candidates {
		d, err := DistanceKm(ref, cand.Coordinate)
		if err != nil {
			return model.NearestResult{}, err
		}
		if d < best.DistanceKm {
			best = model.NearestResult{Facility: cand, DistanceKm: d}
		}
	}
	return best, nil
}
