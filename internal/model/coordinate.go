// Package model holds the core data types shared across the session,
// geospatial, and rendering packages.
package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Validate checks that both components are finite and within range:
// latitude in [-90, 90], longitude in [-180, 180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return eris.Errorf("model: non-finite coordinate (%v, %v)", c.Lat, c.Lon)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return eris.Errorf("model: latitude %v out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return eris.Errorf("model: longitude %v out of range [-180, 180]", c.Lon)
	}
	return nil
}

// Facility is a waste-disposal site as reported by the backend. Immutable
// once decoded.
type Facility struct {
	Coordinate
	Name string `json:"name"`
}

// NearestResult pairs a facility with its great-circle distance from a
// reference point. Derived data: recomputed whenever the reference point or
// facility set changes, never persisted.
type NearestResult struct {
	Facility   Facility `json:"facility"`
	DistanceKm float64  `json:"distance_km"`
}
