package model

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// FlexFloat is a float64 that also decodes from JSON strings. The backend
// payload is AI-generated and percentages or coordinates frequently arrive
// quoted, sometimes with a trailing percent sign.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "model: parse numeric field %q", s)
	}
	*f = FlexFloat(v)
	return nil
}

// WasteComposition is the percentage breakdown of waste by material.
type WasteComposition struct {
	Organic FlexFloat `json:"organic"`
	Plastic FlexFloat `json:"plastic"`
	Paper   FlexFloat `json:"paper"`
	Metal   FlexFloat `json:"metal"`
	Glass   FlexFloat `json:"glass"`
	Other   FlexFloat `json:"other"`
}

// ManagementMethods is the percentage breakdown of waste handling.
type ManagementMethods struct {
	Landfill     FlexFloat `json:"landfill"`
	Recycling    FlexFloat `json:"recycling"`
	Composting   FlexFloat `json:"composting"`
	Incineration FlexFloat `json:"incineration"`
}

// Landfill is a disposal site entry in the coordinates block. The backend
// sometimes attaches its own road-distance figure; it is carried through but
// the map highlight is computed from straight-line distance independently.
type Landfill struct {
	Lat                FlexFloat  `json:"lat"`
	Lon                FlexFloat  `json:"lon"`
	Name               string     `json:"name"`
	DistanceFromSector *FlexFloat `json:"distance_to_landfill_from_sector,omitempty"`
}

// CoordinatesBlock carries the state center and landfill locations.
type CoordinatesBlock struct {
	StateLat  FlexFloat  `json:"state_lat"`
	StateLon  FlexFloat  `json:"state_lon"`
	Landfills []Landfill `json:"landfills"`
}

// EnrichedData is the backend's solid-waste profile for a sector or state.
type EnrichedData struct {
	State                  string            `json:"state"`
	Country                string            `json:"country,omitempty"`
	TotalWasteGenerated    string            `json:"total_waste_generated"`
	WasteComposition       WasteComposition  `json:"waste_composition"`
	RecyclingRate          FlexFloat         `json:"recycling_rate"`
	WasteManagementMethods ManagementMethods `json:"waste_management_methods"`
	KeyChallenges          []string          `json:"key_challenges"`
	Initiatives            []string          `json:"initiatives"`
	DataYear               string            `json:"data_year"`
	Coordinates            CoordinatesBlock  `json:"coordinates"`
}

// RouteDetail is one backend-ranked route. The ranking is independent of the
// straight-line nearest-facility highlight on the map.
type RouteDetail struct {
	Route                string    `json:"Route"`
	ClosenessCoefficient FlexFloat `json:"Closeness Coefficient"`
	Ranking              int       `json:"Ranking"`
}

// WasteReport is the full enrichment response.
type WasteReport struct {
	Data         EnrichedData  `json:"data"`
	RouteDetails []RouteDetail `json:"route_details"`
}

// Facilities converts the landfill entries into facility candidates,
// preserving backend order so distance ties resolve deterministically.
func (c CoordinatesBlock) Facilities() []Facility {
	out := make([]Facility, 0, len(c.Landfills))
	for _, lf := range c.Landfills {
		out = append(out, Facility{
			Coordinate: Coordinate{Lat: float64(lf.Lat), Lon: float64(lf.Lon)},
			Name:       lf.Name,
		})
	}
	return out
}

// StateCenter returns the state center coordinate and whether the backend
// supplied one.
func (c CoordinatesBlock) StateCenter() (Coordinate, bool) {
	if c.StateLat == 0 && c.StateLon == 0 {
		return Coordinate{}, false
	}
	center := Coordinate{Lat: float64(c.StateLat), Lon: float64(c.StateLon)}
	if err := center.Validate(); err != nil {
		return Coordinate{}, false
	}
	return center, true
}
