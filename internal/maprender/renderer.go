// Package maprender turns an enrichment result into a deterministic set of
// map render instructions: facility markers, a reference marker, the line to
// the nearest facility, and a midpoint distance label.
package maprender

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-polyline"

	"github.com/greenatlas/wastemap/internal/geo"
	"github.com/greenatlas/wastemap/internal/model"
)

// Marker is a labelled point on the map surface.
type Marker struct {
	Label     string           `json:"label"`
	Point     model.Coordinate `json:"point"`
	Reference bool             `json:"reference,omitempty"`
}

// Label is text pinned to a coordinate.
type Label struct {
	Text  string           `json:"text"`
	Point model.Coordinate `json:"point"`
}

// Instructions is one complete render pass for the map surface. Building it
// is a pure function of the reference point and facility set, so identical
// inputs always encode to identical bytes.
type Instructions struct {
	Center        Marker              `json:"center"`
	Zoom          int                 `json:"zoom"`
	Markers       []Marker            `json:"markers"`
	Line          []model.Coordinate  `json:"line"`
	EncodedLine   string              `json:"encoded_line"`
	MidpointLabel Label               `json:"midpoint_label"`
	Nearest       model.NearestResult `json:"nearest"`
}

// Build computes the nearest facility and assembles the instruction set.
// Geo errors (invalid coordinates, empty facility list) propagate so the
// caller can skip the route and show a fallback notice instead.
func Build(ref model.Coordinate, refLabel string, facilities []model.Facility, zoom int) (*Instructions, error) {
	nearest, err := geo.Nearest(ref, facilities)
	if err != nil {
		return nil, err
	}

	markers := make([]Marker, 0, len(facilities))
	for _, f := range facilities {
		markers = append(markers, Marker{Label: f.Name, Point: f.Coordinate})
	}

	line := lineString(ref, nearest.Facility.Coordinate)
	coords := line.Coords()
	linePoints := make([]model.Coordinate, len(coords))
	for i, c := range coords {
		linePoints[i] = model.Coordinate{Lat: c.Y(), Lon: c.X()}
	}

	encoded := polyline.EncodeCoords([][]float64{
		{ref.Lat, ref.Lon},
		{nearest.Facility.Lat, nearest.Facility.Lon},
	})

	return &Instructions{
		Center:      Marker{Label: refLabel, Point: ref, Reference: true},
		Zoom:        zoom,
		Markers:     markers,
		Line:        linePoints,
		EncodedLine: string(encoded),
		MidpointLabel: Label{
			Text:  fmt.Sprintf("%.2f km", nearest.DistanceKm),
			Point: geo.Midpoint(ref, nearest.Facility.Coordinate),
		},
		Nearest: nearest,
	}, nil
}

// Encode serializes the instruction set as canonical JSON.
func (ins *Instructions) Encode() ([]byte, error) {
	return json.Marshal(ins)
}

// LineString returns the route line as a geometry.
func (ins *Instructions) LineString() *geom.LineString {
	coords := make([]geom.Coord, len(ins.Line))
	for i, p := range ins.Line {
		coords[i] = geom.Coord{p.Lon, p.Lat}
	}
	return geom.NewLineString(geom.XY).MustSetCoords(coords)
}

func lineString(from, to model.Coordinate) *geom.LineString {
	return geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{
		{from.Lon, from.Lat},
		{to.Lon, to.Lat},
	})
}

// MapSurface is the rendering collaborator. Init is called exactly once per
// mount; Render may be called any number of times afterwards.
type MapSurface interface {
	Init(center model.Coordinate, zoom int)
	Render(ins *Instructions)
}

// Renderer owns the surface-readiness gate. Instructions produced before the
// surface mounts are held and flushed on the single Ready signal; repeated
// Ready signals never re-initialize the surface.
type Renderer struct {
	mu      sync.Mutex
	surface MapSurface
	ready   bool
	inited  bool
	pending *Instructions
	latest  *Instructions
}

// NewRenderer creates a Renderer bound to the given surface.
func NewRenderer(surface MapSurface) *Renderer {
	return &Renderer{surface: surface}
}

// Ready marks the surface as mounted and flushes any pending instructions.
// Only the first signal has any effect; the surface is never re-initialized.
func (r *Renderer) Ready() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready {
		return
	}
	r.ready = true

	if r.pending != nil {
		r.deliver(r.pending)
		r.pending = nil
	}
}

// Show renders the instruction set, or defers it until the surface is ready.
func (r *Renderer) Show(ins *Instructions) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.latest = ins
	if !r.ready {
		r.pending = ins
		return
	}
	r.deliver(ins)
}

// deliver initializes the surface on first use, then renders. Callers hold mu.
func (r *Renderer) deliver(ins *Instructions) {
	if !r.inited {
		r.inited = true
		r.surface.Init(ins.Center.Point, ins.Zoom)
	}
	r.surface.Render(ins)
}

// Latest returns the most recently shown instruction set, or nil.
func (r *Renderer) Latest() *Instructions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// Clear drops any shown or pending instructions, for session reset.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
	r.latest = nil
}
