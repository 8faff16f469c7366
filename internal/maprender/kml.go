package maprender

import (
	"bytes"

	kml "github.com/twpayne/go-kml/v2"

	"github.com/rotisserie/eris"
)

// KML serializes an instruction set as a KML document for the map viewer:
// one Placemark per marker, a LineString for the route, and a Placemark
// carrying the midpoint distance label.
func KML(ins *Instructions) ([]byte, error) {
	doc := kml.Document(
		kml.Name(ins.Center.Label),
		kml.Placemark(
			kml.Name(ins.Center.Label),
			kml.Point(kml.Coordinates(kml.Coordinate{
				Lon: ins.Center.Point.Lon,
				Lat: ins.Center.Point.Lat,
			})),
		),
	)

	for _, m := range ins.Markers {
		doc.Add(kml.Placemark(
			kml.Name(m.Label),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: m.Point.Lon, Lat: m.Point.Lat})),
		))
	}

	lineCoords := make([]kml.Coordinate, 0, len(ins.Line))
	for _, p := range ins.Line {
		lineCoords = append(lineCoords, kml.Coordinate{Lon: p.Lon, Lat: p.Lat})
	}
	doc.Add(kml.Placemark(
		kml.Name("Route to "+ins.Nearest.Facility.Name),
		kml.LineString(
			kml.Coordinates(lineCoords...),
			kml.Tessellate(true),
		),
	))

	doc.Add(kml.Placemark(
		kml.Name(ins.MidpointLabel.Text),
		kml.Point(kml.Coordinates(kml.Coordinate{
			Lon: ins.MidpointLabel.Point.Lon,
			Lat: ins.MidpointLabel.Point.Lat,
		})),
	))

	var buf bytes.Buffer
	if err := kml.KML(doc).WriteIndent(&buf, "", "  "); err != nil {
		return nil, eris.Wrap(err, "maprender: write kml")
	}
	return buf.Bytes(), nil
}
