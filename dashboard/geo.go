package dashboard

import (
	"fmt"
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ParseBounds turns a [minX, minY, maxX, maxY] viewport into geom bounds.
func ParseBounds(b []float64) (*geom.Bounds, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) != 4 {
		return nil, fmt.Errorf("bounds must have 4 values, got %d", len(b))
	}
	if b[0] > b[2] || b[1] > b[3] {
		return nil, fmt.Errorf("bounds min must not exceed max")
	}
	return geom.NewBounds(geom.XY).Set(b...), nil
}

// WithinBounds keeps the entries whose coordinates fall inside bounds. A nil
// bounds keeps everything.
func WithinBounds(entries []Entry, bounds *geom.Bounds) []Entry {
	if bounds == nil {
		return entries
	}
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if bounds.OverlapsPoint(geom.XY, geom.Coord{e.X, e.Y}) {
			kept = append(kept, e)
		}
	}
	return kept
}

// FeatureCollection renders entries as GeoJSON points for the map view.
func FeatureCollection(entries []Entry) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(entries)),
	}
	for _, e := range entries {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.FormatInt(e.RestaurantID, 10),
			Geometry: geom.NewPointFlat(geom.XY, []float64{e.X, e.Y}),
			Properties: map[string]interface{}{
				"name":     e.Name,
				"category": e.Category,
				"region":   e.Region,
				"city":     e.City,
				"waiting":  e.Waiting,
			},
		})
	}
	return fc
}
