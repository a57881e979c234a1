package geogrid

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// ContentType is the media type of the exported grid.
const ContentType = "application/geo+json"

// FeatureCollection converts the grid to one point feature per cell plus
// the business center. Cell properties carry rank (null when unranked),
// nearby competitors and distance from center.
func FeatureCollection(g *model.GeoGrid) (*geojson.FeatureCollection, error) {
	if g == nil {
		return nil, eris.New("geogrid: nil grid")
	}
	fc := &geojson.FeatureCollection{}
	bounds := geom.NewBounds(geom.XY)

	center := geom.NewPointFlat(geom.XY, []float64{g.Center.Lng, g.Center.Lat})
	bounds.Extend(center)
	fc.Features = append(fc.Features, &geojson.Feature{
		ID:       "center",
		Geometry: center,
		Properties: map[string]interface{}{
			"kind":               "center",
			"keyword":            g.Keyword,
			"average_rank":       g.AverageRank,
			"ranked_cells":       g.RankedCells,
			"visibility_percent": g.VisibilityPercent,
		},
	})

	for _, row := range g.Cells {
		for _, c := range row {
			pt := geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat})
			bounds.Extend(pt)
			props := map[string]interface{}{
				"kind":                 "cell",
				"row":                  c.Row,
				"col":                  c.Col,
				"rank":                 nil,
				"nearby_competitors":   c.NearbyCompetitors,
				"distance_from_center": c.DistanceFromCenter,
			}
			if c.Rank != nil {
				props["rank"] = *c.Rank
			}
			if c.Error != "" {
				props["error"] = c.Error
			}
			fc.Features = append(fc.Features, &geojson.Feature{
				ID:         fmt.Sprintf("cell-%d-%d", c.Row, c.Col),
				Geometry:   pt,
				Properties: props,
			})
		}
	}
	fc.BBox = bounds
	return fc, nil
}

// MarshalGeoJSON encodes the grid as a GeoJSON FeatureCollection.
func MarshalGeoJSON(g *model.GeoGrid) ([]byte, error) {
	fc, err := FeatureCollection(g)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "geogrid: marshal geojson")
	}
	return data, nil
}
