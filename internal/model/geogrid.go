package model

// GeoGridCell is one rank sample in the visibility grid.
type GeoGridCell struct {
	Row                int      `json:"row"`
	Col                int      `json:"col"`
	Lat                float64  `json:"lat"`
	Lng                float64  `json:"lng"`
	Rank               *int     `json:"rank"`
	NearbyCompetitors  []string `json:"nearby_competitors"`
	DistanceFromCenter float64  `json:"distance_from_center"`
	Error              string   `json:"error,omitempty"`
}

// GeoGrid is an N x N matrix of cells around the business location.
//
// AverageRank is 0 when no cell ranked; RankedCells == 0 is the "no data"
// state and must not be read as a top rank.
type GeoGrid struct {
	SourceMeta
	Keyword           string          `json:"keyword"`
	Center            LatLng          `json:"center"`
	Size              int             `json:"size"`
	RadiusMiles       float64         `json:"radius_miles"`
	Cells             [][]GeoGridCell `json:"cells"`
	AverageRank       float64         `json:"average_rank"`
	RankedCells       int             `json:"ranked_cells"`
	VisibilityPercent float64         `json:"visibility_percent"`
}

// HasData reports whether at least one cell produced a rank.
func (g *GeoGrid) HasData() bool {
	return g != nil && g.RankedCells > 0
}
