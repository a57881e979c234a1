// Package geogrid samples local search rank on an N x N grid of points
// around a business, the way a customer standing at each point would see it.
package geogrid

import (
	"math"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// DegreesPerMile is the fixed approximation used for both axes.
const DegreesPerMile = 1.0 / 69.0

// MaxRank is the search window; a business outside it has no rank.
const MaxRank = 20

// ValidSize reports whether n is a supported grid size.
func ValidSize(n int) bool { return n == 5 || n == 7 }

// Lattice lays out size x size cells centered on center, spanning radius
// miles in each direction. Row 0 is the northern edge, column 0 the western.
func Lattice(center model.LatLng, size int, radiusMiles float64) [][]model.GeoGridCell {
	if size < 1 {
		return nil
	}
	step := 0.0
	if size > 1 {
		step = 2 * radiusMiles / float64(size-1)
	}
	cells := make([][]model.GeoGridCell, size)
	for r := range size {
		cells[r] = make([]model.GeoGridCell, size)
		north := radiusMiles - float64(r)*step
		if size == 1 {
			north = 0
		}
		for c := range size {
			east := -radiusMiles + float64(c)*step
			if size == 1 {
				east = 0
			}
			cells[r][c] = model.GeoGridCell{
				Row:                r,
				Col:                c,
				Lat:                center.Lat + north*DegreesPerMile,
				Lng:                center.Lng + east*DegreesPerMile,
				DistanceFromCenter: round2(math.Hypot(north, east)),
				NearbyCompetitors:  []string{},
			}
		}
	}
	return cells
}

// Aggregate fills AverageRank, RankedCells and VisibilityPercent from the
// cells. AverageRank only counts ranked cells and is 0 when none ranked.
func Aggregate(g *model.GeoGrid) {
	var total, ranked, top3, sum int
	for _, row := range g.Cells {
		for _, c := range row {
			total++
			if c.Rank == nil {
				continue
			}
			ranked++
			sum += *c.Rank
			if *c.Rank <= 3 {
				top3++
			}
		}
	}
	g.RankedCells = ranked
	g.AverageRank = 0
	g.VisibilityPercent = 0
	if ranked > 0 {
		g.AverageRank = round2(float64(sum) / float64(ranked))
	}
	if total > 0 {
		g.VisibilityPercent = round2(float64(top3) / float64(total) * 100)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
