package geogrid

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/google"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/serp"
)

const metersPerMile = 1609.34

// Listing is one map result at a grid point.
type Listing struct {
	Name    string
	Website string
}

// Lookup returns the ordered map results for keyword as seen from at.
type Lookup interface {
	Name() string
	Search(ctx context.Context, keyword string, at model.LatLng, radiusMiles float64) ([]Listing, error)
}

// SerpMapsLookup uses the SerpAPI google_maps engine centered on the point.
type SerpMapsLookup struct {
	client serp.Client
	zoom   int
}

// NewSerpMapsLookup creates a SerpMapsLookup at street-level zoom.
func NewSerpMapsLookup(client serp.Client) *SerpMapsLookup {
	return &SerpMapsLookup{client: client, zoom: 14}
}

func (l *SerpMapsLookup) Name() string { return "serp_maps" }

func (l *SerpMapsLookup) Search(ctx context.Context, keyword string, at model.LatLng, _ float64) ([]Listing, error) {
	resp, err := l.client.Maps(ctx, serp.MapsRequest{Query: keyword, Lat: at.Lat, Lng: at.Lng, Zoom: l.zoom})
	if err != nil {
		return nil, eris.Wrap(err, "serp_maps: search")
	}
	out := make([]Listing, 0, len(resp.LocalResults))
	for _, p := range resp.LocalResults {
		out = append(out, Listing{Name: p.Title, Website: p.WebsiteLink()})
	}
	return out, nil
}

// PlacesLookup uses Places text search biased to a circle around the point.
type PlacesLookup struct {
	client google.Client
}

// NewPlacesLookup creates a PlacesLookup.
func NewPlacesLookup(client google.Client) *PlacesLookup {
	return &PlacesLookup{client: client}
}

func (l *PlacesLookup) Name() string { return "places" }

func (l *PlacesLookup) Search(ctx context.Context, keyword string, at model.LatLng, radiusMiles float64) ([]Listing, error) {
	radius := radiusMiles * metersPerMile
	if radius <= 0 {
		radius = metersPerMile
	}
	resp, err := l.client.TextSearch(ctx, google.TextSearchRequest{
		Query:      keyword,
		MaxResults: MaxRank,
		Bias:       &google.Circle{Lat: at.Lat, Lng: at.Lng, RadiusMeters: radius},
	})
	if err != nil {
		return nil, eris.Wrap(err, "places: grid search")
	}
	out := make([]Listing, 0, len(resp.Places))
	for _, p := range resp.Places {
		out = append(out, Listing{Name: p.DisplayName.Text, Website: p.WebsiteURI})
	}
	return out, nil
}

// rankIn returns the 1-based position of the subject within the first
// MaxRank listings, plus up to three other names as nearby competitors.
func rankIn(listings []Listing, id model.Identity) (*int, []string) {
	var rank *int
	nearby := []string{}
	for i, l := range listings {
		if i >= MaxRank {
			break
		}
		if rank == nil && isSubject(l, id) {
			pos := i + 1
			rank = &pos
			continue
		}
		if len(nearby) < 3 && l.Name != "" {
			nearby = append(nearby, l.Name)
		}
	}
	return rank, nearby
}

func isSubject(l Listing, id model.Identity) bool {
	if id.Domain != "" && l.Website != "" && match.URLMatchesDomain(l.Website, id.Domain) {
		return true
	}
	return id.Name != "" && match.SameBusiness(l.Name, id.Name)
}
