package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/google"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/serp"
)

// MaxCompetitors caps every competitor set.
const MaxCompetitors = 10

// CompetitorQuery is the search used to find the subject's competitors.
func CompetitorQuery(id model.Identity) string {
	return fmt.Sprintf("%s in %s", id.Niche, id.Location)
}

// CompetitorAdapter resolves the competitor set.
type CompetitorAdapter struct {
	chain *Chain[[]model.Competitor]
}

// NewCompetitorAdapter wraps a competitor chain.
func NewCompetitorAdapter(chain *Chain[[]model.Competitor]) *CompetitorAdapter {
	return &CompetitorAdapter{chain: chain}
}

// Fetch always returns a record; an empty set is marked unavailable.
func (a *CompetitorAdapter) Fetch(ctx context.Context, id model.Identity) model.CompetitorSet {
	set := model.CompetitorSet{Query: CompetitorQuery(id)}
	out := a.chain.Run(ctx, id)
	if !out.Found() {
		set.DataSource = model.DataSourceUnavailable
		set.Error = out.Err.Error()
		return set
	}
	set.Competitors = out.Value
	set.Provider = out.Provider
	set.DataSource = model.DataSourceStructuredSearch
	if out.Provider == "search_page" {
		set.DataSource = model.DataSourceScrapeFallback
	}
	return set
}

// excludeSubject drops entries naming the subject or on its domain, then caps.
func excludeSubject(in []model.Competitor, id model.Identity) []model.Competitor {
	out := make([]model.Competitor, 0, min(len(in), MaxCompetitors))
	seen := map[string]bool{}
	for _, c := range in {
		if strings.TrimSpace(c.Name) == "" || match.SameBusiness(c.Name, id.Name) {
			continue
		}
		if id.Domain != "" && c.Website != "" && match.SiteKey(c.Website) == id.Domain {
			continue
		}
		key := match.Fold(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if len(out) == MaxCompetitors {
			break
		}
	}
	return out
}

// PlacesCompetitorProvider runs a directory text search for the niche.
type PlacesCompetitorProvider struct {
	places google.Client
}

// NewPlacesCompetitorProvider creates the places competitor provider.
func NewPlacesCompetitorProvider(places google.Client) *PlacesCompetitorProvider {
	return &PlacesCompetitorProvider{places: places}
}

func (p *PlacesCompetitorProvider) Name() string { return "places" }

func (p *PlacesCompetitorProvider) Fetch(ctx context.Context, id model.Identity) ([]model.Competitor, bool, error) {
	resp, err := p.places.TextSearch(ctx, google.TextSearchRequest{
		Query:      CompetitorQuery(id),
		MaxResults: 20,
	})
	if err != nil {
		return nil, false, eris.Wrap(err, "places: competitor search")
	}

	all := make([]model.Competitor, 0, len(resp.Places))
	for _, pl := range resp.Places {
		all = append(all, competitorFromPlace(pl))
	}
	out := excludeSubject(all, id)
	return out, len(out) > 0, nil
}

func competitorFromPlace(pl google.Place) model.Competitor {
	f := profileFromPlace(pl)
	return model.Competitor{
		Name:        f.Name,
		Rating:      f.Rating,
		ReviewCount: f.ReviewCount,
		PhotoCount:  f.PhotoCount,
		Address:     f.Address,
		Phone:       f.Phone,
		Website:     f.Website,
		HasHours:    len(f.Hours) > 0,
		OpenStatus:  f.OpenStatus,
		Categories:  f.Categories,
	}
}

// SearchPageCompetitorProvider reads a web results page: the local pack
// first, then organic listings.
type SearchPageCompetitorProvider struct {
	search serp.Client
}

// NewSearchPageCompetitorProvider creates the search_page provider.
func NewSearchPageCompetitorProvider(search serp.Client) *SearchPageCompetitorProvider {
	return &SearchPageCompetitorProvider{search: search}
}

func (p *SearchPageCompetitorProvider) Name() string { return "search_page" }

func (p *SearchPageCompetitorProvider) Fetch(ctx context.Context, id model.Identity) ([]model.Competitor, bool, error) {
	resp, err := p.search.Search(ctx, serp.SearchRequest{
		Query:    CompetitorQuery(id),
		Location: id.Location,
	})
	if err != nil {
		return nil, false, eris.Wrap(err, "search_page: competitor search")
	}

	var all []model.Competitor
	for _, pl := range resp.LocalResults.Places {
		all = append(all, competitorFromLocalPlace(pl))
	}
	for _, r := range resp.OrganicResults {
		all = append(all, model.Competitor{
			Name:    organicName(r.Title),
			Website: r.Link,
		})
	}
	out := excludeSubject(all, id)
	return out, len(out) > 0, nil
}

func competitorFromLocalPlace(pl serp.LocalPlace) model.Competitor {
	c := model.Competitor{
		Name:     pl.Title,
		Address:  pl.Address,
		Phone:    pl.Phone,
		Website:  pl.WebsiteLink(),
		HasHours: pl.Hours != "",
	}
	if pl.Rating > 0 {
		r := pl.Rating
		c.Rating = &r
	}
	if pl.Reviews > 0 {
		n := pl.Reviews
		c.ReviewCount = &n
	}
	if pl.Type != "" {
		c.Categories = []string{pl.Type}
	}
	return c
}

// organicName trims site suffixes: "Luigi's Pizza | Brooklyn" -> "Luigi's Pizza".
func organicName(title string) string {
	for _, sep := range []string{" | ", " - ", " – ", " — "} {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}
