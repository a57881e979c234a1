package source

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/google"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/jina"
)

// ProfileAdapter resolves directory-profile facts for the subject business.
type ProfileAdapter struct {
	chain *Chain[model.ProfileFacts]
}

// NewProfileAdapter wraps a profile chain.
func NewProfileAdapter(chain *Chain[model.ProfileFacts]) *ProfileAdapter {
	return &ProfileAdapter{chain: chain}
}

// Fetch always returns a record. When no provider yields a rating or review
// signal the record is marked unavailable and carries the reasons.
func (a *ProfileAdapter) Fetch(ctx context.Context, id model.Identity) model.ProfileFacts {
	out := a.chain.Run(ctx, id)
	if !out.Found() {
		return model.ProfileFacts{SourceMeta: model.SourceMeta{
			DataSource: model.DataSourceUnavailable,
			Error:      out.Err.Error(),
		}}
	}
	facts := out.Value
	facts.Provider = out.Provider
	return facts
}

// ProfileLinkProvider reads the explicitly supplied profile page through the
// reader service and pulls signals out of its text.
type ProfileLinkProvider struct {
	reader jina.Client
}

// NewProfileLinkProvider creates the profile_link provider.
func NewProfileLinkProvider(reader jina.Client) *ProfileLinkProvider {
	return &ProfileLinkProvider{reader: reader}
}

func (p *ProfileLinkProvider) Name() string { return "profile_link" }

func (p *ProfileLinkProvider) Fetch(ctx context.Context, id model.Identity) (model.ProfileFacts, bool, error) {
	if strings.TrimSpace(id.ProfileURL) == "" {
		return model.ProfileFacts{}, false, nil
	}
	resp, err := p.reader.Read(ctx, id.ProfileURL)
	if err != nil {
		return model.ProfileFacts{}, false, eris.Wrap(err, "profile_link: read")
	}

	facts := ParseProfileText(resp.Data.Content)
	facts.DataSource = model.DataSourceRealProfile
	facts.MapsURL = id.ProfileURL
	if facts.Name == "" {
		facts.Name = strings.TrimSpace(strings.TrimSuffix(resp.Data.Title, " - Google Maps"))
	}
	return facts, facts.HasSignal(), nil
}

var (
	ratingWithCountRe = regexp.MustCompile(`\b([1-5][.,]\d)\s*(?:★+\s*)?\(([\d,.]+[kK]?)\)`)
	ratingRe          = regexp.MustCompile(`(?i)\b([1-5][.,]\d)\s*(?:★|stars?\b|out of 5)`)
	reviewsRe         = regexp.MustCompile(`(?i)\b([\d,.]+[kK]?)\s+(?:google\s+)?reviews?\b`)
	photosRe          = regexp.MustCompile(`(?i)\b([\d,.]+[kK]?)\+?\s+photos?\b`)
	phoneRe           = regexp.MustCompile(`(?:\+1[\s.-]?)?\(?\b\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	openStatusRe      = regexp.MustCompile(`(?i)\b(open 24 hours|open now|temporarily closed|permanently closed|closed now|(?:opens?|closes?)\s+(?:at\s+)?\d{1,2}(?::\d{2})?\s*[ap]\.?m\.?)`)
	hoursLineRe       = regexp.MustCompile(`(?im)^[\s*|-]*((?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b[^\n]*?\d[^\n]*)$`)
	addressRe         = regexp.MustCompile(`(?i)\b\d{1,6}\s+[\w .'-]{2,40}?\b(?:st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|way|ct|court|pl|place|hwy|highway|pkwy|parkway)\b\.?(?:[, ]+[\w .'-]+){0,3}?,?\s+[A-Z]{2}\s+\d{5}\b`)
	headingRe         = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// ParseProfileText extracts profile signals from reader-mode page text.
// Absent signals stay nil.
func ParseProfileText(text string) model.ProfileFacts {
	var f model.ProfileFacts

	if m := headingRe.FindStringSubmatch(text); m != nil {
		f.Name = strings.TrimSpace(m[1])
	}

	if m := ratingWithCountRe.FindStringSubmatch(text); m != nil {
		if r, ok := parseRating(m[1]); ok {
			f.Rating = &r
		}
		if n, ok := parseCount(m[2]); ok {
			f.ReviewCount = &n
		}
	}
	if f.Rating == nil {
		if m := ratingRe.FindStringSubmatch(text); m != nil {
			if r, ok := parseRating(m[1]); ok {
				f.Rating = &r
			}
		}
	}
	if f.ReviewCount == nil {
		if m := reviewsRe.FindStringSubmatch(text); m != nil {
			if n, ok := parseCount(m[1]); ok {
				f.ReviewCount = &n
			}
		}
	}
	if m := photosRe.FindStringSubmatch(text); m != nil {
		if n, ok := parseCount(m[1]); ok {
			f.PhotoCount = &n
		}
	}

	f.Phone = strings.TrimSpace(phoneRe.FindString(text))
	f.Address = strings.TrimSpace(addressRe.FindString(text))
	if m := openStatusRe.FindStringSubmatch(text); m != nil {
		f.OpenStatus = normalizeStatus(m[1])
	}
	for _, m := range hoursLineRe.FindAllStringSubmatch(text, 7) {
		f.Hours = append(f.Hours, strings.TrimSpace(m[1]))
	}
	return f
}

func parseRating(s string) (float64, bool) {
	r, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || r < 1 || r > 5 {
		return 0, false
	}
	return r, true
}

// parseCount reads "1,234", "1.2k" or "87".
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	mult := 1.0
	if strings.HasSuffix(strings.ToLower(s), "k") {
		mult = 1000
		s = s[:len(s)-1]
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.NewReplacer(",", "", ".", "").Replace(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return int(v*mult + 0.5), true
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	switch {
	case strings.HasPrefix(s, "open 24"):
		return "open_24_hours"
	case s == "open now" || strings.HasPrefix(s, "closes"):
		return "open"
	case strings.HasPrefix(s, "opens") || s == "closed now":
		return "closed"
	case s == "temporarily closed":
		return "temporarily_closed"
	case s == "permanently closed":
		return "permanently_closed"
	}
	return s
}

// PlacesProfileProvider looks the business up in the structured directory
// by name and location.
type PlacesProfileProvider struct {
	places google.Client
}

// NewPlacesProfileProvider creates the places profile provider.
func NewPlacesProfileProvider(places google.Client) *PlacesProfileProvider {
	return &PlacesProfileProvider{places: places}
}

func (p *PlacesProfileProvider) Name() string { return "places" }

func (p *PlacesProfileProvider) Fetch(ctx context.Context, id model.Identity) (model.ProfileFacts, bool, error) {
	resp, err := p.places.TextSearch(ctx, google.TextSearchRequest{
		Query:      id.Name + " " + id.Location,
		MaxResults: 5,
	})
	if err != nil {
		return model.ProfileFacts{}, false, eris.Wrap(err, "places: profile search")
	}

	place, ok := pickSubject(resp.Places, id)
	if !ok {
		return model.ProfileFacts{}, false, nil
	}
	facts := profileFromPlace(place)
	facts.DataSource = model.DataSourceStructuredSearch
	return facts, facts.HasSignal(), nil
}

// pickSubject prefers a result on the subject's own domain, then one whose
// name contains the subject's name.
func pickSubject(places []google.Place, id model.Identity) (google.Place, bool) {
	if id.Domain != "" {
		for _, pl := range places {
			if pl.WebsiteURI != "" && match.SiteKey(pl.WebsiteURI) == id.Domain {
				return pl, true
			}
		}
	}
	for _, pl := range places {
		if match.SameBusiness(pl.DisplayName.Text, id.Name) {
			return pl, true
		}
	}
	return google.Place{}, false
}

func profileFromPlace(pl google.Place) model.ProfileFacts {
	f := model.ProfileFacts{
		Name:       pl.DisplayName.Text,
		Address:    pl.FormattedAddress,
		Phone:      pl.NationalPhoneNumber,
		Website:    pl.WebsiteURI,
		Categories: pl.Types,
		MapsURL:    pl.GoogleMapsURI,
	}
	if pl.Rating > 0 {
		r := pl.Rating
		f.Rating = &r
	}
	if pl.HasRating() {
		n := pl.UserRatingCount
		f.ReviewCount = &n
	}
	if len(pl.Photos) > 0 {
		n := len(pl.Photos)
		f.PhotoCount = &n
	}
	if pl.RegularOpeningHours != nil {
		f.Hours = pl.RegularOpeningHours.WeekdayDescriptions
		if pl.RegularOpeningHours.OpenNow != nil {
			f.OpenStatus = "closed"
			if *pl.RegularOpeningHours.OpenNow {
				f.OpenStatus = "open"
			}
		}
	}
	if f.OpenStatus == "" && pl.BusinessStatus != "" && pl.BusinessStatus != "OPERATIONAL" {
		f.OpenStatus = strings.ToLower(pl.BusinessStatus)
	}
	if pl.Location != nil {
		f.Location = &model.LatLng{Lat: pl.Location.Latitude, Lng: pl.Location.Longitude}
	}
	return f
}
