// Package benchmark compares the subject business against its local
// competitors on a fixed set of ten signals.
package benchmark

import (
	"math"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

const (
	// assumedAgeMonths is the business age used to turn a review count
	// into a monthly review velocity.
	assumedAgeMonths = 36
	assumedYears     = 3

	activeSocialPosts = 4 // posts per month when the owner reports an active social presence
)

// Metric identifies one signal.
type Metric struct {
	Key     string
	Name    string
	Ceiling float64
	get     func(model.SignalSet) float64
	set     func(*model.SignalSet, float64)
}

// Metrics lists the ten signals in report order with their normalization
// ceilings.
var Metrics = []Metric{
	{"review_count", "Review Count", 200,
		func(s model.SignalSet) float64 { return s.ReviewCount }, func(s *model.SignalSet, v float64) { s.ReviewCount = v }},
	{"rating", "Rating", 5,
		func(s model.SignalSet) float64 { return s.Rating }, func(s *model.SignalSet, v float64) { s.Rating = v }},
	{"review_velocity", "Review Velocity", 10,
		func(s model.SignalSet) float64 { return s.ReviewVelocity }, func(s *model.SignalSet, v float64) { s.ReviewVelocity = v }},
	{"photo_count", "Photo Count", 30,
		func(s model.SignalSet) float64 { return s.PhotoCount }, func(s *model.SignalSet, v float64) { s.PhotoCount = v }},
	{"profile_completeness", "Profile Completeness", 100,
		func(s model.SignalSet) float64 { return s.ProfileCompleteness }, func(s *model.SignalSet, v float64) { s.ProfileCompleteness = v }},
	{"website_responsiveness", "Website Responsiveness", 100,
		func(s model.SignalSet) float64 { return s.WebsiteResponsiveness }, func(s *model.SignalSet, v float64) { s.WebsiteResponsiveness = v }},
	{"years_in_business", "Years in Business", 10,
		func(s model.SignalSet) float64 { return s.YearsInBusiness }, func(s *model.SignalSet, v float64) { s.YearsInBusiness = v }},
	{"response_rate", "Response Rate", 100,
		func(s model.SignalSet) float64 { return s.ResponseRate }, func(s *model.SignalSet, v float64) { s.ResponseRate = v }},
	{"post_frequency", "Post Frequency", 10,
		func(s model.SignalSet) float64 { return s.PostFrequency }, func(s *model.SignalSet, v float64) { s.PostFrequency = v }},
	{"category_match", "Category Match", 100,
		func(s model.SignalSet) float64 { return s.CategoryMatch }, func(s *model.SignalSet, v float64) { s.CategoryMatch = v }},
}

// Value returns the metric's value in s.
func (m Metric) Value(s model.SignalSet) float64 { return m.get(s) }

// Normalize scales v to 0-100 against the metric ceiling.
func (m Metric) Normalize(v float64) float64 {
	if m.Ceiling <= 0 {
		return 0
	}
	return round1(math.Min(100, v/m.Ceiling*100))
}

// observed is the subset of directory facts both the subject and
// competitors can supply.
type observed struct {
	name       string
	rating     *float64
	reviews    *int
	photos     *int
	address    bool
	phone      bool
	website    bool
	hours      bool
	openStatus bool
	categories []string
}

// reported says whether a metric derives from a fact the directory actually
// returned. Metrics missing here are always estimable.
var reported = map[string]func(observed) bool{
	"review_count":      hasReviews,
	"review_velocity":   hasReviews,
	"years_in_business": hasReviews,
	"rating":            hasRating,
	"response_rate":     hasRating,
	"photo_count":       hasPhotos,
	"post_frequency":    hasPhotos,
}

func hasReviews(o observed) bool { return o.reviews != nil }
func hasRating(o observed) bool  { return o.rating != nil }
func hasPhotos(o observed) bool  { return o.photos != nil }

func fromProfile(name string, p model.ProfileFacts) observed {
	if p.Name != "" {
		name = p.Name
	}
	return observed{
		name:       name,
		rating:     p.Rating,
		reviews:    p.ReviewCount,
		photos:     p.PhotoCount,
		address:    p.Address != "",
		phone:      p.Phone != "",
		website:    p.Website != "",
		hours:      len(p.Hours) > 0,
		openStatus: p.OpenStatus != "",
		categories: p.Categories,
	}
}

func fromCompetitor(c model.Competitor) observed {
	return observed{
		name:       c.Name,
		rating:     c.Rating,
		reviews:    c.ReviewCount,
		photos:     c.PhotoCount,
		address:    c.Address != "",
		phone:      c.Phone != "",
		website:    c.Website != "",
		hours:      c.HasHours,
		openStatus: c.OpenStatus != "",
		categories: c.Categories,
	}
}

// signals estimates the full vector from observed facts. responsiveness is
// supplied by the caller since only the subject's site is fetched.
func signals(o observed, niche string, responsiveness float64) model.SignalSet {
	reviews := float64(deref(o.reviews))
	photos := float64(deref(o.photos))

	s := model.SignalSet{
		Name:                  o.name,
		ReviewCount:           reviews,
		ReviewVelocity:        round1(reviews / assumedAgeMonths),
		PhotoCount:            photos,
		ProfileCompleteness:   completeness(o),
		WebsiteResponsiveness: responsiveness,
		ResponseRate:          responseRate(o.rating),
		PostFrequency:         round1(math.Min(10, photos/12)),
		CategoryMatch:         categoryMatch(o.categories, niche),
	}
	if o.rating != nil {
		s.Rating = *o.rating
	}
	if reviews > 0 {
		s.YearsInBusiness = assumedYears
	}
	return s
}

// completeness is the share of profile fields that are filled in.
func completeness(o observed) float64 {
	fields := []bool{
		o.rating != nil,
		deref(o.reviews) > 0,
		deref(o.photos) > 0,
		o.address,
		o.phone,
		o.website,
		o.hours,
		o.openStatus,
	}
	filled := 0
	for _, f := range fields {
		if f {
			filled++
		}
	}
	return round1(float64(filled) / float64(len(fields)) * 100)
}

// responseRate estimates how often the owner answers reviews from the
// rating tier.
func responseRate(rating *float64) float64 {
	switch {
	case rating == nil:
		return 0
	case *rating >= 4.5:
		return 80
	case *rating >= 4.0:
		return 60
	case *rating >= 3.5:
		return 40
	default:
		return 20
	}
}

// categoryMatch is 100 when a listed category mentions the niche, 50 when
// categories are unknown and 0 otherwise.
func categoryMatch(categories []string, niche string) float64 {
	token := match.FirstToken(niche)
	if len(categories) == 0 || token == "" {
		return 50
	}
	for _, c := range categories {
		if match.ContainsFold(c, token) {
			return 100
		}
	}
	return 0
}

// subjectResponsiveness scores the fetched homepage: responsive 100,
// fetched without a viewport 50, not fetched 0.
func subjectResponsiveness(site model.SiteFacts) float64 {
	switch {
	case !site.Fetched():
		return 0
	case site.HasViewport:
		return 100
	default:
		return 50
	}
}

// competitorResponsiveness is an estimate: competitor sites are not
// fetched, so a linked website counts as half.
func competitorResponsiveness(c model.Competitor) float64 {
	if c.Website != "" {
		return 50
	}
	return 0
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
