package scorer

import (
	"fmt"
	"unicode/utf8"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

const (
	siteBase        = 50
	siteUnavailable = 20
	minTitleLen     = 30
	maxTitleLen     = 60
	minMetaLen      = 120
)

// Site scores on-site SEO from the homepage facts plus rank bonuses. The
// bonuses stack on top of the base table and the total is clamped once.
func Site(s model.SiteFacts, rank model.RankFacts) Result {
	var r Result
	score := siteBase

	if !s.Fetched() {
		score = siteUnavailable
		r.issue("Homepage could not be fetched", "Make sure the homepage loads for search engine crawlers")
	} else {
		score += siteOnPage(s, &r)
	}

	score += rankBonus(rank, &r)

	r.Score = clamp(score)
	return r
}

func siteOnPage(s model.SiteFacts, r *Result) int {
	points := 0

	titleLen := utf8.RuneCountInString(s.Title)
	switch {
	case titleLen >= minTitleLen && titleLen <= maxTitleLen:
		points += 10
		r.strength("Title tag length is in the 30-60 character range")
	case titleLen == 0:
		r.issue("Homepage has no title tag", "Write a 30-60 character title with the service and city")
	default:
		r.issue(fmt.Sprintf("Title tag is %d characters", titleLen), "Rewrite the title to 30-60 characters")
	}

	if utf8.RuneCountInString(s.MetaDescription) >= minMetaLen {
		points += 10
	} else {
		r.issue("Meta description is missing or shorter than 120 characters",
			"Write a 120-160 character meta description that names the city")
	}

	switch h1 := s.Headings["h1"]; h1 {
	case 1:
		points += 10
	case 0:
		r.issue("Homepage has no H1 heading", "Add a single H1 naming the main service")
	default:
		r.issue(fmt.Sprintf("Homepage has %d H1 headings", h1), "Keep exactly one H1 per page")
	}

	if len(s.Schema.Types) > 0 {
		points += 10
		r.strength("Structured data present")
	} else {
		r.issue("No structured data on the homepage", "Add LocalBusiness JSON-LD with name, address and phone")
	}

	if s.Phone != "" {
		points += 10
	} else {
		r.issue("No phone number found on the homepage", "Show a click-to-call phone number above the fold")
	}

	if s.HasViewport {
		points += 10
	} else {
		r.issue("No mobile viewport meta tag", "Add a responsive viewport meta tag")
	}

	return points
}

func rankBonus(rank model.RankFacts, r *Result) int {
	points := 0
	if avg := rank.AveragePosition; avg != nil {
		switch {
		case *avg <= 10:
			points += 20
			r.strength(fmt.Sprintf("Average organic position %.1f", *avg))
		case *avg <= 20:
			points += 10
		default:
			r.issue(fmt.Sprintf("Average organic position %.1f is past page two", *avg), "")
		}
	} else if rank.DataSource.Available() {
		r.issue("Website not found in the top organic results for local queries",
			"Build location pages targeting the main service keywords")
	}
	if rank.InLocalPack {
		points += 15
		r.strength("Appears in the local map pack")
	}
	return points
}
