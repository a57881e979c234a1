package scorer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// noCompetitorScore is used when the competitor search came back empty.
const noCompetitorScore = 20

// AI scores how likely an AI answer engine is to recommend the business.
func AI(a model.AnswerFacts, s model.SiteFacts, p model.ProfileFacts) Result {
	var r Result
	score := 0

	switch {
	case a.Mentioned:
		score += 35
		r.strength("Named by an AI answer engine for a local query")
	case a.DataSource.Available():
		r.issue(fmt.Sprintf("Not mentioned by an AI answer engine for %q", a.Query),
			"Publish clear service and location pages that answer common customer questions")
	}
	if a.DomainCited {
		score += 15
		r.strength("Website cited as an AI answer source")
	}
	if len(a.CompetitorsMentioned) > 0 && !a.Mentioned {
		r.issue("AI answers name competitors instead: "+strings.Join(a.CompetitorsMentioned, ", "), "")
	}

	if s.Schema.BusinessName != "" || s.Schema.HasType("LocalBusiness") {
		score += 15
	} else {
		r.issue("No LocalBusiness structured data", "Add LocalBusiness JSON-LD so AI engines can read the business details")
	}
	if s.Schema.HasType("FAQPage") {
		score += 10
		r.strength("FAQ structured data present")
	} else {
		r.issue("No FAQ structured data", "Add an FAQ section marked up with FAQPage schema")
	}
	if p.ReviewCount != nil && *p.ReviewCount >= 50 {
		score += 10
	}
	if p.Rating != nil && *p.Rating >= 4.0 {
		score += 10
	}
	if utf8.RuneCountInString(s.MetaDescription) >= minMetaLen {
		score += 5
	}

	r.Score = clamp(score)
	return r
}

// Competitive passes the benchmark score through. Without competitors the
// category falls back to a fixed low score.
func Competitive(b *model.Benchmark) Result {
	var r Result
	if b == nil || len(b.Competitors) == 0 {
		r.issue("No competitors found to benchmark against", "")
		r.Score = noCompetitorScore
		return r
	}
	r.Score = clamp(b.Score)
	for _, g := range b.Gaps {
		switch g.Priority {
		case model.PriorityCritical, model.PriorityHigh:
			r.issue(fmt.Sprintf("%s trails the competitor average by %d%%", g.Metric, g.GapPercent), g.Recommendation)
		}
	}
	if b.Position == model.PositionLeader {
		r.strength("Leads the local competitor set")
	}
	return r
}
