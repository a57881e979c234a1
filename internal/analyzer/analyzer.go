// Package analyzer builds each audit section: a deterministic score from the
// scorer, narrative from one grounded generative call, and fact-derived
// lists that always come before generated ones.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/grounding"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/scorer"
)

// Analyzer runs the category and synthesis steps. It never returns errors:
// missing facts and failed generations degrade to templates.
type Analyzer struct {
	validator *grounding.Validator
}

// New creates an Analyzer. A nil validator skips generation entirely.
func New(v *grounding.Validator) *Analyzer {
	return &Analyzer{validator: v}
}

// displayNames are the section titles used in summaries and plans.
var displayNames = map[model.Category]string{
	model.CategoryProfile:     "Business profile",
	model.CategorySEO:         "On-site SEO",
	model.CategoryCompetitive: "Competitive landscape",
	model.CategoryAIDiscovery: "AI discoverability",
	model.CategoryLeadCapture: "Lead capture",
	model.CategoryFollowUp:    "Follow-up",
}

// DisplayName returns the section title for cat.
func DisplayName(cat model.Category) string {
	if n, ok := displayNames[cat]; ok {
		return n
	}
	return string(cat)
}

func lists(r scorer.Result) grounding.Lists {
	return grounding.Lists{Issues: r.Issues, Strengths: r.Strengths, Recommendations: r.Recommendations}
}

// sourceOf returns the provenance tag, treating an empty tag as unavailable.
func sourceOf(meta model.SourceMeta) model.DataSource {
	if meta.DataSource == "" {
		return model.DataSourceUnavailable
	}
	return meta.DataSource
}

// ideas returns the generated list, or fallback when nothing usable came back.
func ideas(generated, fallback []string) []string {
	if merged := grounding.MergeList(nil, generated); len(merged) > 0 {
		return merged
	}
	return fallback
}

func ratingPhrase(rating *float64, reviews *int) string {
	switch {
	case rating != nil && reviews != nil && *reviews > 0:
		return fmt.Sprintf(" Customers rate it %.1f stars across %d reviews.", *rating, *reviews)
	case rating != nil:
		return fmt.Sprintf(" Customers rate it %.1f stars.", *rating)
	default:
		return ""
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}
