// Package scorer turns acquired facts into reproducible 0-100 category
// scores. Every function here is pure: the same facts always give the same
// score, issues and strengths.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// Weights are the per-category weights of the overall score.
type Weights struct {
	Profile     float64 `yaml:"profile" mapstructure:"profile"`
	SEO         float64 `yaml:"seo" mapstructure:"seo"`
	Competitive float64 `yaml:"competitive" mapstructure:"competitive"`
	LeadCapture float64 `yaml:"lead_capture" mapstructure:"lead_capture"`
	AI          float64 `yaml:"ai_discoverability" mapstructure:"ai_discoverability"`
	FollowUp    float64 `yaml:"follow_up" mapstructure:"follow_up"`
}

// DefaultWeights returns the overall-score weights. They sum to 100.
func DefaultWeights() Weights {
	return Weights{
		Profile:     25,
		SEO:         20,
		Competitive: 20,
		LeadCapture: 15,
		AI:          10,
		FollowUp:    10,
	}
}

// For returns the weight of cat, or 0 for an unknown category.
func (w Weights) For(cat model.Category) float64 {
	switch cat {
	case model.CategoryProfile:
		return w.Profile
	case model.CategorySEO:
		return w.SEO
	case model.CategoryCompetitive:
		return w.Competitive
	case model.CategoryLeadCapture:
		return w.LeadCapture
	case model.CategoryAIDiscovery:
		return w.AI
	case model.CategoryFollowUp:
		return w.FollowUp
	}
	return 0
}

// WeightSum returns the sum of all category weights.
func WeightSum(w Weights) float64 {
	return w.Profile + w.SEO + w.Competitive + w.LeadCapture + w.AI + w.FollowUp
}

// ValidateWeights checks that the weights are usable.
func ValidateWeights(w Weights) error {
	var errs []string

	for _, cat := range model.AllCategories {
		if w.For(cat) < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", cat))
		}
	}

	sum := WeightSum(w)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	// Allow tolerance for floating-point.
	if math.Abs(sum-100) > 1 {
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %.1f", sum))
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: weights validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Grade maps an overall score to a letter.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Overall is the weighted mean of the present category scores, rounded, and
// its grade. Categories missing from scores do not count toward the weight.
func Overall(scores map[model.Category]int, w Weights) (int, string) {
	var sum, total float64
	for _, cat := range model.AllCategories {
		s, ok := scores[cat]
		if !ok {
			continue
		}
		weight := w.For(cat)
		sum += weight * float64(s)
		total += weight
	}
	if total == 0 {
		return 0, Grade(0)
	}
	score := clamp(int(math.Round(sum / total)))
	return score, Grade(score)
}

func clamp(score int) int {
	return max(0, min(100, score))
}
