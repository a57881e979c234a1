package benchmark

import (
	"math"
	"slices"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// priorityRule maps a gap percent to a priority bucket. Each field is an
// exclusive lower bound; a zero critical or high bound disables that bucket.
type priorityRule struct {
	critical float64
	high     float64
	medium   float64
}

func (r priorityRule) bucket(gap float64) model.Priority {
	switch {
	case r.critical > 0 && gap > r.critical:
		return model.PriorityCritical
	case r.high > 0 && gap > r.high:
		return model.PriorityHigh
	case gap > r.medium:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// priorityRules holds the gap-percent thresholds per metric. Rating is
// bucketed on star difference instead, see ratingPriority.
var priorityRules = map[string]priorityRule{
	"review_count":           {critical: 50, high: 20, medium: 0},
	"review_velocity":        {high: 50, medium: 20},
	"photo_count":            {high: 50, medium: 20},
	"profile_completeness":   {high: 30, medium: 10},
	"website_responsiveness": {high: 50, medium: 0},
	"years_in_business":      {medium: 100},
	"response_rate":          {high: 50, medium: 20},
	"post_frequency":         {medium: 50},
	"category_match":         {high: 50, medium: 0},
}

var recommendations = map[string]string{
	"review_count":           "Ask every satisfied customer for a review and make the review link easy to find",
	"rating":                 "Resolve complaints quickly and reply to every negative review to lift the average rating",
	"review_velocity":        "Send a review request after each job to keep new reviews arriving every month",
	"photo_count":            "Upload fresh photos of the team, the work and the location each month",
	"profile_completeness":   "Fill in every profile field: hours, phone, website and address",
	"website_responsiveness": "Make the website mobile friendly with a responsive layout",
	"years_in_business":      "Show the founding year and track record on the profile and website",
	"response_rate":          "Reply to every review within 48 hours",
	"post_frequency":         "Publish a profile update or offer every week",
	"category_match":         "Set the primary profile category to the main service",
}

// ratingPriority buckets the rating gap in stars.
func ratingPriority(stars float64) model.Priority {
	switch {
	case stars >= 0.5:
		return model.PriorityCritical
	case stars >= 0.2:
		return model.PriorityHigh
	default:
		return model.PriorityMedium
	}
}

// Gaps returns one finding for every metric where the subject is below the
// average, ordered critical to low. Ties keep metric order.
func Gaps(subject, average model.SignalSet) []model.GapFinding {
	var gaps []model.GapFinding
	for _, m := range Metrics {
		subj, avg := m.Value(subject), m.Value(average)
		if subj >= avg || avg <= 0 {
			continue
		}
		g := model.GapFinding{
			Metric:         m.Name,
			Subject:        subj,
			Average:        avg,
			Recommendation: recommendations[m.Key],
		}
		if m.Key == "rating" {
			g.GapPercent = int(math.Round((avg - subj) / 5 * 100))
			g.Priority = ratingPriority(avg - subj)
		} else {
			pct := (avg - subj) / avg * 100
			g.GapPercent = int(math.Round(pct))
			g.Priority = priorityRules[m.Key].bucket(pct)
		}
		gaps = append(gaps, g)
	}
	SortGaps(gaps)
	return gaps
}

// SortGaps orders gaps by priority, keeping the input order within a bucket.
func SortGaps(gaps []model.GapFinding) {
	slices.SortStableFunc(gaps, func(a, b model.GapFinding) int {
		return a.Priority.Rank() - b.Priority.Rank()
	})
}
