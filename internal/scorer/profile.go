package scorer

import (
	"fmt"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// Result is a deterministic category score with the issues, strengths and
// recommendations that follow directly from the facts.
type Result struct {
	Score           int      `json:"score"`
	Issues          []string `json:"issues"`
	Strengths       []string `json:"strengths"`
	Recommendations []string `json:"recommendations"`
}

func (r *Result) issue(text, rec string) {
	r.Issues = append(r.Issues, text)
	if rec != "" {
		r.Recommendations = append(r.Recommendations, rec)
	}
}

func (r *Result) strength(text string) {
	r.Strengths = append(r.Strengths, text)
}

// Profile scores directory-profile facts.
func Profile(p model.ProfileFacts) Result {
	var r Result
	score := 0

	score += scoreRating(p.Rating)
	switch {
	case p.Rating == nil:
		r.issue("No rating found on the business profile", "Ask recent customers for reviews to establish a star rating")
	case *p.Rating >= 4.5:
		r.strength(fmt.Sprintf("Excellent %.1f-star rating", *p.Rating))
	case *p.Rating < 4.0:
		r.issue(fmt.Sprintf("Rating of %.1f stars is below the 4.0 trust threshold", *p.Rating),
			"Respond to negative reviews and follow up with happy customers for fresh ratings")
	}

	score += scoreReviews(p.ReviewCount)
	switch {
	case p.ReviewCount == nil || *p.ReviewCount == 0:
		r.issue("No reviews on the business profile", "Start a review request routine after every completed job")
	case *p.ReviewCount >= 50:
		r.strength(fmt.Sprintf("%d reviews build strong social proof", *p.ReviewCount))
	case *p.ReviewCount < 10:
		r.issue(fmt.Sprintf("Only %d reviews on the business profile", *p.ReviewCount),
			"Reach at least 10 reviews to compete in the local pack")
	}

	score += scorePhotos(p.PhotoCount)
	switch {
	case p.PhotoCount == nil || *p.PhotoCount < 5:
		r.issue("Fewer than 5 photos on the business profile", "Upload photos of the storefront, team and work")
	case *p.PhotoCount >= 20:
		r.strength(fmt.Sprintf("%d profile photos", *p.PhotoCount))
	}

	if p.Address != "" {
		score += 10
	} else {
		r.issue("No address listed on the business profile", "Add a verified address or service area")
	}
	if p.Website != "" {
		score += 10
	} else {
		r.issue("No website linked from the business profile", "Link the website from the business profile")
	}
	if len(p.Hours) > 0 {
		score += 10
	} else {
		r.issue("No business hours set", "Publish regular business hours")
	}
	if p.OpenStatus != "" {
		score += 10
	}

	r.Score = min(100, score)
	return r
}

func scoreRating(rating *float64) int {
	switch {
	case rating == nil:
		return 0
	case *rating >= 4.5:
		return 20
	case *rating >= 4.0:
		return 15
	default:
		return 10
	}
}

func scoreReviews(count *int) int {
	switch {
	case count == nil || *count <= 0:
		return 0
	case *count >= 50:
		return 20
	case *count >= 10:
		return 15
	default:
		return 5
	}
}

func scorePhotos(count *int) int {
	switch {
	case count == nil:
		return 0
	case *count >= 20:
		return 20
	case *count >= 5:
		return 10
	default:
		return 0
	}
}
