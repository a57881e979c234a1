// Package estimate turns category scores and self-reported volumes into a
// monthly and annual revenue-opportunity estimate.
package estimate

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

const (
	defaultVisitors   = 500
	defaultLeadRate   = 0.02 // leads per visitor when none reported
	defaultAvgRevenue = 500.0
	closeRate         = 0.25

	conversionUplift  = 0.03 // added conversion at a full lead-capture gap
	missedCallUplift  = 0.15 // added leads without call coverage
	visibilityUplift  = 0.20 // added visitors at a full SEO gap
	confidenceBase    = 0.4
	confidencePerFact = 0.2
)

// nicheRevenue maps a niche keyword to an average revenue per customer.
// The first matching keyword wins.
var nicheRevenue = []struct {
	keyword string
	revenue float64
}{
	{"roof", 8000},
	{"real estate", 9000},
	{"attorney", 3500},
	{"law", 3500},
	{"dentist", 800},
	{"dental", 800},
	{"hvac", 450},
	{"auto", 450},
	{"plumb", 350},
	{"electric", 300},
	{"landscap", 250},
	{"vet", 200},
	{"clean", 180},
	{"salon", 80},
	{"chiro", 60},
	{"gym", 50},
	{"fitness", 50},
	{"pizza", 35},
	{"restaurant", 35},
	{"cafe", 20},
}

// AvgRevenueFor returns the table value for niche, or the default.
func AvgRevenueFor(niche string) float64 {
	for _, n := range nicheRevenue {
		if match.ContainsFold(niche, n.keyword) {
			return n.revenue
		}
	}
	return defaultAvgRevenue
}

// Opportunity estimates the monthly upside from closing the lead-capture
// and SEO gaps and from recovering missed calls.
func Opportunity(req model.AuditRequest, scores map[model.Category]int) *model.RevenueOpportunity {
	var assumptions []string
	supplied := 0

	visitors := float64(defaultVisitors)
	if v := req.Volume.MonthlyVisitors; v != nil && *v > 0 {
		visitors = float64(*v)
		supplied++
	} else {
		assumptions = append(assumptions, fmt.Sprintf("Assumed %d monthly website visitors", defaultVisitors))
	}

	leads := visitors * defaultLeadRate
	if l := req.Volume.MonthlyLeads; l != nil && *l >= 0 {
		leads = float64(*l)
		supplied++
	} else {
		assumptions = append(assumptions, fmt.Sprintf("Assumed %.0f%% of visitors become leads", defaultLeadRate*100))
	}

	avgRevenue := AvgRevenueFor(req.Niche)
	if r := req.Volume.AvgRevenue; r != nil && *r > 0 {
		avgRevenue = *r
		supplied++
	} else {
		assumptions = append(assumptions, fmt.Sprintf("Assumed $%.0f average revenue per customer for %s", avgRevenue, req.Niche))
	}
	assumptions = append(assumptions, fmt.Sprintf("Assumed a %.0f%% close rate", closeRate*100))

	conversion := 0.0
	if visitors > 0 {
		conversion = leads / visitors
	}

	seoGap := gap(scores, model.CategorySEO)
	leadGap := gap(scores, model.CategoryLeadCapture)

	potentialVisitors := visitors * (1 + visibilityUplift*seoGap)
	potentialLeads := potentialVisitors * (conversion + conversionUplift*leadGap)
	if !req.Flags.HasCallCoverage {
		potentialLeads *= 1 + missedCallUplift
		assumptions = append(assumptions, fmt.Sprintf("Missed-call recovery adds %.0f%% more leads", missedCallUplift*100))
	}
	potentialLeads = math.Max(potentialLeads, leads)

	monthly := int64(math.Round((potentialLeads - leads) * closeRate * avgRevenue))
	opp := &model.RevenueOpportunity{
		CurrentMonthlyLeads:   round1(leads),
		PotentialMonthlyLeads: round1(potentialLeads),
		AvgRevenue:            avgRevenue,
		CloseRate:             closeRate,
		MonthlyOpportunity:    monthly,
		AnnualOpportunity:     monthly * 12,
		Confidence:            math.Min(1, confidenceBase+confidencePerFact*float64(supplied)),
		Method:                "funnel_uplift",
		Assumptions:           assumptions,
	}

	zap.L().Debug("estimate: revenue opportunity",
		zap.Float64("current_leads", opp.CurrentMonthlyLeads),
		zap.Float64("potential_leads", opp.PotentialMonthlyLeads),
		zap.Int64("monthly", opp.MonthlyOpportunity),
		zap.Float64("confidence", opp.Confidence),
	)
	return opp
}

// gap is the missing share of a category score, 0 when the category is absent.
func gap(scores map[model.Category]int, cat model.Category) float64 {
	s, ok := scores[cat]
	if !ok {
		return 0
	}
	return float64(100-max(0, min(100, s))) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
