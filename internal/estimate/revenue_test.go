package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestAvgRevenueFor(t *testing.T) {
	assert.Equal(t, 350.0, AvgRevenueFor("Plumbing"))
	assert.Equal(t, 35.0, AvgRevenueFor("pizza restaurant"))
	assert.Equal(t, 8000.0, AvgRevenueFor("roofing contractor"))
	assert.Equal(t, 500.0, AvgRevenueFor("bespoke tailoring"))
}

func TestOpportunity_SuppliedVolumes(t *testing.T) {
	req := model.AuditRequest{
		Niche: "plumbing",
		Flags: model.OperationalFlags{HasCallCoverage: true},
		Volume: model.VolumeMetrics{
			MonthlyVisitors: ptr(1000),
			MonthlyLeads:    ptr(20),
			AvgRevenue:      ptr(400.0),
		},
	}
	scores := map[model.Category]int{model.CategorySEO: 50, model.CategoryLeadCapture: 50}

	o := Opportunity(req, scores)
	assert.Equal(t, 20.0, o.CurrentMonthlyLeads)
	assert.Equal(t, 38.5, o.PotentialMonthlyLeads)
	assert.Equal(t, int64(1850), o.MonthlyOpportunity)
	assert.Equal(t, int64(22200), o.AnnualOpportunity)
	assert.Equal(t, 1.0, o.Confidence)
	assert.Equal(t, "funnel_uplift", o.Method)
	assert.Len(t, o.Assumptions, 1)
}

func TestOpportunity_Defaults(t *testing.T) {
	req := model.AuditRequest{Niche: "pizza restaurant"}
	scores := map[model.Category]int{model.CategorySEO: 100, model.CategoryLeadCapture: 100}

	o := Opportunity(req, scores)
	assert.Equal(t, 10.0, o.CurrentMonthlyLeads)
	assert.Equal(t, 11.5, o.PotentialMonthlyLeads)
	assert.Equal(t, 35.0, o.AvgRevenue)
	assert.Equal(t, int64(13), o.MonthlyOpportunity)
	assert.InDelta(t, 0.4, o.Confidence, 1e-9)
	assert.Len(t, o.Assumptions, 5)
}

func TestOpportunity_NeverNegative(t *testing.T) {
	req := model.AuditRequest{
		Niche:  "plumbing",
		Flags:  model.OperationalFlags{HasCallCoverage: true},
		Volume: model.VolumeMetrics{MonthlyVisitors: ptr(100), MonthlyLeads: ptr(50)},
	}
	o := Opportunity(req, map[model.Category]int{})
	assert.Equal(t, int64(0), o.MonthlyOpportunity)
	assert.Equal(t, o.CurrentMonthlyLeads, o.PotentialMonthlyLeads)
}

func TestOpportunity_Deterministic(t *testing.T) {
	req := model.AuditRequest{Niche: "dentist", Volume: model.VolumeMetrics{MonthlyVisitors: ptr(2000)}}
	scores := map[model.Category]int{model.CategorySEO: 40, model.CategoryLeadCapture: 70}
	assert.Equal(t, Opportunity(req, scores), Opportunity(req, scores))
}
