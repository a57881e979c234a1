package model

// ExecutiveSummary is the second-wave synthesis over all category scores.
type ExecutiveSummary struct {
	Headline      string   `json:"headline"`
	Overview      string   `json:"overview"`
	TopPriorities []string `json:"top_priorities"`
}

// RevenueOpportunity is the deterministic monthly and annual upside estimate.
type RevenueOpportunity struct {
	CurrentMonthlyLeads   float64  `json:"current_monthly_leads"`
	PotentialMonthlyLeads float64  `json:"potential_monthly_leads"`
	AvgRevenue            float64  `json:"avg_revenue"`
	CloseRate             float64  `json:"close_rate"`
	MonthlyOpportunity    int64    `json:"monthly_opportunity"`
	AnnualOpportunity     int64    `json:"annual_opportunity"`
	Confidence            float64  `json:"confidence"`
	Method                string   `json:"method"`
	Assumptions           []string `json:"assumptions"`
}

// PlanPhase is one block of the phased recommendation plan.
type PlanPhase struct {
	Name    string   `json:"name"`
	Days    string   `json:"days"`
	Focus   string   `json:"focus"`
	Actions []string `json:"actions"`
}

// PhasedPlan is the 90-day recommendation plan.
type PhasedPlan struct {
	Phases []PlanPhase `json:"phases"`
}
