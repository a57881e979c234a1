package model

// Priority ranks a gap finding.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities, critical first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Position classifies the subject against its competitors.
type Position string

const (
	PositionLeader      Position = "leader"
	PositionCompetitive Position = "competitive"
	PositionLagging     Position = "lagging"
	PositionCritical    Position = "critical"
)

// SignalSet is one business's comparable signal vector.
type SignalSet struct {
	Name                  string  `json:"name"`
	ReviewCount           float64 `json:"review_count"`
	Rating                float64 `json:"rating"`
	ReviewVelocity        float64 `json:"review_velocity"`
	PhotoCount            float64 `json:"photo_count"`
	ProfileCompleteness   float64 `json:"profile_completeness"`
	WebsiteResponsiveness float64 `json:"website_responsiveness"`
	YearsInBusiness       float64 `json:"years_in_business"`
	ResponseRate          float64 `json:"response_rate"`
	PostFrequency         float64 `json:"post_frequency"`
	CategoryMatch         float64 `json:"category_match"`
}

// GapFinding is one signal where the subject trails the competitor average.
type GapFinding struct {
	Metric         string   `json:"metric"`
	Subject        float64  `json:"subject"`
	Average        float64  `json:"average"`
	GapPercent     int      `json:"gap_percent"`
	Recommendation string   `json:"recommendation"`
	Priority       Priority `json:"priority"`
}

// Benchmark is the competitive signal analysis.
type Benchmark struct {
	Subject     SignalSet        `json:"subject"`
	Competitors []SignalSet      `json:"competitors"`
	Average     SignalSet        `json:"average"`
	Top         SignalSet        `json:"top"`
	Normalized  map[string]Radar `json:"normalized"`
	Gaps        []GapFinding     `json:"gaps"`
	Score       int              `json:"score"`
	Position    Position         `json:"position"`
	Summary     string           `json:"summary"`
}

// Radar is one metric normalized to 0-100 for subject, average and top.
type Radar struct {
	Subject float64 `json:"subject"`
	Average float64 `json:"average"`
	Top     float64 `json:"top"`
}
