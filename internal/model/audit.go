package model

import (
	"time"
)

// AuditStatus represents the lifecycle state of an audit.
type AuditStatus string

const (
	AuditStatusPending    AuditStatus = "pending"
	AuditStatusProcessing AuditStatus = "processing"
	AuditStatusCompleted  AuditStatus = "completed"
	AuditStatusFailed     AuditStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s AuditStatus) Terminal() bool {
	return s == AuditStatusCompleted || s == AuditStatusFailed
}

// Valid reports whether s is one of the four known states.
func (s AuditStatus) Valid() bool {
	switch s {
	case AuditStatusPending, AuditStatusProcessing, AuditStatusCompleted, AuditStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from -> to is a legal forward step.
// A pending record may fail directly when it never started processing.
func CanTransition(from, to AuditStatus) bool {
	switch from {
	case AuditStatusPending:
		return to == AuditStatusProcessing || to == AuditStatusFailed
	case AuditStatusProcessing:
		return to == AuditStatusCompleted || to == AuditStatusFailed
	default:
		return false
	}
}

// OperationalFlags are self-reported facts about how the business operates.
type OperationalFlags struct {
	RunsAds         bool `json:"runs_ads"`
	HasListing      bool `json:"has_listing"`
	ActiveSocial    bool `json:"active_social"`
	UsesAutomation  bool `json:"uses_automation"`
	HasCallCoverage bool `json:"has_call_coverage"`
}

// VolumeMetrics are optional self-reported monthly volumes.
type VolumeMetrics struct {
	MonthlyVisitors *int     `json:"monthly_visitors,omitempty"`
	MonthlyLeads    *int     `json:"monthly_leads,omitempty"`
	AvgRevenue      *float64 `json:"avg_revenue,omitempty"`
}

// AuditRequest is the intake for one audit. It is never mutated after submission.
type AuditRequest struct {
	BusinessName string           `json:"business_name"`
	Website      string           `json:"website"`
	ProfileURL   string           `json:"profile_url,omitempty"`
	Location     string           `json:"location"`
	Niche        string           `json:"niche"`
	Flags        OperationalFlags `json:"flags"`
	Volume       VolumeMetrics    `json:"volume"`
	Goals        []string         `json:"goals,omitempty"`
	PainPoints   []string         `json:"pain_points,omitempty"`
}

// AuditResult is everything an audit run produces. It is written together
// with the completed status.
type AuditResult struct {
	Categories   Categories          `json:"categories"`
	Benchmark    *Benchmark          `json:"benchmark,omitempty"`
	GeoGrid      *GeoGrid            `json:"geo_grid,omitempty"`
	Summary      *ExecutiveSummary   `json:"summary,omitempty"`
	Revenue      *RevenueOpportunity `json:"revenue,omitempty"`
	Plan         *PhasedPlan         `json:"plan,omitempty"`
	OverallScore int                 `json:"overall_score"`
	OverallGrade string              `json:"overall_grade"`
}

// AuditRecord is the persisted aggregate for one audit.
type AuditRecord struct {
	ID           string       `json:"id"`
	Request      AuditRequest `json:"request"`
	Status       AuditStatus  `json:"status"`
	Result       *AuditResult `json:"result,omitempty"`
	Error        string       `json:"error,omitempty"`
	ReportURL    string       `json:"report_url,omitempty"`
	LeadUnlocked bool         `json:"lead_unlocked"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// Artifact is a visual or export attached to an audit.
type Artifact struct {
	ID          string    `json:"id"`
	AuditID     string    `json:"audit_id"`
	Kind        string    `json:"kind"`
	ContentType string    `json:"content_type"`
	URL         string    `json:"url,omitempty"`
	Data        []byte    `json:"data,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Artifact kinds.
const (
	ArtifactGeoGridGeoJSON = "geogrid_geojson"
	ArtifactChartImage     = "chart_image"
)
