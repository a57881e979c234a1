package model

// Category names one audit section.
type Category string

const (
	CategoryProfile     Category = "profile"
	CategorySEO         Category = "seo"
	CategoryCompetitive Category = "competitive"
	CategoryAIDiscovery Category = "ai_discoverability"
	CategoryLeadCapture Category = "lead_capture"
	CategoryFollowUp    Category = "follow_up"
)

// AllCategories lists the categories in report order.
var AllCategories = []Category{
	CategoryProfile,
	CategorySEO,
	CategoryCompetitive,
	CategoryAIDiscovery,
	CategoryLeadCapture,
	CategoryFollowUp,
}

// CategoryBase is the part every category payload shares. Score is always
// computed from facts by the scorer, never taken from generated text.
type CategoryBase struct {
	Score           int        `json:"score"`
	Issues          []string   `json:"issues"`
	Strengths       []string   `json:"strengths"`
	Recommendations []string   `json:"recommendations"`
	DataSource      DataSource `json:"data_source"`
}

// Base returns the shared fields.
func (b *CategoryBase) Base() *CategoryBase { return b }

// CategoryResult is implemented by each concrete category payload.
type CategoryResult interface {
	Kind() Category
	Base() *CategoryBase
}

// ProfileResult is the business-profile section.
type ProfileResult struct {
	CategoryBase
	Facts                ProfileFacts `json:"facts"`
	OptimizedDescription string       `json:"optimized_description"`
	PostIdeas            []string     `json:"post_ideas"`
}

func (*ProfileResult) Kind() Category { return CategoryProfile }

// SEOResult is the on-site SEO section.
type SEOResult struct {
	CategoryBase
	Site                     SiteFacts `json:"site"`
	Rank                     RankFacts `json:"rank"`
	OptimizedTitle           string    `json:"optimized_title"`
	OptimizedMetaDescription string    `json:"optimized_meta_description"`
	KeywordIdeas             []string  `json:"keyword_ideas"`
}

func (*SEOResult) Kind() Category { return CategorySEO }

// CompetitiveResult is the competitive-landscape section.
type CompetitiveResult struct {
	CategoryBase
	Competitors          CompetitorSet `json:"competitors"`
	PositioningStatement string        `json:"positioning_statement"`
	Differentiators      []string      `json:"differentiators"`
}

func (*CompetitiveResult) Kind() Category { return CategoryCompetitive }

// AIResult is the AI-discoverability section.
type AIResult struct {
	CategoryBase
	Answer    AnswerFacts `json:"answer"`
	AISummary string      `json:"ai_summary"`
	FAQIdeas  []string    `json:"faq_ideas"`
}

func (*AIResult) Kind() Category { return CategoryAIDiscovery }

// LeadCaptureResult is the lead-capture section.
type LeadCaptureResult struct {
	CategoryBase
	HeroHeadline string   `json:"hero_headline"`
	CTAIdeas     []string `json:"cta_ideas"`
}

func (*LeadCaptureResult) Kind() Category { return CategoryLeadCapture }

// FollowUpResult is the follow-up section.
type FollowUpResult struct {
	CategoryBase
	WelcomeMessage string   `json:"welcome_message"`
	Sequence       []string `json:"sequence"`
}

func (*FollowUpResult) Kind() Category { return CategoryFollowUp }

// Categories holds one payload per category. A nil entry means the
// analyzer did not run.
type Categories struct {
	Profile     *ProfileResult     `json:"profile,omitempty"`
	SEO         *SEOResult         `json:"seo,omitempty"`
	Competitive *CompetitiveResult `json:"competitive,omitempty"`
	AI          *AIResult          `json:"ai_discoverability,omitempty"`
	LeadCapture *LeadCaptureResult `json:"lead_capture,omitempty"`
	FollowUp    *FollowUpResult    `json:"follow_up,omitempty"`
}

// Set stores r in the slot matching its kind.
func (c *Categories) Set(r CategoryResult) {
	switch v := r.(type) {
	case *ProfileResult:
		c.Profile = v
	case *SEOResult:
		c.SEO = v
	case *CompetitiveResult:
		c.Competitive = v
	case *AIResult:
		c.AI = v
	case *LeadCaptureResult:
		c.LeadCapture = v
	case *FollowUpResult:
		c.FollowUp = v
	}
}

// Get returns the payload for cat, or nil.
func (c *Categories) Get(cat Category) CategoryResult {
	switch cat {
	case CategoryProfile:
		if c.Profile != nil {
			return c.Profile
		}
	case CategorySEO:
		if c.SEO != nil {
			return c.SEO
		}
	case CategoryCompetitive:
		if c.Competitive != nil {
			return c.Competitive
		}
	case CategoryAIDiscovery:
		if c.AI != nil {
			return c.AI
		}
	case CategoryLeadCapture:
		if c.LeadCapture != nil {
			return c.LeadCapture
		}
	case CategoryFollowUp:
		if c.FollowUp != nil {
			return c.FollowUp
		}
	}
	return nil
}

// Scores returns the score of every present category.
func (c *Categories) Scores() map[Category]int {
	out := make(map[Category]int, len(AllCategories))
	for _, cat := range AllCategories {
		if r := c.Get(cat); r != nil {
			out[cat] = r.Base().Score
		}
	}
	return out
}
