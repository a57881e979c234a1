package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/grounding"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/llm"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

func ptr[T any](v T) *T { return &v }

type staticFacts struct {
	id          model.Identity
	profile     model.ProfileFacts
	competitors model.CompetitorSet
	site        model.SiteFacts
	rank        model.RankFacts
	answer      model.AnswerFacts
}

func (s *staticFacts) Identity() model.Identity         { return s.id }
func (s *staticFacts) Profile() model.ProfileFacts      { return s.profile }
func (s *staticFacts) Competitors() model.CompetitorSet { return s.competitors }
func (s *staticFacts) Site() model.SiteFacts            { return s.site }
func (s *staticFacts) Rank() model.RankFacts            { return s.rank }
func (s *staticFacts) Answer() model.AnswerFacts        { return s.answer }

type fakeCompleter struct {
	text     string
	err      error
	requests []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text, Provider: "fake"}, nil
}

func joes() model.Identity {
	return model.Identity{
		Name:     "Joe's Pizza",
		Website:  "https://joespizza.example",
		Domain:   "joespizza.example",
		Location: "Brooklyn, NY",
		Niche:    "pizza restaurant",
	}
}

func unavailableFacts() *staticFacts {
	down := model.SourceMeta{DataSource: model.DataSourceUnavailable, Error: "all providers failed"}
	return &staticFacts{
		id:          joes(),
		profile:     model.ProfileFacts{SourceMeta: down},
		competitors: model.CompetitorSet{SourceMeta: down},
		site:        model.SiteFacts{SourceMeta: down, URL: "https://joespizza.example"},
		rank:        model.RankFacts{SourceMeta: down},
		answer:      model.AnswerFacts{SourceMeta: down},
	}
}

func comp(name string, rating float64, reviews int) model.Competitor {
	return model.Competitor{Name: name, Rating: ptr(rating), ReviewCount: ptr(reviews), PhotoCount: ptr(20), Address: "Brooklyn, NY"}
}

func analyzerWith(text string) (*Analyzer, *fakeCompleter) {
	c := &fakeCompleter{text: text}
	return New(grounding.NewValidator(c)), c
}

func TestProfile_UngroundedNarrativeUsesTemplate(t *testing.T) {
	a, c := analyzerWith(`{"optimized_description": "A great local spot with amazing food.", "score": 99, "issues": ["Generated issue"]}`)

	r := a.Profile(context.Background(), unavailableFacts())

	require.Len(t, c.requests, 1)
	assert.Equal(t, string(model.CategoryProfile), c.requests[0].Category)
	assert.Equal(t, "Joe's Pizza is a pizza restaurant serving Brooklyn, NY.", r.OptimizedDescription)
	assert.Equal(t, 0, r.Score)
	assert.Equal(t, model.DataSourceUnavailable, r.DataSource)

	joined := strings.Join(r.Issues, "\n")
	assert.Contains(t, joined, "No rating")
	assert.Contains(t, joined, "No reviews")
	assert.Equal(t, "Generated issue", r.Issues[len(r.Issues)-1])
}

func TestProfile_GroundedNarrativeKept(t *testing.T) {
	desc := "Joe's Pizza has served classic New York slices to Brooklyn since 1975."
	a, _ := analyzerWith("```json\n{\"optimized_description\": \"" + desc + "\", \"post_ideas\": [\"Slice of the week\"]}\n```")

	f := unavailableFacts()
	f.profile = model.ProfileFacts{
		SourceMeta: model.SourceMeta{DataSource: model.DataSourceStructuredSearch, Provider: "places"},
		Rating:     ptr(4.6), ReviewCount: ptr(120), PhotoCount: ptr(30),
		Address: "7 Carmine St", Website: "https://joespizza.example", Hours: []string{"Mon 10-11"}, OpenStatus: "open",
	}
	r := a.Profile(context.Background(), f)

	assert.Equal(t, desc, r.OptimizedDescription)
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, model.DataSourceStructuredSearch, r.DataSource)
	assert.Equal(t, []string{"Slice of the week"}, r.PostIdeas)
}

func TestProfile_TemplateIncludesFacts(t *testing.T) {
	a := New(nil)
	f := unavailableFacts()
	f.profile = model.ProfileFacts{
		SourceMeta: model.SourceMeta{DataSource: model.DataSourceRealProfile},
		Rating:     ptr(4.5), ReviewCount: ptr(80), Address: "7 Carmine St",
	}
	r := a.Profile(context.Background(), f)
	assert.Equal(t, "Joe's Pizza is a pizza restaurant serving Brooklyn, NY. Customers rate it 4.5 stars across 80 reviews. Visit at 7 Carmine St.", r.OptimizedDescription)
	assert.Len(t, r.PostIdeas, 3)
}

func TestCategories_GenerationFailureFallsBack(t *testing.T) {
	c := &fakeCompleter{err: errors.New("all providers failed")}
	a := New(grounding.NewValidator(c))
	f := unavailableFacts()

	seo := a.SEO(context.Background(), f)
	assert.Equal(t, 20, seo.Score)
	assert.Equal(t, model.DataSourceUnavailable, seo.DataSource)
	assert.Equal(t, "Joe's Pizza | Pizza Restaurant in Brooklyn, NY", seo.OptimizedTitle)
	assert.Contains(t, seo.OptimizedMetaDescription, "Joe's Pizza")

	lead := a.LeadCapture(context.Background(), f)
	assert.Equal(t, 20, lead.Score)
	assert.Equal(t, "Joe's Pizza: the pizza restaurant Brooklyn, NY relies on", lead.HeroHeadline)

	ai := a.AI(context.Background(), f)
	assert.Equal(t, 0, ai.Score)
	assert.Equal(t, "Joe's Pizza is a pizza restaurant in Brooklyn, NY.", ai.AISummary)
}

func TestCategories_MalformedReplyFallsBack(t *testing.T) {
	a, _ := analyzerWith("I cannot help with that")
	r := a.FollowUp(context.Background(), model.OperationalFlags{UsesAutomation: true}, unavailableFacts())

	assert.Equal(t, 35, r.Score)
	assert.Equal(t, model.DataSourceSelfReported, r.DataSource)
	assert.Contains(t, r.WelcomeMessage, "Joe's Pizza in Brooklyn, NY")
	assert.Len(t, r.Sequence, 4)
}

func TestCompetitive_CriticalReviewGap(t *testing.T) {
	a := New(nil)
	f := unavailableFacts()
	f.competitors = model.CompetitorSet{
		SourceMeta: model.SourceMeta{DataSource: model.DataSourceStructuredSearch, Provider: "places"},
		Competitors: []model.Competitor{
			comp("Lucali", 4.6, 300), comp("Roberta's", 4.5, 250), comp("Di Fara", 4.4, 200),
			comp("Paulie Gee's", 4.3, 120), comp("Juliana's", 4.2, 100),
		},
	}

	r, bench := a.Competitive(context.Background(), model.OperationalFlags{}, f)
	require.NotNil(t, bench)
	require.NotEmpty(t, bench.Gaps)
	assert.Equal(t, "Review Count", bench.Gaps[0].Metric)
	assert.Equal(t, model.PriorityCritical, bench.Gaps[0].Priority)
	assert.Equal(t, bench.Score, r.Score)
	assert.Equal(t, model.DataSourceStructuredSearch, r.DataSource)
	assert.Contains(t, r.PositioningStatement, "Brooklyn")
	assert.Contains(t, strings.Join(r.Issues, "\n"), "Review Count")
}

func TestCompetitive_NoCompetitors(t *testing.T) {
	r, bench := New(nil).Competitive(context.Background(), model.OperationalFlags{}, unavailableFacts())
	assert.Equal(t, 20, r.Score)
	assert.Equal(t, model.DataSourceUnavailable, r.DataSource)
	assert.Empty(t, bench.Competitors)
}

func TestSummary_TemplatesAndPriorities(t *testing.T) {
	a, _ := analyzerWith(`{"headline": "Great pizza!", "top_priorities": ["Generated priority"]}`)
	f := unavailableFacts()

	cats := &model.Categories{}
	cats.Set(a.Profile(context.Background(), f))
	cats.Set(a.SEO(context.Background(), f))
	bench := &model.Benchmark{Gaps: []model.GapFinding{
		{Metric: "Review Count", Priority: model.PriorityCritical, Recommendation: "Ask every customer for a review"},
	}}

	s := a.Summary(context.Background(), joes(), cats, bench, 12, "F")
	assert.Equal(t, "Joe's Pizza in Brooklyn, NY scores 12/100 (F) for local visibility", s.Headline)
	assert.Contains(t, s.Overview, "weakest is business profile at 0")
	assert.Contains(t, s.Overview, "No live data was available")
	require.NotEmpty(t, s.TopPriorities)
	assert.Equal(t, "Ask every customer for a review", s.TopPriorities[0])
	assert.Equal(t, "Generated priority", s.TopPriorities[len(s.TopPriorities)-1])
}

func TestPlan_ThreePhasesRealFirst(t *testing.T) {
	a, _ := analyzerWith(`{"phases": [{"actions": ["Generated one"]}, {"actions": []}, {"actions": ["Generated three"]}]}`)

	cats := &model.Categories{}
	cats.Set(&model.ProfileResult{CategoryBase: model.CategoryBase{Recommendations: []string{"Add hours"}}})
	bench := &model.Benchmark{Gaps: []model.GapFinding{
		{Metric: "Review Count", Priority: model.PriorityCritical, Recommendation: "Get reviews"},
		{Metric: "Photo Count", Priority: model.PriorityHigh, Recommendation: "Add photos"},
	}}

	p := a.Plan(context.Background(), joes(), cats, bench)
	require.Len(t, p.Phases, 3)
	assert.Equal(t, "1-30", p.Phases[0].Days)
	assert.Equal(t, []string{"Get reviews", "Add hours", "Generated one"}, p.Phases[0].Actions)
	assert.Equal(t, []string{"Add photos"}, p.Phases[1].Actions)
	assert.Equal(t, []string{"Generated three"}, p.Phases[2].Actions)
}

func TestPlan_EmptyPhaseGetsDefault(t *testing.T) {
	p := New(nil).Plan(context.Background(), joes(), &model.Categories{}, nil)
	require.Len(t, p.Phases, 3)
	assert.Equal(t, []string{"Re-run the audit at day 90 to confirm progress"}, p.Phases[2].Actions)
}
