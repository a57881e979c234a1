package benchmark

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

func ptr[T any](v T) *T { return &v }

func joes() model.Identity {
	return model.Identity{
		Name:     "Joe's Pizza",
		Website:  "https://joespizza.example",
		Domain:   "joespizza.example",
		Location: "Brooklyn, NY",
		Niche:    "pizza restaurant",
	}
}

func comp(name string, rating float64, reviews, photos int) model.Competitor {
	return model.Competitor{
		Name:        name,
		Rating:      ptr(rating),
		ReviewCount: ptr(reviews),
		PhotoCount:  ptr(photos),
		Address:     "1 Main St, Brooklyn, NY",
		Phone:       "(718) 555-0199",
		Website:     "https://" + name + ".example",
		HasHours:    true,
		OpenStatus:  "open",
		Categories:  []string{"pizza_restaurant"},
	}
}

func fiveCompetitors() []model.Competitor {
	return []model.Competitor{
		comp("lucali", 4.6, 300, 40),
		comp("robertas", 4.5, 250, 35),
		comp("difara", 4.4, 200, 30),
		comp("paulie", 4.3, 120, 12),
		comp("juliana", 4.2, 100, 10),
	}
}

func TestBuild_NoProfileFiveCompetitors(t *testing.T) {
	b := Build(Input{
		Identity:    joes(),
		Profile:     model.ProfileFacts{SourceMeta: model.SourceMeta{DataSource: model.DataSourceUnavailable}},
		Site:        model.SiteFacts{SourceMeta: model.SourceMeta{DataSource: model.DataSourceUnavailable, Error: "timeout"}},
		Competitors: fiveCompetitors(),
	})

	require.Len(t, b.Competitors, 5)
	require.NotEmpty(t, b.Gaps)
	assert.Equal(t, "Review Count", b.Gaps[0].Metric)
	assert.Equal(t, model.PriorityCritical, b.Gaps[0].Priority)
	assert.Equal(t, 100, b.Gaps[0].GapPercent)
	assert.Equal(t, 0, b.Score)
	assert.Equal(t, model.PositionCritical, b.Position)
	assert.Contains(t, b.Summary, "Joe's Pizza")
	assert.Contains(t, b.Summary, "review count")

	for i := 1; i < len(b.Gaps); i++ {
		assert.LessOrEqual(t, b.Gaps[i-1].Priority.Rank(), b.Gaps[i].Priority.Rank())
	}
}

func TestBuild_AverageTopAndNormalized(t *testing.T) {
	b := Build(Input{Identity: joes(), Competitors: fiveCompetitors()})

	assert.InDelta(t, 194, b.Average.ReviewCount, 0.01)
	assert.InDelta(t, 4.4, b.Average.Rating, 0.01)
	assert.Equal(t, 300.0, b.Top.ReviewCount)
	assert.Equal(t, 4.6, b.Top.Rating)
	assert.Equal(t, 100.0, b.Top.CategoryMatch)

	radar := b.Normalized["review_count"]
	assert.Equal(t, 100.0, radar.Top)
	assert.Equal(t, 97.0, radar.Average)
	assert.Equal(t, 0.0, radar.Subject)
	assert.Len(t, b.Normalized, len(Metrics))
}

func TestBuild_AverageSkipsUnreportedFacts(t *testing.T) {
	unrated := comp("juliana", 0, 100, 10)
	unrated.Rating = nil
	unrated.PhotoCount = nil
	competitors := fiveCompetitors()
	competitors[4] = unrated

	b := Build(Input{
		Identity:    joes(),
		Profile:     model.ProfileFacts{Rating: ptr(4.3), ReviewCount: ptr(500), PhotoCount: ptr(50)},
		Competitors: competitors,
	})

	assert.InDelta(t, 4.45, b.Average.Rating, 1e-9)
	assert.InDelta(t, 29.25, b.Average.PhotoCount, 1e-9)
	assert.InDelta(t, 194, b.Average.ReviewCount, 1e-9)

	var rating *model.GapFinding
	for i := range b.Gaps {
		if b.Gaps[i].Metric == "Rating" {
			rating = &b.Gaps[i]
		}
	}
	require.NotNil(t, rating, "subject rated below the reported average should get a rating gap")
	assert.Equal(t, 4.3, rating.Subject)
	assert.Equal(t, 3, rating.GapPercent)
}

func TestAverage_NobodyReported(t *testing.T) {
	o := fromCompetitor(model.Competitor{Name: "a"})
	avg := average([]model.SignalSet{signals(o, "pizza", 0)}, []observed{o})
	assert.Equal(t, 0.0, avg.Rating)
	assert.Equal(t, 0.0, avg.ReviewCount)
	assert.Equal(t, 50.0, avg.CategoryMatch)
}

func TestBuild_ExcludesSelfAndCaps(t *testing.T) {
	all := append([]model.Competitor{
		comp("Joe's Pizza Broadway", 4.7, 900, 90),
		{Name: "Slice Shop", Website: "https://www.joespizza.example/menu"},
	}, fiveCompetitors()...)
	all = append(all, comp("extra", 4.0, 10, 1))

	b := Build(Input{Identity: joes(), Competitors: all})
	require.Len(t, b.Competitors, MaxCompetitors)
	for _, c := range b.Competitors {
		assert.NotContains(t, c.Name, "Joe's")
		assert.NotEqual(t, "Slice Shop", c.Name)
	}
}

func TestBuild_NoCompetitors(t *testing.T) {
	b := Build(Input{Identity: joes()})
	assert.Empty(t, b.Competitors)
	assert.Empty(t, b.Gaps)
	assert.Equal(t, 0, b.Score)
	assert.Equal(t, "Joe's Pizza", b.Subject.Name)
	assert.Contains(t, b.Summary, "No local competitors")
}

func TestBuild_ActiveSocialRaisesPostFrequency(t *testing.T) {
	b := Build(Input{Identity: joes(), Flags: model.OperationalFlags{ActiveSocial: true}})
	assert.Equal(t, 4.0, b.Subject.PostFrequency)
}

func TestSignals_Estimates(t *testing.T) {
	s := signals(fromCompetitor(comp("lucali", 4.6, 360, 24)), "pizza restaurant", 50)
	assert.Equal(t, 10.0, s.ReviewVelocity)
	assert.Equal(t, 80.0, s.ResponseRate)
	assert.Equal(t, 100.0, s.ProfileCompleteness)
	assert.Equal(t, 3.0, s.YearsInBusiness)
	assert.Equal(t, 2.0, s.PostFrequency)
	assert.Equal(t, 100.0, s.CategoryMatch)
	assert.Equal(t, 50.0, s.WebsiteResponsiveness)
}

func TestResponseRate(t *testing.T) {
	assert.Equal(t, 0.0, responseRate(nil))
	assert.Equal(t, 80.0, responseRate(ptr(4.5)))
	assert.Equal(t, 60.0, responseRate(ptr(4.0)))
	assert.Equal(t, 40.0, responseRate(ptr(3.5)))
	assert.Equal(t, 20.0, responseRate(ptr(3.4)))
}

func TestCategoryMatch(t *testing.T) {
	assert.Equal(t, 50.0, categoryMatch(nil, "pizza restaurant"))
	assert.Equal(t, 100.0, categoryMatch([]string{"Pizza restaurant"}, "pizza restaurant"))
	assert.Equal(t, 0.0, categoryMatch([]string{"car_wash"}, "pizza restaurant"))
}

func TestGaps_ReviewCountPriorities(t *testing.T) {
	tests := []struct {
		subject float64
		want    model.Priority
	}{
		{0, model.PriorityCritical},
		{40, model.PriorityCritical},
		{70, model.PriorityHigh},
		{90, model.PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.subject), func(t *testing.T) {
			gaps := Gaps(model.SignalSet{ReviewCount: tt.subject}, model.SignalSet{ReviewCount: 100})
			require.Len(t, gaps, 1)
			assert.Equal(t, tt.want, gaps[0].Priority)
		})
	}
}

func TestGaps_RatingUsesStarFraction(t *testing.T) {
	gaps := Gaps(model.SignalSet{Rating: 4.0}, model.SignalSet{Rating: 4.6})
	require.Len(t, gaps, 1)
	assert.Equal(t, "Rating", gaps[0].Metric)
	assert.Equal(t, 12, gaps[0].GapPercent)
	assert.Equal(t, model.PriorityCritical, gaps[0].Priority)

	gaps = Gaps(model.SignalSet{Rating: 4.3}, model.SignalSet{Rating: 4.6})
	require.Len(t, gaps, 1)
	assert.Equal(t, model.PriorityHigh, gaps[0].Priority)

	gaps = Gaps(model.SignalSet{Rating: 4.5}, model.SignalSet{Rating: 4.6})
	require.Len(t, gaps, 1)
	assert.Equal(t, model.PriorityMedium, gaps[0].Priority)
}

func TestGaps_NoneWhenAtOrAboveAverage(t *testing.T) {
	s := model.SignalSet{ReviewCount: 100, Rating: 4.8}
	assert.Empty(t, Gaps(s, model.SignalSet{ReviewCount: 100, Rating: 4.5}))
}

func TestSortGaps_Stable(t *testing.T) {
	gaps := []model.GapFinding{
		{Metric: "a", Priority: model.PriorityLow},
		{Metric: "b", Priority: model.PriorityMedium},
		{Metric: "c", Priority: model.PriorityCritical},
		{Metric: "d", Priority: model.PriorityHigh},
		{Metric: "e", Priority: model.PriorityCritical},
		{Metric: "f", Priority: model.PriorityMedium},
	}
	SortGaps(gaps)

	var order []string
	for _, g := range gaps {
		order = append(order, g.Metric)
	}
	assert.Equal(t, []string{"c", "e", "d", "b", "f", "a"}, order)
}

func TestScore(t *testing.T) {
	topSet := model.SignalSet{Rating: 4.8, ReviewCount: 200, ProfileCompleteness: 100, ReviewVelocity: 5, PhotoCount: 30}
	assert.Equal(t, 100, Score(topSet, topSet))

	half := model.SignalSet{Rating: 2.4, ReviewCount: 100, ProfileCompleteness: 50, ReviewVelocity: 2.5, PhotoCount: 15}
	assert.Equal(t, 50, Score(half, topSet))

	above := topSet
	above.ReviewCount = 1000
	assert.Equal(t, 100, Score(above, topSet))

	assert.Equal(t, 100, Score(model.SignalSet{}, model.SignalSet{}))
}

func TestPositionFor(t *testing.T) {
	assert.Equal(t, model.PositionLeader, PositionFor(80))
	assert.Equal(t, model.PositionCompetitive, PositionFor(79))
	assert.Equal(t, model.PositionCompetitive, PositionFor(60))
	assert.Equal(t, model.PositionLagging, PositionFor(40))
	assert.Equal(t, model.PositionCritical, PositionFor(39))
}

func TestSummary(t *testing.T) {
	gaps := []model.GapFinding{{Metric: "Review Count"}, {Metric: "Rating"}, {Metric: "Photo Count"}, {Metric: "Post Frequency"}}
	s := Summary("Joe's Pizza", model.PositionLagging, gaps)
	assert.Equal(t, "Joe's Pizza is lagging behind local competitors, mainly on review count, rating and photo count.", s)

	s = Summary("Joe's Pizza", model.PositionLeader, nil)
	assert.Contains(t, s, "matches or beats")
}
