package benchmark

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// MaxCompetitors is how many competitors enter the comparison.
const MaxCompetitors = 5

// Input is everything the benchmark needs about the subject.
type Input struct {
	Identity    model.Identity
	Profile     model.ProfileFacts
	Site        model.SiteFacts
	Flags       model.OperationalFlags
	Competitors []model.Competitor
}

// scoreWeights are the weights of the score relative to the top competitor.
var scoreWeights = []struct {
	key    string
	weight float64
}{
	{"rating", 0.30},
	{"review_count", 0.25},
	{"profile_completeness", 0.20},
	{"review_velocity", 0.15},
	{"photo_count", 0.10},
}

// Build runs the full comparison. With no competitors it returns the subject
// vector only, Score 0 and no position.
func Build(in Input) *model.Benchmark {
	subject := signals(fromProfile(in.Identity.Name, in.Profile), in.Identity.Niche, subjectResponsiveness(in.Site))
	if in.Flags.ActiveSocial {
		subject.PostFrequency = math.Max(subject.PostFrequency, activeSocialPosts)
	}

	b := &model.Benchmark{
		Subject:    subject,
		Normalized: map[string]model.Radar{},
	}
	var obs []observed
	for _, c := range selectCompetitors(in.Identity, in.Competitors) {
		o := fromCompetitor(c)
		obs = append(obs, o)
		b.Competitors = append(b.Competitors, signals(o, in.Identity.Niche, competitorResponsiveness(c)))
	}
	if len(b.Competitors) == 0 {
		b.Summary = fmt.Sprintf("No local competitors were found for %s, so no comparison was made.", subject.Name)
		return b
	}

	b.Average = average(b.Competitors, obs)
	b.Top = top(b.Competitors)
	for _, m := range Metrics {
		b.Normalized[m.Key] = model.Radar{
			Subject: m.Normalize(m.Value(b.Subject)),
			Average: m.Normalize(m.Value(b.Average)),
			Top:     m.Normalize(m.Value(b.Top)),
		}
	}
	b.Gaps = Gaps(b.Subject, b.Average)
	b.Score = Score(b.Subject, b.Top)
	b.Position = PositionFor(b.Score)
	b.Summary = Summary(b.Subject.Name, b.Position, b.Gaps)

	zap.L().Debug("benchmark: built",
		zap.String("subject", b.Subject.Name),
		zap.Int("competitors", len(b.Competitors)),
		zap.Int("gaps", len(b.Gaps)),
		zap.Int("score", b.Score),
	)
	return b
}

// selectCompetitors drops self-matches and keeps the first MaxCompetitors.
func selectCompetitors(id model.Identity, all []model.Competitor) []model.Competitor {
	var out []model.Competitor
	for _, c := range all {
		if match.SameBusiness(c.Name, id.Name) {
			continue
		}
		if id.Domain != "" && c.Website != "" && match.SiteKey(c.Website) == id.Domain {
			continue
		}
		out = append(out, c)
		if len(out) == MaxCompetitors {
			break
		}
	}
	return out
}

// average is the per-metric mean over the competitors that reported the
// underlying fact. A metric nobody reported stays 0.
func average(sets []model.SignalSet, obs []observed) model.SignalSet {
	avg := model.SignalSet{Name: "average"}
	for _, m := range Metrics {
		known := reported[m.Key]
		var sum float64
		n := 0
		for i, s := range sets {
			if known != nil && !known(obs[i]) {
				continue
			}
			sum += m.Value(s)
			n++
		}
		if n > 0 {
			m.set(&avg, round2(sum/float64(n)))
		}
	}
	return avg
}

func top(sets []model.SignalSet) model.SignalSet {
	t := model.SignalSet{Name: "top"}
	for _, m := range Metrics {
		best := 0.0
		for _, s := range sets {
			best = math.Max(best, m.Value(s))
		}
		m.set(&t, best)
	}
	return t
}

// Score compares the subject to the top set on five weighted signals. Each
// ratio is capped at 100 before weighting; a zero top value counts as 100.
func Score(subject, topSet model.SignalSet) int {
	byKey := make(map[string]Metric, len(Metrics))
	for _, m := range Metrics {
		byKey[m.Key] = m
	}
	var total float64
	for _, w := range scoreWeights {
		m := byKey[w.key]
		ratio := 100.0
		if t := m.Value(topSet); t > 0 {
			ratio = math.Min(100, m.Value(subject)/t*100)
		}
		total += ratio * w.weight
	}
	return int(math.Round(total))
}

// PositionFor buckets a benchmark score.
func PositionFor(score int) model.Position {
	switch {
	case score >= 80:
		return model.PositionLeader
	case score >= 60:
		return model.PositionCompetitive
	case score >= 40:
		return model.PositionLagging
	default:
		return model.PositionCritical
	}
}

var summaryTemplates = map[model.Position]string{
	model.PositionLeader:      "%s leads its local competitors on the signals customers see first. Keep the lead by watching %s.",
	model.PositionCompetitive: "%s is competitive in its market but trails the local average on %s.",
	model.PositionLagging:     "%s is lagging behind local competitors, mainly on %s.",
	model.PositionCritical:    "%s is at a critical disadvantage against local competitors, especially on %s.",
}

// Summary fills the position template with up to three gap names, highest
// priority first.
func Summary(name string, pos model.Position, gaps []model.GapFinding) string {
	var names []string
	for _, g := range gaps {
		if len(names) == 3 {
			break
		}
		names = append(names, strings.ToLower(g.Metric))
	}
	if len(names) == 0 {
		return fmt.Sprintf("%s matches or beats the local competitor average on every tracked signal.", name)
	}
	tmpl, ok := summaryTemplates[pos]
	if !ok {
		tmpl = summaryTemplates[model.PositionCritical]
	}
	return fmt.Sprintf(tmpl, name, joinNames(names))
}

func joinNames(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
