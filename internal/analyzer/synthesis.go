package analyzer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/grounding"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

type summaryReply struct {
	Headline      string   `json:"headline"`
	Overview      string   `json:"overview"`
	TopPriorities []string `json:"top_priorities"`
}

type scoredCategory struct {
	cat    model.Category
	result model.CategoryResult
}

// ranked returns the present categories ordered by score, lowest first.
// Ties keep report order.
func ranked(cats *model.Categories) []scoredCategory {
	var out []scoredCategory
	for _, c := range model.AllCategories {
		if r := cats.Get(c); r != nil {
			out = append(out, scoredCategory{cat: c, result: r})
		}
	}
	slices.SortStableFunc(out, func(a, b scoredCategory) int {
		return a.result.Base().Score - b.result.Base().Score
	})
	return out
}

// Summary writes the executive summary over the first-wave results.
func (a *Analyzer) Summary(ctx context.Context, id model.Identity, cats *model.Categories, bench *model.Benchmark, overall int, grade string) *model.ExecutiveSummary {
	order := ranked(cats)

	var lines []string
	var real []string
	if bench != nil {
		for _, g := range bench.Gaps {
			if g.Priority == model.PriorityCritical {
				real = append(real, g.Recommendation)
			}
		}
	}
	for _, sc := range order {
		base := sc.result.Base()
		line := fmt.Sprintf("- %s: %d (%s)", DisplayName(sc.cat), base.Score, base.DataSource)
		if len(base.Issues) > 0 {
			line += ": " + strings.Join(base.Issues[:min(2, len(base.Issues))], "; ")
		}
		lines = append(lines, line)
		if len(base.Recommendations) > 0 {
			real = append(real, base.Recommendations[0])
		}
	}

	position := "unknown"
	if bench != nil && bench.Position != "" {
		position = string(bench.Position)
	}

	var reply summaryReply
	a.validator.Generate(ctx, "summary", systemPrompt,
		fmt.Sprintf(summaryPrompt, id.Name, id.Location, id.Niche, overall, grade, strings.Join(lines, "\n"), position), &reply)

	anchors := grounding.NewAnchors(id.Name, id.Location)
	return &model.ExecutiveSummary{
		Headline: anchors.Ground("headline", reply.Headline,
			fmt.Sprintf("%s in %s scores %d/100 (%s) for local visibility", id.Name, id.Location, overall, grade)),
		Overview:      anchors.Ground("overview", reply.Overview, overviewTemplate(id, order, overall)),
		TopPriorities: grounding.MergeList(real, reply.TopPriorities),
	}
}

func overviewTemplate(id model.Identity, order []scoredCategory, overall int) string {
	s := fmt.Sprintf("%s in %s earned an overall visibility score of %d out of 100.", id.Name, id.Location, overall)
	if len(order) == 0 {
		return s
	}
	weakest, strongest := order[0], order[len(order)-1]
	s += fmt.Sprintf(" The strongest area is %s at %d and the weakest is %s at %d.",
		strings.ToLower(DisplayName(strongest.cat)), strongest.result.Base().Score,
		strings.ToLower(DisplayName(weakest.cat)), weakest.result.Base().Score)

	var missing []string
	for _, sc := range order {
		if sc.result.Base().DataSource == model.DataSourceUnavailable {
			missing = append(missing, strings.ToLower(DisplayName(sc.cat)))
		}
	}
	if len(missing) > 0 {
		s += " No live data was available for " + strings.Join(missing, ", ") + "."
	}
	return s
}

type planReply struct {
	Phases []struct {
		Actions []string `json:"actions"`
	} `json:"phases"`
}

// phaseLayout fixes the three plan phases and which sections feed them.
var phaseLayout = []struct {
	name       string
	days       string
	focus      string
	categories []model.Category
	priorities []model.Priority
}{
	{"Quick wins", "1-30", "Fix the profile and the most critical competitive gaps",
		[]model.Category{model.CategoryProfile}, []model.Priority{model.PriorityCritical}},
	{"Build authority", "31-60", "Improve search and AI visibility",
		[]model.Category{model.CategorySEO, model.CategoryAIDiscovery, model.CategoryCompetitive}, []model.Priority{model.PriorityHigh}},
	{"Convert and retain", "61-90", "Turn more visitors into customers and follow up automatically",
		[]model.Category{model.CategoryLeadCapture, model.CategoryFollowUp}, []model.Priority{model.PriorityMedium, model.PriorityLow}},
}

// Plan builds the 90-day plan. Fact-derived actions come first in every
// phase, followed by generated ones.
func (a *Analyzer) Plan(ctx context.Context, id model.Identity, cats *model.Categories, bench *model.Benchmark) *model.PhasedPlan {
	real := make([][]string, len(phaseLayout))
	var problems []string
	for i, phase := range phaseLayout {
		if bench != nil {
			for _, g := range bench.Gaps {
				if slices.Contains(phase.priorities, g.Priority) {
					real[i] = append(real[i], g.Recommendation)
				}
			}
		}
		for _, c := range phase.categories {
			r := cats.Get(c)
			if r == nil {
				continue
			}
			real[i] = append(real[i], r.Base().Recommendations...)
			for _, issue := range r.Base().Issues {
				problems = append(problems, "- "+issue)
			}
		}
	}

	var reply planReply
	a.validator.Generate(ctx, "plan", systemPrompt,
		fmt.Sprintf(planPrompt, id.Name, id.Location, id.Niche, strings.Join(problems, "\n")), &reply)

	plan := &model.PhasedPlan{}
	for i, phase := range phaseLayout {
		var generated []string
		if i < len(reply.Phases) {
			generated = reply.Phases[i].Actions
		}
		actions := grounding.MergeList(real[i], generated)
		if len(actions) == 0 {
			_, end, _ := strings.Cut(phase.days, "-")
			actions = []string{fmt.Sprintf("Re-run the audit at day %s to confirm progress", end)}
		}
		plan.Phases = append(plan.Phases, model.PlanPhase{
			Name:    phase.name,
			Days:    phase.days,
			Focus:   phase.focus,
			Actions: actions,
		})
	}
	return plan
}
