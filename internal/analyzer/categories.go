package analyzer

import (
	"context"
	"fmt"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/benchmark"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/grounding"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/scorer"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/source"
)

type profileReply struct {
	grounding.Lists
	OptimizedDescription string   `json:"optimized_description"`
	PostIdeas            []string `json:"post_ideas"`
}

// Profile analyzes the business profile.
func (a *Analyzer) Profile(ctx context.Context, f source.Facts) *model.ProfileResult {
	id := f.Identity()
	facts := f.Profile()
	sc := scorer.Profile(facts)

	var reply profileReply
	a.validator.Generate(ctx, model.CategoryProfile, systemPrompt,
		buildCategoryPrompt(id, model.CategoryProfile, sc.Score, facts, profileFields), &reply)

	anchors := grounding.NewAnchors(id.Name, id.Location)
	return &model.ProfileResult{
		CategoryBase:         grounding.Finalize(sc.Score, sourceOf(facts.SourceMeta), lists(sc), reply.Lists),
		Facts:                facts,
		OptimizedDescription: anchors.Ground("optimized_description", reply.OptimizedDescription, profileDescription(id, facts)),
		PostIdeas: ideas(reply.PostIdeas, []string{
			fmt.Sprintf("Behind the scenes at %s", id.Name),
			fmt.Sprintf("Customer favorite of the month in %s", id.Location),
			"Answer the most common question customers ask",
		}),
	}
}

func profileDescription(id model.Identity, p model.ProfileFacts) string {
	s := fmt.Sprintf("%s is a %s serving %s.", id.Name, id.Niche, id.Location)
	s += ratingPhrase(p.Rating, p.ReviewCount)
	if p.Address != "" {
		s += " Visit at " + p.Address + "."
	}
	return s
}

type seoReply struct {
	grounding.Lists
	OptimizedTitle           string   `json:"optimized_title"`
	OptimizedMetaDescription string   `json:"optimized_meta_description"`
	KeywordIdeas             []string `json:"keyword_ideas"`
}

// SEO analyzes the homepage and rank facts.
func (a *Analyzer) SEO(ctx context.Context, f source.Facts) *model.SEOResult {
	id := f.Identity()
	site, rank := f.Site(), f.Rank()
	sc := scorer.Site(site, rank)

	facts := struct {
		Site model.SiteFacts `json:"site"`
		Rank model.RankFacts `json:"rank"`
	}{site, rank}

	var reply seoReply
	a.validator.Generate(ctx, model.CategorySEO, systemPrompt,
		buildCategoryPrompt(id, model.CategorySEO, sc.Score, facts, seoFields), &reply)

	anchors := grounding.NewAnchors(id.Name, id.Location)
	return &model.SEOResult{
		CategoryBase: grounding.Finalize(sc.Score, sourceOf(site.SourceMeta), lists(sc), reply.Lists),
		Site:         site,
		Rank:         rank,
		OptimizedTitle: anchors.Ground("optimized_title", reply.OptimizedTitle,
			fmt.Sprintf("%s | %s in %s", id.Name, titleCase(id.Niche), id.Location)),
		OptimizedMetaDescription: anchors.Ground("optimized_meta_description", reply.OptimizedMetaDescription,
			fmt.Sprintf("%s is a local %s in %s. See hours, reviews and services, then call or book online today.", id.Name, id.Niche, id.Location)),
		KeywordIdeas: ideas(reply.KeywordIdeas, []string{
			fmt.Sprintf("%s %s", id.Niche, id.Location),
			fmt.Sprintf("best %s %s", id.Niche, id.Location),
			fmt.Sprintf("%s near me", id.Niche),
		}),
	}
}

type competitiveReply struct {
	grounding.Lists
	PositioningStatement string   `json:"positioning_statement"`
	Differentiators      []string `json:"differentiators"`
}

// Competitive benchmarks the subject against the competitor set. The
// benchmark is returned for the second wave.
func (a *Analyzer) Competitive(ctx context.Context, flags model.OperationalFlags, f source.Facts) (*model.CompetitiveResult, *model.Benchmark) {
	id := f.Identity()
	set := f.Competitors()
	bench := benchmark.Build(benchmark.Input{
		Identity:    id,
		Profile:     f.Profile(),
		Site:        f.Site(),
		Flags:       flags,
		Competitors: set.Competitors,
	})
	sc := scorer.Competitive(bench)

	ds := sourceOf(set.SourceMeta)
	if len(bench.Competitors) == 0 {
		ds = model.DataSourceUnavailable
	}

	facts := struct {
		Benchmark *model.Benchmark    `json:"benchmark"`
		Set       model.CompetitorSet `json:"competitor_search"`
	}{bench, set}

	var reply competitiveReply
	a.validator.Generate(ctx, model.CategoryCompetitive, systemPrompt,
		buildCategoryPrompt(id, model.CategoryCompetitive, sc.Score, facts, competitiveFields), &reply)

	anchors := grounding.NewAnchors(id.Name, id.Location)
	return &model.CompetitiveResult{
		CategoryBase:         grounding.Finalize(sc.Score, ds, lists(sc), reply.Lists),
		Competitors:          set,
		PositioningStatement: anchors.Ground("positioning_statement", reply.PositioningStatement, positioning(id, bench)),
		Differentiators: ideas(reply.Differentiators, []string{
			"Respond to every review within a day",
			"Show real photos of the team and work",
			"Publish clear pricing or a free estimate offer",
		}),
	}, bench
}

func positioning(id model.Identity, b *model.Benchmark) string {
	switch b.Position {
	case model.PositionLeader:
		return fmt.Sprintf("%s is the %s customers in %s already trust most.", id.Name, id.Niche, id.Location)
	case model.PositionCompetitive:
		return fmt.Sprintf("%s is a well-reviewed %s in %s with room to pull ahead.", id.Name, id.Niche, id.Location)
	default:
		return fmt.Sprintf("%s is a %s in %s building its local reputation.", id.Name, id.Niche, id.Location)
	}
}

type aiReply struct {
	grounding.Lists
	AISummary string   `json:"ai_summary"`
	FAQIdeas  []string `json:"faq_ideas"`
}

// AI analyzes how answer engines describe the local market.
func (a *Analyzer) AI(ctx context.Context, f source.Facts) *model.AIResult {
	id := f.Identity()
	answer, site, profile := f.Answer(), f.Site(), f.Profile()
	sc := scorer.AI(answer, site, profile)

	facts := struct {
		Answer model.AnswerFacts    `json:"answer_engine"`
		Schema model.StructuredData `json:"structured_data"`
	}{answer, site.Schema}

	var reply aiReply
	a.validator.Generate(ctx, model.CategoryAIDiscovery, systemPrompt,
		buildCategoryPrompt(id, model.CategoryAIDiscovery, sc.Score, facts, aiFields), &reply)

	anchors := grounding.NewAnchors(id.Name, id.Location)
	return &model.AIResult{
		CategoryBase: grounding.Finalize(sc.Score, sourceOf(answer.SourceMeta), lists(sc), reply.Lists),
		Answer:       answer,
		AISummary: anchors.Ground("ai_summary", reply.AISummary,
			fmt.Sprintf("%s is a %s in %s.%s", id.Name, id.Niche, id.Location, ratingPhrase(profile.Rating, profile.ReviewCount))),
		FAQIdeas: ideas(reply.FAQIdeas, []string{
			fmt.Sprintf("What areas around %s do you serve?", id.Location),
			"What are your hours?",
			"How do I book or get a quote?",
		}),
	}
}

type leadCaptureReply struct {
	grounding.Lists
	HeroHeadline string   `json:"hero_headline"`
	CTAIdeas     []string `json:"cta_ideas"`
}

// LeadCapture analyzes the homepage conversion paths.
func (a *Analyzer) LeadCapture(ctx context.Context, f source.Facts) *model.LeadCaptureResult {
	id := f.Identity()
	site := f.Site()
	sc := scorer.LeadCapture(site)

	var reply leadCaptureReply
	a.validator.Generate(ctx, model.CategoryLeadCapture, systemPrompt,
		buildCategoryPrompt(id, model.CategoryLeadCapture, sc.Score, site, leadCaptureFields), &reply)

	anchors := grounding.NewAnchors(id.Name, id.Location)
	return &model.LeadCaptureResult{
		CategoryBase: grounding.Finalize(sc.Score, sourceOf(site.SourceMeta), lists(sc), reply.Lists),
		HeroHeadline: anchors.Ground("hero_headline", reply.HeroHeadline,
			fmt.Sprintf("%s: the %s %s relies on", id.Name, id.Niche, id.Location)),
		CTAIdeas: ideas(reply.CTAIdeas, []string{"Call now", "Get a free quote", "Book online"}),
	}
}

type followUpReply struct {
	grounding.Lists
	WelcomeMessage string   `json:"welcome_message"`
	Sequence       []string `json:"sequence"`
}

// FollowUp analyzes lead handling from the self-reported flags.
func (a *Analyzer) FollowUp(ctx context.Context, flags model.OperationalFlags, f source.Facts) *model.FollowUpResult {
	id := f.Identity()
	site := f.Site()
	sc := scorer.FollowUp(flags, site)

	facts := struct {
		Flags         model.OperationalFlags `json:"self_reported"`
		HasChatWidget bool                   `json:"has_chat_widget"`
		Forms         int                    `json:"forms"`
	}{flags, site.HasChatWidget, site.Forms}

	var reply followUpReply
	a.validator.Generate(ctx, model.CategoryFollowUp, systemPrompt,
		buildCategoryPrompt(id, model.CategoryFollowUp, sc.Score, facts, followUpFields), &reply)

	anchors := grounding.NewAnchors(id.Name, id.Location)
	return &model.FollowUpResult{
		CategoryBase: grounding.Finalize(sc.Score, model.DataSourceSelfReported, lists(sc), reply.Lists),
		WelcomeMessage: anchors.Ground("welcome_message", reply.WelcomeMessage,
			fmt.Sprintf("Thanks for reaching out to %s in %s! We got your message and will get back to you shortly.", id.Name, id.Location)),
		Sequence: ideas(reply.Sequence, []string{
			"Instant text confirming the request",
			"Same-day call from the team",
			"Day 2 follow-up email with reviews and offer",
			"Day 7 check-in text",
		}),
	}
}
