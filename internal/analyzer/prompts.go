package analyzer

import (
	"encoding/json"
	"fmt"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

const systemPrompt = `You are a local marketing consultant writing one section of a visibility audit for a small business.
Only use the facts you are given. Never invent ratings, review counts, rankings or competitors.
Every sentence that describes the business must mention the business by name and its location.`

const categoryPrompt = `Business: %s
Location: %s
Niche: %s
Section: %s
Deterministic score (0-100, already final): %d

Facts gathered from real sources:
%s

Return a valid JSON object with these fields:
- issues: array of strings, problems visible in the facts
- strengths: array of strings, strengths visible in the facts
- recommendations: array of strings, concrete next steps
%s
Keep each array to at most 5 items.`

const profileFields = `- optimized_description: string, a 2-3 sentence profile description naming the business and its location
- post_ideas: array of strings, 3 profile post ideas`

const seoFields = `- optimized_title: string, a 30-60 character homepage title naming the business and its location
- optimized_meta_description: string, a 120-160 character meta description naming the business and its location
- keyword_ideas: array of strings, 5 local keyword ideas`

const competitiveFields = `- positioning_statement: string, one sentence positioning the business against its local competitors, naming the business and its location
- differentiators: array of strings, 3 ways to stand out`

const aiFields = `- ai_summary: string, the 2 sentence description an AI assistant should give of the business, naming the business and its location
- faq_ideas: array of strings, 5 FAQ questions customers ask`

const leadCaptureFields = `- hero_headline: string, a homepage headline naming the business and its location
- cta_ideas: array of strings, 3 call-to-action labels`

const followUpFields = `- welcome_message: string, the first text a new lead receives, naming the business and its location
- sequence: array of strings, a 3-5 step follow-up sequence`

const summaryPrompt = `Business: %s
Location: %s
Niche: %s
Overall score: %d (%s)

Section scores and their top issues:
%s

Competitive position: %s

Return a valid JSON object with these fields:
- headline: string, one sentence naming the business and its location with the overall verdict
- overview: string, 3-4 sentences naming the business and its location
- top_priorities: array of strings, the 5 most important fixes`

const planPrompt = `Business: %s
Location: %s
Niche: %s

Known problems:
%s

Return a valid JSON object with a "phases" array of exactly 3 objects, one each for days 1-30, 31-60 and 61-90.
Each object has:
- actions: array of strings, at most 5 concrete actions for that phase`

// factsJSON renders facts for a prompt. It never fails: an unencodable
// value is rendered with %+v.
func factsJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}

func buildCategoryPrompt(id model.Identity, cat model.Category, score int, facts any, fields string) string {
	return fmt.Sprintf(categoryPrompt, id.Name, id.Location, id.Niche, cat, score, factsJSON(facts), fields)
}
