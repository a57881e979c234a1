// Package grounding wraps each generative call so that the narrative can
// never contradict the acquired facts. Scores are always overwritten with
// the deterministic value and business-specific fields must mention the
// business and its location or be replaced with a template.
package grounding

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/llm"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// MaxListItems caps every merged issue, strength and recommendation list.
const MaxListItems = 10

// Anchors are the tokens a business-specific field must contain.
type Anchors struct {
	Name     string
	Location string
}

// NewAnchors takes the first token of the business name and location.
func NewAnchors(name, location string) Anchors {
	return Anchors{Name: match.FirstToken(name), Location: match.FirstToken(location)}
}

// Grounded reports whether text mentions both anchors, ignoring case and
// diacritics. Empty anchors are not required.
func (a Anchors) Grounded(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if a.Name != "" && !match.ContainsFold(text, a.Name) {
		return false
	}
	if a.Location != "" && !match.ContainsFold(text, a.Location) {
		return false
	}
	return true
}

// Ground returns text when it is grounded, otherwise fallback.
func (a Anchors) Ground(field, text, fallback string) string {
	if a.Grounded(text) {
		return text
	}
	if text != "" {
		zap.L().Debug("grounding: replaced ungrounded field",
			zap.String("field", field),
			zap.String("anchor_name", a.Name),
			zap.String("anchor_location", a.Location),
		)
	}
	return fallback
}

// Lists are the list fields every category payload shares.
type Lists struct {
	Issues          []string `json:"issues"`
	Strengths       []string `json:"strengths"`
	Recommendations []string `json:"recommendations"`
}

// MergeList puts real-fact items first, then generated ones not already
// present (exact match after trimming), capped at MaxListItems.
func MergeList(real, generated []string) []string {
	out := make([]string, 0, MaxListItems)
	seen := make(map[string]bool, len(real)+len(generated))
	for _, group := range [][]string{real, generated} {
		for _, item := range group {
			item = strings.TrimSpace(item)
			if item == "" || seen[item] {
				continue
			}
			if len(out) == MaxListItems {
				return out
			}
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}

// Finalize builds the shared category fields. score is the deterministic
// score; whatever the model returned for it is ignored.
func Finalize(score int, source model.DataSource, real, generated Lists) model.CategoryBase {
	return model.CategoryBase{
		Score:           score,
		Issues:          MergeList(real.Issues, generated.Issues),
		Strengths:       MergeList(real.Strengths, generated.Strengths),
		Recommendations: MergeList(real.Recommendations, generated.Recommendations),
		DataSource:      source,
	}
}

// Validator runs one generative call per category.
type Validator struct {
	llm llm.Completer
}

// NewValidator wraps a completer. A nil completer makes every call fall
// back to the caller's defaults.
func NewValidator(c llm.Completer) *Validator {
	return &Validator{llm: c}
}

// Generate asks the model for a JSON object and decodes it into out. It
// returns false, leaving out as the caller's default, when the call or the
// parse fails. It never returns an error.
func (v *Validator) Generate(ctx context.Context, category model.Category, system, prompt string, out any) bool {
	if v == nil || v.llm == nil {
		return false
	}
	log := zap.L().With(zap.String("category", string(category)))

	resp, err := v.llm.Complete(ctx, llm.Request{
		Category: string(category),
		System:   system,
		Prompt:   prompt,
	})
	if err != nil {
		log.Warn("grounding: generation failed, using defaults", zap.Error(err))
		return false
	}
	if err := ParseJSON(resp.Text, out); err != nil {
		log.Warn("grounding: unparseable response, using defaults",
			zap.String("provider", resp.Provider),
			zap.Error(err),
		)
		return false
	}
	return true
}
