package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/openai"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/perplexity"
)

// Answer is an answer engine's reply and the pages it cited.
type Answer struct {
	Text    string
	Sources []string
}

// AnswerQuestion is the local-intent question put to answer engines.
func AnswerQuestion(id model.Identity) string {
	return fmt.Sprintf("best %s in %s", id.Niche, id.Location)
}

const answerSystem = "You are a local search assistant. Recommend specific businesses by name and include their websites when you know them."

// PerplexityAnswerer asks Perplexity, which returns citations.
type PerplexityAnswerer struct {
	client perplexity.Client
}

// NewPerplexityAnswerer creates the perplexity answer provider.
func NewPerplexityAnswerer(client perplexity.Client) *PerplexityAnswerer {
	return &PerplexityAnswerer{client: client}
}

func (p *PerplexityAnswerer) Name() string { return "perplexity" }

func (p *PerplexityAnswerer) Fetch(ctx context.Context, id model.Identity) (Answer, bool, error) {
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: answerSystem},
			{Role: "user", Content: AnswerQuestion(id) + "?"},
		},
	})
	if err != nil {
		return Answer{}, false, eris.Wrap(err, "perplexity: answer")
	}
	a := Answer{Text: resp.Text(), Sources: resp.SourceURLs()}
	return a, strings.TrimSpace(a.Text) != "", nil
}

// OpenAIAnswerer asks a chat model without web access. It has no citations,
// so only URLs in the text count as cited.
type OpenAIAnswerer struct {
	client openai.Client
	model  string
}

// NewOpenAIAnswerer creates the openai answer provider.
func NewOpenAIAnswerer(client openai.Client, model string) *OpenAIAnswerer {
	return &OpenAIAnswerer{client: client, model: model}
}

func (o *OpenAIAnswerer) Name() string { return "openai" }

func (o *OpenAIAnswerer) Fetch(ctx context.Context, id model.Identity) (Answer, bool, error) {
	resp, err := o.client.Complete(ctx, openai.CompletionRequest{
		Model:     o.model,
		System:    answerSystem,
		Prompt:    AnswerQuestion(id) + "?",
		MaxTokens: 800,
	})
	if err != nil {
		return Answer{}, false, eris.Wrap(err, "openai: answer")
	}
	return Answer{Text: resp.Text}, strings.TrimSpace(resp.Text) != "", nil
}

// AnswerAdapter checks how answer engines talk about the niche locally.
type AnswerAdapter struct {
	chain *Chain[Answer]
}

// NewAnswerAdapter wraps an answer chain.
func NewAnswerAdapter(chain *Chain[Answer]) *AnswerAdapter {
	return &AnswerAdapter{chain: chain}
}

// Fetch always returns a record. competitors are the names checked for
// mentions in the answer.
func (a *AnswerAdapter) Fetch(ctx context.Context, id model.Identity, competitors []string) model.AnswerFacts {
	facts := model.AnswerFacts{Query: AnswerQuestion(id)}
	out := a.chain.Run(ctx, id)
	if !out.Found() {
		facts.DataSource = model.DataSourceUnavailable
		facts.Error = out.Err.Error()
		return facts
	}
	facts = AnalyzeAnswer(facts.Query, out.Value, id, competitors)
	facts.Provider = out.Provider
	facts.DataSource = model.DataSourceStructuredSearch
	return facts
}

// excerptLen bounds the stored answer text.
const excerptLen = 600

// AnalyzeAnswer decides mention, citation and competitor mentions.
func AnalyzeAnswer(query string, ans Answer, id model.Identity, competitors []string) model.AnswerFacts {
	facts := model.AnswerFacts{Query: query}
	text := ans.Text

	facts.Mentioned = match.ContainsFold(text, id.Name) ||
		(id.Domain != "" && strings.Contains(strings.ToLower(text), id.Domain))

	for _, src := range ans.Sources {
		if match.URLMatchesDomain(src, id.Domain) {
			facts.DomainCited = true
			break
		}
	}
	if !facts.DomainCited && len(ans.Sources) == 0 && id.Domain != "" {
		facts.DomainCited = strings.Contains(strings.ToLower(text), id.Domain)
	}

	for _, c := range competitors {
		if match.ContainsFold(text, c) {
			facts.CompetitorsMentioned = append(facts.CompetitorsMentioned, c)
		}
	}

	ex := []rune(strings.TrimSpace(text))
	if len(ex) > excerptLen {
		ex = append(ex[:excerptLen], '…')
	}
	facts.Excerpt = string(ex)
	return facts
}
