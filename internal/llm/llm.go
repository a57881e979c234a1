// Package llm puts the generative providers behind one Completer with
// breaker-aware failover.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/pkg/anthropic"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/openai"
)

// ErrNoProvider is returned when no provider is configured or every
// configured provider failed.
var ErrNoProvider = eris.New("llm: no provider available")

// Request is one JSON-mode completion. Category is used for cost logging.
type Request struct {
	Category    string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is the raw generated text and where it came from.
type Response struct {
	Text     string
	Provider string
	Model    string
}

// Provider is one generative backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Completer is what the grounding validator calls.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

const jsonInstruction = "Respond with a single JSON object and nothing else."

// AnthropicProvider adapts pkg/anthropic.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider wraps client with a fixed model.
func NewAnthropicProvider(client anthropic.Client, model string) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	temp := req.Temperature
	system := strings.TrimSpace(req.System + "\n\n" + jsonInstruction)
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   int64(req.MaxTokens),
		System:      []anthropic.SystemBlock{{Text: system}},
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic completion")
	}
	resp.Usage.LogCost(resp.Model, req.Category)
	return &Response{Text: resp.Text(), Provider: p.Name(), Model: resp.Model}, nil
}

// OpenAIProvider adapts pkg/openai with JSON object mode.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider wraps client with a fixed model.
func NewOpenAIProvider(client openai.Client, model string) *OpenAIProvider {
	return &OpenAIProvider{client: client, model: model}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	temp := req.Temperature
	resp, err := p.client.Complete(ctx, openai.CompletionRequest{
		Model:       p.model,
		System:      strings.TrimSpace(req.System + "\n\n" + jsonInstruction),
		Prompt:      req.Prompt,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: &temp,
		JSON:        true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai completion")
	}
	zap.L().Debug("llm: openai usage",
		zap.String("category", req.Category),
		zap.String("model", resp.Model),
		zap.Int64("prompt_tokens", resp.PromptTokens),
		zap.Int64("completion_tokens", resp.CompletionTokens),
	)
	return &Response{Text: resp.Text, Provider: p.Name(), Model: resp.Model}, nil
}
