package llm

import (
	"context"

	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/config"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/anthropic"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/openai"
)

// Failover tries providers in order. A provider whose breaker is open is
// skipped without a call.
type Failover struct {
	providers []Provider
	breakers  *resilience.Breakers
	retry     resilience.RetryConfig
	maxTokens int
	temp      float64
}

// NewFailover builds a failover chain. A nil breakers registry disables
// circuit breaking.
func NewFailover(providers []Provider, breakers *resilience.Breakers, retry resilience.RetryConfig) *Failover {
	return &Failover{providers: providers, breakers: breakers, retry: retry}
}

// Providers returns the provider names in try order.
func (f *Failover) Providers() []string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return names
}

// Complete returns the first successful completion.
func (f *Failover) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = f.maxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = f.temp
	}
	if len(f.providers) == 0 {
		return nil, ErrNoProvider
	}

	var lastErr error
	for _, p := range f.providers {
		var b *resilience.Breaker
		if f.breakers != nil {
			b = f.breakers.For("llm_" + p.Name())
		}

		retry := f.retry
		retry.OnRetry = resilience.LogRetries(p.Name(), "complete")
		resp, err := resilience.Call(ctx, b, retry, func(ctx context.Context) (*Response, error) {
			return p.Complete(ctx, req)
		})
		if err == nil {
			return resp, nil
		}
		zap.L().Warn("llm: provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.String("category", req.Category),
			zap.Error(err),
		)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, eris.Wrapf(ErrNoProvider, "all providers failed: %v", lastErr)
}

// FromConfig builds the failover chain from the configured keys. The
// primary provider comes first; the other is appended when it has a key.
func FromConfig(cfg *config.Config, breakers *resilience.Breakers) *Failover {
	byName := map[string]Provider{}
	if cfg.Anthropic.Key != "" {
		byName["anthropic"] = NewAnthropicProvider(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
	}
	if cfg.OpenAI.Key != "" {
		var opts []option.RequestOption
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		byName["openai"] = NewOpenAIProvider(openai.NewClient(cfg.OpenAI.Key, opts...), cfg.OpenAI.Model)
	}

	order := []string{"anthropic", "openai"}
	if cfg.LLM.Primary == "openai" {
		order = []string{"openai", "anthropic"}
	}

	var providers []Provider
	for _, name := range order {
		if p, ok := byName[name]; ok {
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		zap.L().Warn("llm: no provider keys configured, narratives will use fallbacks")
	}

	f := NewFailover(providers, breakers, resilience.NewRetryConfig(
		cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs,
	))
	f.maxTokens = cfg.LLM.MaxTokens
	f.temp = cfg.LLM.Temperature
	return f
}
