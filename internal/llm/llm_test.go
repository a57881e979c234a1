package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/config"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/anthropic"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/openai"
)

type mockProvider struct {
	mock.Mock
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*Response), args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeAnthropic struct {
	got  anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fakeOpenAI struct {
	got  openai.CompletionRequest
	resp *openai.CompletionResponse
	err  error
}

func (f *fakeOpenAI) Complete(_ context.Context, req openai.CompletionRequest) (*openai.CompletionResponse, error) {
	f.got = req
	return f.resp, f.err
}

func oneShot() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1}
}

func TestFailover_PrimarySucceeds(t *testing.T) {
	primary := &mockProvider{name: "anthropic"}
	secondary := &mockProvider{name: "openai"}
	primary.On("Complete", mock.Anything, mock.Anything).
		Return(&Response{Text: `{"a":1}`, Provider: "anthropic"}, nil).Once()

	f := NewFailover([]Provider{primary, secondary}, nil, oneShot())
	resp, err := f.Complete(context.Background(), Request{Category: "profile", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", resp.Provider)
	primary.AssertExpectations(t)
	secondary.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFailover_FallsBackOnError(t *testing.T) {
	primary := &mockProvider{name: "anthropic"}
	secondary := &mockProvider{name: "openai"}
	primary.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded")).Once()
	secondary.On("Complete", mock.Anything, mock.Anything).
		Return(&Response{Text: "{}", Provider: "openai"}, nil).Once()

	f := NewFailover([]Provider{primary, secondary}, nil, oneShot())
	resp, err := f.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "openai", resp.Provider)
	primary.AssertExpectations(t)
	secondary.AssertExpectations(t)
}

func TestFailover_AllFail(t *testing.T) {
	primary := &mockProvider{name: "anthropic"}
	primary.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("bad key"))

	f := NewFailover([]Provider{primary}, nil, oneShot())
	_, err := f.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoProvider))
	assert.Contains(t, err.Error(), "bad key")
}

func TestFailover_NoProviders(t *testing.T) {
	f := NewFailover(nil, nil, oneShot())
	_, err := f.Complete(context.Background(), Request{Prompt: "x"})
	assert.True(t, eris.Is(err, ErrNoProvider))
}

func TestFailover_SkipsOpenBreaker(t *testing.T) {
	breakers := resilience.NewBreakers(resilience.BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour})
	breakers.For("llm_anthropic").Record(errors.New("down"))

	primary := &mockProvider{name: "anthropic"}
	secondary := &mockProvider{name: "openai"}
	secondary.On("Complete", mock.Anything, mock.Anything).
		Return(&Response{Text: "{}", Provider: "openai"}, nil).Once()

	f := NewFailover([]Provider{primary, secondary}, breakers, oneShot())
	resp, err := f.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "openai", resp.Provider)
	primary.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFailover_RetriesTransient(t *testing.T) {
	p := &mockProvider{name: "openai"}
	transient := resilience.NewTransientError(errors.New("rate limited"), http.StatusTooManyRequests)
	p.On("Complete", mock.Anything, mock.Anything).Return(nil, transient).Once()
	p.On("Complete", mock.Anything, mock.Anything).Return(&Response{Text: "{}", Provider: "openai"}, nil).Once()

	retry := resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	f := NewFailover([]Provider{p}, nil, retry)
	_, err := f.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	p.AssertNumberOfCalls(t, "Complete", 2)
}

func TestFailover_AppliesDefaults(t *testing.T) {
	p := &mockProvider{name: "openai"}
	p.On("Complete", mock.Anything, mock.MatchedBy(func(r Request) bool {
		return r.MaxTokens == 1500 && r.Temperature == 0.3
	})).Return(&Response{Text: "{}"}, nil).Once()

	f := NewFailover([]Provider{p}, nil, oneShot())
	f.maxTokens = 1500
	f.temp = 0.3
	_, err := f.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestAnthropicProvider_Complete(t *testing.T) {
	fake := &fakeAnthropic{resp: &anthropic.MessageResponse{
		Model:   "claude-sonnet-4-5-20250929",
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"score":1}`}},
	}}
	p := NewAnthropicProvider(fake, "claude-sonnet-4-5-20250929")

	resp, err := p.Complete(context.Background(), Request{System: "You audit.", Prompt: "facts", MaxTokens: 900, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, `{"score":1}`, resp.Text)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, int64(900), fake.got.MaxTokens)
	require.Len(t, fake.got.System, 1)
	assert.Contains(t, fake.got.System[0].Text, "You audit.")
	assert.Contains(t, fake.got.System[0].Text, "JSON object")
	require.NotNil(t, fake.got.Temperature)
	assert.InDelta(t, 0.2, *fake.got.Temperature, 1e-9)
}

func TestAnthropicProvider_Error(t *testing.T) {
	p := NewAnthropicProvider(&fakeAnthropic{err: errors.New("boom")}, "m")
	_, err := p.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic completion")
}

func TestOpenAIProvider_Complete(t *testing.T) {
	fake := &fakeOpenAI{resp: &openai.CompletionResponse{Model: "gpt-4o-mini", Text: "{}"}}
	p := NewOpenAIProvider(fake, "gpt-4o-mini")

	resp, err := p.Complete(context.Background(), Request{Prompt: "facts", MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text)
	assert.True(t, fake.got.JSON)
	assert.Equal(t, "gpt-4o-mini", fake.got.Model)
	assert.Equal(t, int64(500), fake.got.MaxTokens)
}

func TestFromConfig_Order(t *testing.T) {
	cfg := &config.Config{}
	cfg.Anthropic.Key = "a"
	cfg.OpenAI.Key = "o"
	cfg.LLM.Primary = "openai"

	f := FromConfig(cfg, nil)
	assert.Equal(t, []string{"openai", "anthropic"}, f.Providers())

	cfg.LLM.Primary = "anthropic"
	assert.Equal(t, []string{"anthropic", "openai"}, FromConfig(cfg, nil).Providers())
}

func TestFromConfig_OnlyKeyed(t *testing.T) {
	cfg := &config.Config{}
	cfg.OpenAI.Key = "o"
	cfg.LLM.Primary = "anthropic"
	assert.Equal(t, []string{"openai"}, FromConfig(cfg, nil).Providers())

	assert.Empty(t, FromConfig(&config.Config{}, nil).Providers())
}
