// Package openai adapts the official OpenAI SDK to a single completion call.
// It backs the generative failover provider and the answer-engine fallback.
package openai

import (
	"context"
	"errors"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
)

const defaultModel = "gpt-4o-mini"

// Client defines the chat completion surface used by the pipeline.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is one system + user exchange.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature *float64
	// JSON requests a JSON object response.
	JSON bool
}

// CompletionResponse carries the first choice and token usage.
type CompletionResponse struct {
	ID               string
	Model            string
	Text             string
	FinishReason     string
	PromptTokens     int64
	CompletionTokens int64
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates a client backed by openai-go. Extra SDK options (base
// URL, retries, http client) are passed through.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &sdkClient{client: sdk.NewClient(all...)}
}

func (c *sdkClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	var msgs []sdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, sdk.SystemMessage(req.System))
	}
	msgs = append(msgs, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.JSON {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &sdk.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(eris.Wrap(err, "openai: create completion"), err)
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: response has no choices")
	}

	return &CompletionResponse{
		ID:               resp.ID,
		Model:            resp.Model,
		Text:             resp.Choices[0].Message.Content,
		FinishReason:     resp.Choices[0].FinishReason,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func classify(wrapped, cause error) error {
	var apiErr *sdk.Error
	if errors.As(cause, &apiErr) {
		if resilience.RetryableStatus(apiErr.StatusCode) {
			return resilience.NewTransientError(wrapped, apiErr.StatusCode)
		}
		return wrapped
	}
	if resilience.IsTransient(cause) {
		return resilience.NewTransientError(wrapped, 0)
	}
	return wrapped
}
