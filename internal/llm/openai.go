package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/subtrans/internal/llmerr"
)

const DefaultOpenAIModel = "gpt-5-mini"

// OpenAIClient talks to the OpenAI Chat Completions API, ported from the
// teacher's internal/translate/openai.go client construction. Mistral and
// DeepSeek reuse this same client with their base URL substituted in, the
// way lsilvatti-bakasub's OpenRouterAdapter points the OpenAI wire format
// at a different host.
type OpenAIClient struct {
	client   openai.Client
	provider string
	model    string
}

// NewOpenAI builds a client against the official OpenAI API.
func NewOpenAI(apiKey, model string) (*OpenAIClient, error) {
	return newOpenAICompatible("openai", apiKey, model, DefaultOpenAIModel, "")
}

// NewMistral builds an OpenAI-wire-format client pointed at Mistral's
// OpenAI-compatible endpoint.
func NewMistral(apiKey, model string) (*OpenAIClient, error) {
	return newOpenAICompatible("mistral", apiKey, model, "mistral-large-latest", "https://api.mistral.ai/v1/")
}

// NewDeepSeek builds an OpenAI-wire-format client pointed at DeepSeek's
// OpenAI-compatible endpoint.
func NewDeepSeek(apiKey, model string) (*OpenAIClient, error) {
	return newOpenAICompatible("deepseek", apiKey, model, "deepseek-chat", "https://api.deepseek.com/v1/")
}

func newOpenAICompatible(provider, apiKey, model, defaultModel, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, llmerr.New(llmerr.KindFatal, provider, "API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	if model == "" {
		model = defaultModel
	}

	return &OpenAIClient{
		client:   openai.NewClient(opts...),
		provider: provider,
		model:    model,
	}, nil
}

func (c *OpenAIClient) Provider() string { return c.provider }
func (c *OpenAIClient) Model() string    { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    c.model,
	})
	if err != nil {
		return Response{}, c.classifyError(err)
	}

	if completion == nil || len(completion.Choices) == 0 {
		return Response{}, llmerr.New(llmerr.KindParse, c.provider, "empty response")
	}

	text := completion.Choices[0].Message.Content
	if text == "" {
		return Response{}, llmerr.New(llmerr.KindParse, c.provider, "no text in response")
	}

	return Response{Text: text}, nil
}

func (c *OpenAIClient) classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests, apiErr.StatusCode >= 500:
			return llmerr.Wrap(llmerr.KindTransient, c.provider, err)
		case apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusForbidden:
			return llmerr.Wrap(llmerr.KindFatal, c.provider, err)
		}
		return llmerr.Wrap(llmerr.KindFatal, c.provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return llmerr.Wrap(llmerr.KindTransient, c.provider, err)
	}
	return llmerr.Wrap(llmerr.KindTransient, c.provider, err)
}
