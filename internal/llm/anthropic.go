package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mgpai22/subtrans/internal/llmerr"
)

const DefaultAnthropicModel = anthropic.ModelClaudeHaiku4_5

// AnthropicClient talks to the Claude Messages API, ported from the
// teacher's internal/translate/anthropic.go client construction.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropic(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, llmerr.New(llmerr.KindFatal, "anthropic", "API key is required")
	}

	m := anthropic.Model(model)
	if model == "" {
		m = DefaultAnthropicModel
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     m,
		maxTokens: 4096,
	}, nil
}

func (c *AnthropicClient) Provider() string { return "anthropic" }
func (c *AnthropicClient) Model() string    { return string(c.model) }

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, c.classifyError(err)
	}

	if message == nil || len(message.Content) == 0 {
		return Response{}, llmerr.New(llmerr.KindParse, "anthropic", "empty response")
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return Response{}, llmerr.New(llmerr.KindParse, "anthropic", "no text in response")
	}

	return Response{Text: text}, nil
}

func (c *AnthropicClient) classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests, apiErr.StatusCode >= 500:
			return llmerr.Wrap(llmerr.KindTransient, "anthropic", err)
		case apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusForbidden:
			return llmerr.Wrap(llmerr.KindFatal, "anthropic", err)
		}
		return llmerr.Wrap(llmerr.KindFatal, "anthropic", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return llmerr.Wrap(llmerr.KindTransient, "anthropic", err)
	}
	return llmerr.Wrap(llmerr.KindTransient, "anthropic", err)
}
