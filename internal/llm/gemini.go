package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/mgpai22/subtrans/internal/llmerr"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient talks to the Gemini API, ported from the teacher's
// internal/translate/gemini.go client construction.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, llmerr.New(llmerr.KindFatal, "gemini", "API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, llmerr.Wrap(llmerr.KindFatal, "gemini", err)
	}

	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Provider() string { return "gemini" }
func (c *GeminiClient) Model() string    { return c.model }

func (c *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.User)}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var config *genai.GenerateContentConfig
	if req.System != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return Response{}, c.classifyError(err)
	}

	if result == nil || len(result.Candidates) == 0 {
		return Response{}, llmerr.New(llmerr.KindParse, "gemini", "empty response")
	}

	var text string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
		if text != "" {
			break
		}
	}
	if text == "" {
		return Response{}, llmerr.New(llmerr.KindParse, "gemini", "no text in response")
	}

	return Response{Text: text}, nil
}

func (c *GeminiClient) classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429, apiErr.Code >= 500:
			return llmerr.Wrap(llmerr.KindTransient, "gemini", err)
		case apiErr.Code == 401, apiErr.Code == 403:
			return llmerr.Wrap(llmerr.KindFatal, "gemini", err)
		}
		return llmerr.Wrap(llmerr.KindFatal, "gemini", err)
	}
	return llmerr.Wrap(llmerr.KindTransient, "gemini", err)
}
