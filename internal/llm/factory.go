package llm

import (
	"context"
	"fmt"
)

// New builds the Client for a named provider, ported from the teacher's
// internal/translate.Factory switch but returning the uniform llm.Client
// instead of a per-provider Translator.
func New(ctx context.Context, provider, apiKey, model string) (Client, error) {
	switch provider {
	case "openai":
		return NewOpenAI(apiKey, model)
	case "anthropic":
		return NewAnthropic(apiKey, model)
	case "gemini":
		return NewGemini(ctx, apiKey, model)
	case "mistral":
		return NewMistral(apiKey, model)
	case "deepseek":
		return NewDeepSeek(apiKey, model)
	case "bedrock":
		return NewBedrock(apiKey, model) // apiKey carries the AWS region for Bedrock
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
