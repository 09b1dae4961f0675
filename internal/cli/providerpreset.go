package cli

import "strings"

// ProviderPreset pins one binary to a single provider, per
// original_source/scripts/gpt-subtrans.py, gemini-subtrans.py and
// mistral-subtrans.py: each script hard-codes its provider name and reads
// its API key/model from a provider-specific pair of environment
// variables. Name == "" is the multi-provider binary, where the caller
// must pass --provider explicitly.
type ProviderPreset struct {
	Name      string // "openai", "anthropic", "gemini", "mistral", "deepseek", "bedrock"
	EnvPrefix string // upper-cased prefix for <PREFIX>_API_KEY / <PREFIX>_MODEL
}

var (
	OpenAIPreset    = ProviderPreset{Name: "openai", EnvPrefix: "OPENAI"}
	AnthropicPreset = ProviderPreset{Name: "anthropic", EnvPrefix: "ANTHROPIC"}
	GeminiPreset    = ProviderPreset{Name: "gemini", EnvPrefix: "GEMINI"}
	MistralPreset   = ProviderPreset{Name: "mistral", EnvPrefix: "MISTRAL"}
	DeepSeekPreset  = ProviderPreset{Name: "deepseek", EnvPrefix: "DEEPSEEK"}
	// BedrockPreset's "API key" is actually the AWS region, per
	// llm.New's apiKey-carries-region comment.
	BedrockPreset = ProviderPreset{Name: "bedrock", EnvPrefix: "BEDROCK"}

	// MultiProviderPreset backs cmd/subtrans, which requires --provider.
	MultiProviderPreset = ProviderPreset{}
)

var presetsByName = map[string]ProviderPreset{
	OpenAIPreset.Name:    OpenAIPreset,
	AnthropicPreset.Name: AnthropicPreset,
	GeminiPreset.Name:    GeminiPreset,
	MistralPreset.Name:   MistralPreset,
	DeepSeekPreset.Name:  DeepSeekPreset,
	BedrockPreset.Name:   BedrockPreset,
}

func lookupPreset(name string) (ProviderPreset, bool) {
	preset, ok := presetsByName[strings.ToLower(strings.TrimSpace(name))]
	return preset, ok
}

func (p ProviderPreset) apiKeyEnvVar() string { return p.EnvPrefix + "_API_KEY" }
func (p ProviderPreset) modelEnvVar() string  { return p.EnvPrefix + "_MODEL" }
