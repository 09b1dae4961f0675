// Package instructions loads and renders the prompt templates sent to
// the LLM: the user prompt, the main system instructions, and the retry
// (repair) instructions, with `[tag]` substitution from project settings.
package instructions

import "strings"

const DefaultTaskType = "Translation"

const defaultUserPrompt = "Translate these subtitles[ for movie][ to language]"

var defaultInstructionLines = []string{
	"The goal is to accurately translate subtitles into a target language.",
	"",
	"You will receive a batch of lines for translation. Carefully read through the lines, along with any additional context provided.",
	"Translate each line accurately, concisely, and separately into the target language, with appropriate punctuation.",
	"",
	"The translation must have the same number of lines as the original, but you can adapt the content to fit the grammar of the target language.",
	"Make sure to translate all provided lines and do not ask whether to continue.",
	"",
	"Use any provided context to enhance your translations. If a name list is provided, ensure names are spelled according to the user's preference.",
	"If you detect obvious errors in the input, correct them in the translation using the available context, but do not improvise.",
	"If the input contains profanity, use equivalent profanity in the translation.",
	"",
	"At the end you should add <summary> and <scene> tags with information about the translation:",
	"<summary>A one or two line synopsis of the current batch.</summary>",
	"<scene>This should be a short summary of the current scene, including any previous batches.</scene>",
	"If the context is unclear, just summarize the dialogue.",
	"",
	"Your response will be processed by an automated system, so you MUST respond using the required format:",
	"",
	"Example (translating to English):",
	"",
	"#200",
	"Original>",
	"変わりゆく時代において、",
	"Translation>",
	"In an ever-changing era,",
	"",
	"#501",
	"Original>",
	"進化し続けることが生き残る秘訣です。",
	"Translation>",
	"continuing to evolve is the key to survival.",
}

var defaultRetryInstructionLines = []string{
	"There was an issue with the previous translation.",
	"",
	"Translate the subtitles again, ensuring each line is translated SEPARATELY, and EVERY line has a corresponding translation.",
	"",
	"Do NOT merge lines together in the translation, it leads to incorrect timings and confusion for the reader.",
}

var (
	DefaultInstructions      = strings.Join(defaultInstructionLines, "\n")
	DefaultRetryInstructions = strings.Join(defaultRetryInstructionLines, "\n")
)

// Instructions is the rendered prompt bundle for one translation run.
type Instructions struct {
	Prompt            string
	Instructions      string
	RetryInstructions string
	InstructionFile   string
	TargetLanguage    string
	TaskType          string
}

// New builds Instructions from project settings, falling back to the
// package defaults for any field the settings don't override, then
// resolves `[tag]` placeholders against movie_name/target_language and
// any other truthy setting.
func New(settings map[string]any, extraArgs []string) *Instructions {
	ins := &Instructions{
		Prompt:            stringOr(settings["prompt"], defaultUserPrompt),
		Instructions:      stringOr(settings["instructions"], DefaultInstructions),
		RetryInstructions: stringOr(settings["retry_instructions"], DefaultRetryInstructions),
		InstructionFile:   stringOr(settings["instruction_file"], ""),
		TaskType:          stringOr(settings["task_type"], DefaultTaskType),
	}

	if len(extraArgs) > 0 {
		additional := strings.Join(extraArgs, "\n")
		if additional != "" {
			ins.Instructions = strings.Join([]string{ins.Instructions, additional}, "\n")
		}
	}

	tags := map[string]string{
		" for movie":   "",
		" to language": "",
	}
	if movie, ok := settings["movie_name"].(string); ok && movie != "" {
		tags[" for movie"] = " for " + movie
	}
	if lang, ok := settings["to_language"].(string); ok && lang != "" {
		tags[" to language"] = " to " + lang
	} else if lang, ok := settings["target_language"].(string); ok && lang != "" {
		tags[" to language"] = " to " + lang
	}
	for k, v := range settings {
		if s, ok := v.(string); ok && s != "" {
			tags[k] = s
		}
	}

	ins.Prompt = replaceTags(ins.Prompt, tags)
	ins.Instructions = replaceTags(ins.Instructions, tags)
	ins.RetryInstructions = replaceTags(ins.RetryInstructions, tags)

	return ins
}

// replaceTags replaces every `[name]` occurrence in text with tags[name],
// skipping tags with an empty value.
func replaceTags(text string, tags map[string]string) string {
	for name, value := range tags {
		if value == "" {
			continue
		}
		text = strings.ReplaceAll(text, "["+name+"]", value)
	}
	// Drop any unresolved optional tags (e.g. "[ for movie]" when no
	// movie_name was set) rather than leaving the brackets in the prompt.
	text = strings.ReplaceAll(text, "[ for movie]", "")
	text = strings.ReplaceAll(text, "[ to language]", "")
	return text
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
